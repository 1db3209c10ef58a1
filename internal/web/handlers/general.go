package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultledger/server/pkg/models"
)

// Dashboard returns the admin overview stats.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// MyProfile returns the caller's portal profile with a 30-day statement.
// Admin callers get their user record instead.
func (h *Handler) MyProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	if id.Role == models.RoleAdmin {
		writeJSON(w, http.StatusOK, map[string]any{"email": id.Email, "name": id.Name, "role": id.Role})
		return
	}
	profile, err := h.registry.ProfileForClient(r.Context(), id.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// MyProjects returns the caller's projects with derived milestone flags.
func (h *Handler) MyProjects(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	email := id.Email
	if id.Role == models.RoleAdmin {
		if q := r.URL.Query().Get("clientEmail"); q != "" {
			email = q
		}
	}
	views, err := h.registry.ProjectsForClient(r.Context(), email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// ProjectDetails returns one project's portal view with progress.
func (h *Handler) ProjectDetails(w http.ResponseWriter, r *http.Request) {
	client, view, err := h.registry.ProjectDetails(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, _ := IdentityFromContext(r.Context())
	if id.Role != models.RoleAdmin {
		login := client.PortalEmail
		if login == "" {
			login = client.Email
		}
		if login != id.Email {
			writeError(w, http.StatusForbidden, "not your project")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clientName": client.Name,
		"project":    view,
	})
}

// GetSettings returns the site settings document.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cfg == nil {
		cfg = &models.Settings{Key: models.SettingsKey}
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateSettings upserts the site settings document.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in models.Settings
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.settings.Upsert(r.Context(), in); err != nil {
		writeServiceError(w, err)
		return
	}
	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
