package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/registry"
	"github.com/vaultledger/server/internal/store"
)

func clientID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "clientID"))
	return id, err == nil
}

// ListClients returns clients, optionally narrowed by ?search= and ?status=.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.registry.ListClients(r.Context(), store.ClientFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// CreateClient onboards a client and queues the credentials email.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var in registry.CreateClientInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.registry.CreateClient(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"client":   res.Client,
		"warnings": res.Warnings,
	})
}

// GetClient loads one client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	client, err := h.registry.GetClient(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// UpdateClient applies a partial client update.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var in registry.UpdateClientInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	client, err := h.registry.UpdateClient(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// DeleteClient removes a client and its portal user.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	warnings, err := h.registry.DeleteClient(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":  true,
		"warnings": warnings,
	})
}

// DeployProject starts a project and issues its first milestone invoice.
func (h *Handler) DeployProject(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var in registry.DeployProjectInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if id2, ok := IdentityFromContext(r.Context()); ok && in.AdminEmail == "" {
		in.AdminEmail = id2.Email
	}
	res, err := h.registry.DeployProject(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"project":  res.Project,
		"invoice":  res.FirstInvoice,
		"warnings": res.Warnings,
	})
}

// PayMilestone settles one milestone atomically.
func (h *Handler) PayMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var in registry.PayMilestoneInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.registry.PayMilestone(r.Context(), id, in); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paid": true})
}

// UpdateProjectStatus sets a project's status by project id.
func (h *Handler) UpdateProjectStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &in); err != nil || in.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	projectID := chi.URLParam(r, "projectID")
	if err := h.registry.UpdateProjectStatus(r.Context(), projectID, in.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"projectId": projectID, "status": in.Status})
}
