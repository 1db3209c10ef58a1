package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/registry"
	"github.com/vaultledger/server/pkg/models"
)

// GetUser loads a user document. Admins can read anyone; other callers only
// themselves.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	uid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !h.canTouchUser(r, uid) {
		writeError(w, http.StatusForbidden, "not your account")
		return
	}
	u, err := h.registry.GetUser(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUser updates a user's profile fields.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	uid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !h.canTouchUser(r, uid) {
		writeError(w, http.StatusForbidden, "not your account")
		return
	}
	var in struct {
		Name  string `json:"name"`
		About string `json:"about"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.registry.UpdateUserProfile(r.Context(), uid, in.Name, in.About)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// CreateAdmin onboards another admin account.
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var in registry.CreateAdminInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.registry.CreateAdmin(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) canTouchUser(r *http.Request, uid primitive.ObjectID) bool {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		return false
	}
	return id.Role == models.RoleAdmin || id.ID == uid.Hex()
}
