package handlers

import (
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login authenticates either role and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.auth.Authenticate(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	tok, err := h.tokens.Issue(*id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token: tok,
		ID:    id.ID,
		Email: id.Email,
		Name:  id.Name,
		Role:  id.Role,
	})
}
