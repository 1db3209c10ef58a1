package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultledger/server/internal/ledger"
	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/models"
)

// ListInvoices returns invoices scoped to the caller: admins see what they
// issued, clients see what they received.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	f := store.InvoiceFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}
	if id.Role == models.RoleAdmin {
		f.AdminEmail = id.Email
	} else {
		f.ClientEmail = id.Email
	}
	invoices, err := h.ledger.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// CreateInvoice creates an invoice and fans its summary out.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var in ledger.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if id, ok := IdentityFromContext(r.Context()); ok && in.AdminEmail == "" {
		in.AdminEmail = id.Email
	}
	res, err := h.ledger.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"invoice":  res.Invoice,
		"warnings": res.Warnings,
	})
}

// GetInvoice resolves an invoice by document id or invoice number. Clients
// may only read their own invoices.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.ledger.Find(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !h.canReadInvoice(r, inv) {
		writeError(w, http.StatusForbidden, "not your invoice")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// PatchInvoice applies a partial update and syncs both summary lists.
func (h *Handler) PatchInvoice(w http.ResponseWriter, r *http.Request) {
	var in ledger.PatchInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.ledger.Patch(r.Context(), chi.URLParam(r, "ref"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invoice":  res.Invoice,
		"warnings": res.Warnings,
	})
}

// PayInvoice settles an invoice and triggers milestone progression. Clients
// may pay only their own invoices.
func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	inv, err := h.ledger.Find(r.Context(), ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !h.canReadInvoice(r, inv) {
		writeError(w, http.StatusForbidden, "not your invoice")
		return
	}
	res, err := h.ledger.TransitionToPaid(r.Context(), ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invoice":          res.Invoice,
		"nextInvoice":      res.NextInvoice,
		"projectCompleted": res.ProjectCompleted,
		"warnings":         res.Warnings,
	})
}

// SendInvoice queues the invoice email with its PDF attached.
func (h *Handler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	res, err := h.ledger.Send(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queued":   true,
		"invoice":  res.Invoice,
		"warnings": res.Warnings,
	})
}

// DownloadInvoice streams the invoice PDF.
func (h *Handler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	inv, pdf, err := h.ledger.Render(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !h.canReadInvoice(r, inv) {
		writeError(w, http.StatusForbidden, "not your invoice")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", inv.InvoiceID+".pdf"))
	w.Write(pdf)
}

// DeleteInvoice removes an invoice and its summaries.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	warnings, err := h.ledger.Delete(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":  true,
		"warnings": warnings,
	})
}

// BulkDeleteInvoices deletes each referenced invoice independently; partial
// completion is reported, never rolled back.
func (h *Handler) BulkDeleteInvoices(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refs []string `json:"refs"`
	}
	if err := decodeJSON(r, &in); err != nil || len(in.Refs) == 0 {
		writeError(w, http.StatusBadRequest, "refs is required")
		return
	}
	deleted, warnings := h.ledger.BulkDelete(r.Context(), in.Refs)
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":  deleted,
		"warnings": warnings,
	})
}

// RebuildSummaries recomputes one user's summary lists from the ledger.
func (h *Handler) RebuildSummaries(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := h.proj.Rebuild(r.Context(), h.invoices, email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rebuilt": email})
}

func (h *Handler) canReadInvoice(r *http.Request, inv *models.Invoice) bool {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		return false
	}
	if id.Role == models.RoleAdmin {
		return true
	}
	return inv.ClientEmail == id.Email
}
