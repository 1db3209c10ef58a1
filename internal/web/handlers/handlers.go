// Package handlers is the JSON HTTP surface over the billing services.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaultledger/server/internal/auth"
	"github.com/vaultledger/server/internal/ledger"
	"github.com/vaultledger/server/internal/projection"
	"github.com/vaultledger/server/internal/registry"
	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/internal/token"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	registry *registry.Service
	ledger   *ledger.Service
	auth     *auth.Service
	tokens   *token.Service
	proj     *projection.Engine
	invoices store.InvoiceStore
	settings store.SettingsStore
}

// New creates a Handler over the service layer.
func New(reg *registry.Service, led *ledger.Service, authSvc *auth.Service, tokens *token.Service, proj *projection.Engine, invoices store.InvoiceStore, settings store.SettingsStore) *Handler {
	return &Handler{
		registry: reg,
		ledger:   led,
		auth:     authSvc,
		tokens:   tokens,
		proj:     proj,
		invoices: invoices,
		settings: settings,
	}
}

// Routes builds the API router. Everything except login and health sits
// behind the bearer-token gate; mutating registry and ledger routes are
// admin-only.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.Health)
	r.Post("/api/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.tokens))

		r.Get("/api/profile/me", h.MyProfile)
		r.Get("/api/projects", h.MyProjects)
		r.Get("/api/projects/{projectID}", h.ProjectDetails)
		r.Get("/api/invoices", h.ListInvoices)
		r.Get("/api/invoices/{ref}", h.GetInvoice)
		r.Get("/api/invoices/{ref}/pdf", h.DownloadInvoice)
		r.Post("/api/invoices/{ref}/pay", h.PayInvoice)
		r.Get("/api/settings", h.GetSettings)
		r.Get("/api/users/{userID}", h.GetUser)
		r.Put("/api/users/{userID}", h.UpdateUser)

		r.Group(func(r chi.Router) {
			r.Use(AdminMiddleware)

			r.Get("/api/dashboard/stats", h.Dashboard)
			r.Put("/api/settings", h.UpdateSettings)

			r.Get("/api/clients", h.ListClients)
			r.Post("/api/clients", h.CreateClient)
			r.Get("/api/clients/{clientID}", h.GetClient)
			r.Put("/api/clients/{clientID}", h.UpdateClient)
			r.Delete("/api/clients/{clientID}", h.DeleteClient)
			r.Post("/api/clients/{clientID}/deploy-project", h.DeployProject)
			r.Post("/api/clients/{clientID}/milestone-payment", h.PayMilestone)
			r.Put("/api/projects/{projectID}/status", h.UpdateProjectStatus)

			r.Post("/api/invoices", h.CreateInvoice)
			r.Put("/api/invoices/{ref}", h.PatchInvoice)
			r.Post("/api/invoices/{ref}/send", h.SendInvoice)
			r.Delete("/api/invoices/{ref}", h.DeleteInvoice)
			r.Post("/api/invoices/bulk-delete", h.BulkDeleteInvoices)
			r.Post("/api/projections/{email}/rebuild", h.RebuildSummaries)
			r.Post("/api/manage-admins", h.CreateAdmin)
		})
	})

	return r
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
