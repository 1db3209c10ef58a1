// Package registry manages clients and their embedded projects and
// milestones: onboarding, project deployment, milestone settlement and the
// client-facing portal views derived from them.
package registry

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/apperr"
	"github.com/vaultledger/server/internal/auth"
	"github.com/vaultledger/server/internal/ledger"
	"github.com/vaultledger/server/internal/notifier"
	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/identity"
	"github.com/vaultledger/server/pkg/models"
)

// Service is the client and project registry.
type Service struct {
	clients  store.ClientStore
	users    store.UserStore
	invoices store.InvoiceStore
	settings store.SettingsStore
	ledger   *ledger.Service
	queue    notifier.Notifier
	now      func() time.Time
}

// Options carries the registry's collaborators. Queue may be nil in tests.
type Options struct {
	Clients  store.ClientStore
	Users    store.UserStore
	Invoices store.InvoiceStore
	Settings store.SettingsStore
	Ledger   *ledger.Service
	Queue    notifier.Notifier
	Now      func() time.Time
}

// New creates the registry Service.
func New(o Options) *Service {
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Service{
		clients:  o.Clients,
		users:    o.Users,
		invoices: o.Invoices,
		settings: o.Settings,
		ledger:   o.Ledger,
		queue:    o.Queue,
		now:      o.Now,
	}
}

// CreateClientInput is the onboarding request. Password arrives plain and is
// hashed before any write; only the credentials email ever carries it onward.
// Embedded projects may be supplied and are given generated ids on insert.
type CreateClientInput struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	PortalEmail string           `json:"portalEmail"`
	Password    string           `json:"password"`
	CompanyName string           `json:"companyName"`
	Projects    []models.Project `json:"projects"`
}

// ClientResult pairs a client with non-fatal warnings from the onboarding
// side effects.
type ClientResult struct {
	Client   *models.Client
	Warnings []string
}

// CreateClient onboards a client: the client document, a linked client-role
// user document for invoice summaries, and a queued credentials email. The
// client document is the authoritative write; the rest degrade to warnings.
func (s *Service) CreateClient(ctx context.Context, in CreateClientInput) (*ClientResult, error) {
	in.Email = identity.NormalizeEmail(in.Email)
	in.PortalEmail = identity.NormalizeEmail(in.PortalEmail)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("create client: name, email and password are required: %w", apperr.ErrValidation)
	}
	loginEmail := identity.LoginEmail(in.PortalEmail, in.Email)

	existing, err := s.clients.FindByEmail(ctx, loginEmail)
	if err != nil {
		return nil, fmt.Errorf("check existing client: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("client with email %s already exists: %w", loginEmail, apperr.ErrConflict)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	client := &models.Client{
		Name:        in.Name,
		Email:       in.Email,
		PortalEmail: in.PortalEmail,
		Password:    hash,
		CompanyName: in.CompanyName,
		Status:      models.ClientActive,
		CreatedAt:   now,
		Projects:    normalizeProjects(in.Projects, now),
	}
	id, err := s.clients.Insert(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	client.ID = id

	res := &ClientResult{Client: client}
	user := &models.User{
		Name:      in.Name,
		Email:     loginEmail,
		Password:  hash,
		Role:      models.RoleClient,
		ClientID:  &id,
		CreatedAt: now,
	}
	if _, err := s.users.Insert(ctx, user); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("create portal user: %v", err))
	}

	if s.queue != nil {
		business := s.businessName(ctx)
		msg, err := notifier.CredentialsEmail(business, in.Name, loginEmail, in.Password)
		if err == nil {
			err = s.queue.Send(ctx, msg)
		}
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("queue credentials email: %v", err))
		}
	}
	return res, nil
}

// GetClient loads one client.
func (s *Service) GetClient(ctx context.Context, id primitive.ObjectID) (*models.Client, error) {
	c, err := s.clients.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id.Hex(), err)
	}
	if c == nil {
		return nil, fmt.Errorf("client %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return c, nil
}

// FindClientByEmail resolves a client by contact or portal email.
func (s *Service) FindClientByEmail(ctx context.Context, email string) (*models.Client, error) {
	c, err := s.clients.FindByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find client %s: %w", email, err)
	}
	if c == nil {
		return nil, fmt.Errorf("client %s: %w", email, apperr.ErrNotFound)
	}
	return c, nil
}

// ListClients returns clients matching the filter, newest first.
func (s *Service) ListClients(ctx context.Context, f store.ClientFilter) ([]models.Client, error) {
	out, err := s.clients.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return out, nil
}

// UpdateClientInput is a partial client update. A non-empty Password is
// re-hashed; a non-nil Projects replaces the embedded array wholesale, with
// fresh ids assigned to any project or milestone lacking one.
type UpdateClientInput struct {
	Name        *string           `json:"name"`
	Email       *string           `json:"email"`
	PortalEmail *string           `json:"portalEmail"`
	Password    *string           `json:"password"`
	CompanyName *string           `json:"companyName"`
	Status      *string           `json:"status"`
	Projects    *[]models.Project `json:"projects"`
}

// UpdateClient applies a partial update and returns the fresh document.
func (s *Service) UpdateClient(ctx context.Context, id primitive.ObjectID, in UpdateClientInput) (*models.Client, error) {
	patch := store.ClientPatch{
		Name:        in.Name,
		CompanyName: in.CompanyName,
		Status:      in.Status,
	}
	if in.Projects != nil {
		projects := normalizeProjects(*in.Projects, s.now())
		patch.Projects = &projects
	}
	if in.Email != nil {
		norm := identity.NormalizeEmail(*in.Email)
		patch.Email = &norm
	}
	if in.PortalEmail != nil {
		norm := identity.NormalizeEmail(*in.PortalEmail)
		patch.PortalEmail = &norm
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		patch.Password = &hash
	}

	matched, err := s.clients.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update client %s: %w", id.Hex(), err)
	}
	if !matched {
		return nil, fmt.Errorf("client %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return s.GetClient(ctx, id)
}

// DeleteClient removes a client and its linked portal user. The client
// delete is authoritative; the user cleanup degrades to a warning.
func (s *Service) DeleteClient(ctx context.Context, id primitive.ObjectID) ([]string, error) {
	if _, err := s.GetClient(ctx, id); err != nil {
		return nil, err
	}
	if err := s.clients.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete client %s: %w", id.Hex(), err)
	}
	var warnings []string
	if err := s.users.DeleteByClientID(ctx, id); err != nil {
		warnings = append(warnings, fmt.Sprintf("delete portal user: %v", err))
	}
	return warnings, nil
}

func (s *Service) businessName(ctx context.Context) string {
	cfg, err := s.settings.Get(ctx)
	if err != nil || cfg == nil || cfg.BusinessName == "" {
		return "your service provider"
	}
	return cfg.BusinessName
}
