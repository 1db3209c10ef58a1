// Package auth verifies credentials for both roles. Admins live in the users
// collection, clients in the clients collection (keyed by portal email), and
// both store bcrypt hashes only.
package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/identity"
	"github.com/vaultledger/server/pkg/models"
)

const bcryptCost = 12

// HashPassword hashes a plain password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plain password against a stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service authenticates logins.
type Service struct {
	users   store.UserStore
	clients store.ClientStore
}

// NewService creates the auth Service.
func NewService(users store.UserStore, clients store.ClientStore) *Service {
	return &Service{users: users, clients: clients}
}

// Authenticate checks the credentials for the requested role and returns the
// authenticated identity. The same ErrInvalidCredentials comes back for an
// unknown account and a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password, role string) (*identity.Identity, error) {
	email = identity.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	switch role {
	case models.RoleAdmin:
		return s.authenticateAdmin(ctx, email, password)
	case models.RoleClient:
		return s.authenticateClient(ctx, email, password)
	default:
		return nil, fmt.Errorf("unknown role %q: %w", role, ErrInvalidCredentials)
	}
}

func (s *Service) authenticateAdmin(ctx context.Context, email, password string) (*identity.Identity, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup admin %s: %w", email, err)
	}
	if u == nil || u.Role != models.RoleAdmin || !CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &identity.Identity{ID: u.ID.Hex(), Email: u.Email, Name: u.Name, Role: models.RoleAdmin}, nil
}

func (s *Service) authenticateClient(ctx context.Context, email, password string) (*identity.Identity, error) {
	c, err := s.clients.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup client %s: %w", email, err)
	}
	if c == nil || !CheckPassword(c.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if c.Status == models.ClientInactive {
		return nil, ErrAccountDisabled
	}
	return &identity.Identity{
		ID:    c.ID.Hex(),
		Email: identity.LoginEmail(c.PortalEmail, c.Email),
		Name:  c.Name,
		Role:  models.RoleClient,
	}, nil
}
