package registry

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/apperr"
	"github.com/vaultledger/server/internal/auth"
	"github.com/vaultledger/server/pkg/identity"
	"github.com/vaultledger/server/pkg/models"
)

// GetUser loads one user document.
func (s *Service) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id.Hex(), err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return u, nil
}

// UpdateUserProfile updates the mutable profile fields.
func (s *Service) UpdateUserProfile(ctx context.Context, id primitive.ObjectID, name, about string) (*models.User, error) {
	matched, err := s.users.UpdateProfile(ctx, id, name, about)
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id.Hex(), err)
	}
	if !matched {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

// CreateAdminInput onboards an additional admin account.
type CreateAdminInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateAdmin creates another admin user with a hashed password.
func (s *Service) CreateAdmin(ctx context.Context, in CreateAdminInput) (*models.User, error) {
	in.Email = identity.NormalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("create admin: name, email and password are required: %w", apperr.ErrValidation)
	}
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user with email %s already exists: %w", in.Email, apperr.ErrConflict)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:      in.Name,
		Email:     in.Email,
		Password:  hash,
		Role:      models.RoleAdmin,
		CreatedAt: s.now(),
	}
	if _, err := s.users.Insert(ctx, u); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return u, nil
}
