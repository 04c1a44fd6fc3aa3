package users

import (
	"context"
	"fmt"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UpdateAttributes(ctx context.Context, id int64, update AttributeUpdate) (User, error)
}

// Service handles user administration logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches one user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdateAttributes replaces the user's ABAC attributes after bounds checks.
func (s *Service) UpdateAttributes(ctx context.Context, id int64, update AttributeUpdate) (User, error) {
	if update.Level != nil && *update.Level < 0 {
		return User{}, fmt.Errorf("users: level must not be negative")
	}
	return s.repo.UpdateAttributes(ctx, id, update)
}
