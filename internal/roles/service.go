package roles

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for roles and grants.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string, grantsAll bool) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string, grantsAll bool) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	UpsertGrant(ctx context.Context, grant Grant) (Grant, error)
	ListGrants(ctx context.Context, roleID int64) ([]Grant, error)
	DeleteGrant(ctx context.Context, roleID, featureID int64) error
}

// Service orchestrates role and grant administration.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string, grantsAll bool) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: name required")
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description), grantsAll)
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string, grantsAll bool) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: name required")
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description), grantsAll)
}

// DeleteRole removes a role.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// AssignRole links a user to a role.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignRole(ctx, userID, roleID)
}

// RemoveRole unlinks a user from a role.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.RemoveRole(ctx, userID, roleID)
}

// SetGrant replaces a role's action booleans on a feature.
func (s *Service) SetGrant(ctx context.Context, grant Grant) (Grant, error) {
	if grant.RoleID <= 0 || grant.FeatureID <= 0 {
		return Grant{}, errors.New("roles: grant requires role and feature")
	}
	return s.repo.UpsertGrant(ctx, grant)
}

// ListGrants returns all grants held by a role.
func (s *Service) ListGrants(ctx context.Context, roleID int64) ([]Grant, error) {
	return s.repo.ListGrants(ctx, roleID)
}

// DeleteGrant removes a role's grant on one feature.
func (s *Service) DeleteGrant(ctx context.Context, roleID, featureID int64) error {
	return s.repo.DeleteGrant(ctx, roleID, featureID)
}
