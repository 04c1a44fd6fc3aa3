package features

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for features.
type RepositoryPort interface {
	ListFeatures(ctx context.Context) ([]Feature, error)
	GetFeature(ctx context.Context, id int64) (Feature, error)
	CreateFeature(ctx context.Context, name, description string) (Feature, error)
	UpdateFeature(ctx context.Context, id int64, name, description string) (Feature, error)
	DeleteFeature(ctx context.Context, id int64) error
	GetFeatureByName(ctx context.Context, name string) (Feature, error)
}

// Service handles feature registry logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListFeatures returns all features.
func (s *Service) ListFeatures(ctx context.Context) ([]Feature, error) {
	return s.repo.ListFeatures(ctx)
}

// GetFeature fetches one feature.
func (s *Service) GetFeature(ctx context.Context, id int64) (Feature, error) {
	return s.repo.GetFeature(ctx, id)
}

// CreateFeature registers a new protected feature.
func (s *Service) CreateFeature(ctx context.Context, name, description string) (Feature, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Feature{}, errors.New("features: name required")
	}
	return s.repo.CreateFeature(ctx, name, strings.TrimSpace(description))
}

// UpdateFeature renames or re-describes a feature.
func (s *Service) UpdateFeature(ctx context.Context, id int64, name, description string) (Feature, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Feature{}, errors.New("features: name required")
	}
	return s.repo.UpdateFeature(ctx, id, name, strings.TrimSpace(description))
}

// FeatureIDByName resolves a feature name to its identifier. Used by the
// route guard middleware.
func (s *Service) FeatureIDByName(ctx context.Context, name string) (int64, error) {
	f, err := s.repo.GetFeatureByName(ctx, name)
	if err != nil {
		return 0, err
	}
	return f.ID, nil
}

// DeleteFeature retires a feature along with its grants and policies.
func (s *Service) DeleteFeature(ctx context.Context, id int64) error {
	return s.repo.DeleteFeature(ctx, id)
}
