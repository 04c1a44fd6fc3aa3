package policies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aegis-authz/aegis/internal/authz"
)

// ErrValidation wraps every rejected policy definition.
var ErrValidation = errors.New("policies: invalid definition")

// RepositoryPort defines data access methods for policies.
type RepositoryPort interface {
	ListByFeature(ctx context.Context, featureID int64) ([]Policy, error)
	GetPolicy(ctx context.Context, id int64) (Policy, error)
	CreatePolicy(ctx context.Context, in Input) (Policy, error)
	UpdatePolicy(ctx context.Context, id int64, in Input) (Policy, error)
	DeletePolicy(ctx context.Context, id int64) error
	DeleteByFeature(ctx context.Context, featureID int64) (int64, error)
}

// Invalidator is notified after every successful policy write so cached
// policy sets are never served stale or half-updated.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service is the write-time validation boundary for policies. It enforces
// the attribute and operator whitelists and the value shape, which lets the
// evaluator trust every stored row.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService builds a Service instance. invalidator may be nil when no
// cache is configured.
func NewService(repo RepositoryPort, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

// Validate rejects any definition outside the closed vocabulary. For the in
// operator the value must decode as a JSON array.
func Validate(in Input) error {
	if _, err := authz.ParseAttribute(in.Attribute); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	op, err := authz.ParseOperator(in.Operator)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if op == authz.OpIn {
		var elements []any
		if err := json.Unmarshal([]byte(in.Value), &elements); err != nil {
			return fmt.Errorf("%w: value for %q must be a JSON array: %v", ErrValidation, authz.OpIn, err)
		}
	}
	return nil
}

// ListByFeature returns the stored policy set for a feature.
func (s *Service) ListByFeature(ctx context.Context, featureID int64) ([]Policy, error) {
	return s.repo.ListByFeature(ctx, featureID)
}

// GetPolicy fetches one policy.
func (s *Service) GetPolicy(ctx context.Context, id int64) (Policy, error) {
	return s.repo.GetPolicy(ctx, id)
}

// CreatePolicy validates and stores a new policy.
func (s *Service) CreatePolicy(ctx context.Context, in Input) (Policy, error) {
	if err := Validate(in); err != nil {
		return Policy{}, err
	}
	policy, err := s.repo.CreatePolicy(ctx, in)
	if err != nil {
		return Policy{}, err
	}
	s.invalidate(ctx)
	return policy, nil
}

// UpdatePolicy validates and replaces an existing policy.
func (s *Service) UpdatePolicy(ctx context.Context, id int64, in Input) (Policy, error) {
	if err := Validate(in); err != nil {
		return Policy{}, err
	}
	policy, err := s.repo.UpdatePolicy(ctx, id, in)
	if err != nil {
		return Policy{}, err
	}
	s.invalidate(ctx)
	return policy, nil
}

// DeletePolicy removes a single policy.
func (s *Service) DeletePolicy(ctx context.Context, id int64) error {
	if err := s.repo.DeletePolicy(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// DeleteByFeature removes a feature's whole policy set at once, for feature
// retirement. Readers never observe a partial set.
func (s *Service) DeleteByFeature(ctx context.Context, featureID int64) (int64, error) {
	removed, err := s.repo.DeleteByFeature(ctx, featureID)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.invalidate(ctx)
	}
	return removed, nil
}

// invalidate bumps the cache version. A failed bump only shortens cache
// correctness to the TTL window, so it is logged rather than propagated.
func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("policy cache bump failed", slog.Any("error", err))
	}
}
