package policies

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-authz/aegis/internal/platform/db"
)

// ErrNotFound indicates the requested policy does not exist.
var ErrNotFound = errors.New("policies: not found")

// Repository provides PostgreSQL backed persistence for policies.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const policyColumns = `id, feature_id, attribute, operator, value, created_at, updated_at`

// ListByFeature returns the full policy set for a feature. The single
// statement reads a consistent snapshot, so a concurrent batch delete is
// observed all-or-none.
func (r *Repository) ListByFeature(ctx context.Context, featureID int64) ([]Policy, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+policyColumns+` FROM policies WHERE feature_id = $1 ORDER BY id`, featureID)
	if err != nil {
		return nil, fmt.Errorf("policies: list feature=%d: %w", featureID, err)
	}
	defer rows.Close()
	var result []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.ID, &p.FeatureID, &p.Attribute, &p.Operator, &p.Value, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("policies: scan: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetPolicy fetches a policy by id.
func (r *Repository) GetPolicy(ctx context.Context, id int64) (Policy, error) {
	var p Policy
	err := r.pool.QueryRow(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = $1`, id).
		Scan(&p.ID, &p.FeatureID, &p.Attribute, &p.Operator, &p.Value, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Policy{}, ErrNotFound
		}
		return Policy{}, fmt.Errorf("policies: get %d: %w", id, err)
	}
	return p, nil
}

// CreatePolicy inserts a validated policy.
func (r *Repository) CreatePolicy(ctx context.Context, in Input) (Policy, error) {
	var p Policy
	err := r.pool.QueryRow(ctx, `
		INSERT INTO policies (feature_id, attribute, operator, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+policyColumns, in.FeatureID, in.Attribute, in.Operator, in.Value).
		Scan(&p.ID, &p.FeatureID, &p.Attribute, &p.Operator, &p.Value, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Policy{}, fmt.Errorf("policies: create: %w", err)
	}
	return p, nil
}

// UpdatePolicy replaces a validated policy definition.
func (r *Repository) UpdatePolicy(ctx context.Context, id int64, in Input) (Policy, error) {
	var p Policy
	err := r.pool.QueryRow(ctx, `
		UPDATE policies SET feature_id = $2, attribute = $3, operator = $4, value = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+policyColumns, id, in.FeatureID, in.Attribute, in.Operator, in.Value).
		Scan(&p.ID, &p.FeatureID, &p.Attribute, &p.Operator, &p.Value, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Policy{}, ErrNotFound
		}
		return Policy{}, fmt.Errorf("policies: update %d: %w", id, err)
	}
	return p, nil
}

// DeletePolicy removes a single policy.
func (r *Repository) DeletePolicy(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("policies: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByFeature removes a feature's entire policy set in one transaction,
// so readers observe all-or-none.
func (r *Repository) DeleteByFeature(ctx context.Context, featureID int64) (int64, error) {
	var removed int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM policies WHERE feature_id = $1`, featureID)
		if err != nil {
			return fmt.Errorf("policies: delete feature=%d: %w", featureID, err)
		}
		removed = tag.RowsAffected()
		return nil
	})
	return removed, err
}
