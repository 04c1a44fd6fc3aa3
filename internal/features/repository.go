package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors for feature persistence.
var (
	ErrNotFound  = errors.New("features: not found")
	ErrDuplicate = errors.New("features: name already exists")
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for features.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListFeatures returns all features ordered by name.
func (r *Repository) ListFeatures(ctx context.Context) ([]Feature, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM features ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("features: list: %w", err)
	}
	defer rows.Close()
	var result []Feature
	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("features: scan: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetFeature fetches a feature by id.
func (r *Repository) GetFeature(ctx context.Context, id int64) (Feature, error) {
	var f Feature
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM features WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Feature{}, ErrNotFound
		}
		return Feature{}, fmt.Errorf("features: get %d: %w", id, err)
	}
	return f, nil
}

// GetFeatureByName fetches a feature by its unique name.
func (r *Repository) GetFeatureByName(ctx context.Context, name string) (Feature, error) {
	var f Feature
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM features WHERE name = $1`, name).
		Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Feature{}, ErrNotFound
		}
		return Feature{}, fmt.Errorf("features: get %q: %w", name, err)
	}
	return f, nil
}

// CreateFeature inserts a new feature.
func (r *Repository) CreateFeature(ctx context.Context, name, description string) (Feature, error) {
	var f Feature
	err := r.pool.QueryRow(ctx, `
		INSERT INTO features (name, description, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, name, description, created_at, updated_at`, name, description).
		Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Feature{}, ErrDuplicate
		}
		return Feature{}, fmt.Errorf("features: create: %w", err)
	}
	return f, nil
}

// UpdateFeature updates an existing feature.
func (r *Repository) UpdateFeature(ctx context.Context, id int64, name, description string) (Feature, error) {
	var f Feature
	err := r.pool.QueryRow(ctx, `
		UPDATE features SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, created_at, updated_at`, id, name, description).
		Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Feature{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Feature{}, ErrDuplicate
		}
		return Feature{}, fmt.Errorf("features: update %d: %w", id, err)
	}
	return f, nil
}

// DeleteFeature removes a feature. Grants and policies cascade in the schema.
func (r *Repository) DeleteFeature(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM features WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("features: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
