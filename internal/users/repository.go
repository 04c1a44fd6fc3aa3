package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-authz/aegis/internal/authz"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("users: not found")

// Repository provides PostgreSQL backed persistence for users.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, department, region, level, created_at, updated_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var result []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Department, &u.Region, &u.Level, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, department, region, level, created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Department, &u.Region, &u.Level, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("users: get %d: %w", id, err)
	}
	return u, nil
}

// UpdateAttributes replaces the user's ABAC attributes.
func (r *Repository) UpdateAttributes(ctx context.Context, id int64, update AttributeUpdate) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET department = $2, region = $3, level = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, name, department, region, level, created_at, updated_at`,
		id, update.Department, update.Region, update.Level).
		Scan(&u.ID, &u.Email, &u.Name, &u.Department, &u.Region, &u.Level, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("users: update attributes %d: %w", id, err)
	}
	return u, nil
}

// GetAttributes implements authz.UserAttributeSource.
func (r *Repository) GetAttributes(ctx context.Context, userID int64) (authz.User, error) {
	var u authz.User
	err := r.pool.QueryRow(ctx, `SELECT id, department, region, level FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Department, &u.Region, &u.Level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.User{}, authz.ErrUserNotFound
		}
		return authz.User{}, fmt.Errorf("users: attributes %d: %w", userID, err)
	}
	return u, nil
}
