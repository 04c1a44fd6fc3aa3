package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-authz/aegis/internal/authz"
)

// Sentinel errors for role persistence.
var (
	ErrNotFound  = errors.New("roles: not found")
	ErrDuplicate = errors.New("roles: name already exists")
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for roles and grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, grants_all, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()
	var result []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.GrantsAll, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("roles: scan: %w", err)
		}
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, grants_all, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.GrantsAll, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, fmt.Errorf("roles: get %d: %w", id, err)
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name, description string, grantsAll bool) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, grants_all, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, name, description, grants_all, created_at, updated_at`, name, description, grantsAll).
		Scan(&role.ID, &role.Name, &role.Description, &role.GrantsAll, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Role{}, ErrDuplicate
		}
		return Role{}, fmt.Errorf("roles: create: %w", err)
	}
	return role, nil
}

// UpdateRole updates an existing role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string, grantsAll bool) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, grants_all = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, grants_all, created_at, updated_at`, id, name, description, grantsAll).
		Scan(&role.ID, &role.Name, &role.Description, &role.GrantsAll, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Role{}, ErrDuplicate
		}
		return Role{}, fmt.Errorf("roles: update %d: %w", id, err)
	}
	return role, nil
}

// DeleteRole removes a role. Assignments and grants cascade in the schema.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("roles: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignRole links a user to a role; repeated assignments are no-ops.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, created_at) VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	if err != nil {
		return fmt.Errorf("roles: assign user=%d role=%d: %w", userID, roleID, err)
	}
	return nil
}

// RemoveRole unlinks a user from a role.
func (r *Repository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("roles: remove user=%d role=%d: %w", userID, roleID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertGrant replaces the role's action booleans for one feature.
func (r *Repository) UpsertGrant(ctx context.Context, grant Grant) (Grant, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO role_feature_grants (role_id, feature_id, can_create, can_read, can_update, can_delete)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (role_id, feature_id) DO UPDATE
		SET can_create = EXCLUDED.can_create, can_read = EXCLUDED.can_read,
		    can_update = EXCLUDED.can_update, can_delete = EXCLUDED.can_delete
		RETURNING role_id, feature_id, can_create, can_read, can_update, can_delete`,
		grant.RoleID, grant.FeatureID, grant.CanCreate, grant.CanRead, grant.CanUpdate, grant.CanDelete).
		Scan(&grant.RoleID, &grant.FeatureID, &grant.CanCreate, &grant.CanRead, &grant.CanUpdate, &grant.CanDelete)
	if err != nil {
		return Grant{}, fmt.Errorf("roles: upsert grant role=%d feature=%d: %w", grant.RoleID, grant.FeatureID, err)
	}
	return grant, nil
}

// ListGrants returns all grants held by a role.
func (r *Repository) ListGrants(ctx context.Context, roleID int64) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role_id, feature_id, can_create, can_read, can_update, can_delete
		FROM role_feature_grants WHERE role_id = $1 ORDER BY feature_id`, roleID)
	if err != nil {
		return nil, fmt.Errorf("roles: list grants %d: %w", roleID, err)
	}
	defer rows.Close()
	var result []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.RoleID, &g.FeatureID, &g.CanCreate, &g.CanRead, &g.CanUpdate, &g.CanDelete); err != nil {
			return nil, fmt.Errorf("roles: scan grant: %w", err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteGrant removes a role's grant on one feature.
func (r *Repository) DeleteGrant(ctx context.Context, roleID, featureID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM role_feature_grants WHERE role_id = $1 AND feature_id = $2`, roleID, featureID)
	if err != nil {
		return fmt.Errorf("roles: delete grant role=%d feature=%d: %w", roleID, featureID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRolesAndGrants implements authz.RoleGrantSource: the user's roles plus,
// for those roles, the grants on the target feature. Both come from one
// query so the engine sees a consistent snapshot.
func (r *Repository) GetRolesAndGrants(ctx context.Context, userID, featureID int64) ([]authz.Role, []authz.RoleFeatureGrant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.grants_all,
		       g.feature_id, g.can_create, g.can_read, g.can_update, g.can_delete
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		LEFT JOIN role_feature_grants g ON g.role_id = r.id AND g.feature_id = $2
		WHERE ur.user_id = $1
		ORDER BY r.id`, userID, featureID)
	if err != nil {
		return nil, nil, fmt.Errorf("roles: roles and grants user=%d feature=%d: %w", userID, featureID, err)
	}
	defer rows.Close()

	var (
		userRoles []authz.Role
		grants    []authz.RoleFeatureGrant
	)
	for rows.Next() {
		var (
			role                                     authz.Role
			grantFeat                                *int64
			canCreate, canRead, canUpdate, canDelete *bool
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.GrantsAll, &grantFeat, &canCreate, &canRead, &canUpdate, &canDelete); err != nil {
			return nil, nil, fmt.Errorf("roles: scan roles and grants: %w", err)
		}
		userRoles = append(userRoles, role)
		if grantFeat != nil {
			grants = append(grants, authz.RoleFeatureGrant{
				RoleID:    role.ID,
				FeatureID: *grantFeat,
				CanCreate: *canCreate,
				CanRead:   *canRead,
				CanUpdate: *canUpdate,
				CanDelete: *canDelete,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return userRoles, grants, nil
}
