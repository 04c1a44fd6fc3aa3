package roles

import "time"

// Role is a named permission grouping. GrantsAll marks a superuser role.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	GrantsAll   bool      `json:"grants_all"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Grant enables per-action access for a role on a feature. One grant per
// (role, feature) pair; writes upsert.
type Grant struct {
	RoleID    int64 `json:"role_id"`
	FeatureID int64 `json:"feature_id"`
	CanCreate bool  `json:"can_create"`
	CanRead   bool  `json:"can_read"`
	CanUpdate bool  `json:"can_update"`
	CanDelete bool  `json:"can_delete"`
}
