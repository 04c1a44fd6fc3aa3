package features

import "time"

// Feature is a protected capability. RBAC grants and ABAC policies both
// attach to a feature; it is the unit of authorization.
type Feature struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
