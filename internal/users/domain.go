package users

import "time"

// User is an administered subject with the optional ABAC attributes the
// decision engine compares against.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Department *string   `json:"department,omitempty"`
	Region     *string   `json:"region,omitempty"`
	Level      *int64    `json:"level,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AttributeUpdate replaces the user's ABAC attributes. Nil fields clear the
// attribute; a policy that requires a cleared attribute then fails.
type AttributeUpdate struct {
	Department *string `json:"department"`
	Region     *string `json:"region"`
	Level      *int64  `json:"level"`
}
