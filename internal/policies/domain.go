package policies

import (
	"time"

	"github.com/aegis-authz/aegis/internal/authz"
)

// Policy is a stored attribute rule scoped to a feature. Rows are validated
// at write time, so evaluation never meets a malformed policy.
type Policy struct {
	ID        int64     `json:"id"`
	FeatureID int64     `json:"feature_id"`
	Attribute string    `json:"attribute"`
	Operator  string    `json:"operator"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input carries a policy definition for create and update.
type Input struct {
	FeatureID int64  `json:"feature_id" validate:"required,gt=0"`
	Attribute string `json:"attribute" validate:"required"`
	Operator  string `json:"operator" validate:"required"`
	Value     string `json:"value" validate:"required"`
}

// ToEngine converts a stored policy into the engine's representation.
func (p Policy) ToEngine() authz.Policy {
	return authz.Policy{
		ID:        p.ID,
		FeatureID: p.FeatureID,
		Attribute: authz.Attribute(p.Attribute),
		Operator:  authz.Operator(p.Operator),
		Value:     p.Value,
	}
}
