package authz

import (
	"fmt"
	"strconv"
	"time"
)

// Action is one of the four CRUD capabilities a grant can enable.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction validates a caller-supplied action string.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return Action(raw), nil
	}
	return "", fmt.Errorf("authz: unknown action %q", raw)
}

// Attribute names a user property that ABAC policies can compare against.
// The set is closed: adding an attribute is a compile-time change here and
// in User.AttributeValue.
type Attribute string

const (
	AttributeDepartment Attribute = "department"
	AttributeRegion     Attribute = "region"
	AttributeLevel      Attribute = "level"
)

// Attributes lists every supported attribute.
func Attributes() []Attribute {
	return []Attribute{AttributeDepartment, AttributeRegion, AttributeLevel}
}

// ParseAttribute validates a caller-supplied attribute name.
func ParseAttribute(raw string) (Attribute, error) {
	switch Attribute(raw) {
	case AttributeDepartment, AttributeRegion, AttributeLevel:
		return Attribute(raw), nil
	}
	return "", fmt.Errorf("authz: unknown attribute %q", raw)
}

// Operator is a policy comparison operator.
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpIn             Operator = "in"
)

// Operators lists every supported operator.
func Operators() []Operator {
	return []Operator{OpEqual, OpNotEqual, OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual, OpIn}
}

// ParseOperator validates a caller-supplied operator string.
func ParseOperator(raw string) (Operator, error) {
	switch Operator(raw) {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual, OpIn:
		return Operator(raw), nil
	}
	return "", fmt.Errorf("authz: unknown operator %q", raw)
}

// User carries the identity and optional ABAC attributes of the subject
// under evaluation. Nil attribute pointers mean the attribute is unset.
type User struct {
	ID         int64
	Department *string
	Region     *string
	Level      *int64
}

// AttributeValue resolves the user's value for attr in string form.
// The second return is false when the attribute is unset.
func (u User) AttributeValue(attr Attribute) (string, bool) {
	switch attr {
	case AttributeDepartment:
		if u.Department == nil {
			return "", false
		}
		return *u.Department, true
	case AttributeRegion:
		if u.Region == nil {
			return "", false
		}
		return *u.Region, true
	case AttributeLevel:
		if u.Level == nil {
			return "", false
		}
		return strconv.FormatInt(*u.Level, 10), true
	}
	return "", false
}

// Role is a named permission grouping. GrantsAll marks a superuser role
// that short-circuits RBAC grant resolution for every feature and action.
type Role struct {
	ID        int64
	Name      string
	GrantsAll bool
}

// RoleFeatureGrant enables per-action access for one role on one feature.
// The four booleans are independent; unique per (RoleID, FeatureID).
type RoleFeatureGrant struct {
	RoleID    int64
	FeatureID int64
	CanCreate bool
	CanRead   bool
	CanUpdate bool
	CanDelete bool
}

// Allows reports whether the grant enables the given action.
func (g RoleFeatureGrant) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return g.CanCreate
	case ActionRead:
		return g.CanRead
	case ActionUpdate:
		return g.CanUpdate
	case ActionDelete:
		return g.CanDelete
	}
	return false
}

// Policy is one attribute/operator/value rule attached to a feature.
// All policies on a feature are combined with logical AND.
type Policy struct {
	ID        int64
	FeatureID int64
	Attribute Attribute
	Operator  Operator
	Value     string
}

// Outcome classifies the terminal state of a single evaluation.
type Outcome string

const (
	OutcomeAllowed      Outcome = "allowed"
	OutcomeDeniedByRBAC Outcome = "denied_rbac"
	OutcomeDeniedByABAC Outcome = "denied_abac"
	OutcomeDeniedError  Outcome = "denied_error"
)

// Decision is the verdict for one evaluation request.
type Decision struct {
	Allowed bool
	Outcome Outcome
	Reason  string
	Failed  []FailedPolicy
}

// FailedPolicy records one policy that did not pass, with the value the
// user actually presented.
type FailedPolicy struct {
	Policy Policy
	Actual string
	Reason string
}

// EvaluationResult is the outcome of evaluating a policy set for a user.
type EvaluationResult struct {
	Valid  bool
	Failed []FailedPolicy
}

// RequestMeta carries request context recorded in the access log.
type RequestMeta struct {
	Path   string
	Method string
}

// AccessLogEntry is the append-only record of one decision.
type AccessLogEntry struct {
	UserID   int64
	Path     string
	Method   string
	Decision string
	Reason   string
	At       time.Time
}

// Access log decision values.
const (
	LogDecisionAllow = "allow"
	LogDecisionDeny  = "deny"
)

// PolicyViolation is the append-only record of one failed ABAC policy.
type PolicyViolation struct {
	UserID        int64
	FeatureID     int64
	PolicyID      int64
	Attribute     Attribute
	ExpectedValue string
	ActualValue   string
	Reason        string
	At            time.Time
}
