package authz

import (
	"errors"
	"fmt"
)

// Sentinel errors for evaluation-time lookups.
var (
	// ErrUserNotFound indicates the subject could not be resolved.
	ErrUserNotFound = errors.New("authz: user not found")
	// ErrFeatureNotFound indicates the protected feature is unknown.
	ErrFeatureNotFound = errors.New("authz: feature not found")
)

// ComparisonError reports an operator/value type mismatch discovered while
// evaluating a policy. It is distinct from a false match: callers must treat
// it as a failed policy, never as a pass.
type ComparisonError struct {
	Operator Operator
	Detail   string
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("authz: comparison %q: %s", e.Operator, e.Detail)
}

// AuditWriteError wraps a failed audit append. The decision it accompanies
// was already computed and stands; the error exists so observability
// failures are never swallowed.
type AuditWriteError struct {
	Op  string
	Err error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("authz: audit write %s: %v", e.Op, e.Err)
}

func (e *AuditWriteError) Unwrap() error { return e.Err }

// IsComparisonError reports whether err is a ComparisonError.
func IsComparisonError(err error) bool {
	var ce *ComparisonError
	return errors.As(err, &ce)
}
