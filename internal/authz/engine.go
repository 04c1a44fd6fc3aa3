package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// UserAttributeSource resolves the subject and its ABAC attributes.
// Implementations return ErrUserNotFound when the user does not exist.
type UserAttributeSource interface {
	GetAttributes(ctx context.Context, userID int64) (User, error)
}

// RoleGrantSource resolves the user's roles and, for those roles, the
// grants on the target feature.
type RoleGrantSource interface {
	GetRolesAndGrants(ctx context.Context, userID, featureID int64) ([]Role, []RoleFeatureGrant, error)
}

// PolicySource resolves the policy set attached to a feature. A returned
// set must be consistent: all-or-none for the feature at some point in time.
type PolicySource interface {
	GetPoliciesForFeature(ctx context.Context, featureID int64) ([]Policy, error)
}

// AuditSink appends decision records. Appends are expected to apply their
// own bounded timeout; failures are surfaced, never retried here.
type AuditSink interface {
	AppendAccessLog(ctx context.Context, entry AccessLogEntry) error
	AppendPolicyViolation(ctx context.Context, violation PolicyViolation) error
}

// Engine combines RBAC grant resolution and ABAC policy evaluation into a
// single fail-closed decision and emits the audit trail. All collaborators
// are injected; the engine itself is stateless and safe for concurrent use.
type Engine struct {
	users    UserAttributeSource
	grants   RoleGrantSource
	policies PolicySource
	audit    AuditSink
	logger   *slog.Logger
	clock    func() time.Time
}

// NewEngine constructs an Engine with its collaborators.
func NewEngine(users UserAttributeSource, grants RoleGrantSource, policies PolicySource, audit AuditSink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		users:    users,
		grants:   grants,
		policies: policies,
		audit:    audit,
		logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Evaluate decides whether userID may perform action on featureID.
//
// The decision is fail-closed: any lookup or evaluation error denies. A role
// with GrantsAll bypasses grant resolution but not the feature's policies;
// superusers remain subject to ABAC. Exactly one access log entry is
// appended per call, and one policy violation per failed policy. An audit
// write failure is returned alongside the decision but never changes it.
func (e *Engine) Evaluate(ctx context.Context, userID, featureID int64, action Action, meta RequestMeta) (Decision, error) {
	decision, evalErr := e.decide(ctx, userID, featureID, action)

	var auditErr error
	if decision.Outcome == OutcomeDeniedByABAC {
		now := e.clock()
		for _, failed := range decision.Failed {
			violation := PolicyViolation{
				UserID:        userID,
				FeatureID:     featureID,
				PolicyID:      failed.Policy.ID,
				Attribute:     failed.Policy.Attribute,
				ExpectedValue: failed.Policy.Value,
				ActualValue:   failed.Actual,
				Reason:        failed.Reason,
				At:            now,
			}
			if err := e.audit.AppendPolicyViolation(ctx, violation); err != nil {
				auditErr = errors.Join(auditErr, &AuditWriteError{Op: "policy_violation", Err: err})
			}
		}
	}

	entry := AccessLogEntry{
		UserID:   userID,
		Path:     meta.Path,
		Method:   meta.Method,
		Decision: LogDecisionDeny,
		Reason:   decision.Reason,
		At:       e.clock(),
	}
	if decision.Allowed {
		entry.Decision = LogDecisionAllow
	}
	if err := e.audit.AppendAccessLog(ctx, entry); err != nil {
		auditErr = errors.Join(auditErr, &AuditWriteError{Op: "access_log", Err: err})
	}
	if auditErr != nil {
		e.logger.Warn("audit append failed",
			slog.Int64("user_id", userID),
			slog.Int64("feature_id", featureID),
			slog.Any("error", auditErr))
	}

	return decision, errors.Join(evalErr, auditErr)
}

// decide runs the pure evaluation pipeline without side effects.
func (e *Engine) decide(ctx context.Context, userID, featureID int64, action Action) (Decision, error) {
	user, err := e.users.GetAttributes(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Decision{Outcome: OutcomeDeniedError, Reason: "user not found"}, nil
		}
		return Decision{Outcome: OutcomeDeniedError, Reason: "user lookup failed"}, fmt.Errorf("authz: load user %d: %w", userID, err)
	}

	roles, grants, err := e.grants.GetRolesAndGrants(ctx, userID, featureID)
	if err != nil {
		return Decision{Outcome: OutcomeDeniedError, Reason: "grant lookup failed"}, fmt.Errorf("authz: load grants user=%d feature=%d: %w", userID, featureID, err)
	}
	allowed, reason := CheckGrants(roles, grants, action)
	if !allowed {
		return Decision{Outcome: OutcomeDeniedByRBAC, Reason: reason}, nil
	}

	policies, err := e.policies.GetPoliciesForFeature(ctx, featureID)
	if err != nil {
		return Decision{Outcome: OutcomeDeniedError, Reason: "policy lookup failed"}, fmt.Errorf("authz: load policies feature=%d: %w", featureID, err)
	}
	if len(policies) > 0 {
		result := EvaluateWithDetails(user, policies)
		if !result.Valid {
			return Decision{
				Outcome: OutcomeDeniedByABAC,
				Reason:  result.Failed[0].Reason,
				Failed:  result.Failed,
			}, nil
		}
	}

	return Decision{Allowed: true, Outcome: OutcomeAllowed, Reason: reason}, nil
}

// EvaluatePoliciesOnly runs the boolean ABAC check for diagnostic tooling.
// No audit records are written.
func (e *Engine) EvaluatePoliciesOnly(ctx context.Context, userID, featureID int64) (bool, error) {
	user, policies, err := e.loadForPolicyCheck(ctx, userID, featureID)
	if err != nil {
		return false, err
	}
	return EvaluatePolicies(user, policies), nil
}

// EvaluatePoliciesWithDetails runs the detailed ABAC check for diagnostic
// tooling. No audit records are written.
func (e *Engine) EvaluatePoliciesWithDetails(ctx context.Context, userID, featureID int64) (EvaluationResult, error) {
	user, policies, err := e.loadForPolicyCheck(ctx, userID, featureID)
	if err != nil {
		return EvaluationResult{}, err
	}
	return EvaluateWithDetails(user, policies), nil
}

func (e *Engine) loadForPolicyCheck(ctx context.Context, userID, featureID int64) (User, []Policy, error) {
	user, err := e.users.GetAttributes(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, nil, err
		}
		return User{}, nil, fmt.Errorf("authz: load user %d: %w", userID, err)
	}
	policies, err := e.policies.GetPoliciesForFeature(ctx, featureID)
	if err != nil {
		return User{}, nil, fmt.Errorf("authz: load policies feature=%d: %w", featureID, err)
	}
	return user, policies, nil
}
