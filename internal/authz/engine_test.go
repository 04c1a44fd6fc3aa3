package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	users    map[int64]User
	roles    []Role
	grants   []RoleFeatureGrant
	policies map[int64][]Policy

	userErr   error
	grantErr  error
	policyErr error

	policyCalls int
}

func (s *stubStore) GetAttributes(ctx context.Context, userID int64) (User, error) {
	if s.userErr != nil {
		return User{}, s.userErr
	}
	user, ok := s.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *stubStore) GetRolesAndGrants(ctx context.Context, userID, featureID int64) ([]Role, []RoleFeatureGrant, error) {
	if s.grantErr != nil {
		return nil, nil, s.grantErr
	}
	return s.roles, s.grants, nil
}

func (s *stubStore) GetPoliciesForFeature(ctx context.Context, featureID int64) ([]Policy, error) {
	s.policyCalls++
	if s.policyErr != nil {
		return nil, s.policyErr
	}
	return s.policies[featureID], nil
}

type recordingSink struct {
	logs       []AccessLogEntry
	violations []PolicyViolation

	logErr       error
	violationErr error
}

func (s *recordingSink) AppendAccessLog(ctx context.Context, entry AccessLogEntry) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, entry)
	return nil
}

func (s *recordingSink) AppendPolicyViolation(ctx context.Context, violation PolicyViolation) error {
	if s.violationErr != nil {
		return s.violationErr
	}
	s.violations = append(s.violations, violation)
	return nil
}

func newTestEngine(store *stubStore, sink *recordingSink) *Engine {
	return NewEngine(store, store, store, sink, nil)
}

func financeStore() *stubStore {
	return &stubStore{
		users: map[int64]User{
			1: {ID: 1, Department: strPtr("Finance")},
		},
		roles:    []Role{{ID: 1, Name: "analyst"}},
		grants:   []RoleFeatureGrant{{RoleID: 1, FeatureID: 10, CanRead: true}},
		policies: map[int64][]Policy{},
	}
}

func TestEvaluateAllowedByGrantAndPolicy(t *testing.T) {
	store := financeStore()
	store.policies[10] = []Policy{{ID: 1, FeatureID: 10, Attribute: AttributeDepartment, Operator: OpEqual, Value: "Finance"}}
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	decision, err := engine.Evaluate(context.Background(), 1, 10, ActionRead, RequestMeta{Path: "/reports", Method: "GET"})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, OutcomeAllowed, decision.Outcome)
	assert.Equal(t, ReasonRoleGrant, decision.Reason)

	require.Len(t, sink.logs, 1)
	assert.Equal(t, LogDecisionAllow, sink.logs[0].Decision)
	assert.Equal(t, "/reports", sink.logs[0].Path)
	assert.Equal(t, "GET", sink.logs[0].Method)
	assert.Empty(t, sink.violations)
}

func TestEvaluateZeroPoliciesDependsOnRbacOnly(t *testing.T) {
	store := financeStore()
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	decision, err := engine.Evaluate(context.Background(), 1, 10, ActionRead, RequestMeta{})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = engine.Evaluate(context.Background(), 1, 10, ActionDelete, RequestMeta{})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, OutcomeDeniedByRBAC, decision.Outcome)
}

func TestEvaluateDeniedByPolicyRecordsViolation(t *testing.T) {
	store := financeStore()
	store.policies[10] = []Policy{{ID: 7, FeatureID: 10, Attribute: AttributeDepartment, Operator: OpEqual, Value: "HR"}}
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	decision, err := engine.Evaluate(context.Background(), 1, 10, ActionRead, RequestMeta{Path: "/reports", Method: "GET"})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, OutcomeDeniedByABAC, decision.Outcome)
	assert.Equal(t, "department == HR not satisfied", decision.Reason)

	require.Len(t, sink.violations, 1)
	assert.Equal(t, int64(7), sink.violations[0].PolicyID)
	assert.Equal(t, "HR", sink.violations[0].ExpectedValue)
	assert.Equal(t, "Finance", sink.violations[0].ActualValue)

	require.Len(t, sink.logs, 1)
	assert.Equal(t, LogDecisionDeny, sink.logs[0].Decision)
}

func TestEvaluateMissingAttributeDenies(t *testing.T) {
	store := financeStore()
	store.policies[10] = []Policy{{ID: 8, FeatureID: 10, Attribute: AttributeLevel, Operator: OpGreaterOrEqual, Value: "3"}}
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	decision, err := engine.Evaluate(context.Background(), 1, 10, ActionRead, RequestMeta{})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonMissingAttribute, decision.Reason)
	require.Len(t, sink.violations, 1)
	assert.Equal(t, ReasonMissingAttribute, sink.violations[0].Reason)
}

func TestEvaluateRbacDenialSkipsPolicies(t *testing.T) {
	store := financeStore()
	store.policies[10] = []Policy{{ID: 9, FeatureID: 10, Attribute: AttributeDepartment, Operator: OpEqual, Value: "HR"}}
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	decision, err := engine.Evaluate(context.Background(), 1, 10, ActionCreate, RequestMeta{})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, OutcomeDeniedByRBAC, decision.Outcome)
	assert.Equal(t, ReasonNoGrant, decision.Reason)

	assert.Zero(t, store.policyCalls, "policies must not be loaded after an RBAC denial")
	assert.Empty(t, sink.violations)
	require.Len(t, sink.logs, 1)
}

func TestEvaluateSuperuserBypassesGrantsNotPolicies(t *testing.T) {
	store := financeStore()
	store.roles = []Role{{ID: 2, Name: "admin", GrantsAll: true}}
	store.grants = nil
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	// Without policies every action is allowed.
	decision, err := engine.Evaluate(context.Background(), 1, 10, ActionDelete, RequestMeta{})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonSuperuser, decision.Reason)

	// A failing policy still denies a superuser.
	store.policies[10] = []Policy{{ID: 5, FeatureID: 10, Attribute: AttributeDepartment, Operator: OpEqual, Value: "HR"}}
	decision, err = engine.Evaluate(context.Background(), 1, 10, ActionDelete, RequestMeta{})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, OutcomeDeniedByABAC, decision.Outcome)
}

func TestEvaluateUnknownUserFailsClosed(t *testing.T) {
	store := financeStore()
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	decision, err := engine.Evaluate(context.Background(), 99, 10, ActionRead, RequestMeta{Path: "/reports", Method: "GET"})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, OutcomeDeniedError, decision.Outcome)
	assert.Equal(t, "user not found", decision.Reason)

	// The access log is still appended exactly once.
	require.Len(t, sink.logs, 1)
	assert.Equal(t, LogDecisionDeny, sink.logs[0].Decision)
}

func TestEvaluateStoreErrorFailsClosed(t *testing.T) {
	store := financeStore()
	store.grantErr = errors.New("connection refused")
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	decision, err := engine.Evaluate(context.Background(), 1, 10, ActionRead, RequestMeta{})
	require.Error(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, OutcomeDeniedError, decision.Outcome)
	require.Len(t, sink.logs, 1)
}

func TestEvaluateIsRepeatableButLogsEachCall(t *testing.T) {
	store := financeStore()
	sink := &recordingSink{}
	engine := newTestEngine(store, sink)

	first, err := engine.Evaluate(context.Background(), 1, 10, ActionRead, RequestMeta{})
	require.NoError(t, err)
	second, err := engine.Evaluate(context.Background(), 1, 10, ActionRead, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, first.Allowed, second.Allowed)
	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Len(t, sink.logs, 2)
}

func TestEvaluateSurfacesAuditFailureWithoutChangingDecision(t *testing.T) {
	store := financeStore()
	sink := &recordingSink{logErr: errors.New("audit store down")}
	engine := newTestEngine(store, sink)

	decision, err := engine.Evaluate(context.Background(), 1, 10, ActionRead, RequestMeta{})
	require.Error(t, err)
	var auditErr *AuditWriteError
	require.ErrorAs(t, err, &auditErr)
	assert.True(t, decision.Allowed, "audit failure must not flip the decision")
}

func TestEvaluatePoliciesOnlyAndDetails(t *testing.T) {
	store := financeStore()
	store.policies[10] = []Policy{{ID: 1, FeatureID: 10, Attribute: AttributeDepartment, Operator: OpEqual, Value: "Finance"}}
	store.policies[11] = []Policy{{ID: 2, FeatureID: 11, Attribute: AttributeDepartment, Operator: OpEqual, Value: "HR"}}
	engine := newTestEngine(store, &recordingSink{})

	ok, err := engine.EvaluatePoliciesOnly(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.EvaluatePoliciesOnly(context.Background(), 1, 11)
	require.NoError(t, err)
	assert.False(t, ok)

	result, err := engine.EvaluatePoliciesWithDetails(context.Background(), 1, 11)
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "Finance", result.Failed[0].Actual)

	_, err = engine.EvaluatePoliciesOnly(context.Background(), 99, 10)
	require.ErrorIs(t, err, ErrUserNotFound)
}
