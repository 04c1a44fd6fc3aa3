package perf

import (
	"context"
	"testing"

	"github.com/aegis-authz/aegis/internal/authz"
)

type benchStore struct {
	user     authz.User
	roles    []authz.Role
	grants   []authz.RoleFeatureGrant
	policies []authz.Policy
}

func (s *benchStore) GetAttributes(ctx context.Context, userID int64) (authz.User, error) {
	return s.user, nil
}

func (s *benchStore) GetRolesAndGrants(ctx context.Context, userID, featureID int64) ([]authz.Role, []authz.RoleFeatureGrant, error) {
	return s.roles, s.grants, nil
}

func (s *benchStore) GetPoliciesForFeature(ctx context.Context, featureID int64) ([]authz.Policy, error) {
	return s.policies, nil
}

type dropSink struct{}

func (dropSink) AppendAccessLog(ctx context.Context, entry authz.AccessLogEntry) error { return nil }
func (dropSink) AppendPolicyViolation(ctx context.Context, v authz.PolicyViolation) error {
	return nil
}

func benchEngine(policyCount int) *authz.Engine {
	dept := "Finance"
	level := int64(4)
	store := &benchStore{
		user:   authz.User{ID: 1, Department: &dept, Level: &level},
		roles:  []authz.Role{{ID: 1, Name: "analyst"}},
		grants: []authz.RoleFeatureGrant{{RoleID: 1, FeatureID: 10, CanRead: true}},
	}
	for i := 0; i < policyCount; i++ {
		store.policies = append(store.policies, authz.Policy{
			ID: int64(i + 1), FeatureID: 10,
			Attribute: authz.AttributeDepartment, Operator: authz.OpEqual, Value: "Finance",
		})
	}
	return authz.NewEngine(store, store, store, dropSink{}, nil)
}

func BenchmarkEvaluateGrantOnly(b *testing.B) {
	engine := benchEngine(0)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Evaluate(ctx, 1, 10, authz.ActionRead, authz.RequestMeta{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvaluateWithPolicies(b *testing.B) {
	engine := benchEngine(8)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Evaluate(ctx, 1, 10, authz.ActionRead, authz.RequestMeta{}); err != nil {
			b.Fatal(err)
		}
	}
}
