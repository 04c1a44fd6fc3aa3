package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int64) *int64   { return &i }

func TestEvaluatePoliciesEmptySetPasses(t *testing.T) {
	user := User{ID: 1}
	assert.True(t, EvaluatePolicies(user, nil))

	result := EvaluateWithDetails(user, nil)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Failed)
}

func TestEvaluatePoliciesConjunction(t *testing.T) {
	user := User{ID: 1, Department: strPtr("Finance"), Level: intPtr(5)}
	passing := Policy{ID: 1, FeatureID: 10, Attribute: AttributeDepartment, Operator: OpEqual, Value: "Finance"}
	failing := Policy{ID: 2, FeatureID: 10, Attribute: AttributeLevel, Operator: OpGreaterOrEqual, Value: "7"}

	assert.True(t, EvaluatePolicies(user, []Policy{passing}))
	assert.False(t, EvaluatePolicies(user, []Policy{passing, failing}))

	result := EvaluateWithDetails(user, []Policy{passing, failing})
	require.False(t, result.Valid)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(2), result.Failed[0].Policy.ID)
	assert.Equal(t, "5", result.Failed[0].Actual)
	assert.Equal(t, "level >= 7 not satisfied", result.Failed[0].Reason)
}

func TestEvaluatePoliciesMissingAttribute(t *testing.T) {
	user := User{ID: 1, Department: strPtr("Finance")}
	policy := Policy{ID: 3, FeatureID: 10, Attribute: AttributeLevel, Operator: OpGreaterOrEqual, Value: "3"}

	result := EvaluateWithDetails(user, []Policy{policy})
	require.False(t, result.Valid)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, ReasonMissingAttribute, result.Failed[0].Reason)
	assert.Empty(t, result.Failed[0].Actual)
}

func TestEvaluatePoliciesComparatorErrorFails(t *testing.T) {
	user := User{ID: 1, Department: strPtr("Finance")}
	policy := Policy{ID: 4, FeatureID: 10, Attribute: AttributeDepartment, Operator: OpGreater, Value: "3"}

	result := EvaluateWithDetails(user, []Policy{policy})
	require.False(t, result.Valid)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Reason, "not numeric")
	assert.False(t, EvaluatePolicies(user, []Policy{policy}))
}

func TestEvaluatePoliciesRecordsEveryFailure(t *testing.T) {
	user := User{ID: 1, Department: strPtr("HR"), Region: strPtr("APAC")}
	policies := []Policy{
		{ID: 1, Attribute: AttributeDepartment, Operator: OpEqual, Value: "Finance"},
		{ID: 2, Attribute: AttributeRegion, Operator: OpIn, Value: `["EU","US"]`},
		{ID: 3, Attribute: AttributeRegion, Operator: OpEqual, Value: "APAC"},
	}

	result := EvaluateWithDetails(user, policies)
	require.False(t, result.Valid)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, int64(1), result.Failed[0].Policy.ID)
	assert.Equal(t, int64(2), result.Failed[1].Policy.ID)
}

func TestUserAttributeValue(t *testing.T) {
	user := User{ID: 1, Department: strPtr("Finance"), Level: intPtr(3)}

	dept, ok := user.AttributeValue(AttributeDepartment)
	require.True(t, ok)
	assert.Equal(t, "Finance", dept)

	level, ok := user.AttributeValue(AttributeLevel)
	require.True(t, ok)
	assert.Equal(t, "3", level)

	_, ok = user.AttributeValue(AttributeRegion)
	assert.False(t, ok)
}
