package authz

import "fmt"

// ABAC failure reason for an unset user attribute.
const ReasonMissingAttribute = "missing attribute"

// EvaluatePolicies is the boolean-only hot path: true iff every policy in
// the set passes for the user. An empty set passes.
func EvaluatePolicies(user User, policies []Policy) bool {
	for _, policy := range policies {
		if _, ok := evaluatePolicy(user, policy); !ok {
			return false
		}
	}
	return true
}

// EvaluateWithDetails evaluates the full set and reports every failed
// policy with the user's actual value, for audit and diagnostics. It shares
// the per-policy evaluation with EvaluatePolicies so the two paths cannot
// diverge.
func EvaluateWithDetails(user User, policies []Policy) EvaluationResult {
	result := EvaluationResult{Valid: true}
	for _, policy := range policies {
		outcome, ok := evaluatePolicy(user, policy)
		if ok {
			continue
		}
		result.Valid = false
		result.Failed = append(result.Failed, FailedPolicy{
			Policy: policy,
			Actual: outcome.actual,
			Reason: outcome.reason,
		})
	}
	return result
}

type policyOutcome struct {
	actual string
	reason string
}

// evaluatePolicy applies one policy to the user. A missing attribute is a
// failure, never a skip; a comparator error is a failure carrying the error
// text.
func evaluatePolicy(user User, policy Policy) (policyOutcome, bool) {
	actual, present := user.AttributeValue(policy.Attribute)
	if !present {
		return policyOutcome{reason: ReasonMissingAttribute}, false
	}
	matched, err := Compare(actual, policy.Operator, policy.Value)
	if err != nil {
		return policyOutcome{actual: actual, reason: err.Error()}, false
	}
	if !matched {
		reason := fmt.Sprintf("%s %s %s not satisfied", policy.Attribute, policy.Operator, policy.Value)
		return policyOutcome{actual: actual, reason: reason}, false
	}
	return policyOutcome{actual: actual}, true
}
