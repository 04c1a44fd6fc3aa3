package authz

import (
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Compare evaluates userValue against policyValue under the given operator.
// Equality operators compare NFC-normalized strings and never fail. Ordering
// operators require both sides to parse as numbers. The in operator requires
// policyValue to be a JSON array. Any malformed input yields a
// ComparisonError rather than a false match, so callers can tell "rule does
// not match" apart from "rule malformed"; either way the caller must deny.
//
// Compare holds no state and is safe for concurrent use.
func Compare(userValue string, op Operator, policyValue string) (bool, error) {
	switch op {
	case OpEqual:
		return norm.NFC.String(userValue) == norm.NFC.String(policyValue), nil
	case OpNotEqual:
		return norm.NFC.String(userValue) != norm.NFC.String(policyValue), nil
	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		return compareNumeric(userValue, op, policyValue)
	case OpIn:
		return compareMembership(userValue, policyValue)
	}
	return false, &ComparisonError{Operator: op, Detail: "unsupported operator"}
}

func compareNumeric(userValue string, op Operator, policyValue string) (bool, error) {
	lhs, err := strconv.ParseFloat(userValue, 64)
	if err != nil {
		return false, &ComparisonError{Operator: op, Detail: fmt.Sprintf("user value %q is not numeric", userValue)}
	}
	rhs, err := strconv.ParseFloat(policyValue, 64)
	if err != nil {
		return false, &ComparisonError{Operator: op, Detail: fmt.Sprintf("policy value %q is not numeric", policyValue)}
	}
	switch op {
	case OpGreater:
		return lhs > rhs, nil
	case OpGreaterOrEqual:
		return lhs >= rhs, nil
	case OpLess:
		return lhs < rhs, nil
	case OpLessOrEqual:
		return lhs <= rhs, nil
	}
	return false, &ComparisonError{Operator: op, Detail: "unsupported numeric operator"}
}

func compareMembership(userValue, policyValue string) (bool, error) {
	var elements []any
	if err := json.Unmarshal([]byte(policyValue), &elements); err != nil {
		return false, &ComparisonError{Operator: OpIn, Detail: fmt.Sprintf("policy value is not a JSON array: %v", err)}
	}
	needle := norm.NFC.String(userValue)
	for _, el := range elements {
		if norm.NFC.String(coerceString(el)) == needle {
			return true, nil
		}
	}
	return false, nil
}

// coerceString renders a decoded JSON scalar the way the policy author wrote
// it, so numeric array elements still match numeric user values.
func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}
