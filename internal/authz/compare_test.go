package authz

import "testing"

func TestCompareEquality(t *testing.T) {
	cases := []struct {
		name   string
		user   string
		op     Operator
		policy string
		want   bool
	}{
		{"equal match", "Finance", OpEqual, "Finance", true},
		{"equal mismatch", "Finance", OpEqual, "HR", false},
		{"equal is case sensitive", "finance", OpEqual, "Finance", false},
		{"not equal match", "Finance", OpNotEqual, "HR", true},
		{"not equal mismatch", "Finance", OpNotEqual, "Finance", false},
		{"numeric strings compare as strings", "3", OpEqual, "3", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compare(tc.user, tc.op, tc.policy)
			if err != nil {
				t.Fatalf("compare: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCompareNumeric(t *testing.T) {
	cases := []struct {
		name   string
		user   string
		op     Operator
		policy string
		want   bool
	}{
		{"greater", "5", OpGreater, "3", true},
		{"greater false", "3", OpGreater, "5", false},
		{"greater or equal boundary", "3", OpGreaterOrEqual, "3", true},
		{"less", "2", OpLess, "3", true},
		{"less or equal boundary", "3", OpLessOrEqual, "3", true},
		{"less or equal false", "4", OpLessOrEqual, "3", false},
		{"decimal operands", "2.5", OpGreater, "2.4", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compare(tc.user, tc.op, tc.policy)
			if err != nil {
				t.Fatalf("compare: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCompareNumericRejectsNonNumbers(t *testing.T) {
	cases := []struct {
		name   string
		user   string
		policy string
	}{
		{"user side not numeric", "abc", "3"},
		{"policy side not numeric", "3", "high"},
		{"both sides not numeric", "abc", "high"},
		{"empty user value", "", "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, op := range []Operator{OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual} {
				matched, err := Compare(tc.user, op, tc.policy)
				if err == nil {
					t.Fatalf("op %s: expected error, got match=%v", op, matched)
				}
				if !IsComparisonError(err) {
					t.Fatalf("op %s: expected ComparisonError, got %T", op, err)
				}
				if matched {
					t.Fatalf("op %s: errored compare must not match", op)
				}
			}
		})
	}
}

func TestCompareMembership(t *testing.T) {
	cases := []struct {
		name   string
		user   string
		policy string
		want   bool
	}{
		{"member", "EU", `["EU","US"]`, true},
		{"not a member", "APAC", `["EU","US"]`, false},
		{"numeric element matches string form", "3", `[1,2,3]`, true},
		{"empty array", "EU", `[]`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compare(tc.user, OpIn, tc.policy)
			if err != nil {
				t.Fatalf("compare: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCompareMembershipRejectsMalformedValue(t *testing.T) {
	for _, policy := range []string{"not json", `{"a":1}`, `"EU"`, "42", ""} {
		matched, err := Compare("EU", OpIn, policy)
		if err == nil {
			t.Fatalf("policy %q: expected error, got match=%v", policy, matched)
		}
		if !IsComparisonError(err) {
			t.Fatalf("policy %q: expected ComparisonError, got %T", policy, err)
		}
	}
}

func TestCompareUnknownOperator(t *testing.T) {
	if _, err := Compare("a", Operator("~="), "b"); err == nil {
		t.Fatal("expected error for unknown operator")
	}
}
