// Package validation scores document JSON against the fixed per-type rule
// tables. Validation failures are data, not errors: the generation stages log
// them, attempt one repair, and always continue.
package validation

import "math"

// Rule checks a single top-level document field. Check receives the raw field
// value (nil when the field is missing) and must treat absence as an empty
// default.
type Rule struct {
	Field   string
	Check   func(value any) bool
	Message string
}

// Result is the outcome of validating one document. Errors preserves rule
// order; Score is round(100 * passed / total).
type Result struct {
	Valid  bool
	Errors []string
	Score  int
}

// Validate evaluates doc against rules. It is pure and deterministic: the
// same document always produces the same errors in the same order and the
// same score. A nil document evaluates every rule against a missing field.
func Validate(doc map[string]any, rules []Rule) Result {
	if len(rules) == 0 {
		return Result{Valid: true, Score: 100}
	}
	var errs []string
	for _, rule := range rules {
		var value any
		if doc != nil {
			value = doc[rule.Field]
		}
		if !rule.Check(value) {
			errs = append(errs, rule.Message)
		}
	}
	total := len(rules)
	failed := len(errs)
	score := int(math.Round(100 * float64(total-failed) / float64(total)))
	return Result{Valid: failed == 0, Errors: errs, Score: score}
}
