package validation

import (
	"errors"
	"fmt"
	"sort"
)

// ErrValidation is wrapped by every FieldError.
var ErrValidation = errors.New("validation failed")

// FieldError names the field and the rule that failed first.
type FieldError struct {
	Field string
	Rule  Rule
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Rule)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// Fields checks data against per-field rule expressions.
// Fields are checked in sorted order and the first failure is returned as a
// *FieldError. Empty data or rules fail closed. A missing field is checked
// as a nil value, so it only passes with an optional rule.
func Fields(data map[string]any, rules map[string]string) error {
	if len(data) == 0 || len(rules) == 0 {
		return ErrValidation
	}

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parsed, err := Parse(rules[name])
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		if res := Check(data[name], parsed...); !res.OK {
			return &FieldError{Field: name, Rule: res.Failed}
		}
	}
	return nil
}
