// Package validate checks references between collections before a dependent write.
package validate

import (
	"fmt"
	"strings"

	"storefront/internal/apperr"
)

// Set is an exact-match index over the keys of one collection
type Set map[string]struct{}

// Keys indexes records by key
func Keys[T any](records []T, key func(T) string) Set {
	s := make(Set, len(records))
	for _, r := range records {
		s[key(r)] = struct{}{}
	}
	return s
}

// FoldedKeys indexes records by a case-insensitive key
func FoldedKeys[T any](records []T, key func(T) string) Set {
	s := make(Set, len(records))
	for _, r := range records {
		s[Fold(key(r))] = struct{}{}
	}
	return s
}

func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Fold normalizes a name for case-insensitive comparison
func Fold(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Violation is one failed check
type Violation struct {
	Field      string
	Value      string
	Collection string
	Reason     string
}

func (v Violation) String() string {
	if v.Reason != "" {
		return fmt.Sprintf("%s %q: %s", v.Field, v.Value, v.Reason)
	}
	return fmt.Sprintf("%s %q does not exist in %s", v.Field, v.Value, v.Collection)
}

// Result lists the violations found by a Validator
type Result struct {
	Violations []Violation
}

func (r Result) OK() bool { return len(r.Violations) == 0 }

// Err returns nil when r is OK and an integrity error naming every violation otherwise
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	parts := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		parts[i] = v.String()
	}
	return apperr.Integrity("%s", strings.Join(parts, "; "))
}

// Validator collects reference checks for a single write
type Validator struct {
	violations []Violation
}

func New() *Validator {
	return &Validator{}
}

// Ref requires value to be a key of collection
func (v *Validator) Ref(field, value, collection string, keys Set) *Validator {
	if !keys.Has(value) {
		v.violations = append(v.violations, Violation{Field: field, Value: value, Collection: collection})
	}
	return v
}

// RefName requires the case-insensitive name to be a key of a FoldedKeys set
func (v *Validator) RefName(field, name, collection string, names Set) *Validator {
	if !names.Has(Fold(name)) {
		v.violations = append(v.violations, Violation{Field: field, Value: name, Collection: collection})
	}
	return v
}

// Rule records a violation with reason unless ok holds
func (v *Validator) Rule(ok bool, field, value, reason string) *Validator {
	if !ok {
		v.violations = append(v.violations, Violation{Field: field, Value: value, Reason: reason})
	}
	return v
}

func (v *Validator) Result() Result {
	return Result{Violations: v.violations}
}
