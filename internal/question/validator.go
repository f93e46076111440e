package question

import (
	"fmt"
	"strings"
)

// Validator checks a decoded assessment definition.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator, e.g. "structural".
	Name() string

	// Validate returns every problem found, or nil if the assessment passes.
	Validate(a *Assessment) ValidationErrors
}

// ValidationError describes why an assessment definition failed a check.
type ValidationError struct {
	Validator  string // Name of the validator that failed
	QuestionID string // Empty for assessment-level problems
	Message    string
}

func (e *ValidationError) Error() string {
	if e.QuestionID != "" {
		return fmt.Sprintf("validator %q: question %s: %s", e.Validator, e.QuestionID, e.Message)
	}
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// ValidationErrors collects the problems found by one or more validators.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	switch len(errs) {
	case 0:
		return "no validation errors"
	case 1:
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  %s", len(errs), strings.Join(msgs, "\n  "))
}

// DefaultValidators returns the validators Load runs, in order.
func DefaultValidators() []Validator {
	return []Validator{
		&VersionValidator{},
		&StructuralValidator{},
	}
}

// Validate runs each validator and returns all problems found.
func Validate(a *Assessment, validators []Validator) ValidationErrors {
	var all ValidationErrors
	for _, v := range validators {
		all = append(all, v.Validate(a)...)
	}
	return all
}
