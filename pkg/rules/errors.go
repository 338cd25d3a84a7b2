package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Rule definition errors
var (
	ErrEmptySource         = errors.New("rule source is empty")
	ErrMissingID           = errors.New("rule has no identifier")
	ErrDuplicateID         = errors.New("rule identifier is already registered")
	ErrUnknownSeverity     = errors.New("unknown severity")
	ErrMissingSeverity     = errors.New("rule has no severity")
	ErrUnknownPatternType  = errors.New("unknown pattern type")
	ErrUnknownPatternScope = errors.New("unknown pattern scope")
	ErrUnknownModifier     = errors.New("unknown pattern modifier")
	ErrEmptyPattern        = errors.New("pattern text is empty")
	ErrNoPatterns          = errors.New("rule has no patterns and will never match")
)

// ParseError reports a structurally invalid rule source or rule record.
type ParseError struct {
	Source string
	RuleID string
	Err    error
}

func (e *ParseError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("parse %q: rule %q: %v", e.Source, e.RuleID, e.Err)
	}
	return fmt.Sprintf("parse %q: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PatternCompileError reports a rule whose pattern could not be compiled.
// The rule is excluded from the rule set; other rules stay usable.
type PatternCompileError struct {
	Source  string
	RuleID  string
	Pattern string
	Err     error
}

func (e *PatternCompileError) Error() string {
	return fmt.Sprintf("compile %q: rule %q: pattern %q: %v", e.Source, e.RuleID, e.Pattern, e.Err)
}

func (e *PatternCompileError) Unwrap() error { return e.Err }

// IOError reports an unreadable rule file or directory.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %q: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// LoadErrors aggregates the errors collected while loading rule sources.
// Loading continues past each of them.
type LoadErrors struct {
	Errors []error
}

func (e *LoadErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d rule load error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *LoadErrors) Unwrap() []error { return e.Errors }

// add appends err, flattening nested LoadErrors.
func (e *LoadErrors) add(err error) {
	if err == nil {
		return
	}
	var nested *LoadErrors
	if errors.As(err, &nested) {
		e.Errors = append(e.Errors, nested.Errors...)
		return
	}
	e.Errors = append(e.Errors, err)
}

// errOrNil returns nil when nothing was collected so callers can use err != nil.
func (e *LoadErrors) errOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}
