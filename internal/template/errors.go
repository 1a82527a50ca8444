package template

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatch marks resolution failures where no template fits; callers
	// probing "is this a pipeline path at all" test for it with errors.Is.
	ErrNoMatch = errors.New("no template matched")
	// ErrAmbiguous marks resolution failures where more than one template
	// fits after narrowing. Never resolved silently: picking the wrong
	// template would corrupt version and identity bookkeeping.
	ErrAmbiguous = errors.New("ambiguous template match")
)

// ParseError reports a path that does not fit a template's structure.
type ParseError struct {
	Path     string
	Template string
	Pattern  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("path %q does not match template %s (%s)", e.Path, e.Template, e.Pattern)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrNoMatch
}

// MissingTokenError reports a Format call lacking a required token.
type MissingTokenError struct {
	Token    string
	Template string
}

func (e *MissingTokenError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("template %s: missing required token", e.Template)
	}
	return fmt.Sprintf("template %s: missing required token %q", e.Template, e.Token)
}

// AmbiguousError reports a selection that narrowed to more than one
// candidate. It carries the candidate template names so callers can build
// actionable messages.
type AmbiguousError struct {
	Path       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	msg := fmt.Sprintf("%d templates matched", len(e.Candidates))
	if e.Path != "" {
		msg += fmt.Sprintf(" path %q", e.Path)
	}
	return msg + ": " + strings.Join(e.Candidates, ", ")
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}

// NoMatchError reports a selection that narrowed to zero candidates.
type NoMatchError struct {
	Path     string
	Searched []string
}

func (e *NoMatchError) Error() string {
	msg := "no template matched"
	if e.Path != "" {
		msg += fmt.Sprintf(" path %q", e.Path)
	}
	if len(e.Searched) > 0 {
		msg += " (searched: " + strings.Join(e.Searched, ", ") + ")"
	}
	return msg
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}
