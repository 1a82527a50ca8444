package pipe

import (
	"errors"
	"fmt"

	"slate/internal/template"
)

// Resolution errors are shared with the template engine so callers can
// probe with a single errors.Is check regardless of which layer refused the
// path.
var (
	ErrNoMatch   = template.ErrNoMatch
	ErrAmbiguous = template.ErrAmbiguous
	// ErrMissing marks operations requiring an existing file or directory.
	ErrMissing = errors.New("missing filesystem target")
	// ErrValidation marks token values rejected by a job's validator set.
	ErrValidation = errors.New("validation error")
)

// resolveErr tags a resolution failure with the offending path so GUI
// layers can build actionable messages.
func resolveErr(kind, p string, err error) error {
	return fmt.Errorf("resolve %s from %q: %w", kind, p, err)
}
