package orm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// The engine distinguishes programming mistakes (unknown field, operator
// or scope — raised before any I/O), data-state issues (not deleted, not
// found) and infrastructure failures (db.ExecutorError). Callers match
// with errors.Is.
var (
	ErrUnknownField                = errors.New("orm: unknown field")
	ErrInvalidOperator             = errors.New("orm: invalid operator")
	ErrUnknownScope                = errors.New("orm: unknown scope")
	ErrUnresolvedRelationTarget    = errors.New("orm: unresolved relation target")
	ErrSoftDeleteNotEnabled        = errors.New("orm: soft delete not enabled")
	ErrNotDeleted                  = errors.New("orm: record is not deleted")
	ErrRelationMutationUnsupported = errors.New("orm: relation does not support this mutation")
	ErrNotFound                    = errors.New("orm: record not found")
)

func unknownField(column string) error {
	return fmt.Errorf("%w: %q", ErrUnknownField, column)
}

func invalidOperator(op string) error {
	return fmt.Errorf("%w: %q", ErrInvalidOperator, op)
}

func unknownScope(model, name string) error {
	return fmt.Errorf("%w: %q on model %s", ErrUnknownScope, name, model)
}

// ValidationError carries per-field rule violations from Create/Save.
type ValidationError struct {
	Model  string
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("orm: validation failed for %s (%s)", e.Model, strings.Join(fields, ", "))
}
