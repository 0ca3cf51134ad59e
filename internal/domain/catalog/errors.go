package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrStageNotFound indicates no stage exists at the requested order or id.
	ErrStageNotFound = errors.New("stage not found")
	// ErrEndOfCatalog indicates there is no stage after the given one.
	ErrEndOfCatalog = errors.New("end of catalog")
	// ErrInvalidCatalog indicates a malformed catalog definition.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrInvalidValue indicates an answer that violates its field constraint.
	ErrInvalidValue = errors.New("invalid value")
)

// ValueError describes which constraint an answer violated.
type ValueError struct {
	Field      string
	Constraint string
	Message    string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Message)
}

func (e *ValueError) Unwrap() error {
	return ErrInvalidValue
}

func invalidCatalog(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCatalog, fmt.Sprintf(format, args...))
}
