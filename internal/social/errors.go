package social

import (
	"errors"
	"fmt"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
)

// Domain errors returned by every service. Callers match them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// storeError maps a store error onto the domain taxonomy while keeping the
// store error in the chain
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, interfaces.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, interfaces.ErrUniqueConstraint):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	case errors.Is(err, interfaces.ErrValidation), errors.Is(err, interfaces.ErrInvalidQuery):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidInput, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// InputError is a rejected input whose Reason is safe to show to a client
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return ErrInvalidInput.Error() + ": " + e.Reason }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(format string, args ...interface{}) error {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}
