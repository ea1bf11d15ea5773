package apperrors

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the solver, the calibrators and the scenario runner
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrDataUnavailable = errors.New("data unavailable")
	ErrNumerical       = errors.New("numerical error")
	ErrScenarioFailed  = errors.New("scenario failed")
)

// ValidationError describes an invalid or missing configuration field.
// It always matches ErrConfiguration under errors.Is.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrConfiguration
}

// DataUnavailable wraps cause so that it matches ErrDataUnavailable.
func DataUnavailable(what string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrDataUnavailable, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrDataUnavailable, what, cause)
}

// Numerical reports a value outside the domain of the cost function.
func Numerical(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNumerical, fmt.Sprintf(format, args...))
}
