package domain

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration error.
// It is raised before any simulation starts.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError wraps err for the named configuration field
func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// DivergenceWarning reports a non-fatal modelling hazard, such as buyers
// that start a trial without any seller connection. Such buyers never
// trade, starve and are replaced, so the run continues.
type DivergenceWarning struct {
	Rho      float64
	Trial    int
	Isolated int // buyers with an empty connection set
}

func (w *DivergenceWarning) Error() string {
	return fmt.Sprintf("divergence warning: rho=%g trial=%d: %d buyers have no seller connection", w.Rho, w.Trial, w.Isolated)
}

var (
	// ErrOutOfRange is returned when a parameter is outside its valid interval
	ErrOutOfRange = errors.New("value out of range")

	// ErrNotPositive is returned when a count or size must be strictly positive
	ErrNotPositive = errors.New("value must be positive")

	// ErrEmptySweep is returned when no rho values were given
	ErrEmptySweep = errors.New("rho sweep is empty")

	// ErrMalformedRow is returned when a persisted result row violates the row contract
	ErrMalformedRow = errors.New("malformed result row")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrTrialPanic is returned when a trial aborted with a panic. The whole run fails.
	ErrTrialPanic = errors.New("trial panicked")
)
