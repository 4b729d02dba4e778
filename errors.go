package multicopter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("invalid vehicle configuration")
	// ErrCommandLengthMismatch is returned when the number of motor commands differs from the rotor count.
	ErrCommandLengthMismatch = errors.New("motor command length mismatch")
	// ErrInvalidTimestep is returned when a step is requested with a non-positive or non-finite dt.
	ErrInvalidTimestep = errors.New("invalid timestep")
)

// ConfigError reports why a vehicle configuration was rejected.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

// Is allows errors.Is(err, ErrInvalidConfig).
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
