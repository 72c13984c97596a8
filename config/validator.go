package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "pool.max_driver_count")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePool()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validatePool validates the PoolConfig
func (c *Config) validatePool() []ValidationError {
	var errors []ValidationError

	if c.Pool.MaxDriverCount < 1 {
		errors = append(errors, ValidationError{
			Field:   "pool.max_driver_count",
			Value:   c.Pool.MaxDriverCount,
			Message: "must be at least 1",
		})
	}

	if c.Pool.InitRetryCount < 0 {
		errors = append(errors, ValidationError{
			Field:   "pool.init_retry_count",
			Value:   c.Pool.InitRetryCount,
			Message: "must be non-negative",
		})
	}

	if c.Pool.InitRetryIntervalSec < 0 {
		errors = append(errors, ValidationError{
			Field:   "pool.init_retry_interval_sec",
			Value:   c.Pool.InitRetryIntervalSec,
			Message: "must be non-negative",
		})
	}

	if c.Pool.DriverCloseTimeoutSec < 1 {
		errors = append(errors, ValidationError{
			Field:   "pool.driver_close_timeout_sec",
			Value:   c.Pool.DriverCloseTimeoutSec,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
