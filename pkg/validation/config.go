package validation

import (
	"fmt"
	"time"
)

// ConfigValidator provides a fluent interface for validating configuration values.
// It collects all validation errors rather than failing on the first one.
type ConfigValidator struct {
	errors []error
	name   string // config struct name for error messages
}

// NewConfigValidator creates a new config validator with the given config name.
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{
		name:   configName,
		errors: make([]error, 0),
	}
}

// Required validates that a string field is not empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value == "" {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: required field is empty", cv.name, field))
	}
	return cv
}

// Positive validates that an int field is positive (> 0).
func (cv *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	if value <= 0 {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: value %d must be positive", cv.name, field, value))
	}
	return cv
}

// MinDuration validates that a duration is at least the minimum.
func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value < min {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: duration %v is below minimum %v", cv.name, field, value, min))
	}
	return cv
}

// RangeDuration validates that a duration is within the specified range.
func (cv *ConfigValidator) RangeDuration(field string, value, min, max time.Duration) *ConfigValidator {
	if value < min || value > max {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: duration %v is outside range [%v, %v]", cv.name, field, value, min, max))
	}
	return cv
}

// OneOf validates that a string field is one of the allowed values.
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	for _, a := range allowed {
		if value == a {
			return cv
		}
	}
	cv.errors = append(cv.errors, fmt.Errorf("%s.%s: value %q must be one of %v", cv.name, field, value, allowed))
	return cv
}

// HasErrors returns true if any validation errors occurred.
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errors) > 0
}

// Errors returns all validation errors.
func (cv *ConfigValidator) Errors() []error {
	return cv.errors
}

// Validate returns a combined error if any validations failed.
func (cv *ConfigValidator) Validate() error {
	if len(cv.errors) == 0 {
		return nil
	}
	if len(cv.errors) == 1 {
		return cv.errors[0]
	}
	return fmt.Errorf("%s validation failed with %d errors: %v", cv.name, len(cv.errors), cv.errors[0])
}

// DefaultOrInt returns the value if it's positive, otherwise returns the default.
func DefaultOrInt(value, defaultValue int) int {
	if value <= 0 {
		return defaultValue
	}
	return value
}

// DefaultOrDuration returns the value if it's positive, otherwise returns the default.
func DefaultOrDuration(value, defaultValue time.Duration) time.Duration {
	if value <= 0 {
		return defaultValue
	}
	return value
}

// DefaultOrString returns the value if it's non-empty, otherwise returns the default.
func DefaultOrString(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
