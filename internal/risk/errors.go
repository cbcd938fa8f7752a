package risk

import "fmt"

// ConfigurationError indicates a missing or malformed policy table. It is a
// deployment/programmer error, never a market-data condition, and is never
// silently defaulted.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("risk configuration error: %s", e.Detail)
}

// InvalidInputError indicates a caller-supplied numeric input outside its
// documented domain. It carries the offending field so the caller can trace
// the bug to its source instead of getting a silently coerced value.
type InvalidInputError struct {
	Field string
	Value float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s = %v", e.Field, e.Value)
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Detail: fmt.Sprintf(format, args...)}
}
