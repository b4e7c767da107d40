package credentials

import (
	"errors"
	"fmt"
)

// Sentinel errors for credential operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDiscovery indicates that issuer discovery failed.
	ErrDiscovery = errors.New("issuer discovery failed")

	// ErrTokenAcquisition indicates that the token grant failed.
	ErrTokenAcquisition = errors.New("token acquisition failed")
)

// ProviderError represents a credential provider error with context.
type ProviderError struct {
	Provider  string
	Operation string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("credentials %s (%s): %s", e.Operation, e.Provider, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderErrorWithCause creates a new ProviderError with a cause.
func NewProviderErrorWithCause(provider, operation, message string, cause error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("credentials config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("credentials config error: %s", e.Message)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}
