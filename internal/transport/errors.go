package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors for transport operations.
var (
	// ErrDeliveryFailed indicates that an envelope was not accepted.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrUnknownTransport indicates an unsupported transport name.
	ErrUnknownTransport = errors.New("unknown transport")

	// ErrClosed indicates that the transport has been closed.
	ErrClosed = errors.New("transport closed")

	// ErrCircuitOpen indicates that the circuit breaker rejected the send.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// DeliveryError describes a failed delivery.
type DeliveryError struct {
	Transport string

	// StatusCode is the HTTP status of a rejected request, zero otherwise.
	StatusCode int

	Cause error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Cause != nil:
		return fmt.Sprintf("deliver via %s: status %d: %v", e.Transport, e.StatusCode, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("deliver via %s: status %d", e.Transport, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("deliver via %s: %v", e.Transport, e.Cause)
	default:
		return fmt.Sprintf("deliver via %s failed", e.Transport)
	}
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrDeliveryFailed.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}

// NewDeliveryError creates a new DeliveryError.
func NewDeliveryError(transport string, statusCode int, cause error) *DeliveryError {
	return &DeliveryError{
		Transport:  transport,
		StatusCode: statusCode,
		Cause:      cause,
	}
}
