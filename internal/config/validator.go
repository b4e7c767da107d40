package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, e[i].Error())
	}
	return sb.String()
}

// Validate checks the configuration after defaults were applied. A missing
// issuer is not an error here; it only fails token fetches.
func (c *MirrorConfig) Validate() error {
	var errs ValidationErrors
	add := func(path, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Transport {
	case TransportHTTP:
		u, err := url.Parse(c.IngestURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			add("ingestUrl", "must be an absolute URL, got %q", c.IngestURL)
		}
	case TransportGRPC:
		if c.GRPCAddress == "" {
			add("grpcAddress", "is required for grpc transport")
		}
	default:
		add("transport", "must be %q or %q, got %q", TransportHTTP, TransportGRPC, c.Transport)
	}

	for i, r := range c.Routes {
		if r.Pattern == "" {
			add(fmt.Sprintf("routes[%d]", i), "pattern is empty")
		}
		if r.StreamID == "" {
			add(fmt.Sprintf("routes[%d]", i), "stream id for %q is empty", r.Pattern)
		}
	}

	if c.Timeouts.Credential < 0 {
		add("timeouts.credential", "must not be negative")
	}
	if c.Timeouts.Delivery < 0 {
		add("timeouts.delivery", "must not be negative")
	}
	if cb := c.CircuitBreaker; cb != nil && cb.Enabled && cb.Threshold < 1 {
		add("circuitBreaker.threshold", "must be at least 1")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
