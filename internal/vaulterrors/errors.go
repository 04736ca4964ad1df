// Package vaulterrors defines the error taxonomy the core surfaces to
// callers: upstream HTTP errors, transport errors, and validation errors.
// The core never swallows an error; it only ever wraps one with context
// (method, URL, status class) the way the teacher's fetchWithFallback
// wraps origin failures ("origin fetch failed: %w").
package vaulterrors

import (
	"errors"
	"fmt"
)

// UpstreamError wraps a failure returned by the Obsidian Local REST API
// plugin, carrying enough context to log without re-deriving it from the
// wrapped error string.
type UpstreamError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstream builds an UpstreamError.
func NewUpstream(method, url string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{Method: method, URL: url, StatusCode: statusCode, Err: err}
}

// ValidationError represents an argument or path rejected before any I/O
// is attempted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// NewValidation builds a ValidationError.
func NewValidation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// IsUpstream reports whether err is, or wraps, an UpstreamError.
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ErrServiceNotInitialized mirrors the teacher's recurring
// "service not initialized" guard (cache-manager/service.go,
// invalidation/service.go) for components constructed lazily at startup.
var ErrServiceNotInitialized = errors.New("service not initialized")
