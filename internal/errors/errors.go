// Package errors defines the typed error taxonomy of the rendering
// engine. Every error that crosses a component boundary carries a
// Type, a human message and an HTTP-style status code so the pipeline
// and the HTTP layer can route it without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes rendering errors.
type ErrorType string

const (
	// ErrStoreNotFound means the domain does not resolve to a tenant.
	ErrStoreNotFound ErrorType = "STORE_NOT_FOUND"
	// ErrStoreNotActive means the tenant exists but is suspended.
	ErrStoreNotActive ErrorType = "STORE_NOT_ACTIVE"
	// ErrTemplateNotFound means a theme asset is missing from storage.
	ErrTemplateNotFound ErrorType = "TEMPLATE_NOT_FOUND"
	// ErrData means a backend fetch for a required entity failed.
	ErrData ErrorType = "DATA_ERROR"
	// ErrRender is the catch-all for template execution failures.
	ErrRender ErrorType = "RENDER_ERROR"
)

// RenderError is the structured error passed between pipeline stages.
type RenderError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Details    map[string]any
	Cause      error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Is matches errors by type, so callers can compare against a sentinel
// built with the same constructor.
func (e *RenderError) Is(target error) bool {
	var t *RenderError
	if errors.As(target, &t) {
		return e.Type == t.Type
	}
	return false
}

// WithDetail attaches a key/value pair to the error for logging.
func (e *RenderError) WithDetail(key string, value any) *RenderError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewStoreNotFound creates the terminal domain-resolution error.
func NewStoreNotFound(domain string) *RenderError {
	return &RenderError{
		Type:       ErrStoreNotFound,
		Message:    "no store found for domain: " + domain,
		StatusCode: 404,
	}
}

// NewStoreNotActive creates the suspended-tenant error.
func NewStoreNotActive(domain string) *RenderError {
	return &RenderError{
		Type:       ErrStoreNotActive,
		Message:    "store is not active for domain: " + domain,
		StatusCode: 402,
	}
}

// NewTemplateNotFound creates a missing-template error carrying the
// storage path that failed to resolve.
func NewTemplateNotFound(path string, cause error) *RenderError {
	e := &RenderError{
		Type:       ErrTemplateNotFound,
		Message:    "template not found: " + path,
		StatusCode: 404,
		Cause:      cause,
	}
	return e.WithDetail("path", path)
}

// NewDataError creates a backend-fetch error.
func NewDataError(message string, cause error) *RenderError {
	return &RenderError{
		Type:       ErrData,
		Message:    message,
		StatusCode: 500,
		Cause:      cause,
	}
}

// NewDataNotFound creates a 404-flavored data error for a missing
// primary-subject entity (the product on a product page, etc.).
func NewDataNotFound(message string) *RenderError {
	return &RenderError{
		Type:       ErrData,
		Message:    message,
		StatusCode: 404,
	}
}

// NewRenderError creates a template-execution error.
func NewRenderError(message string, cause error) *RenderError {
	return &RenderError{
		Type:       ErrRender,
		Message:    message,
		StatusCode: 500,
		Cause:      cause,
	}
}

// AsRenderError extracts a *RenderError from an error chain.
func AsRenderError(err error) (*RenderError, bool) {
	var re *RenderError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsType reports whether err is a RenderError of the given type.
func IsType(err error, t ErrorType) bool {
	re, ok := AsRenderError(err)
	return ok && re.Type == t
}

// IsNotFound reports whether err carries a 404 status.
func IsNotFound(err error) bool {
	re, ok := AsRenderError(err)
	return ok && re.StatusCode == 404
}

// Wrap converts an arbitrary error into a RenderError, passing typed
// errors through unchanged.
func Wrap(err error, message string) *RenderError {
	if re, ok := AsRenderError(err); ok {
		return re
	}
	return NewRenderError(message, err)
}
