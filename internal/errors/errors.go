// Package errors provides the consolidated error taxonomy for the
// netrunner backend.
//
// This package defines:
// - Sentinel errors for all error conditions
// - Stable machine-readable error codes for HTTP responses
// - Error category checking functions
// - HTTP status mapping
// - Error wrapping utilities
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Auth errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredential  = errors.New("invalid device credential")
	ErrSessionRequired    = errors.New("authenticated session required")
	ErrInvalidCronSecret  = errors.New("invalid cron secret")

	// Not found errors
	ErrNotFound       = errors.New("not found")
	ErrDeviceNotFound = errors.New("device not found")
	ErrTenantNotFound = errors.New("tenant not found")
	ErrConfigNotFound = errors.New("device config not found")

	// Conflict errors
	ErrAlreadyClaimed      = errors.New("device already claimed")
	ErrDeviceNotRegistered = errors.New("device not registered")

	// Tenant isolation errors
	ErrMissingTenant = errors.New("device has no tenant bound")
	ErrScopeRequired = errors.New("tenant scope required")

	// Validation errors
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidURL       = errors.New("invalid url")
	ErrInvalidInterval  = errors.New("invalid interval")

	// Internal errors
	ErrInternal = errors.New("internal error")
	ErrDatabase = errors.New("database error")
)

// ============================================================================
// Stable error codes (emitted in JSON error responses)
// ============================================================================

// Code returns the stable machine-readable code for an error.
func Code(err error) string {
	switch {
	case Is(err, ErrInvalidCredential), Is(err, ErrUnauthorized),
		Is(err, ErrSessionRequired), Is(err, ErrInvalidCronSecret):
		return "unauthorized"
	case Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case Is(err, ErrDeviceNotRegistered):
		return "device_not_registered"
	case Is(err, ErrMissingTenant):
		return "missing_tenant"
	case Is(err, ErrScopeRequired):
		return "tenant_scope_required"
	case IsNotFound(err):
		return "not_found"
	case IsValidation(err):
		return "invalid_payload"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error to the HTTP status code used by the handlers.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsAuthError(err):
		return http.StatusUnauthorized
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDeviceNotFound) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrConfigNotFound)
}

// IsAuthError returns true if err is an authentication error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrSessionRequired) ||
		errors.Is(err, ErrInvalidCronSecret)
}

// IsConflict returns true if err is a state conflict.
//
// MissingTenant is a conflict, not a validation failure: the payload is
// fine, the device is just not yet bound to a tenant.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrDeviceNotRegistered) ||
		errors.Is(err, ErrMissingTenant)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrInvalidInterval)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidPayload)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
