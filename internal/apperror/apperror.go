// Package apperror defines the typed failures returned by the core services.
//
// Services never return raw database or HTTP errors to their callers; they
// wrap them in an *AppError carrying one of the sentinel causes below so the
// boundary layer can translate with errors.Is. Validation failures aggregate
// every violated rule into Fields, the way a form redisplay needs them.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// Specializations of ErrValidation raised by the intake flow. Each wraps
	// ErrValidation so errors.Is(err, ErrValidation) holds for all of them.
	ErrDuplicateApplication = fmt.Errorf("duplicate application: %w", ErrValidation)
	ErrRegistrationClosed   = fmt.Errorf("registration closed: %w", ErrValidation)
	ErrEligibility          = fmt.Errorf("eligibility not met: %w", ErrValidation)
)

// FieldErrors maps a form field name to the message describing its violation.
type FieldErrors map[string]string

// Add records a violation for a field. The first message per field wins so
// rule ordering stays deterministic.
func (f FieldErrors) Add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = message
	}
}

func (f FieldErrors) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

// AppError is the error type surfaced by the service layer.
type AppError struct {
	Err     error       // sentinel cause (or errors.Join of several)
	Message string      // human-readable summary
	Fields  FieldErrors // per-field violations, set for validation errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports a single-field violation.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Fields:  FieldErrors{field: message},
	}
}

// Validation reports an aggregated set of field violations. Causes are the
// specialized sentinels (duplicate, closed, eligibility) that apply; when none
// are given the error unwraps to plain ErrValidation.
func Validation(fields FieldErrors, causes ...error) *AppError {
	err := ErrValidation
	if len(causes) == 1 {
		err = causes[0]
	} else if len(causes) > 1 {
		err = errors.Join(causes...)
	}
	return &AppError{
		Err:     err,
		Message: fields.String(),
		Fields:  fields,
	}
}

// Conflict reports a state conflict on a resource.
func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden reports that the caller lacks permission.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
