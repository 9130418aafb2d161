// Package apperr defines the error classes the engine reports to its callers.
//
// Validation and NotFound errors carry enough detail for the caller to fix the
// request. Quota errors name the limit that was hit. Internal errors hide their
// cause behind a generic message; the cause stays reachable through Unwrap so
// it can be logged.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError indicates a caller-correctable problem with the request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// QuotaError indicates a plan-tier limit blocked the operation.
type QuotaError struct {
	Reason string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Reason)
}

// NotFoundError indicates an id did not resolve for the requesting learner.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// InternalError wraps an unexpected failure. Error() never exposes the cause.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	if e.Op == "" {
		return "internal error"
	}
	return fmt.Sprintf("internal error during %s", e.Op)
}

func (e *InternalError) Unwrap() error { return e.Err }

// Internal wraps err as an InternalError for operation op.
func Internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsQuota reports whether err is or wraps a QuotaError.
func IsQuota(err error) bool {
	var q *QuotaError
	return errors.As(err, &q)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// IsInternal reports whether err is or wraps an InternalError.
func IsInternal(err error) bool {
	var i *InternalError
	return errors.As(err, &i)
}
