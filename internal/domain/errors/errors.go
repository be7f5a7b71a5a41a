// Package errors provides domain-specific errors for the medsync engine.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common domain error conditions.
var (
	ErrItemNotFound       = errors.New("sync item not found")
	ErrItemTypeRequired   = errors.New("item type required")
	ErrActionRequired     = errors.New("action required")
	ErrStoreUnavailable   = errors.New("durable store unavailable")
	ErrStoreCorrupt       = errors.New("durable store corrupt")
	ErrPeriodAlreadyOpen  = errors.New("offline period already open")
	ErrNoOpenPeriod       = errors.New("no open offline period")
	ErrConflictUnresolved = errors.New("conflict requires user review")
)

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeValidation    ErrorCode = "VALIDATION"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeStorage       ErrorCode = "STORAGE"
	CodeDelivery      ErrorCode = "DELIVERY"
	CodeConflict      ErrorCode = "CONFLICT"
	CodeConfiguration ErrorCode = "CONFIG"
)

// MedsyncError wraps errors with additional context for debugging and handling.
type MedsyncError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *MedsyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *MedsyncError) Unwrap() error {
	return e.Cause
}

// NewError creates a new MedsyncError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *MedsyncError {
	return &MedsyncError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error's context and returns the error.
// This allows for method chaining when adding multiple context values.
func WithContext(err *MedsyncError, key string, value interface{}) *MedsyncError {
	if err.Context == nil {
		err.Context = make(map[string]interface{})
	}
	err.Context[key] = value
	return err
}

// DeliveryError describes a failed delivery attempt through the transport.
// Permanent is advisory: the collaborator believes retrying is pointless.
// The queue still retries up to max_retries because apparent permanence
// (rate limiting, remote maintenance windows) often resolves.
type DeliveryError struct {
	Reason    string
	Permanent bool
	Cause     error
}

// Error returns a formatted description of the delivery failure.
func (e *DeliveryError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s delivery failure: %s: %v", kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s delivery failure: %s", kind, e.Reason)
}

// Unwrap returns the underlying cause error.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// Is reports whether err matches target using errors.Is semantics.
// This is a convenience wrapper around the standard library's errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target and sets target to that error value.
// This is a convenience wrapper around the standard library's errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
