// Package errors provides the standardized error taxonomy for the
// internship-application lifecycle.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Business-rule and lifecycle errors.
const (
	ErrCodeAlreadyApplied     ErrorCode = "ALREADY_APPLIED"
	ErrCodeOfferUnavailable   ErrorCode = "OFFER_UNAVAILABLE"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	ErrCodeValidationError    ErrorCode = "VALIDATION_ERROR"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
)

// Infrastructure errors.
const (
	ErrCodeDatabaseFailed     ErrorCode = "DATABASE_FAILED"
	ErrCodeDispatchFailed     ErrorCode = "DISPATCH_FAILED"
	ErrCodePushFailed         ErrorCode = "PUSH_FAILED"
	ErrCodeSearchIndexFailed  ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeIdentityResolution ErrorCode = "IDENTITY_RESOLUTION_FAILED"
)

// Guard identifies which transition guard rejected a call. Ordered the way
// the engine evaluates them; the first failing guard wins.
type Guard string

const (
	GuardRole         Guard = "role"
	GuardOwnership    Guard = "ownership"
	GuardPrerequisite Guard = "prerequisite"
	GuardPayload      Guard = "payload"
)

// DomainError is the structured error surfaced by the engine and services.
type DomainError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Guard     Guard     `json:"guard,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *DomainError) Error() string {
	if e.Guard != "" {
		return fmt.Sprintf("DomainError[%s/%s]: %s", e.Code, e.Guard, e.Message)
	}
	return fmt.Sprintf("DomainError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from any error in the chain, or "" when the
// error is not a DomainError.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewAlreadyAppliedError reports a duplicate (student, offer) application.
func NewAlreadyAppliedError(studentID, offerID string) *DomainError {
	return &DomainError{
		Code:      ErrCodeAlreadyApplied,
		Message:   "student has already applied to this offer",
		Details:   fmt.Sprintf("studentId: %s, offerId: %s", studentID, offerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOfferUnavailableError reports an offer that is not accepting applications.
func NewOfferUnavailableError(offerID string) *DomainError {
	return &DomainError{
		Code:      ErrCodeOfferUnavailable,
		Message:   "offer is not accepting applications",
		Details:   fmt.Sprintf("offerId: %s", offerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError reports an edge that does not exist from the
// current status.
func NewInvalidTransitionError(status, action string) *DomainError {
	return &DomainError{
		Code:      ErrCodeInvalidTransition,
		Message:   fmt.Sprintf("action %q is not valid from status %q", action, status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError reports a failed role or ownership guard.
func NewUnauthorizedError(guard Guard, details string) *DomainError {
	return &DomainError{
		Code:      ErrCodeUnauthorized,
		Message:   "actor is not allowed to perform this action",
		Details:   details,
		Guard:     guard,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreconditionFailedError reports a missing prerequisite sub-state. The
// details name the next required step so clients can explain it.
func NewPreconditionFailedError(details string) *DomainError {
	return &DomainError{
		Code:      ErrCodePreconditionFailed,
		Message:   "a required prerequisite is not satisfied",
		Details:   details,
		Guard:     GuardPrerequisite,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports a malformed payload for an edge.
func NewValidationError(details string) *DomainError {
	return &DomainError{
		Code:      ErrCodeValidationError,
		Message:   "payload is not valid for this action",
		Details:   details,
		Guard:     GuardPayload,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictError reports a lost optimistic-version race on an application
// row. Callers re-read and retry against fresh state.
func NewConflictError(applicationID string, version int64) *DomainError {
	return &DomainError{
		Code:      ErrCodeConflict,
		Message:   "application was modified concurrently",
		Details:   fmt.Sprintf("applicationId: %s, staleVersion: %d", applicationID, version),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", entity),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseError wraps a storage failure as retryable.
func NewDatabaseError(op string, err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeDatabaseFailed,
		Message:   "database operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchError reports a notification persistence failure.
func NewDispatchError(err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeDispatchFailed,
		Message:   "notification dispatch failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPushError reports a failed real-time push attempt. Push failures are
// logged, never surfaced: the persisted notification row is the durable
// artifact.
func NewPushError(channel string, err error) *DomainError {
	return &DomainError{
		Code:      ErrCodePushFailed,
		Message:   "real-time push failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchIndexError reports an offer index operation failure.
func NewSearchIndexError(op string, err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeSearchIndexFailed,
		Message:   "search index operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIdentityResolutionError reports a failed actor resolution.
func NewIdentityResolutionError(err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeIdentityResolution,
		Message:   "could not resolve calling principal",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether the error is worth retrying as-is. Business
// rule violations are final; only infrastructure failures and version
// conflicts are retryable.
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// Category returns a coarse grouping of the error code, used as a metric
// label.
func Category(code ErrorCode) string {
	s := string(code)
	switch {
	case code == ErrCodeUnauthorized:
		return "AUTHORIZATION"
	case code == ErrCodeConflict:
		return "CONCURRENCY"
	case strings.Contains(s, "VALIDATION") || code == ErrCodePreconditionFailed:
		return "VALIDATION"
	case strings.Contains(s, "DATABASE") || strings.Contains(s, "SEARCH"):
		return "STORAGE"
	case strings.Contains(s, "DISPATCH") || strings.Contains(s, "PUSH"):
		return "NOTIFICATION"
	default:
		return "BUSINESS_RULE"
	}
}
