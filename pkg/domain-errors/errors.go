// Package domainerrors defines the typed errors the service layer surfaces to
// transport. Stores return sentinels (pkg/platform/sentinel); services wrap or
// translate them into one of these coded errors so handlers can map codes to
// HTTP statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for transport mapping and retry decisions.
type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"

	// CodeInsufficientCredit signals the entitlement check failed: the user is
	// not subscribed and holds no pack credits.
	CodeInsufficientCredit Code = "insufficient_credit"

	// CodePartnerNotFound signals that partner email resolution failed.
	CodePartnerNotFound Code = "partner_not_found"

	// CodeDuplicateEvent marks a redelivered payment event. Callers absorb it
	// as a no-op; it must never reach an end user as an error.
	CodeDuplicateEvent Code = "duplicate_event"

	// CodeTimeout covers lock contention and deadline expiry. Retryable.
	CodeTimeout Code = "timeout"

	CodeInternal Code = "internal_error"
)

// Error carries a code, a safe human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is / errors.As chains.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			break
		}
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that branch on a
// single code.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the outermost code, defaulting to CodeInternal for plain
// errors so unknown failures never leak as anything more specific.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status the transport layer responds
// with. The mapping is the single source of truth for error envelopes.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput,
		CodeInsufficientCredit, CodePartnerNotFound:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateEvent:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
