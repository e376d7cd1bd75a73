package remote

import (
	"errors"
)

// Error represents a structured failure from the remote store or a
// client-side check in front of it.
type Error struct {
	Code    string // taxonomy code, one of the Code* constants
	Message string
	Store   string // store-level error code when one was returned
}

func (e *Error) Error() string {
	return e.Message
}

// Taxonomy codes
const (
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeAuthorizationDenied    = "AUTHORIZATION_DENIED"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeSchemaUnavailable      = "SCHEMA_UNAVAILABLE"
	CodeRemoteUnavailable      = "REMOTE_UNAVAILABLE"
	CodeValidationFailed       = "VALIDATION_FAILED"
)

// Store error codes the client recognizes and handles specially.
const (
	storeCodeNoRows          = "PGRST116" // single-row lookup matched nothing
	storeCodeMissingRelation = "PGRST205" // relation not in schema cache
	storeCodeUniqueViolation = "23505"    // unique constraint violation
)

// Standard errors
var (
	ErrAuthenticationRequired = &Error{
		Code:    CodeAuthenticationRequired,
		Message: "not authenticated",
	}

	ErrNotFound = &Error{
		Code:    CodeNotFound,
		Message: "resource not found",
	}
)

// NewValidationError creates a validation error with a custom message.
func NewValidationError(message string) *Error {
	return &Error{Code: CodeValidationFailed, Message: message}
}

// NewAuthorizationDenied creates an authorization error with a custom message.
func NewAuthorizationDenied(message string) *Error {
	return &Error{Code: CodeAuthorizationDenied, Message: message}
}

// NewConflict creates a conflict error with a custom message.
func NewConflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

func is(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsNotFound reports whether err is a not-found outcome. Single-entity
// lookups treat this as absence, not failure.
func IsNotFound(err error) bool { return is(err, CodeNotFound) }

// IsConflict reports whether err is a duplicate-row outcome.
func IsConflict(err error) bool { return is(err, CodeConflict) }

// IsSchemaUnavailable reports whether err means the target relation does
// not exist on the store. Callers soft-degrade rather than fail.
func IsSchemaUnavailable(err error) bool { return is(err, CodeSchemaUnavailable) }

// IsAuthenticationRequired reports whether err means no identity was
// present where one is needed.
func IsAuthenticationRequired(err error) bool { return is(err, CodeAuthenticationRequired) }

// IsAuthorizationDenied reports whether err is a role/ownership failure.
func IsAuthorizationDenied(err error) bool { return is(err, CodeAuthorizationDenied) }

// IsValidationFailed reports whether err is a client-side validation failure.
func IsValidationFailed(err error) bool { return is(err, CodeValidationFailed) }

// IsRemoteUnavailable reports whether err is a transient network/service
// failure. These are recorded in manager state and are user-retryable.
func IsRemoteUnavailable(err error) bool { return is(err, CodeRemoteUnavailable) }

// mapStoreError converts an HTTP status plus store error body into the
// client taxonomy.
func mapStoreError(status int, storeCode, message string) *Error {
	switch storeCode {
	case storeCodeNoRows:
		return &Error{Code: CodeNotFound, Message: "resource not found", Store: storeCode}
	case storeCodeMissingRelation:
		return &Error{Code: CodeSchemaUnavailable, Message: message, Store: storeCode}
	case storeCodeUniqueViolation:
		return &Error{Code: CodeConflict, Message: message, Store: storeCode}
	}

	switch status {
	case 401:
		return &Error{Code: CodeAuthenticationRequired, Message: message, Store: storeCode}
	case 403:
		return &Error{Code: CodeAuthorizationDenied, Message: message, Store: storeCode}
	case 404:
		return &Error{Code: CodeNotFound, Message: message, Store: storeCode}
	case 409:
		return &Error{Code: CodeConflict, Message: message, Store: storeCode}
	}

	return &Error{Code: CodeRemoteUnavailable, Message: message, Store: storeCode}
}
