// Package errors provides the structured error taxonomy shared by the
// repository, service and handler layers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrCode classifies an error for callers and transports.
type ErrCode string

const (
	ErrCodeValidation        ErrCode = "VALIDATION_ERROR"
	ErrCodeForbidden         ErrCode = "FORBIDDEN"
	ErrCodeConflict          ErrCode = "CONFLICT"
	ErrCodeNotEligible       ErrCode = "NOT_ELIGIBLE"
	ErrCodeOverPayment       ErrCode = "OVER_PAYMENT"
	ErrCodeInvalidAttachment ErrCode = "INVALID_ATTACHMENT"
	ErrCodeNotFound          ErrCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrCode = "UNAUTHORIZED"
	ErrCodeInternal          ErrCode = "INTERNAL"
)

// Error is the error type returned by every layer of the service.
type Error struct {
	Code    ErrCode        `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so sentinels such as
// &Error{Code: ErrCodeConflict} work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key/value explaining the failure.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an error with the given code.
func New(code ErrCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code ErrCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code ErrCode, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// InvalidInput reports a malformed or missing field.
func InvalidInput(field, message string) *Error {
	return &Error{Code: ErrCodeValidation, Field: field, Message: message}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return (&Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}).WithDetail("resource", resource).WithDetail("id", id)
}

// Forbidden reports a missing capability or ownership.
func Forbidden(message string) *Error {
	return &Error{Code: ErrCodeForbidden, Message: message}
}

// Conflict reports an entity whose status does not permit the operation.
func Conflict(message string) *Error {
	return &Error{Code: ErrCodeConflict, Message: message}
}

// NotEligible reports an unmet cross-entity precondition.
func NotEligible(message string) *Error {
	return &Error{Code: ErrCodeNotEligible, Message: message}
}

// OverPayment reports a payment that would exceed the invoice net amount.
func OverPayment(message string) *Error {
	return &Error{Code: ErrCodeOverPayment, Message: message}
}

// InvalidAttachment reports a file rejected by the upload policy.
func InvalidAttachment(message string) *Error {
	return &Error{Code: ErrCodeInvalidAttachment, Message: message}
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized(message string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Message: message}
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return &Error{Code: ErrCodeInternal, Message: message, Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrCode {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrCode) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps a code to an HTTP status.
func HTTPStatus(code ErrCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidAttachment:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeNotEligible, ErrCodeOverPayment:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
