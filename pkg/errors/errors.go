package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable error identifier sent to clients.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeStateConflict     Code = "STATE_CONFLICT"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit         Code = "RATE_LIMITED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
	CodeUpstream          Code = "UPSTREAM_ERROR"
)

type trait uint8

const (
	retryable trait = 1 << iota
	showDetails
	showMessage
)

// Metadata is how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus    int
	PublicMessage string
	traits        trait
}

func (m Metadata) Retryable() bool      { return m.traits&retryable != 0 }
func (m Metadata) DetailsAllowed() bool { return m.traits&showDetails != 0 }
func (m Metadata) MessageAllowed() bool { return m.traits&showMessage != 0 }

var catalog = map[Code]Metadata{
	CodeValidation:        {http.StatusBadRequest, "validation failed", showDetails | showMessage},
	CodeUnauthorized:      {http.StatusUnauthorized, "authentication required", showMessage},
	CodeForbidden:         {http.StatusForbidden, "access denied", showMessage},
	CodeNotFound:          {http.StatusNotFound, "resource not found", showMessage},
	CodeConflict:          {http.StatusConflict, "conflict detected", showMessage},
	CodeStateConflict:     {http.StatusUnprocessableEntity, "state transition disallowed", showDetails | showMessage},
	CodeInvalidTransition: {http.StatusUnprocessableEntity, "payment status transition not allowed", showDetails | showMessage},
	CodeIdempotency:       {http.StatusConflict, "idempotency key reused", showDetails | showMessage},
	CodeRateLimit:         {http.StatusTooManyRequests, "too many requests", retryable | showMessage},
	CodeInternal:          {http.StatusInternalServerError, "internal server error", retryable},
	CodeDependency:        {http.StatusServiceUnavailable, "dependency unavailable", retryable | showDetails},
	CodeUpstream:          {http.StatusBadGateway, "payment processor request failed", retryable},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
}

// Error carries a Code, an operator-facing message, optional client details
// and the wrapped cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with fmt formatting.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// Public is the client-safe view of an error.
type Public struct {
	Status  int
	Code    Code
	Message string
	Details any
}

// Publicize maps any error to what a client may see. Untyped errors become
// CodeInternal, and messages or details are only exposed where the code
// allows it.
func Publicize(err error) Public {
	typed := As(err)
	if typed == nil {
		typed = Wrap(CodeInternal, err, "unexpected error")
	}
	meta := MetadataFor(typed.code)
	out := Public{Status: meta.HTTPStatus, Code: typed.code, Message: meta.PublicMessage}
	if meta.MessageAllowed() && typed.message != "" {
		out.Message = typed.message
	}
	if meta.DetailsAllowed() {
		out.Details = typed.details
	}
	return out
}
