// Package apperr defines the error kinds surfaced at the API boundary and
// their mapping to HTTP status codes and stable error codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindProviderUnavailable
	KindProviderRejected
)

const internalMessage = "An unexpected error occurred"

type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func ProviderUnavailable(err error) *Error {
	return &Error{Kind: KindProviderUnavailable, Message: "Payment provider is unavailable, please retry later", Err: err}
}

func ProviderRejected(err error) *Error {
	return &Error{Kind: KindProviderRejected, Message: "Payment provider rejected the transfer", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: internalMessage, Err: err}
}

// KindOf reports the kind of err, defaulting to KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err to a status code, a stable code and a client-safe message.
func HTTPStatus(err error) (int, string, string) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", internalMessage
	}

	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest, "VALIDATION_ERROR", e.Message
	case KindUnauthorized:
		return http.StatusUnauthorized, "UNAUTHORIZED", e.Message
	case KindNotFound:
		return http.StatusNotFound, "NOT_FOUND", e.Message
	case KindConflict:
		return http.StatusConflict, "CONFLICT", e.Message
	case KindProviderUnavailable:
		return http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", e.Message
	case KindProviderRejected:
		return http.StatusBadGateway, "PROVIDER_REJECTED", e.Message
	default:
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", internalMessage
	}
}
