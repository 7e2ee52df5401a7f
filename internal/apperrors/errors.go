// Package apperrors defines the error taxonomy shared by the messaging
// gateway. Handlers map Kind to an HTTP status; callers use the kind to decide
// whether a retry can help (transient) or not (configuration, validation).
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// KindConfiguration: unsupported provider type, missing credentials.
	// Fatal, never retried.
	KindConfiguration Kind = iota
	// KindValidation: malformed payload, missing required field. Rejected
	// before any I/O.
	KindValidation
	// KindAuthentication: webhook identity mismatch, sync key mismatch.
	KindAuthentication
	// KindAuthorization: permission check failure before mutation.
	KindAuthorization
	// KindUpstreamProvider: non-2xx or malformed provider response.
	KindUpstreamProvider
	// KindNotFound: conversation or sector absent.
	KindNotFound
	// KindTransientIO: timeout or connection failure, eligible for
	// caller-driven retry.
	KindTransientIO
)

// Error carries a kind plus a message safe to surface to the caller.
type Error struct {
	Kind    Kind
	Message string
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

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Configuration(message string) *Error  { return New(KindConfiguration, message) }
func Validation(message string) *Error     { return New(KindValidation, message) }
func Authentication(message string) *Error { return New(KindAuthentication, message) }
func Authorization(message string) *Error  { return New(KindAuthorization, message) }
func NotFound(message string) *Error       { return New(KindNotFound, message) }

func Upstream(message string, err error) *Error {
	return Wrap(KindUpstreamProvider, message, err)
}

func Transient(message string, err error) *Error {
	return Wrap(KindTransientIO, message, err)
}

// KindOf extracts the kind from any error in the chain. Unclassified errors
// count as upstream so they surface as 502, never as silent success.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return KindUpstreamProvider, false
}

// HTTPStatus maps an error to the status the handlers answer with.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamProvider, KindTransientIO:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
