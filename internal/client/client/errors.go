package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/schooldesk/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrorType is the coarse shape of a failed request.
type ErrorType string

const (
	// TypeNetwork means no HTTP response was received (dial error, timeout,
	// reset connection).
	TypeNetwork ErrorType = "NETWORK_ERROR"
	// TypeAPI means the server answered with a non-2xx status.
	TypeAPI ErrorType = "API_ERROR"
)

// Kind classifies a failure for the caller's reaction.
type Kind int

const (
	KindNone Kind = iota
	KindNetwork
	KindAuthentication
	KindAuthorization
	KindValidation
	KindDomain
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindDomain:
		return "domain"
	default:
		return "none"
	}
}

// FieldError is a per-field validation message, from the server's
// "errors" array or from client-side validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the normalised failure returned by every API call.
type Error struct {
	Type      ErrorType
	Message   string
	Status    int
	Errors    []FieldError
	Code      string // raw "error" field of the server envelope
	RequestID string
	cause     error
}

func (e *Error) Error() string {
	if e.Type == TypeNetwork {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s %d: %s", e.Type, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is lets callers match normalised errors against the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Type == TypeNetwork
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

// TokenExpired reports whether e is a 401 whose message says the access
// token has expired or is invalid.
func (e *Error) TokenExpired() bool {
	if e.Status != http.StatusUnauthorized {
		return false
	}
	return common.IsTokenExpiredMessage(e.Message) || e.Code == "jwt expired"
}

func (e *Error) Kind() Kind {
	if e.Type == TypeNetwork {
		return KindNetwork
	}
	switch {
	case e.Status == http.StatusUnauthorized:
		return KindAuthentication
	case e.Status == http.StatusForbidden:
		return KindAuthorization
	case e.Status == http.StatusUnprocessableEntity,
		e.Status == http.StatusBadRequest && len(e.Errors) > 0:
		return KindValidation
	default:
		return KindDomain
	}
}

// KindOf classifies any error. Errors that are not *Error are treated as
// domain failures; nil is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	return KindDomain
}

// Message returns the user-facing text of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// FieldErrors returns the field errors carried by err, if any.
func FieldErrors(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Errors
	}
	return nil
}

func newNetworkError(err error) *Error {
	msg := "Network error. Please check your connection."
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "Request timed out. Please try again."
	}
	return &Error{Type: TypeNetwork, Message: msg, cause: err}
}

// newRequestError reports a request that could not be put on the wire.
func newRequestError(err error) *Error {
	return &Error{Type: TypeAPI, Message: "Invalid request", cause: err}
}

// withCause copies e onto a new cause, so a refresh failure that is not
// itself an *Error still reads as the 401 that triggered it.
func (e *Error) withCause(err error) *Error {
	c := *e
	c.Errors = nil
	c.cause = err
	return &c
}
