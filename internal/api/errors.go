package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable wraps transport failures: the backend could not be reached
// or did not answer in time.
var ErrUnavailable = errors.New("backend unavailable")

// ErrNoToken is returned by calls that need a signed-in visitor when no
// token is stored. No request is made.
var ErrNoToken = &AuthError{StatusCode: http.StatusUnauthorized, Message: "Authentication credentials were not provided."}

// AuthError is returned for 401 and 403 responses. Message is the backend's
// own wording.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// APIError is any other non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Temporary reports whether retrying the call later may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ValidationError is a request rejected before it was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrorKind groups errors by how the UI should react to them.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindAuth
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Classify maps err to an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return KindAuth
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidation
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Temporary():
			return KindTransient
		case apiErr.StatusCode == http.StatusBadRequest,
			apiErr.StatusCode == http.StatusNotFound,
			apiErr.StatusCode == http.StatusConflict,
			apiErr.StatusCode == http.StatusUnprocessableEntity:
			return KindValidation
		}
		return KindUnknown
	}

	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindUnknown
}

const (
	msgTransient = "We could not reach the school server. Please try again."
	msgUnknown   = "Something went wrong. Please try again."
)

// UserMessage returns the text shown to the visitor for err. Backend and
// validation messages are passed through verbatim.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindValidation, KindAuth:
		return err.Error()
	case KindTransient:
		return msgTransient
	default:
		return msgUnknown
	}
}

func newStatusError(status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("request failed: %s", http.StatusText(status))
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &AuthError{StatusCode: status, Message: message}
	}
	return &APIError{StatusCode: status, Message: message}
}
