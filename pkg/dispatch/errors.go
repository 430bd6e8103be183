package dispatch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/harun/chatrelay/pkg/persona"
	"github.com/harun/chatrelay/pkg/provider"
)

var (
	// ErrNoMessages is returned for requests without a conversation history
	ErrNoMessages = errors.New("messages cannot be empty")

	// ErrUnsupportedAction is returned for actions this service does not run
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrSessionRequired is returned when an action needs a session ID
	ErrSessionRequired = errors.New("sessionId is required")
)

// ValidationError reports a malformed request. It maps to HTTP 400.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %v", e.Err)
	}
	return fmt.Sprintf("invalid request: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BackendInvocationError wraps a failed model call or an unreadable model
// response. It maps to HTTP 500. Calls are never retried.
type BackendInvocationError struct {
	BackendID string
	Err       error
}

func (e *BackendInvocationError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.BackendID, e.Err)
}

func (e *BackendInvocationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// StatusFor maps an error returned by the dispatcher to an HTTP status code.
// Client mistakes (bad input, unknown persona, unsupported backend) are 400;
// everything else is 500.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var (
		validationErr  *ValidationError
		personaErr     *persona.UnknownPersonaError
		unsupportedErr *provider.UnsupportedBackendError
	)
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &personaErr),
		errors.As(err, &unsupportedErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
