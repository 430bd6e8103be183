package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMessages is returned when a request is built from an empty history
	ErrNoMessages = errors.New("no messages to send")

	// ErrMalformedResponse is returned when a known response shape lacks the generated text
	ErrMalformedResponse = errors.New("malformed backend response")
)

// UnsupportedBackendError is returned when the backend id does not belong to a
// family whose responses can be parsed.
type UnsupportedBackendError struct {
	BackendID string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("unsupported backend: %s", e.BackendID)
}

func malformed(family Family, path string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, family, path, cause)
	}
	return fmt.Errorf("%w: %s response has no %s", ErrMalformedResponse, family, path)
}
