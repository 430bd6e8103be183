package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned for session IDs or blob paths that are empty or
// could escape the store's namespace.
var ErrInvalidKey = errors.New("invalid store key")

// ErrNotFound is returned by lookups for records that do not exist.
var ErrNotFound = errors.New("record not found")

// StoreError wraps a failure of a single store operation.
type StoreError struct {
	Store string // file, sqlite, dynamodb, dir, s3
	Op    string
	Key   string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: %s %s: %v", e.Store, e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(store, op, key string, err error) error {
	return &StoreError{Store: store, Op: op, Key: key, Err: err}
}

// ValidateKey rejects keys that are empty or contain path components.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	case strings.Contains(key, ".."):
		return fmt.Errorf("%w: key cannot contain '..'", ErrInvalidKey)
	case strings.ContainsAny(key, "/\\"):
		return fmt.Errorf("%w: key cannot contain path separators", ErrInvalidKey)
	case strings.Contains(key, "\x00"):
		return fmt.Errorf("%w: key cannot contain null bytes", ErrInvalidKey)
	}
	return nil
}

// validatePath checks a slash separated blob path segment by segment.
func validatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: path must be relative and non-empty", ErrInvalidKey)
	}
	for _, segment := range strings.Split(path, "/") {
		if err := ValidateKey(segment); err != nil {
			return err
		}
	}
	return nil
}
