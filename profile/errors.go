package profile

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidIdentifier = errors.New("invalid configuration id")
	ErrInvalidName       = errors.New("invalid configuration name")
	ErrInvalidAppDir     = errors.New("invalid data directory name")
	ErrInvalidPath       = errors.New("invalid base path")
	ErrInvalidUpdateURL  = errors.New("invalid update URL")
	ErrInvalidAddress    = errors.New("invalid server address")
	ErrInvalidFile       = errors.New("invalid file name")

	ErrNotFound  = errors.New("configuration not found")
	ErrBuiltIn   = errors.New("built-in configuration cannot be removed")
	ErrDuplicate = errors.New("configuration id already registered")
)

// ValidationError is returned by constructors and setters when a value is
// rejected.  The receiver is left unchanged.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
