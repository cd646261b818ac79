package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Dataset errors
	ErrEmptyDataset   = errors.New("dataset has no rows")
	ErrMissingColumn  = errors.New("required column missing")
	ErrUnknownGroup   = errors.New("group value is neither control nor treatment")
	ErrUnsupportedExt = errors.New("unsupported dataset format")
)

// IsNotFound reports whether err wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
