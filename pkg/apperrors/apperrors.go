package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers classify with errors.Is (or the helpers
// below) and decide presentation; nothing in this package retries or logs.
var (
	// ErrInvalidArgument marks malformed caller input (non-positive limit,
	// unparsable date). Rejected before any query is built, never coerced.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a lookup for something that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable marks a connection or execution failure against
	// the record store. It keeps the driver error in the chain.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// InvalidArgumentf builds an ErrInvalidArgument with a formatted detail.
func InvalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFoundf builds an ErrNotFound with a formatted detail.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// StoreUnavailable tags a store-level failure with the failing operation
// while keeping the cause in the chain for errors.Is/As.
func StoreUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsStoreUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }
