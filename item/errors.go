package item

import (
	"github.com/agentuity/itemcache/cache"
	"github.com/cockroachdb/errors"
)

var (
	// ErrValidation marks input the caller must fix. Not retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when no item exists for an id.
	ErrNotFound = errors.New("item not found")
	// ErrStoreUnavailable marks durable store connection or query failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrSharedUnavailable is carried by shared cache calls skipped while the
	// circuit is open. The service recovers from these itself, so callers
	// never see it.
	ErrSharedUnavailable = cache.ErrUnavailable
)

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err means the item does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsStoreUnavailable reports whether err is a durable store failure.
func IsStoreUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }

// StoreError wraps ErrStoreUnavailable with msg and the store's message.
// The store error is kept as a secondary error for reporting.
func StoreError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithSecondaryError(errors.Wrapf(ErrStoreUnavailable, "%s: %v", msg, err), err)
}

func validationError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}
