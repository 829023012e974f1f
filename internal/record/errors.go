package record

import (
	"errors"

	"github.com/brk3/routines/internal/storage"
)

var (
	// ErrNoUser means no authenticated user is available. Precondition
	// failure, never retried.
	ErrNoUser = errors.New("no authenticated user")

	// ErrOffline means the connectivity probe reported no connection. The
	// operation failed before any write was attempted and may be retried
	// once reconnected.
	ErrOffline = errors.New("no network connection")

	ErrHabitNotFound   = errors.New("habit not found")
	ErrRoutineNotFound = errors.New("routine not found")
)

// Retryable reports whether err is transient: the caller may re-invoke the
// same operation and expect it to succeed once conditions improve.
// Permission failures and precondition failures are not retryable.
func Retryable(err error) bool {
	return errors.Is(err, ErrOffline) || errors.Is(err, storage.ErrUnavailable)
}
