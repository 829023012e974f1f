package tracker

import "errors"

var (
	// ErrNoSession means Complete was called without a prior Start for the
	// habit today. This is a caller contract violation, not a user error.
	ErrNoSession = errors.New("habit has no active session")

	ErrAlreadyResolved = errors.New("habit already completed or excused today")
	ErrNotExcusable    = errors.New("habit is not excusable")
	ErrBadExcuseReason = errors.New("excuse reason not in the allowed set")
	ErrNotCompleted    = errors.New("no completion to restart")
	ErrNotRestartable  = errors.New("excused habits cannot be restarted")
)
