package engine

import (
	"errors"
	"fmt"
)

// Fatal cycle errors. Either aborts the whole invocation before any
// external side effect; the previous persisted state stays authoritative.
var (
	// ErrMalformedReading marks a provider row whose rate could not be
	// parsed as a non-negative number within the sanity ceiling.
	ErrMalformedReading = errors.New("malformed reading")

	// ErrMissingRequiredTerm marks the absence of a mandatory term (1D/7D).
	ErrMissingRequiredTerm = errors.New("missing required term")

	// ErrThresholdConfig marks an invalid threshold table. Raised at
	// startup; the engine never falls back to a default table.
	ErrThresholdConfig = errors.New("invalid threshold configuration")
)

// UserNotificationError wraps a per-user rendering failure. Recoverable:
// the user is skipped and fan-out continues.
type UserNotificationError struct {
	UserID string
	Err    error
}

func (e *UserNotificationError) Error() string {
	return fmt.Sprintf("notification for user %s: %v", e.UserID, e.Err)
}

func (e *UserNotificationError) Unwrap() error {
	return e.Err
}
