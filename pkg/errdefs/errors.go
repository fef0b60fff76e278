package errdefs

import "errors"

// Sentinel errors returned by the pool control plane. Callers classify
// failures with errors.Is; context is added at the call site with
// fmt.Errorf and %w.
var (
	// ErrNotFound indicates a pure lookup found no entry.
	ErrNotFound = errors.New("not found")

	// ErrExists indicates an exclusive insert collided with an existing entry.
	ErrExists = errors.New("already exists")

	// ErrConflict indicates a reconnect attempt with a capability set that
	// differs from the one recorded for the handle.
	ErrConflict = errors.New("conflicting handle")

	// ErrInvalidInput indicates a malformed request payload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageOpen indicates the storage engine failed to open or close a
	// shard file. It aborts pool creation and is surfaced to the caller.
	ErrStorageOpen = errors.New("storage open failed")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is or wraps ErrConflict or ErrExists.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrExists)
}
