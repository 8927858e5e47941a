package models

import "errors"

var (
	ErrInvalidCoordinates          = errors.New("invalid coordinates")
	ErrRideNotFound                = errors.New("ride not found")
	ErrDriverNotFound              = errors.New("driver not found")
	ErrUserNotFound                = errors.New("user not found")
	ErrAuthentication              = errors.New("authentication failed")
	ErrPersistenceTimeout          = errors.New("persistence timeout")
	ErrPersistenceFailure          = errors.New("persistence failure")
	ErrConflictingStatusTransition = errors.New("conflicting status transition")
)

// IsRetryable reports whether an operation that failed with err may be
// retried. Only timeouts qualify; everything else is surfaced as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistenceTimeout)
}
