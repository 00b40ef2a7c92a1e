package domain

import "errors"

// Failure kinds surfaced by the booking core. Handlers map these to HTTP
// statuses; everything else is treated as an internal error.
var (
	// ErrValidation is the caller's fault and never worth retrying.
	ErrValidation = errors.New("invalid input")

	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not allowed")

	// ErrInvalidState means the target entity already left the state the
	// operation expects, e.g. acting on a non-pending request.
	ErrInvalidState = errors.New("invalid state")

	ErrAlreadyBooked       = errors.New("already booked on this ride")
	ErrRideFull            = errors.New("ride is full")
	ErrInvolvementConflict = errors.New("already involved in a ride on this date")

	// ErrConflict is transient contention; safe to retry a bounded number
	// of times.
	ErrConflict = errors.New("conflicting concurrent operation")
)
