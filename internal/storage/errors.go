package storage

import "errors"

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrBookingNotFound = errors.New("booking not found")

	// ErrDuplicateSession is returned when an insert hits the unique
	// constraint on stripe_session_id. This is the authoritative idempotency
	// signal: the session was already reconciled by an earlier delivery.
	ErrDuplicateSession = errors.New("payment already recorded for session")

	// ErrSoldOut is returned when the conditional inventory decrement
	// affects zero rows. The whole booking transaction is rolled back.
	ErrSoldOut = errors.New("event sold out")

	// ErrInvalidInventory is returned by administrative resets that would
	// break 0 <= available <= total.
	ErrInvalidInventory = errors.New("available tickets out of range")
)
