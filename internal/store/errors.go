package store

import "errors"

// Implementations wrap these with detail; callers match them with errors.Is.
var (
	// ErrConflict is a write rejected by the room's no-overlap guard.
	ErrConflict = errors.New("booking overlaps an existing booking in the room")
	// ErrNotFound is a missing booking, series or room.
	ErrNotFound = errors.New("booking or room not found")
	// ErrIdempotencyConflict is a booking id that is already taken. Parent ids
	// derived from an idempotency key collide only when the key is reused.
	ErrIdempotencyConflict = errors.New("booking id already in use")
)
