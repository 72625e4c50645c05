package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies the terminal outcomes of booking operations.
type ErrorKind string

const (
	KindInvalidInterval      ErrorKind = "invalid_interval"
	KindInThePast            ErrorKind = "in_the_past"
	KindTooShort             ErrorKind = "too_short"
	KindResourceNotFound     ErrorKind = "resource_not_found"
	KindInvalidRecurrenceEnd ErrorKind = "invalid_recurrence_end"
	KindUnsupportedPattern   ErrorKind = "unsupported_pattern"
	KindConflictDetected     ErrorKind = "conflict_detected"
	KindSeriesNotFound       ErrorKind = "series_not_found"
	KindBookingNotFound      ErrorKind = "booking_not_found"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindInvalidRequest       ErrorKind = "invalid_request"
)

// Error is a classified booking error. Two errors match under errors.Is when
// their kinds are equal, so the Err* values below work as sentinels.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInterval      = &Error{Kind: KindInvalidInterval}
	ErrInThePast            = &Error{Kind: KindInThePast}
	ErrTooShort             = &Error{Kind: KindTooShort}
	ErrResourceNotFound     = &Error{Kind: KindResourceNotFound}
	ErrInvalidRecurrenceEnd = &Error{Kind: KindInvalidRecurrenceEnd}
	ErrUnsupportedPattern   = &Error{Kind: KindUnsupportedPattern}
	ErrConflictDetected     = &Error{Kind: KindConflictDetected}
	ErrSeriesNotFound       = &Error{Kind: KindSeriesNotFound}
	ErrBookingNotFound      = &Error{Kind: KindBookingNotFound}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized}
	ErrInvalidRequest       = &Error{Kind: KindInvalidRequest}
)

func NewError(kind ErrorKind, message string, err ...error) *Error {
	return &Error{Kind: kind, Message: message, Err: errors.Join(err...)}
}

// ConflictError reports the existing booking that blocks a requested
// occurrence. Booking is nil when the overlap was only caught by the store's
// exclusion constraint.
type ConflictError struct {
	Index      int
	Occurrence Interval
	Booking    *Booking
	Err        error
}

func (e *ConflictError) Error() string {
	if e.Booking == nil {
		return fmt.Sprintf("conflicting booking exists for %s", e.Occurrence)
	}
	return fmt.Sprintf(
		"conflicting booking %s (%s to %s, booked by %s)",
		e.Booking.ID,
		e.Booking.StartTime.UTC().Format(time.RFC3339),
		e.Booking.EndTime.UTC().Format(time.RFC3339),
		e.Booking.OwnerDisplayName(),
	)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

func (e *ConflictError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindConflictDetected
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var cErr *ConflictError
	if errors.As(err, &cErr) {
		return KindConflictDetected
	}
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Kind
	}
	return ""
}
