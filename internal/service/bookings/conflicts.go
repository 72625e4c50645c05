package bookings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"roombook/backend/internal/domain"
	"roombook/backend/internal/store"
)

// conflictChecker finds the earliest booking blocking a candidate interval,
// looking at the store and at rows staged earlier in the same admission.
type conflictChecker struct {
	tx     store.BookingTx
	roomID uuid.UUID
	staged []domain.Booking
}

func newConflictChecker(tx store.BookingTx, roomID uuid.UUID) *conflictChecker {
	return &conflictChecker{tx: tx, roomID: roomID}
}

func (c *conflictChecker) check(ctx context.Context, iv domain.Interval, excludeID *uuid.UUID) (*domain.Booking, error) {
	existing, err := c.tx.FindOverlapping(ctx, c.roomID, iv, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping: %w", err)
	}

	var earliest *domain.Booking
	if len(existing) > 0 {
		earliest = &existing[0]
	}
	for i := range c.staged {
		b := &c.staged[i]
		if !b.Interval().Overlaps(iv) {
			continue
		}
		if earliest == nil || b.StartTime.Before(earliest.StartTime) {
			earliest = b
		}
	}
	if earliest == nil {
		return nil, nil
	}
	found := *earliest
	return &found, nil
}

func (c *conflictChecker) stage(b domain.Booking) {
	c.staged = append(c.staged, b)
}

// FindConflict returns the earliest booking in the room overlapping iv, or
// nil when the interval is free. excludeID skips one booking, as when
// moving an existing booking.
func (s *Service) FindConflict(ctx context.Context, roomID uuid.UUID, iv domain.Interval, excludeID *uuid.UUID) (_ *domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.find_conflict", trace.WithAttributes(
		attribute.String("room_id", roomID.String()),
	))
	defer func() { s.finish(ctx, span, "find_conflict", err) }()

	if !iv.End.After(iv.Start) {
		return nil, domain.NewError(domain.KindInvalidInterval, "end time must be after start time")
	}

	var found *domain.Booking
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		var err error
		found, err = newConflictChecker(tx, roomID).check(ctx, iv, excludeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
