package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"roombook/backend/internal/domain"
	"roombook/backend/internal/events"
	"roombook/backend/internal/store"
)

type CancelInput struct {
	BookingID uuid.UUID `validate:"required"`
	Requester domain.Requester
}

// Cancel deletes one booking. Cancelling a series parent removes the whole
// series; cancelling a child removes only that occurrence.
func (s *Service) Cancel(ctx context.Context, in CancelInput) (_ int, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.cancel", trace.WithAttributes(
		attribute.String("booking_id", in.BookingID.String()),
	))
	defer func() { s.finish(ctx, span, "cancel", err) }()

	if err := validateInput(in); err != nil {
		return 0, err
	}

	var (
		n int
		b domain.Booking
	)
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		var err error
		b, err = tx.GetBooking(ctx, in.BookingID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewError(domain.KindBookingNotFound, fmt.Sprintf("booking %s not found", in.BookingID))
		}
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}

		if err := tx.LockRoom(ctx, b.RoomID); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		if !s.authz.CanMutate(in.Requester, b) {
			return domain.NewError(domain.KindUnauthorized, "not allowed to cancel this booking")
		}

		n, err = tx.DeleteBooking(ctx, b.ID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewError(domain.KindBookingNotFound, fmt.Sprintf("booking %s not found", in.BookingID))
		}
		if err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publish(ctx, events.ForCancel(b, n, s.clock()))
	return n, nil
}
