package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"roombook/backend/internal/domain"
	"roombook/backend/internal/events"
	"roombook/backend/internal/store"
)

type TruncateInput struct {
	BookingID uuid.UUID `validate:"required"`
	From      time.Time `validate:"required"`
	Requester domain.Requester
}

type TruncateResult struct {
	SeriesID     uuid.UUID
	DeletedCount int
	// ParentDeleted is set when From was at or before the first occurrence,
	// so nothing of the series is left.
	ParentDeleted bool
}

// TruncateFrom deletes every occurrence of the booking's series starting at
// or after From. When the parent survives its series end date becomes From.
func (s *Service) TruncateFrom(ctx context.Context, in TruncateInput) (_ TruncateResult, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.truncate_from", trace.WithAttributes(
		attribute.String("booking_id", in.BookingID.String()),
	))
	defer func() { s.finish(ctx, span, "truncate_from", err) }()

	if err := validateInput(in); err != nil {
		return TruncateResult{}, err
	}
	from := in.From.UTC()

	var (
		res    TruncateResult
		parent domain.Booking
	)
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.GetBooking(ctx, in.BookingID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewError(domain.KindSeriesNotFound, fmt.Sprintf("booking %s not found", in.BookingID))
		}
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if !b.IsRecurring() {
			return domain.NewError(domain.KindSeriesNotFound, fmt.Sprintf("booking %s is not part of a series", in.BookingID))
		}

		parent = b
		if b.ID != b.SeriesID() {
			parent, err = tx.GetBooking(ctx, b.SeriesID())
			if errors.Is(err, store.ErrNotFound) {
				return domain.NewError(domain.KindSeriesNotFound, fmt.Sprintf("series %s not found", b.SeriesID()))
			}
			if err != nil {
				return fmt.Errorf("get series parent: %w", err)
			}
		}

		if err := tx.LockRoom(ctx, parent.RoomID); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		if !s.authz.CanMutate(in.Requester, parent) {
			return domain.NewError(domain.KindUnauthorized, "not allowed to modify this series")
		}

		n, err := tx.DeleteSeriesFrom(ctx, parent.ID, from)
		if err != nil {
			return fmt.Errorf("delete series: %w", err)
		}
		res = TruncateResult{SeriesID: parent.ID, DeletedCount: n}

		if parent.StartTime.Before(from) {
			if err := tx.UpdateSeriesEndDate(ctx, parent.ID, from); err != nil {
				return fmt.Errorf("update series end date: %w", err)
			}
			return nil
		}
		res.ParentDeleted = true
		return nil
	})
	if err != nil {
		return TruncateResult{}, err
	}

	span.SetAttributes(attribute.Int("deleted", res.DeletedCount))
	s.publish(ctx, events.ForTruncate(parent, from, res.DeletedCount, s.clock()))
	return res, nil
}

// GetSeries returns the series the booking belongs to. A standalone booking
// comes back as a series without children.
func (s *Service) GetSeries(ctx context.Context, bookingID uuid.UUID) (_ domain.Series, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.get_series", trace.WithAttributes(
		attribute.String("booking_id", bookingID.String()),
	))
	defer func() { s.finish(ctx, span, "get_series", err) }()

	var out domain.Series
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewError(domain.KindBookingNotFound, fmt.Sprintf("booking %s not found", bookingID))
		}
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}

		rows, err := tx.ListSeries(ctx, b.SeriesID())
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewError(domain.KindSeriesNotFound, fmt.Sprintf("series %s not found", b.SeriesID()))
		}
		if err != nil {
			return fmt.Errorf("list series: %w", err)
		}
		out = seriesFromRows(b.SeriesID(), rows)
		return nil
	})
	if err != nil {
		return domain.Series{}, err
	}
	return out, nil
}
