package bookings

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"roombook/backend/internal/domain"
)

// ListForOwner lists the owner's bookings by start time. With a window only
// bookings lying entirely inside it are returned.
func (s *Service) ListForOwner(ctx context.Context, ownerID string, window *domain.Interval) (_ []domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.list_for_owner")
	defer func() { s.finish(ctx, span, "list_for_owner", err) }()

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domain.NewError(domain.KindInvalidRequest, "owner id is required")
	}
	if window != nil {
		w := domain.NewInterval(window.Start, window.End)
		if err := checkWindow(w); err != nil {
			return nil, err
		}
		window = &w
	}

	rows, err := s.repo.ListForOwner(ctx, ownerID, window)
	if err != nil {
		return nil, fmt.Errorf("list owner bookings: %w", err)
	}
	return rows, nil
}

// ListForRoom lists the room's bookings overlapping window.
func (s *Service) ListForRoom(ctx context.Context, roomID uuid.UUID, window domain.Interval) (_ []domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.list_for_room", trace.WithAttributes(
		attribute.String("room_id", roomID.String()),
	))
	defer func() { s.finish(ctx, span, "list_for_room", err) }()

	window = domain.NewInterval(window.Start, window.End)
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForRoom(ctx, roomID, window)
	if err != nil {
		return nil, fmt.Errorf("list room bookings: %w", err)
	}
	return rows, nil
}

// ListForLocation lists bookings of every room at the location overlapping
// window.
func (s *Service) ListForLocation(ctx context.Context, locationID uuid.UUID, window domain.Interval) (_ []domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.list_for_location", trace.WithAttributes(
		attribute.String("location_id", locationID.String()),
	))
	defer func() { s.finish(ctx, span, "list_for_location", err) }()

	window = domain.NewInterval(window.Start, window.End)
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForLocation(ctx, locationID, window)
	if err != nil {
		return nil, fmt.Errorf("list location bookings: %w", err)
	}
	return rows, nil
}

func checkWindow(w domain.Interval) error {
	if !w.End.After(w.Start) {
		return domain.NewError(domain.KindInvalidInterval, "window end must be after window start")
	}
	return nil
}
