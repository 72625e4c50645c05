package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"roombook/backend/internal/domain"
)

// BookingTx is the view of the booking table inside one transaction.
type BookingTx interface {
	// LockRoom serialises writers of one room until the transaction ends.
	LockRoom(ctx context.Context, roomID uuid.UUID) error

	// FindOverlapping returns the room's bookings overlapping iv, earliest
	// start first, with owners loaded.
	FindOverlapping(ctx context.Context, roomID uuid.UUID, iv domain.Interval, excludeID *uuid.UUID) ([]domain.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	// ListSeries returns the parent followed by its children ordered by start.
	ListSeries(ctx context.Context, parentID uuid.UUID) ([]domain.Booking, error)

	// CreateSeries inserts the parent and its children. It returns ErrConflict
	// when any row would overlap an existing booking of the same room.
	CreateSeries(ctx context.Context, parent domain.Booking, children []domain.Booking) (domain.Series, error)
	// DeleteSeriesFrom deletes every member of the series starting at or after from.
	DeleteSeriesFrom(ctx context.Context, parentID uuid.UUID, from time.Time) (int, error)
	// DeleteBooking deletes a booking together with any children it owns.
	DeleteBooking(ctx context.Context, id uuid.UUID) (int, error)
	UpdateSeriesEndDate(ctx context.Context, parentID uuid.UUID, end time.Time) error
}

type BookingRepository interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx BookingTx) error) error
	InRoomTransaction(ctx context.Context, roomID uuid.UUID, fn func(ctx context.Context, tx BookingTx) error) error

	ListForOwner(ctx context.Context, ownerID string, window *domain.Interval) ([]domain.Booking, error)
	ListForRoom(ctx context.Context, roomID uuid.UUID, window domain.Interval) ([]domain.Booking, error)
	ListForLocation(ctx context.Context, locationID uuid.UUID, window domain.Interval) ([]domain.Booking, error)

	Ping(ctx context.Context) error
}

type RoomDirectory interface {
	RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error)
}
