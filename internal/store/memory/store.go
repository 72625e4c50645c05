// Package memory is an in-process booking store. Each transaction works on a
// private copy of the table that replaces the shared one on commit, and a
// store-wide mutex serialises transactions, so it gives the same isolation a
// per-room advisory lock gives the postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"roombook/backend/internal/domain"
	"roombook/backend/internal/store"
)

type Store struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]domain.Booking
	rooms    map[uuid.UUID]domain.Room
	owners   map[string]domain.Owner
	now      func() time.Time
}

func New() *Store {
	return &Store{
		bookings: make(map[uuid.UUID]domain.Booking),
		rooms:    make(map[uuid.UUID]domain.Room),
		owners:   make(map[string]domain.Owner),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) AddRoom(room domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room
}

func (s *Store) AddOwner(owner domain.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[owner.ID] = owner
}

func (s *Store) RoomExists(_ context.Context, roomID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[roomID]
	return ok, nil
}

// All returns every committed booking ordered by start.
func (s *Store) All() []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, s.withOwner(b))
	}
	sortByStart(out)
	return out
}

func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.BookingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{store: s, rows: make(map[uuid.UUID]domain.Booking, len(s.bookings))}
	for id, b := range s.bookings {
		t.rows[id] = b
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.bookings = t.rows
	return nil
}

func (s *Store) InRoomTransaction(ctx context.Context, roomID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return s.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		if err := tx.LockRoom(ctx, roomID); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

func (s *Store) ListForOwner(_ context.Context, ownerID string, window *domain.Interval) ([]domain.Booking, error) {
	return s.list(func(b domain.Booking) bool {
		if b.OwnerID != ownerID {
			return false
		}
		if window == nil {
			return true
		}
		return !b.StartTime.Before(window.Start) && !b.EndTime.After(window.End)
	}), nil
}

func (s *Store) ListForRoom(_ context.Context, roomID uuid.UUID, window domain.Interval) ([]domain.Booking, error) {
	return s.list(func(b domain.Booking) bool {
		return b.RoomID == roomID && b.Interval().Overlaps(window)
	}), nil
}

func (s *Store) ListForLocation(_ context.Context, locationID uuid.UUID, window domain.Interval) ([]domain.Booking, error) {
	s.mu.Lock()
	inLocation := make(map[uuid.UUID]bool)
	for id, r := range s.rooms {
		inLocation[id] = r.LocationID == locationID
	}
	s.mu.Unlock()

	return s.list(func(b domain.Booking) bool {
		return inLocation[b.RoomID] && b.Interval().Overlaps(window)
	}), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) list(keep func(domain.Booking) bool) []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, s.withOwner(b))
		}
	}
	sortByStart(out)
	return out
}

func (s *Store) withOwner(b domain.Booking) domain.Booking {
	if o, ok := s.owners[b.OwnerID]; ok {
		b.Owner = &o
	}
	return b
}

type tx struct {
	store *Store
	rows  map[uuid.UUID]domain.Booking
}

// LockRoom is a no-op: the store mutex is already held for the whole
// transaction.
func (t *tx) LockRoom(ctx context.Context, _ uuid.UUID) error {
	return ctx.Err()
}

func (t *tx) FindOverlapping(_ context.Context, roomID uuid.UUID, iv domain.Interval, excludeID *uuid.UUID) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range t.rows {
		if b.RoomID != roomID || !b.Interval().Overlaps(iv) {
			continue
		}
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		out = append(out, t.store.withOwner(b))
	}
	sortByStart(out)
	return out, nil
}

func (t *tx) GetBooking(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	b, ok := t.rows[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return t.store.withOwner(b), nil
}

func (t *tx) ListSeries(_ context.Context, parentID uuid.UUID) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range t.rows {
		if b.ID == parentID || (b.ParentID != nil && *b.ParentID == parentID) {
			out = append(out, t.store.withOwner(b))
		}
	}
	if len(out) == 0 {
		return nil, store.ErrNotFound
	}
	sortByStart(out)
	return out, nil
}

func (t *tx) CreateSeries(_ context.Context, parent domain.Booking, children []domain.Booking) (domain.Series, error) {
	now := t.store.now()

	if _, ok := t.store.rooms[parent.RoomID]; !ok {
		return domain.Series{}, fmt.Errorf("%w: room %s", store.ErrNotFound, parent.RoomID)
	}

	rows := make([]domain.Booking, 0, 1+len(children))
	rows = append(rows, parent)
	rows = append(rows, children...)
	for i := range rows {
		rows[i].CreatedAt = now
		rows[i].UpdatedAt = now
		rows[i].Owner = nil
		if i > 0 {
			rows[i].ParentID = &rows[0].ID
		}
	}

	for _, b := range rows {
		if _, ok := t.rows[b.ID]; ok {
			return domain.Series{}, fmt.Errorf("%w: booking %s already exists", store.ErrIdempotencyConflict, b.ID)
		}
		if err := t.insert(b); err != nil {
			return domain.Series{}, err
		}
	}

	out := domain.Series{Parent: rows[0]}
	if len(rows) > 1 {
		out.Children = rows[1:]
	}
	return out, nil
}

func (t *tx) insert(b domain.Booking) error {
	iv := b.Interval()
	for _, existing := range t.rows {
		if existing.RoomID == b.RoomID && existing.Interval().Overlaps(iv) {
			return fmt.Errorf("%w: %s overlaps booking %s", store.ErrConflict, iv, existing.ID)
		}
	}
	t.rows[b.ID] = b
	return nil
}

func (t *tx) DeleteSeriesFrom(_ context.Context, parentID uuid.UUID, from time.Time) (int, error) {
	n := 0
	for id, b := range t.rows {
		inSeries := b.ID == parentID || (b.ParentID != nil && *b.ParentID == parentID)
		if inSeries && !b.StartTime.Before(from) {
			delete(t.rows, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) DeleteBooking(_ context.Context, id uuid.UUID) (int, error) {
	if _, ok := t.rows[id]; !ok {
		return 0, store.ErrNotFound
	}
	n := 0
	for rowID, b := range t.rows {
		if rowID == id || (b.ParentID != nil && *b.ParentID == id) {
			delete(t.rows, rowID)
			n++
		}
	}
	return n, nil
}

func (t *tx) UpdateSeriesEndDate(_ context.Context, parentID uuid.UUID, end time.Time) error {
	b, ok := t.rows[parentID]
	if !ok {
		return store.ErrNotFound
	}
	end = end.UTC()
	b.SeriesEndDate = &end
	b.UpdatedAt = t.store.now()
	t.rows[parentID] = b
	return nil
}

func sortByStart(rows []domain.Booking) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StartTime.Equal(rows[j].StartTime) {
			return rows[i].ID.String() < rows[j].ID.String()
		}
		return rows[i].StartTime.Before(rows[j].StartTime)
	})
}
