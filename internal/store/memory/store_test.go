package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roombook/backend/internal/domain"
	"roombook/backend/internal/store"
)

var (
	testRoom     = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	testLocation = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	t0           = time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
)

func newStore() *Store {
	s := New()
	s.AddRoom(domain.Room{ID: testRoom, LocationID: testLocation, Name: "Orion"})
	s.AddOwner(domain.Owner{ID: "u1", FirstName: "Ada", LastName: "Lovelace"})
	return s
}

func booking(start time.Time, d time.Duration) domain.Booking {
	return domain.Booking{
		ID:        uuid.New(),
		RoomID:    testRoom,
		OwnerID:   "u1",
		StartTime: start,
		EndTime:   start.Add(d),
		Role:      domain.SeriesRoleStandalone,
	}
}

func TestInTransaction_RollbackDiscardsWrites(t *testing.T) {
	s := newStore()
	boom := errors.New("boom")

	err := s.InTransaction(context.Background(), func(ctx context.Context, tx store.BookingTx) error {
		if _, err := tx.CreateSeries(ctx, booking(t0, time.Hour), nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, s.All())
}

func TestCreateSeries_OverlapBackstop(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		_, err := tx.CreateSeries(ctx, booking(t0, time.Hour), nil)
		return err
	}))

	err := s.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		_, err := tx.CreateSeries(ctx, booking(t0.Add(30*time.Minute), time.Hour), nil)
		return err
	})
	require.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		_, err := tx.CreateSeries(ctx, booking(t0.Add(time.Hour), time.Hour), nil)
		return err
	}))
	assert.Len(t, s.All(), 2)
}

func TestCreateSeries_DuplicateIDAndUnknownRoom(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	b := booking(t0, time.Hour)

	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		_, err := tx.CreateSeries(ctx, b, nil)
		return err
	}))

	dup := b
	dup.StartTime = t0.AddDate(0, 0, 1)
	dup.EndTime = dup.StartTime.Add(time.Hour)
	err := s.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		_, err := tx.CreateSeries(ctx, dup, nil)
		return err
	})
	require.ErrorIs(t, err, store.ErrIdempotencyConflict)

	other := booking(t0, time.Hour)
	other.RoomID = uuid.New()
	err = s.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		_, err := tx.CreateSeries(ctx, other, nil)
		return err
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func seedSeries(t *testing.T, s *Store, n int) domain.Series {
	t.Helper()
	parent := booking(t0, time.Hour)
	parent.Role = domain.SeriesRoleParent
	parent.Pattern = domain.PatternWeekly
	var children []domain.Booking
	for i := 1; i < n; i++ {
		c := booking(t0.AddDate(0, 0, 7*i), time.Hour)
		c.Role = domain.SeriesRoleChild
		c.Pattern = domain.PatternWeekly
		children = append(children, c)
	}

	var out domain.Series
	require.NoError(t, s.InTransaction(context.Background(), func(ctx context.Context, tx store.BookingTx) error {
		var err error
		out, err = tx.CreateSeries(ctx, parent, children)
		return err
	}))
	return out
}

func TestSeriesQueriesAndDeletes(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	series := seedSeries(t, s, 4)
	for _, c := range series.Children {
		require.NotNil(t, c.ParentID)
		assert.Equal(t, series.Parent.ID, *c.ParentID)
	}

	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		rows, err := tx.ListSeries(ctx, series.Parent.ID)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, series.Parent.ID, rows[0].ID)
		assert.Equal(t, "Ada Lovelace", rows[0].OwnerDisplayName())

		overlapping, err := tx.FindOverlapping(ctx, testRoom, domain.NewInterval(t0, t0.AddDate(0, 0, 8)), nil)
		require.NoError(t, err)
		require.Len(t, overlapping, 2)
		assert.True(t, overlapping[0].StartTime.Before(overlapping[1].StartTime))

		excluded, err := tx.FindOverlapping(ctx, testRoom, domain.NewInterval(t0, t0.Add(time.Hour)), &series.Parent.ID)
		require.NoError(t, err)
		assert.Empty(t, excluded)

		n, err := tx.DeleteSeriesFrom(ctx, series.Parent.ID, t0.AddDate(0, 0, 14))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		return tx.UpdateSeriesEndDate(ctx, series.Parent.ID, t0.AddDate(0, 0, 14))
	}))

	all := s.All()
	require.Len(t, all, 2)
	require.NotNil(t, all[0].SeriesEndDate)
	assert.Equal(t, t0.AddDate(0, 0, 14), *all[0].SeriesEndDate)

	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context, tx store.BookingTx) error {
		n, err := tx.DeleteBooking(ctx, series.Parent.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = tx.DeleteBooking(ctx, series.Parent.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.ListSeries(ctx, series.Parent.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	}))
	assert.Empty(t, s.All())
}

func TestListQueries(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	seedSeries(t, s, 3)

	rows, err := s.ListForRoom(ctx, testRoom, domain.NewInterval(t0.Add(30*time.Minute), t0.AddDate(0, 0, 7).Add(time.Minute)))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.ListForLocation(ctx, testLocation, domain.NewInterval(t0, t0.AddDate(0, 1, 0)))
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = s.ListForLocation(ctx, uuid.New(), domain.NewInterval(t0, t0.AddDate(0, 1, 0)))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = s.ListForOwner(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	window := domain.NewInterval(t0.Add(30*time.Minute), t0.AddDate(0, 0, 15))
	rows, err = s.ListForOwner(ctx, "u1", &window)
	require.NoError(t, err)
	require.Len(t, rows, 2, "owner window keeps fully contained bookings only")
	assert.Equal(t, t0.AddDate(0, 0, 7), rows[0].StartTime)

	ok, err := s.RoomExists(ctx, testRoom)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.RoomExists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
