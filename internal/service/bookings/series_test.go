package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roombook/backend/internal/domain"
	"roombook/backend/internal/events"
)

func admitFourWeeks(t *testing.T, f fixture) domain.Series {
	t.Helper()
	series, err := f.svc.Admit(context.Background(), weekly(alice, at(3, 1, 9), time.Hour, at(3, 22, 9)))
	require.NoError(t, err)
	require.Equal(t, 4, series.Len())
	return series
}

func TestTruncateFrom_KeepsEarlierOccurrences(t *testing.T) {
	f := newFixture(t)
	series := admitFourWeeks(t, f)
	from := at(3, 10, 0)

	res, err := f.svc.TruncateFrom(context.Background(), TruncateInput{BookingID: series.Parent.ID, From: from, Requester: alice})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedCount)
	assert.False(t, res.ParentDeleted)
	assert.Equal(t, series.Parent.ID, res.SeriesID)

	all := f.store.All()
	require.Len(t, all, 2)
	assert.Equal(t, series.Parent.ID, all[0].ID)
	require.NotNil(t, all[0].SeriesEndDate)
	assert.Equal(t, from, *all[0].SeriesEndDate)
	assert.Equal(t, at(3, 8, 9), all[1].StartTime)

	assert.Equal(t, []events.Type{events.TypeSeriesCreated, events.TypeSeriesTruncated}, f.pub.types())
}

func TestTruncateFrom_ResolvesParentFromChild(t *testing.T) {
	f := newFixture(t)
	series := admitFourWeeks(t, f)

	res, err := f.svc.TruncateFrom(context.Background(), TruncateInput{BookingID: series.Children[2].ID, From: at(3, 10, 0), Requester: alice})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Equal(t, series.Parent.ID, res.SeriesID)
}

func TestTruncateFrom_AtOrBeforeParentDeletesEverything(t *testing.T) {
	for _, from := range []time.Time{at(3, 1, 9), at(2, 20, 0)} {
		f := newFixture(t)
		series := admitFourWeeks(t, f)

		res, err := f.svc.TruncateFrom(context.Background(), TruncateInput{BookingID: series.Parent.ID, From: from, Requester: alice})
		require.NoError(t, err)
		assert.Equal(t, 4, res.DeletedCount)
		assert.True(t, res.ParentDeleted)
		assert.Empty(t, f.store.All())
	}
}

func TestTruncateFrom_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	series := admitFourWeeks(t, f)
	single, err := f.svc.Admit(ctx, standalone(alice, roomB, at(3, 2, 9), time.Hour))
	require.NoError(t, err)

	_, err = f.svc.TruncateFrom(ctx, TruncateInput{BookingID: uuid.New(), From: at(3, 10, 0), Requester: alice})
	require.ErrorIs(t, err, domain.ErrSeriesNotFound)

	_, err = f.svc.TruncateFrom(ctx, TruncateInput{BookingID: single.Parent.ID, From: at(3, 10, 0), Requester: alice})
	require.ErrorIs(t, err, domain.ErrSeriesNotFound)

	_, err = f.svc.TruncateFrom(ctx, TruncateInput{BookingID: series.Parent.ID, From: at(3, 10, 0), Requester: bob})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.TruncateFrom(ctx, TruncateInput{BookingID: series.Parent.ID, Requester: alice})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.Len(t, f.store.All(), 5)

	res, err := f.svc.TruncateFrom(ctx, TruncateInput{BookingID: series.Parent.ID, From: at(3, 10, 0), Requester: admin})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedCount)
}

func TestTruncateFrom_FreesTheSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	series := admitFourWeeks(t, f)

	_, err := f.svc.Admit(ctx, standalone(bob, roomA, at(3, 15, 9), time.Hour))
	require.ErrorIs(t, err, domain.ErrConflictDetected)

	_, err = f.svc.TruncateFrom(ctx, TruncateInput{BookingID: series.Parent.ID, From: at(3, 10, 0), Requester: alice})
	require.NoError(t, err)

	_, err = f.svc.Admit(ctx, standalone(bob, roomA, at(3, 15, 9), time.Hour))
	require.NoError(t, err)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	series := admitFourWeeks(t, f)

	_, err := f.svc.Cancel(ctx, CancelInput{BookingID: series.Children[0].ID, Requester: bob})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	n, err := f.svc.Cancel(ctx, CancelInput{BookingID: series.Children[0].ID, Requester: alice})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.store.All(), 3)

	n, err = f.svc.Cancel(ctx, CancelInput{BookingID: series.Parent.ID, Requester: admin})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, f.store.All())

	_, err = f.svc.Cancel(ctx, CancelInput{BookingID: series.Parent.ID, Requester: alice})
	require.ErrorIs(t, err, domain.ErrBookingNotFound)

	assert.Equal(t, []events.Type{events.TypeSeriesCreated, events.TypeBookingCanceled, events.TypeBookingCanceled}, f.pub.types())
}

func TestGetSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	series := admitFourWeeks(t, f)

	got, err := f.svc.GetSeries(ctx, series.Children[1].ID)
	require.NoError(t, err)
	assert.Equal(t, series.Parent.ID, got.Parent.ID)
	require.Len(t, got.Children, 3)
	for i := 1; i < len(got.Children); i++ {
		assert.True(t, got.Children[i-1].StartTime.Before(got.Children[i].StartTime))
	}
	assert.Equal(t, "Alice Liddell", got.Parent.OwnerDisplayName())

	single, err := f.svc.Admit(ctx, standalone(bob, roomB, at(3, 2, 9), time.Hour))
	require.NoError(t, err)
	got, err = f.svc.GetSeries(ctx, single.Parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())

	_, err = f.svc.GetSeries(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestListQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admitFourWeeks(t, f)
	_, err := f.svc.Admit(ctx, standalone(bob, roomB, at(3, 2, 9), time.Hour))
	require.NoError(t, err)

	rows, err := f.svc.ListForRoom(ctx, roomA, domain.NewInterval(at(3, 1, 0), at(3, 9, 0)))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = f.svc.ListForLocation(ctx, location, domain.NewInterval(at(3, 1, 0), at(3, 9, 0)))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, at(3, 1, 9), rows[0].StartTime)

	rows, err = f.svc.ListForOwner(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	window := domain.NewInterval(at(3, 1, 9).Add(30*time.Minute), at(3, 31, 0))
	rows, err = f.svc.ListForOwner(ctx, "alice", &window)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = f.svc.ListForOwner(ctx, " ", nil)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.svc.ListForRoom(ctx, roomA, domain.NewInterval(at(3, 9, 0), at(3, 1, 0)))
	require.ErrorIs(t, err, domain.ErrInvalidInterval)
}
