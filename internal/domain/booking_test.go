package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/akamensky/base58"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingSeriesID(t *testing.T) {
	parentID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	parent := Booking{ID: parentID, Role: SeriesRoleParent, Pattern: PatternWeekly}
	child := Booking{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Role: SeriesRoleChild, ParentID: &parentID, Pattern: PatternWeekly}
	standalone := Booking{ID: uuid.MustParse("00000000-0000-0000-0000-000000000003"), Role: SeriesRoleStandalone}

	assert.Equal(t, parentID, parent.SeriesID())
	assert.Equal(t, parentID, child.SeriesID())
	assert.Equal(t, standalone.ID, standalone.SeriesID())

	assert.NotNil(t, parent.Recurrence())
	assert.NotNil(t, child.Recurrence())
	assert.Nil(t, standalone.Recurrence())
}

func TestBookingReferenceRoundTripsID(t *testing.T) {
	id := uuid.MustParse("0190d7a6-3b2c-7c3e-9d1f-2a4b6c8d0e1f")
	ref := Booking{ID: id}.Reference()
	require.NotEmpty(t, ref)

	raw, err := base58.Decode(ref)
	require.NoError(t, err)
	assert.Equal(t, id[:], raw)

	assert.Empty(t, Booking{}.Reference())
}

func TestBookingOwnerDisplayName(t *testing.T) {
	b := Booking{OwnerID: "u1"}
	assert.Equal(t, "u1", b.OwnerDisplayName())

	b.Owner = &Owner{ID: "u1", FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "Ada Lovelace", b.OwnerDisplayName())
}

func TestSeriesOccurrences(t *testing.T) {
	s := Series{
		Parent:   Booking{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001")},
		Children: []Booking{{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002")}},
	}
	assert.Equal(t, 2, s.Len())
	occs := s.Occurrences()
	require.Len(t, occs, 2)
	assert.Equal(t, s.Parent.ID, occs[0].ID)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("admit: %w", NewError(KindTooShort, "minimum booking duration is 15m0s"))
	assert.True(t, errors.Is(err, ErrTooShort))
	assert.False(t, errors.Is(err, ErrInThePast))
	assert.Equal(t, KindTooShort, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))

	cause := errors.New("exclusion violation")
	conflict := &ConflictError{
		Index:      2,
		Occurrence: NewInterval(time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC), time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)),
		Err:        cause,
	}
	wrapped := fmt.Errorf("admit: %w", conflict)
	assert.True(t, errors.Is(wrapped, ErrConflictDetected))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, KindConflictDetected, KindOf(wrapped))
}

func TestConflictErrorMessageNamesOwner(t *testing.T) {
	err := &ConflictError{
		Booking: &Booking{
			ID:        uuid.MustParse("00000000-0000-0000-0000-000000000009"),
			OwnerID:   "u2",
			Owner:     &Owner{ID: "u2", FirstName: "Grace", LastName: "Hopper"},
			StartTime: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		},
	}
	assert.Contains(t, err.Error(), "Grace Hopper")
	assert.Contains(t, err.Error(), "2026-03-15T09:00:00Z")
}
