package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	at := func(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{name: "touching end to start", a: NewInterval(at(0), at(60)), b: NewInterval(at(60), at(120)), want: false},
		{name: "disjoint", a: NewInterval(at(0), at(30)), b: NewInterval(at(90), at(120)), want: false},
		{name: "partial overlap", a: NewInterval(at(0), at(60)), b: NewInterval(at(30), at(90)), want: true},
		{name: "containment", a: NewInterval(at(0), at(120)), b: NewInterval(at(30), at(60)), want: true},
		{name: "identical", a: NewInterval(at(0), at(60)), b: NewInterval(at(0), at(60)), want: true},
		{name: "one nanosecond overlap", a: NewInterval(at(0), at(60).Add(time.Nanosecond)), b: NewInterval(at(60), at(120)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "overlap must be symmetric")
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
		})
	}
}

func TestOverlaps_SelfForNonEmptyIntervals(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, d := range []time.Duration{time.Nanosecond, time.Minute, 15 * time.Minute, 36 * time.Hour} {
		iv := NewInterval(start, start.Add(d))
		assert.True(t, Overlaps(iv, iv), "interval of %s must overlap itself", d)
	}
}

func TestValidateInterval(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		iv       Interval
		wantKind ErrorKind
	}{
		{name: "end before start", iv: NewInterval(now.Add(2*time.Hour), now.Add(time.Hour)), wantKind: KindInvalidInterval},
		{name: "end equals start", iv: NewInterval(now.Add(time.Hour), now.Add(time.Hour)), wantKind: KindInvalidInterval},
		{name: "start equals now", iv: NewInterval(now, now.Add(time.Hour)), wantKind: KindInThePast},
		{name: "start before now", iv: NewInterval(now.Add(-time.Minute), now.Add(time.Hour)), wantKind: KindInThePast},
		{name: "fourteen minutes", iv: NewInterval(now.Add(time.Hour), now.Add(time.Hour+14*time.Minute)), wantKind: KindTooShort},
		{name: "exactly fifteen minutes", iv: NewInterval(now.Add(time.Hour), now.Add(time.Hour+15*time.Minute))},
		{name: "one millisecond in the future", iv: NewInterval(now.Add(time.Millisecond), now.Add(time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterval(tt.iv, now, 0)
			if tt.wantKind == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
}

func TestValidateInterval_CustomMinimum(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	iv := NewInterval(now.Add(time.Hour), now.Add(time.Hour+20*time.Minute))

	require.NoError(t, ValidateInterval(iv, now, 0))
	err := ValidateInterval(iv, now, 30*time.Minute)
	assert.True(t, errors.Is(err, ErrTooShort))
}

func TestNewInterval_NormalizesToUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	iv := NewInterval(time.Date(2026, 3, 1, 9, 0, 0, 0, loc), time.Date(2026, 3, 1, 10, 0, 0, 0, loc))
	assert.Equal(t, time.UTC, iv.Start.Location())
	assert.Equal(t, time.UTC, iv.End.Location())
	assert.Equal(t, time.Hour, iv.Duration())
}
