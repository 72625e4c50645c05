package domain

import (
	"fmt"
	"time"
)

// MinBookingDuration is the shortest interval a booking may cover.
const MinBookingDuration = 15 * time.Minute

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i, other)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.UTC().Format(time.RFC3339), i.End.UTC().Format(time.RFC3339))
}

// Overlaps reports whether a and b share any instant. Touching intervals,
// where one ends exactly when the other starts, do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// ValidateInterval checks a requested interval against now. A minDuration of
// zero or less falls back to MinBookingDuration.
func ValidateInterval(iv Interval, now time.Time, minDuration time.Duration) error {
	if minDuration <= 0 {
		minDuration = MinBookingDuration
	}
	if !iv.End.After(iv.Start) {
		return NewError(KindInvalidInterval, "end time must be after start time")
	}
	if !iv.Start.After(now) {
		return NewError(KindInThePast, "start time must be in the future")
	}
	if iv.Duration() < minDuration {
		return NewError(KindTooShort, fmt.Sprintf("minimum booking duration is %s", minDuration))
	}
	return nil
}
