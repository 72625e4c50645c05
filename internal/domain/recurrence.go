package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

type Pattern string

const (
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
)

// DefaultSeriesHorizon bounds a series requested without an end date.
const DefaultSeriesHorizon = 365 * 24 * time.Hour

// ParsePattern normalises a pattern name. The empty string means weekly.
func ParsePattern(s string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PatternWeekly, nil
	}
	if err := p.validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p Pattern) validate() error {
	switch p {
	case PatternDaily, PatternWeekly, PatternMonthly:
		return nil
	}
	return NewError(KindUnsupportedPattern, fmt.Sprintf("unsupported recurrence pattern %q", string(p)))
}

// Next advances t by one step. Monthly steps follow time.AddDate, so a day of
// month missing from the target month rolls into the following month.
func (p Pattern) Next(t time.Time) (time.Time, error) {
	switch p {
	case PatternDaily:
		return t.AddDate(0, 0, 1), nil
	case PatternWeekly:
		return t.AddDate(0, 0, 7), nil
	case PatternMonthly:
		return t.AddDate(0, 1, 0), nil
	}
	return time.Time{}, p.validate()
}

func (p Pattern) frequency() (rrule.Frequency, error) {
	switch p {
	case PatternDaily:
		return rrule.DAILY, nil
	case PatternWeekly:
		return rrule.WEEKLY, nil
	case PatternMonthly:
		return rrule.MONTHLY, nil
	}
	return 0, p.validate()
}

type Recurrence struct {
	Pattern       Pattern
	SeriesEndDate *time.Time
}

// RRule renders the recurrence as RFC 5545 DTSTART/RRULE lines for calendar
// clients.
func (r Recurrence) RRule(dtstart time.Time) (string, error) {
	freq, err := r.Pattern.frequency()
	if err != nil {
		return "", err
	}
	opt := rrule.ROption{
		Freq:    freq,
		Dtstart: dtstart.UTC(),
	}
	if r.SeriesEndDate != nil {
		opt.Until = r.SeriesEndDate.UTC()
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return "", err
	}
	return rule.String(), nil
}

// ExpandOccurrences steps first forward by pattern and returns every
// occurrence whose start is at or before seriesEnd. The first occurrence is
// always included and every occurrence keeps first's duration. Callers must
// reject a seriesEnd that is not after first.Start before calling.
func ExpandOccurrences(first Interval, pattern Pattern, seriesEnd time.Time) ([]Interval, error) {
	if err := pattern.validate(); err != nil {
		return nil, err
	}

	duration := first.Duration()
	out := []Interval{first}
	current := first.Start
	for {
		next, err := pattern.Next(current)
		if err != nil {
			return nil, err
		}
		if next.After(seriesEnd) {
			return out, nil
		}
		out = append(out, Interval{Start: next, End: next.Add(duration)})
		current = next
	}
}

// SeriesEndPrecision is the resolution series end dates are stored at,
// matching postgres timestamptz.
const SeriesEndPrecision = time.Microsecond

// InclusiveSeriesEnd widens a date-only end (midnight UTC) to the last
// microsecond of that day so an occurrence on the end date itself is kept.
// Any other end is truncated to SeriesEndPrecision.
func InclusiveSeriesEnd(t time.Time) time.Time {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Add(24*time.Hour - SeriesEndPrecision)
	}
	return t.Truncate(SeriesEndPrecision)
}
