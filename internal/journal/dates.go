package journal

import (
	"iter"
	"time"
)

// isoDateLayout is the one date format used everywhere: entry map keys, the
// month enumeration and the store all agree on zero-padded YYYY-MM-DD in
// local time. A mismatch anywhere would silently misclassify every day as
// missed, so there is exactly one formatter and one parser.
const isoDateLayout = "2006-01-02"

// ISODate formats t's calendar day in t's own location. The year/month/day
// components are taken directly rather than converting through UTC, which
// would shift the day near midnight in non-UTC timezones.
func ISODate(t time.Time) string {
	return t.Format(isoDateLayout)
}

// ParseISODate parses a YYYY-MM-DD string as local midnight in loc.
// loc == nil means time.Local.
func ParseISODate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(isoDateLayout, s, loc)
}

// Today returns the current calendar date in loc as YYYY-MM-DD.
// loc == nil means time.Local.
func Today(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return ISODate(time.Now().In(loc))
}

// DaysInMonth yields every calendar date of the month containing anchor,
// from the 1st to the last day inclusive, ascending, each at local midnight
// in anchor's location. The sequence is finite and restartable. Stepping is
// by calendar day through time.Date normalization, not fixed 24h increments,
// so months containing a daylight-saving transition enumerate correctly.
func DaysInMonth(anchor time.Time) iter.Seq[time.Time] {
	year, month, _ := anchor.Date()
	loc := anchor.Location()
	// Day 0 of the next month normalizes to the last day of this one.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	return func(yield func(time.Time) bool) {
		for day := 1; day <= last; day++ {
			if !yield(time.Date(year, month, day, 0, 0, 0, 0, loc)) {
				return
			}
		}
	}
}
