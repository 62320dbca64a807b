package journal

import (
	"fmt"
	"time"
)

// DayStatus classifies one calendar day relative to today and the entry map.
type DayStatus string

const (
	// StatusFuture: the day is after today. Future days are never missed,
	// even if an entry somehow exists for one (clock skew).
	StatusFuture DayStatus = "future"
	// StatusDone: the day is today or earlier and an entry exists.
	StatusDone DayStatus = "done"
	// StatusMissed: the day is today or earlier and no entry exists. Today
	// with no entry yet is missed under this rule; the "not submitted yet"
	// banner is a separate flag layered on top, not a fourth status.
	StatusMissed DayStatus = "missed"
)

// DayClass is the classification of a single calendar day.
type DayClass struct {
	Date   string    `json:"date"`
	Status DayStatus `json:"status"`
}

// ClassifyMonth classifies every day of the month containing anchor against
// today (YYYY-MM-DD) and the entry map, ascending from the 1st to the last
// day. The result partitions the month: exactly one DayClass per calendar
// day, each future, done or missed.
func ClassifyMonth(entries *EntryMap, today string, anchor time.Time) []DayClass {
	out := make([]DayClass, 0, 31)
	for d := range DaysInMonth(anchor) {
		iso := ISODate(d)
		var status DayStatus
		switch {
		case iso > today:
			status = StatusFuture
		case entries.Has(iso):
			status = StatusDone
		default:
			status = StatusMissed
		}
		out = append(out, DayClass{Date: iso, Status: status})
	}
	return out
}

// DoneDates returns the done dates of a classified month.
func DoneDates(classes []DayClass) []string {
	return datesWithStatus(classes, StatusDone)
}

// MissedDates returns the missed dates of a classified month.
func MissedDates(classes []DayClass) []string {
	return datesWithStatus(classes, StatusMissed)
}

func datesWithStatus(classes []DayClass, want DayStatus) []string {
	dates := []string{}
	for _, c := range classes {
		if c.Status == want {
			dates = append(dates, c.Date)
		}
	}
	return dates
}

// Reconciler owns the calendar view state for one session: the entry map it
// classifies against and the single selected date. Today is injected as a
// function so the reconciler can be tested against a fixed date.
type Reconciler struct {
	entries  *EntryMap
	todayFn  func() string
	loc      *time.Location
	selected string
}

// NewReconciler builds a reconciler with the selection defaulting to today.
func NewReconciler(entries *EntryMap, loc *time.Location, todayFn func() string) *Reconciler {
	if loc == nil {
		loc = time.Local
	}
	if todayFn == nil {
		todayFn = func() string { return Today(loc) }
	}
	return &Reconciler{
		entries:  entries,
		todayFn:  todayFn,
		loc:      loc,
		selected: todayFn(),
	}
}

// SelectDate replaces the selection. The only requirement is a
// syntactically valid calendar date: selecting a future date or a date with
// no entry is legal and renders as an empty "no entry" view.
func (r *Reconciler) SelectDate(isoDate string) error {
	if _, err := ParseISODate(isoDate, r.loc); err != nil {
		return fmt.Errorf("invalid date %q: %w", isoDate, err)
	}
	r.selected = isoDate
	return nil
}

// Selected returns the currently selected date.
func (r *Reconciler) Selected() string {
	return r.selected
}

// Classify classifies the month containing anchor against the current entry
// map and today.
func (r *Reconciler) Classify(anchor time.Time) []DayClass {
	return ClassifyMonth(r.entries, r.todayFn(), anchor)
}

// ClassifyCurrentMonth classifies the month containing today. An unparsable
// today means the injected clock is broken; nothing is classified.
func (r *Reconciler) ClassifyCurrentMonth() []DayClass {
	today, err := ParseISODate(r.todayFn(), r.loc)
	if err != nil {
		return nil
	}
	return r.Classify(today)
}
