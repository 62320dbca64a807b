package journal_test

import (
	"testing"
	"time"

	"dailypivot/internal/journal"
)

func mustDate(t *testing.T, iso string) time.Time {
	t.Helper()
	d, err := journal.ParseISODate(iso, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestClassifyMonthScenario(t *testing.T) {
	// today = 2024-03-15, one entry on 2024-03-13.
	m := journal.NewEntryMap()
	m.Upsert(entryFor("2024-03-13", "done day"))

	days := journal.ClassifyMonth(m, "2024-03-15", mustDate(t, "2024-03-15"))
	if len(days) != 31 {
		t.Fatalf("Expected 31 classified days, got %d", len(days))
	}

	byDate := map[string]journal.DayStatus{}
	for _, d := range days {
		byDate[d.Date] = d.Status
	}

	if byDate["2024-03-13"] != journal.StatusDone {
		t.Fatalf("Expected 2024-03-13 done, got %s", byDate["2024-03-13"])
	}
	// Today with no entry is missed; the banner flag is layered elsewhere.
	if byDate["2024-03-15"] != journal.StatusMissed {
		t.Fatalf("Expected today missed, got %s", byDate["2024-03-15"])
	}
	for day := 1; day <= 12; day++ {
		iso := journal.ISODate(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC))
		if byDate[iso] != journal.StatusMissed {
			t.Fatalf("Expected %s missed, got %s", iso, byDate[iso])
		}
	}
	if byDate["2024-03-14"] != journal.StatusMissed {
		t.Fatalf("Expected 2024-03-14 missed, got %s", byDate["2024-03-14"])
	}
	for day := 16; day <= 31; day++ {
		iso := journal.ISODate(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC))
		if byDate[iso] != journal.StatusFuture {
			t.Fatalf("Expected %s future, got %s", iso, byDate[iso])
		}
	}
}

func TestClassifyMonthPartition(t *testing.T) {
	m := journal.NewEntryMap()
	m.Upsert(entryFor("2024-02-05", "x"))
	m.Upsert(entryFor("2023-02-10", "y"))

	cases := []struct {
		anchor string
		days   int
	}{
		{"2024-02-01", 29},
		{"2023-02-01", 28},
		{"2024-04-01", 30},
		{"2024-05-01", 31},
	}
	for _, tc := range cases {
		days := journal.ClassifyMonth(m, "2024-02-20", mustDate(t, tc.anchor))
		if len(days) != tc.days {
			t.Fatalf("Month of %s: expected %d days, got %d", tc.anchor, tc.days, len(days))
		}
		// Every day carries exactly one of the three statuses.
		counts := map[journal.DayStatus]int{}
		for _, d := range days {
			counts[d.Status]++
		}
		total := counts[journal.StatusFuture] + counts[journal.StatusDone] + counts[journal.StatusMissed]
		if total != tc.days {
			t.Fatalf("Month of %s: partition broken, %v", tc.anchor, counts)
		}
	}
}

func TestFutureDaysNeverMissed(t *testing.T) {
	// An entry on a future date (clock skew) must still classify future.
	m := journal.NewEntryMap()
	m.Upsert(entryFor("2024-03-20", "from the future"))

	days := journal.ClassifyMonth(m, "2024-03-15", mustDate(t, "2024-03-01"))
	for _, d := range days {
		if d.Date > "2024-03-15" && d.Status != journal.StatusFuture {
			t.Fatalf("Expected %s future, got %s", d.Date, d.Status)
		}
	}
}

func TestDoneIffEntryExists(t *testing.T) {
	m := journal.NewEntryMap()
	m.Upsert(entryFor("2024-03-03", "a"))
	m.Upsert(entryFor("2024-03-07", "b"))

	days := journal.ClassifyMonth(m, "2024-03-15", mustDate(t, "2024-03-01"))
	for _, d := range days {
		if d.Date > "2024-03-15" {
			continue
		}
		if m.Has(d.Date) && d.Status != journal.StatusDone {
			t.Fatalf("Expected %s done, got %s", d.Date, d.Status)
		}
		if !m.Has(d.Date) && d.Status != journal.StatusMissed {
			t.Fatalf("Expected %s missed, got %s", d.Date, d.Status)
		}
	}
}

func TestEmptyFieldsEntryStillCountsDone(t *testing.T) {
	// A row with all-empty fields still marks the day done: classification
	// looks only at row existence, never at field contents.
	m := journal.NewEntryMap()
	m.Upsert(entryFor("2024-03-10", ""))

	days := journal.ClassifyMonth(m, "2024-03-15", mustDate(t, "2024-03-01"))
	for _, d := range days {
		if d.Date == "2024-03-10" && d.Status != journal.StatusDone {
			t.Fatalf("Expected done regardless of field contents, got %s", d.Status)
		}
	}
}

func TestDoneAndMissedViews(t *testing.T) {
	m := journal.NewEntryMap()
	m.Upsert(entryFor("2024-03-13", "x"))

	days := journal.ClassifyMonth(m, "2024-03-15", mustDate(t, "2024-03-15"))
	done := journal.DoneDates(days)
	missed := journal.MissedDates(days)

	if len(done) != 1 || done[0] != "2024-03-13" {
		t.Fatalf("Expected done = [2024-03-13], got %v", done)
	}
	if len(missed) != 14 {
		t.Fatalf("Expected 14 missed days (1-12, 14, 15), got %d: %v", len(missed), missed)
	}
}

func TestReconcilerSelection(t *testing.T) {
	m := journal.NewEntryMap()
	today := func() string { return "2024-03-15" }
	r := journal.NewReconciler(m, time.UTC, today)

	if r.Selected() != "2024-03-15" {
		t.Fatalf("Expected selection to default to today, got %s", r.Selected())
	}

	// Selecting a future date or one with no entry is legal.
	if err := r.SelectDate("2024-03-28"); err != nil {
		t.Fatal(err)
	}
	if r.Selected() != "2024-03-28" {
		t.Fatalf("Expected 2024-03-28, got %s", r.Selected())
	}

	if err := r.SelectDate("28-03-2024"); err == nil {
		t.Fatal("Expected error for malformed date")
	}
	if r.Selected() != "2024-03-28" {
		t.Fatal("Selection must be unchanged after a rejected date")
	}
}

func TestReconcilerCurrentMonthBrokenClock(t *testing.T) {
	// A todayFn that stops producing ISO dates must not be papered over with
	// the wall clock; the view classifies nothing.
	m := journal.NewEntryMap()
	r := journal.NewReconciler(m, time.UTC, func() string { return "not-a-date" })

	if days := r.ClassifyCurrentMonth(); len(days) != 0 {
		t.Fatalf("Expected no classification from an unparsable today, got %d days", len(days))
	}
}

func TestReconcilerClassifyTracksLiveEdits(t *testing.T) {
	m := journal.NewEntryMap()
	r := journal.NewReconciler(m, time.UTC, func() string { return "2024-03-15" })

	days := r.Classify(mustDate(t, "2024-03-15"))
	for _, d := range days {
		if d.Date == "2024-03-15" && d.Status != journal.StatusMissed {
			t.Fatalf("Expected today missed before submit, got %s", d.Status)
		}
	}

	// An upsert into the shared map is visible on the next classification.
	m.Upsert(entryFor("2024-03-15", "submitted"))
	days = r.Classify(mustDate(t, "2024-03-15"))
	for _, d := range days {
		if d.Date == "2024-03-15" && d.Status != journal.StatusDone {
			t.Fatalf("Expected today done after submit, got %s", d.Status)
		}
	}
}
