package journal

import (
	"sort"
	"sync"

	"dailypivot/internal/models"
)

// EntryMap is the canonical in-memory view of one user's entries, keyed by
// entry date. It is the single source of truth for the calendar: done and
// missed views are derived from it, never stored alongside it.
//
// The map is guarded by a mutex. The consuming page is event-driven and
// effectively single-threaded, but the atomicity contract (no torn reads
// during an upsert) holds regardless of execution model.
type EntryMap struct {
	mu      sync.RWMutex
	entries map[string]models.Entry
}

func NewEntryMap() *EntryMap {
	return &EntryMap{entries: make(map[string]models.Entry)}
}

// Load replaces the map wholesale from one fetch result. There are no
// partial-merge semantics: a full reload always wins.
func (m *EntryMap) Load(rows []models.Entry) {
	fresh := make(map[string]models.Entry, len(rows))
	for _, e := range rows {
		fresh[e.EntryDate] = e
	}
	m.mu.Lock()
	m.entries = fresh
	m.mu.Unlock()
}

// Upsert inserts or replaces the single key e.EntryDate.
func (m *EntryMap) Upsert(e models.Entry) {
	m.mu.Lock()
	m.entries[e.EntryDate] = e
	m.mu.Unlock()
}

// Get returns the entry for the given date, or ok=false when absent. It
// never synthesizes a placeholder.
func (m *EntryMap) Get(isoDate string) (models.Entry, bool) {
	m.mu.RLock()
	e, ok := m.entries[isoDate]
	m.mu.RUnlock()
	return e, ok
}

// Has reports whether an entry exists for the given date.
func (m *EntryMap) Has(isoDate string) bool {
	m.mu.RLock()
	_, ok := m.entries[isoDate]
	m.mu.RUnlock()
	return ok
}

// Len returns the number of entries.
func (m *EntryMap) Len() int {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()
	return n
}

// Dates returns all entry dates in ascending order. ISO date strings sort
// lexically in calendar order.
func (m *EntryMap) Dates() []string {
	m.mu.RLock()
	dates := make([]string, 0, len(m.entries))
	for d := range m.entries {
		dates = append(dates, d)
	}
	m.mu.RUnlock()
	sort.Strings(dates)
	return dates
}

// All returns the entries sorted by date.
func (m *EntryMap) All() []models.Entry {
	m.mu.RLock()
	out := make([]models.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate < out[j].EntryDate })
	return out
}
