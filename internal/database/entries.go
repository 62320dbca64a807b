package database

import (
	"context"
	"database/sql"
	"time"

	"dailypivot/internal/models"
)

// EntryStore is the sqlite-backed journal store. It satisfies
// journal.JournalStore: one row per (user_id, entry_date), writes keyed on
// that pair with replace-on-conflict semantics.
type EntryStore struct {
	db *sql.DB
}

func NewEntryStore(db *sql.DB) *EntryStore {
	return &EntryStore{db: db}
}

const entryColumns = "id, user_id, entry_date, reflection, plan_tomorrow, outfit, created_at, updated_at"

func scanEntry(row interface{ Scan(...any) error }) (models.Entry, error) {
	var e models.Entry
	err := row.Scan(
		&e.ID, &e.UserID, &e.EntryDate,
		&e.Reflection, &e.PlanTomorrow, &e.Outfit,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// FetchEntry returns the entry for one date, with ok=false when no row
// exists. Absence is not an error.
func (s *EntryStore) FetchEntry(ctx context.Context, userID int, isoDate string) (models.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? AND entry_date = ?",
		userID, isoDate,
	)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return models.Entry{}, false, nil
	}
	if err != nil {
		return models.Entry{}, false, err
	}
	return e, true, nil
}

// FetchAllEntries returns every entry for the user, ordered by date.
func (s *EntryStore) FetchAllEntries(ctx context.Context, userID int) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? ORDER BY entry_date ASC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpsertEntry inserts or replaces the row for (userID, isoDate). A second
// call for the same key overwrites the fields and updated_at; created_at
// keeps the first write's value. Returns the stored row.
func (s *EntryStore) UpsertEntry(ctx context.Context, userID int, isoDate string, fields models.EntryFields, updatedAt time.Time) (models.Entry, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (user_id, entry_date, reflection, plan_tomorrow, outfit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, entry_date) DO UPDATE SET
			reflection = excluded.reflection,
			plan_tomorrow = excluded.plan_tomorrow,
			outfit = excluded.outfit,
			updated_at = excluded.updated_at`,
		userID, isoDate, fields.Reflection, fields.PlanTomorrow, fields.Outfit, updatedAt,
	)
	if err != nil {
		return models.Entry{}, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? AND entry_date = ?",
		userID, isoDate,
	)
	return scanEntry(row)
}
