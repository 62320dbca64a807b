package journal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dailypivot/internal/journal"
	"dailypivot/internal/models"
)

type fakeAccounts struct {
	session   journal.Session
	err       error
	signedOut bool
}

func (f *fakeAccounts) GetSession(ctx context.Context) (journal.Session, error) {
	if f.err != nil {
		return journal.Session{}, f.err
	}
	return f.session, nil
}

func (f *fakeAccounts) SignOut(ctx context.Context) error {
	f.signedOut = true
	return nil
}

type fakeStore struct {
	rows        []models.Entry
	fetchAllErr error
	upsertErr   error
	upsertCalls int
	nextID      int

	// When set, UpsertEntry signals upsertStarted and then parks on
	// upsertRelease, letting a test hold a save in flight.
	upsertStarted chan struct{}
	upsertRelease chan struct{}
}

func (f *fakeStore) FetchEntry(ctx context.Context, userID int, isoDate string) (models.Entry, bool, error) {
	for _, e := range f.rows {
		if e.EntryDate == isoDate {
			return e, true, nil
		}
	}
	return models.Entry{}, false, nil
}

func (f *fakeStore) FetchAllEntries(ctx context.Context, userID int) ([]models.Entry, error) {
	if f.fetchAllErr != nil {
		return nil, f.fetchAllErr
	}
	return f.rows, nil
}

func (f *fakeStore) UpsertEntry(ctx context.Context, userID int, isoDate string, fields models.EntryFields, updatedAt time.Time) (models.Entry, error) {
	if f.upsertStarted != nil {
		select {
		case f.upsertStarted <- struct{}{}:
		default:
		}
	}
	if f.upsertRelease != nil {
		<-f.upsertRelease
	}
	f.upsertCalls++
	if f.upsertErr != nil {
		return models.Entry{}, f.upsertErr
	}
	for i, e := range f.rows {
		if e.EntryDate == isoDate {
			e.Reflection = fields.Reflection
			e.PlanTomorrow = fields.PlanTomorrow
			e.Outfit = fields.Outfit
			e.UpdatedAt = updatedAt
			f.rows[i] = e
			return e, nil
		}
	}
	f.nextID++
	e := models.Entry{
		ID:           f.nextID,
		UserID:       userID,
		EntryDate:    isoDate,
		Reflection:   fields.Reflection,
		PlanTomorrow: fields.PlanTomorrow,
		Outfit:       fields.Outfit,
		UpdatedAt:    updatedAt,
	}
	f.rows = append(f.rows, e)
	return e, nil
}

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestController(accounts journal.AccountService, store journal.JournalStore) *journal.Controller {
	return journal.NewController(accounts, store,
		journal.WithLocation(time.UTC),
		journal.WithNow(func() time.Time { return fixedNow }),
	)
}

func validFields() models.EntryFields {
	return models.EntryFields{
		Reflection:   "Shipped the calendar view",
		PlanTomorrow: "Write the month tests",
		Outfit:       "Hoodie",
	}
}

func TestControllerStartNoSession(t *testing.T) {
	accounts := &fakeAccounts{err: journal.ErrNoSession}
	ctrl := newTestController(accounts, &fakeStore{})

	if err := ctrl.Start(context.Background()); !errors.Is(err, journal.ErrNoSession) {
		t.Fatalf("Expected ErrNoSession, got %v", err)
	}
	if ctrl.State() != journal.StateRedirectLogin {
		t.Fatalf("Expected redirect state, got %s", ctrl.State())
	}
}

func TestControllerStartSessionFetchFailure(t *testing.T) {
	// A transport failure on the session check is one-shot: redirect, no retry.
	accounts := &fakeAccounts{err: &journal.AuthError{Op: "get session", Err: errors.New("connection refused")}}
	ctrl := newTestController(accounts, &fakeStore{})

	err := ctrl.Start(context.Background())
	var aerr *journal.AuthError
	if !errors.As(err, &aerr) {
		t.Fatalf("Expected AuthError, got %v", err)
	}
	if ctrl.State() != journal.StateRedirectLogin {
		t.Fatalf("Expected redirect state, got %s", ctrl.State())
	}
}

func TestControllerStartLoadsEntries(t *testing.T) {
	accounts := &fakeAccounts{session: journal.Session{UserID: 7, Email: "a@b.co"}}
	store := &fakeStore{rows: []models.Entry{
		{UserID: 7, EntryDate: "2024-03-13", Reflection: "x"},
	}}
	ctrl := newTestController(accounts, store)

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ctrl.State() != journal.StateReady {
		t.Fatalf("Expected ready, got %s", ctrl.State())
	}
	if ctrl.Session().UserID != 7 {
		t.Fatalf("Expected session user 7, got %d", ctrl.Session().UserID)
	}
	if ctrl.Today() != "2024-03-15" {
		t.Fatalf("Expected today 2024-03-15, got %s", ctrl.Today())
	}
	if ctrl.AlreadySubmitted() {
		t.Fatal("No entry for today yet, alreadySubmitted must be false")
	}
	if ctrl.Selected() != "2024-03-15" {
		t.Fatalf("Expected selection to default to today, got %s", ctrl.Selected())
	}
	if len(ctrl.Entries()) != 1 {
		t.Fatalf("Expected 1 loaded entry, got %d", len(ctrl.Entries()))
	}
}

func TestControllerStartDegradesOnFetchFailure(t *testing.T) {
	accounts := &fakeAccounts{session: journal.Session{UserID: 7}}
	store := &fakeStore{fetchAllErr: errors.New("timeout")}
	ctrl := newTestController(accounts, store)

	// The page must come up with an empty calendar, not an error.
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Fetch failure must degrade, got %v", err)
	}
	if ctrl.State() != journal.StateReady {
		t.Fatalf("Expected ready, got %s", ctrl.State())
	}
	if len(ctrl.Entries()) != 0 {
		t.Fatalf("Expected empty entries, got %d", len(ctrl.Entries()))
	}
}

func TestControllerSubmitValidation(t *testing.T) {
	accounts := &fakeAccounts{session: journal.Session{UserID: 7}}
	store := &fakeStore{}
	ctrl := newTestController(accounts, store)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	cases := []models.EntryFields{
		{Reflection: "", PlanTomorrow: "p", Outfit: "o"},
		{Reflection: "r", PlanTomorrow: "   ", Outfit: "o"},
		{Reflection: "r", PlanTomorrow: "p", Outfit: "\t\n"},
	}
	for _, fields := range cases {
		_, err := ctrl.Submit(context.Background(), fields)
		var verr *journal.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Expected ValidationError for %+v, got %v", fields, err)
		}
	}

	// No store call was made and the map is unchanged.
	if store.upsertCalls != 0 {
		t.Fatalf("Expected no upsert calls, got %d", store.upsertCalls)
	}
	if len(ctrl.Entries()) != 0 {
		t.Fatal("Entry map must be unchanged after rejected submits")
	}
}

func TestControllerSubmitSuccess(t *testing.T) {
	accounts := &fakeAccounts{session: journal.Session{UserID: 7}}
	store := &fakeStore{}
	ctrl := newTestController(accounts, store)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	entry, err := ctrl.Submit(context.Background(), validFields())
	if err != nil {
		t.Fatal(err)
	}
	if entry.EntryDate != "2024-03-15" {
		t.Fatalf("Expected entry for today, got %s", entry.EntryDate)
	}
	if store.upsertCalls != 1 {
		t.Fatalf("Expected 1 upsert call, got %d", store.upsertCalls)
	}
	if !ctrl.AlreadySubmitted() {
		t.Fatal("Expected alreadySubmitted after save")
	}
	if ctrl.Selected() != "2024-03-15" {
		t.Fatalf("Expected selection reset to today, got %s", ctrl.Selected())
	}

	// Today flips to done on the calendar.
	for _, d := range ctrl.CurrentMonthView() {
		if d.Date == "2024-03-15" && d.Status != journal.StatusDone {
			t.Fatalf("Expected today done after submit, got %s", d.Status)
		}
	}
}

func TestControllerResubmitReplaces(t *testing.T) {
	accounts := &fakeAccounts{session: journal.Session{UserID: 7}}
	store := &fakeStore{}
	ctrl := newTestController(accounts, store)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := ctrl.Submit(context.Background(), validFields()); err != nil {
		t.Fatal(err)
	}

	updated := validFields()
	updated.Reflection = "Rewrote the reflection"
	if _, err := ctrl.Submit(context.Background(), updated); err != nil {
		t.Fatal(err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("Expected one stored row, got %d", len(store.rows))
	}
	got, ok := ctrl.TodayEntry()
	if !ok {
		t.Fatal("Expected today's entry")
	}
	if got.Reflection != "Rewrote the reflection" {
		t.Fatalf("Expected second write to win, got %q", got.Reflection)
	}

	// Still done, not double-counted.
	done := journal.DoneDates(ctrl.CurrentMonthView())
	if len(done) != 1 || done[0] != "2024-03-15" {
		t.Fatalf("Expected done = [2024-03-15], got %v", done)
	}
}

func TestControllerSubmitStoreError(t *testing.T) {
	accounts := &fakeAccounts{session: journal.Session{UserID: 7}}
	store := &fakeStore{upsertErr: errors.New("disk full")}
	ctrl := newTestController(accounts, store)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := ctrl.Submit(context.Background(), validFields())
	var serr *journal.StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected StoreError, got %v", err)
	}
	if ctrl.AlreadySubmitted() {
		t.Fatal("Failed save must not mark the day submitted")
	}
	if _, ok := ctrl.TodayEntry(); ok {
		t.Fatal("Failed save must not touch the entry map")
	}

	// A later submit is allowed again (the in-flight guard was released).
	store.upsertErr = nil
	if _, err := ctrl.Submit(context.Background(), validFields()); err != nil {
		t.Fatal(err)
	}
}

func TestControllerSubmitRefusedWhileInFlight(t *testing.T) {
	accounts := &fakeAccounts{session: journal.Session{UserID: 7}}
	store := &fakeStore{
		upsertStarted: make(chan struct{}, 1),
		upsertRelease: make(chan struct{}),
	}
	ctrl := newTestController(accounts, store)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background(), validFields())
		firstDone <- err
	}()

	// With the first save held inside the store, a second submit is refused
	// without reaching the store.
	<-store.upsertStarted
	if _, err := ctrl.Submit(context.Background(), validFields()); !errors.Is(err, journal.ErrSubmitInFlight) {
		t.Fatalf("Expected ErrSubmitInFlight, got %v", err)
	}

	close(store.upsertRelease)
	if err := <-firstDone; err != nil {
		t.Fatalf("Held submit must succeed once released, got %v", err)
	}
	if store.upsertCalls != 1 {
		t.Fatalf("Expected 1 upsert call, got %d", store.upsertCalls)
	}

	// The guard is released after completion.
	if _, err := ctrl.Submit(context.Background(), validFields()); err != nil {
		t.Fatal(err)
	}
}

func TestControllerSubmitRequiresSession(t *testing.T) {
	accounts := &fakeAccounts{err: journal.ErrNoSession}
	store := &fakeStore{}
	ctrl := newTestController(accounts, store)
	_ = ctrl.Start(context.Background())

	if _, err := ctrl.Submit(context.Background(), validFields()); !errors.Is(err, journal.ErrNoSession) {
		t.Fatalf("Expected ErrNoSession, got %v", err)
	}
	if store.upsertCalls != 0 {
		t.Fatal("No store call without a session")
	}
}

func TestControllerLogout(t *testing.T) {
	accounts := &fakeAccounts{session: journal.Session{UserID: 7, Email: "a@b.co"}}
	store := &fakeStore{rows: []models.Entry{{UserID: 7, EntryDate: "2024-03-13"}}}
	ctrl := newTestController(accounts, store)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.Logout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !accounts.signedOut {
		t.Fatal("Expected SignOut to be called")
	}
	if ctrl.State() != journal.StateRedirectLogin {
		t.Fatalf("Expected redirect state, got %s", ctrl.State())
	}
	if len(ctrl.Entries()) != 0 {
		t.Fatal("Entries must be discarded on logout")
	}
	if ctrl.Session() != (journal.Session{}) {
		t.Fatal("Session must be discarded on logout")
	}
}
