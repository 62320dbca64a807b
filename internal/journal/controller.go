package journal

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"dailypivot/internal/models"
)

// Session is the authenticated identity for the current page view, passed
// explicitly rather than read from ambient state.
type Session struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
}

// AccountService is the authentication collaborator. GetSession returns
// ErrNoSession when nobody is logged in; an *AuthError (transport or service
// failure) is treated the same way by the controller: redirect, no retry.
type AccountService interface {
	GetSession(ctx context.Context) (Session, error)
	SignOut(ctx context.Context) error
}

// JournalStore is the persistence collaborator. UpsertEntry is keyed on
// (userID, isoDate): a second call for the same key replaces the prior row.
type JournalStore interface {
	FetchEntry(ctx context.Context, userID int, isoDate string) (models.Entry, bool, error)
	FetchAllEntries(ctx context.Context, userID int) ([]models.Entry, error)
	UpsertEntry(ctx context.Context, userID int, isoDate string, fields models.EntryFields, updatedAt time.Time) (models.Entry, error)
}

// State is the controller lifecycle: checking-session resolves to either
// redirect-to-login or ready; within ready the controller idles between
// submits.
type State string

const (
	StateCheckingSession State = "checking-session"
	StateRedirectLogin   State = "redirect-to-login"
	StateReady           State = "ready"
)

const defaultCallTimeout = 10 * time.Second

// Controller orchestrates one authenticated page view: session check, entry
// load, form submit and logout. Every collaborator call runs under a
// per-call timeout.
type Controller struct {
	accounts AccountService
	store    JournalStore
	loc      *time.Location
	now      func() time.Time
	timeout  time.Duration

	mu               sync.Mutex
	state            State
	session          Session
	entries          *EntryMap
	rec              *Reconciler
	alreadySubmitted bool
	submitting       bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLocation sets the timezone used to compute the local calendar day.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) { c.loc = loc }
}

// WithNow injects the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithCallTimeout overrides the per-call timeout for collaborator calls.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

func NewController(accounts AccountService, store JournalStore, opts ...Option) *Controller {
	c := &Controller{
		accounts: accounts,
		store:    store,
		loc:      time.Local,
		timeout:  defaultCallTimeout,
		state:    StateCheckingSession,
		entries:  NewEntryMap(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.now == nil {
		loc := c.loc
		c.now = func() time.Time { return time.Now().In(loc) }
	}
	c.rec = NewReconciler(c.entries, c.loc, c.today)
	return c
}

func (c *Controller) today() string {
	return ISODate(c.now().In(c.loc))
}

func (c *Controller) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Start performs the one-shot session check and, on success, loads the
// user's entries. A missing session or a failed session fetch both resolve
// to the redirect state; there is no retry within a page view. A failed
// entry fetch is logged and degrades to an empty calendar rather than
// blocking the page.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateCheckingSession

	cctx, cancel := c.callCtx(ctx)
	sess, err := c.accounts.GetSession(cctx)
	cancel()
	if err != nil {
		c.state = StateRedirectLogin
		if !errors.Is(err, ErrNoSession) {
			log.Printf("Session check failed, redirecting to login: %v", err)
		}
		return err
	}
	c.session = sess

	cctx, cancel = c.callCtx(ctx)
	rows, err := c.store.FetchAllEntries(cctx, sess.UserID)
	cancel()
	if err != nil {
		log.Printf("Failed to load entries for user %d, showing empty calendar: %v", sess.UserID, err)
		rows = nil
	}
	c.entries.Load(rows)

	_, c.alreadySubmitted = c.entries.Get(c.today())
	if err := c.rec.SelectDate(c.today()); err != nil {
		return err
	}
	c.state = StateReady
	return nil
}

// Submit validates and saves today's entry. All three fields must be
// non-empty after trimming; a validation failure makes no store call and
// leaves the entry map untouched. On success the store row is upserted,
// the in-memory map updated and the selection reset to today. A second
// submit while one is in flight is refused (the store's unique key makes a
// duplicate harmless, but there is no reason to send it).
func (c *Controller) Submit(ctx context.Context, fields models.EntryFields) (models.Entry, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return models.Entry{}, ErrNoSession
	}
	if c.submitting {
		c.mu.Unlock()
		return models.Entry{}, ErrSubmitInFlight
	}
	if err := validateFields(fields); err != nil {
		c.mu.Unlock()
		return models.Entry{}, err
	}
	c.submitting = true
	session := c.session
	today := c.today()
	c.mu.Unlock()

	cctx, cancel := c.callCtx(ctx)
	entry, err := c.store.UpsertEntry(cctx, session.UserID, today, fields, c.now())
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		var serr *StoreError
		if errors.As(err, &serr) {
			return models.Entry{}, err
		}
		return models.Entry{}, &StoreError{Op: "upsert entry", Err: err}
	}
	c.entries.Upsert(entry)
	c.alreadySubmitted = true
	if err := c.rec.SelectDate(today); err != nil {
		return models.Entry{}, err
	}
	return entry, nil
}

func validateFields(f models.EntryFields) error {
	if strings.TrimSpace(f.Reflection) == "" {
		return &ValidationError{Field: "reflection"}
	}
	if strings.TrimSpace(f.PlanTomorrow) == "" {
		return &ValidationError{Field: "plan_tomorrow"}
	}
	if strings.TrimSpace(f.Outfit) == "" {
		return &ValidationError{Field: "outfit"}
	}
	return nil
}

// Logout signs out and discards the per-session view state.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cctx, cancel := c.callCtx(ctx)
	err := c.accounts.SignOut(cctx)
	cancel()

	c.entries.Load(nil)
	c.session = Session{}
	c.alreadySubmitted = false
	c.state = StateRedirectLogin
	return err
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the active session. Only meaningful in StateReady.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Today returns the controller's local calendar date.
func (c *Controller) Today() string {
	return c.today()
}

// AlreadySubmitted reports whether today's entry exists. This is the flag
// behind the "not submitted yet" banner; it does not change how today is
// classified on the calendar.
func (c *Controller) AlreadySubmitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alreadySubmitted
}

// TodayEntry returns today's entry, if one exists.
func (c *Controller) TodayEntry() (models.Entry, bool) {
	return c.entries.Get(c.today())
}

// Entry returns the entry for an arbitrary date, if one exists. Absence is
// a normal "no entry" view, not an error.
func (c *Controller) Entry(isoDate string) (models.Entry, bool) {
	return c.entries.Get(isoDate)
}

// Entries returns all loaded entries sorted by date.
func (c *Controller) Entries() []models.Entry {
	return c.entries.All()
}

// SelectDate replaces the calendar selection.
func (c *Controller) SelectDate(isoDate string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.SelectDate(isoDate)
}

// Selected returns the selected date.
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Selected()
}

// MonthView classifies the month containing anchor.
func (c *Controller) MonthView(anchor time.Time) []DayClass {
	return c.rec.Classify(anchor)
}

// CurrentMonthView classifies the month containing today.
func (c *Controller) CurrentMonthView() []DayClass {
	return c.rec.ClassifyCurrentMonth()
}
