package api

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"dailypivot/internal/database"
	"dailypivot/internal/journal"
	"dailypivot/internal/models"

	"github.com/gofiber/fiber/v2"
)

var (
	locationOnce sync.Once
	appLoc       *time.Location
)

// appLocation resolves the timezone used for "today". Calendar days are
// local days; serving UTC-derived dates to a non-UTC user shifts the day
// near midnight, so the deployment pins its timezone via APP_TIMEZONE.
func appLocation() *time.Location {
	locationOnce.Do(func() {
		appLoc = time.Local
		if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				log.Printf("Invalid APP_TIMEZONE %q, falling back to local time: %v", tz, err)
				return
			}
			appLoc = loc
		}
	})
	return appLoc
}

// requestAccount adapts an authenticated request to journal.AccountService.
// The token was already validated by the middleware; GetSession re-checks
// that the account still exists and is confirmed.
type requestAccount struct {
	db     *sql.DB
	userID int
}

func (a requestAccount) GetSession(ctx context.Context) (journal.Session, error) {
	var email string
	err := a.db.QueryRowContext(ctx,
		"SELECT email FROM users WHERE id = ? AND confirmed_at IS NOT NULL",
		a.userID,
	).Scan(&email)
	if err == sql.ErrNoRows {
		return journal.Session{}, journal.ErrNoSession
	}
	if err != nil {
		return journal.Session{}, &journal.AuthError{Op: "get session", Err: err}
	}
	return journal.Session{UserID: a.userID, Email: email}, nil
}

func (a requestAccount) SignOut(ctx context.Context) error {
	// Token revocation is handled by the auth logout endpoint; the in-memory
	// session state is per request and needs no server-side teardown here.
	return nil
}

func newJournalController(db *sql.DB, c *fiber.Ctx) *journal.Controller {
	userID := c.Locals("userID").(int)
	return journal.NewController(
		requestAccount{db: db, userID: userID},
		database.NewEntryStore(db),
		journal.WithLocation(appLocation()),
	)
}

// startController runs the controller's session check, mapping the redirect
// state to a 401 so the client navigates to login.
func startController(ctrl *journal.Controller, c *fiber.Ctx) error {
	if err := ctrl.Start(c.UserContext()); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Session expired, please log in again")
	}
	return nil
}

// JournalHomeHandler returns everything the journal page needs on load:
// today's date, today's entry (or null), the submitted flag, the current
// month's classification and the selected date.
func JournalHomeHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctrl := newJournalController(db, c)
		if err := startController(ctrl, c); err != nil {
			return err
		}

		var todayEntry *models.Entry
		if e, ok := ctrl.TodayEntry(); ok {
			todayEntry = &e
		}

		return c.JSON(fiber.Map{
			"today":             ctrl.Today(),
			"entry":             todayEntry,
			"already_submitted": ctrl.AlreadySubmitted(),
			"selected_date":     ctrl.Selected(),
			"calendar":          ctrl.CurrentMonthView(),
		})
	}
}

// SubmitEntryHandler saves today's entry. All three fields must be
// non-empty after trimming; re-submitting replaces the existing row.
func SubmitEntryHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var fields models.EntryFields
		if err := c.BodyParser(&fields); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		ctrl := newJournalController(db, c)
		if err := startController(ctrl, c); err != nil {
			return err
		}

		entry, err := ctrl.Submit(c.UserContext(), fields)
		if err != nil {
			var verr *journal.ValidationError
			if errors.As(err, &verr) {
				return fiber.NewError(fiber.StatusBadRequest, "Please fill in all three fields: "+verr.Error())
			}
			if errors.Is(err, journal.ErrSubmitInFlight) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			log.Printf("Failed to save entry for user %d: %v", ctrl.Session().UserID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to save entry")
		}

		return c.JSON(entry)
	}
}

// ListEntriesHandler returns all of the user's entries.
func ListEntriesHandler(db *sql.DB) fiber.Handler {
	store := database.NewEntryStore(db)
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)
		entries, err := store.FetchAllEntries(c.UserContext(), userID)
		if err != nil {
			return err
		}
		return c.JSON(entries)
	}
}

// GetEntryHandler returns the entry for one date, 404 when absent. The
// client renders absence as the "no entry" view.
func GetEntryHandler(db *sql.DB) fiber.Handler {
	store := database.NewEntryStore(db)
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)
		isoDate := c.Params("date")
		if _, err := journal.ParseISODate(isoDate, appLocation()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		}

		entry, ok, err := store.FetchEntry(c.UserContext(), userID, isoDate)
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "No entry for this date")
		}
		return c.JSON(entry)
	}
}

// CalendarHandler classifies an arbitrary month (?month=YYYY-MM, default
// the current one) and optionally moves the selection (?selected=date).
func CalendarHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctrl := newJournalController(db, c)
		if err := startController(ctrl, c); err != nil {
			return err
		}

		anchor := time.Now().In(appLocation())
		if month := c.Query("month"); month != "" {
			parsed, err := time.ParseInLocation("2006-01", month, appLocation())
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid month, expected YYYY-MM")
			}
			anchor = parsed
		}

		if selected := c.Query("selected"); selected != "" {
			if err := ctrl.SelectDate(selected); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid selected date, expected YYYY-MM-DD")
			}
		}

		days := ctrl.MonthView(anchor)
		return c.JSON(fiber.Map{
			"month":         anchor.Format("2006-01"),
			"today":         ctrl.Today(),
			"days":          days,
			"done_dates":    journal.DoneDates(days),
			"missed_dates":  journal.MissedDates(days),
			"selected_date": ctrl.Selected(),
		})
	}
}
