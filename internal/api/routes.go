package api

import (
	"database/sql"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, db *sql.DB) {
	api := app.Group("/api")

	// Check if registration is disabled
	disableRegistration := strings.ToLower(os.Getenv("DISABLE_REGISTRATION")) == "true"

	// Configuration endpoint (public)
	api.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"disableRegistration": disableRegistration,
		})
	})

	// Auth routes
	auth := api.Group("/auth")
	if !disableRegistration {
		auth.Post("/register", RegisterHandler(db))
	}
	auth.Get("/confirm", ConfirmEmailHandler(db))
	auth.Post("/login", LoginHandler(db))
	auth.Post("/refresh", RefreshTokenHandler(db))
	auth.Post("/logout", LogoutHandler(db))

	// Protected routes
	protected := api.Group("/", AuthMiddleware())

	// Session lookup
	protected.Get("/session", SessionHandler(db))

	// Journal routes
	journal := protected.Group("/journal")
	journal.Get("/home", JournalHomeHandler(db))
	journal.Get("/entries", ListEntriesHandler(db))
	journal.Post("/entries", SubmitEntryHandler(db))
	journal.Get("/entries/:date", GetEntryHandler(db))
	journal.Get("/calendar", CalendarHandler(db))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
