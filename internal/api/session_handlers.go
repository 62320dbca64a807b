package api

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
)

// SessionHandler returns the authenticated identity for the current page
// view. A valid token whose account has disappeared (or lost confirmation)
// is treated as logged out, not as a server error.
func SessionHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var email string
		err := db.QueryRow(
			"SELECT email FROM users WHERE id = ? AND confirmed_at IS NOT NULL",
			userID,
		).Scan(&email)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusUnauthorized, "No active session")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to load session")
		}

		return c.JSON(fiber.Map{
			"userId": userID,
			"email":  email,
		})
	}
}
