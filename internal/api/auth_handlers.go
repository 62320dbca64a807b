package api

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"dailypivot/internal/auth"
	"dailypivot/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RegisterHandler creates an unconfirmed account and sends the confirmation
// email. No tokens are issued until the email is confirmed, so sign-up does
// not log the user in.
func RegisterHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		email := strings.TrimSpace(req.Email)
		if len(email) <= 3 || !strings.Contains(email, "@") {
			return fiber.NewError(fiber.StatusBadRequest, "A valid email address is required")
		}
		if len(req.Password) < 6 {
			return fiber.NewError(fiber.StatusBadRequest, "Password must be at least 6 characters")
		}

		hashedPassword, err := auth.HashPassword(req.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to hash password")
		}

		result, err := db.Exec(
			"INSERT INTO users (email, password_hash) VALUES (?, ?)",
			email, hashedPassword,
		)
		if err != nil {
			return fiber.NewError(fiber.StatusConflict, "An account with this email already exists")
		}

		userID, _ := result.LastInsertId()

		token := uuid.NewString()
		if _, err := db.Exec(
			"INSERT INTO email_confirmations (user_id, token) VALUES (?, ?)",
			userID, token,
		); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to create confirmation token")
		}

		// Best-effort: a missing SMTP configuration is logged, not fatal, so
		// local setups can confirm via the logged link.
		if err := SendConfirmationEmail(email, token); err != nil {
			log.Printf("Failed to send confirmation email to %s: %v", email, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Signup successful. Check your email to confirm, then login.",
		})
	}
}

// ConfirmEmailHandler marks the account confirmed and consumes the token.
func ConfirmEmailHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Confirmation token is required")
		}

		var userID int
		err := db.QueryRow(
			"SELECT user_id FROM email_confirmations WHERE token = ?",
			token,
		).Scan(&userID)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Invalid or already used confirmation token")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Database error")
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(
			"UPDATE users SET confirmed_at = CURRENT_TIMESTAMP WHERE id = ? AND confirmed_at IS NULL",
			userID,
		); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM email_confirmations WHERE token = ?", token); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message": "Email confirmed. You can now log in.",
		})
	}
}

func LoginHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		var user models.User
		var confirmedAt sql.NullTime
		err := db.QueryRow(
			"SELECT id, email, password_hash, confirmed_at FROM users WHERE email = ?",
			strings.TrimSpace(req.Email),
		).Scan(&user.ID, &user.Email, &user.PasswordHash, &confirmedAt)

		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Database error")
		}

		if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}

		if !confirmedAt.Valid {
			return fiber.NewError(fiber.StatusForbidden, "Email not confirmed. Check your inbox for the confirmation link.")
		}
		user.ConfirmedAt = &confirmedAt.Time

		accessToken, err := auth.GenerateToken(user.ID, user.Email)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate token")
		}

		days := auth.RefreshDays(req.Remember)
		refreshToken, err := auth.GenerateRefreshToken(user.ID, user.Email, days)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate refresh token")
		}
		expiresAt := time.Now().Add(time.Duration(days) * 24 * time.Hour)
		if err := StoreRefreshToken(db, user.ID, refreshToken, expiresAt, days); err != nil {
			log.Printf("Failed to store refresh token (login): %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to store refresh token")
		}
		c.Cookie(&fiber.Cookie{
			Name:     "refresh_token",
			Value:    refreshToken,
			Expires:  expiresAt,
			HTTPOnly: true,
			Secure:   auth.CookieSecure(),
			SameSite: "Lax",
			Path:     "/api/auth",
		})

		return c.JSON(models.AuthResponse{
			Token: accessToken,
			User:  user,
		})
	}
}

// RefreshTokenHandler generates a new access token from a valid refresh token cookie
func RefreshTokenHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		refreshToken := c.Cookies("refresh_token")
		if refreshToken == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token not found")
		}

		claims, err := auth.ValidateRefreshToken(refreshToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired refresh token")
		}

		dbUserID, ttlDays, err := ValidateRefreshTokenInDB(db, refreshToken)
		if err != nil {
			log.Printf("Refresh token DB validation failed: %v", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token not valid")
		}
		if dbUserID != claims.UserID {
			return fiber.NewError(fiber.StatusUnauthorized, "Token user mismatch")
		}

		accessToken, err := auth.GenerateToken(claims.UserID, claims.Email)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate access token")
		}

		// Rotate refresh token: create new token with same TTL, store and revoke old
		newRefreshToken, err := auth.GenerateRefreshToken(claims.UserID, claims.Email, ttlDays)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate new refresh token")
		}
		expiresAt := time.Now().Add(time.Duration(ttlDays) * 24 * time.Hour)
		if err := StoreRefreshToken(db, claims.UserID, newRefreshToken, expiresAt, ttlDays); err != nil {
			log.Printf("Failed to store new refresh token (refresh): %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to store new refresh token")
		}
		if err := RevokeRefreshToken(db, refreshToken); err != nil {
			log.Printf("Failed to revoke old refresh token: %v", err)
		}

		c.Cookie(&fiber.Cookie{
			Name:     "refresh_token",
			Value:    newRefreshToken,
			Expires:  expiresAt,
			HTTPOnly: true,
			Secure:   auth.CookieSecure(),
			SameSite: "Lax",
			Path:     "/api/auth",
		})

		return c.JSON(fiber.Map{
			"token": accessToken,
		})
	}
}

// LogoutHandler revokes the refresh token and clears its cookie
func LogoutHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		old := c.Cookies("refresh_token")
		if old != "" {
			_ = RevokeRefreshToken(db, old) // best-effort; ignore errors
		}

		c.Cookie(&fiber.Cookie{
			Name:     "refresh_token",
			Value:    "",
			Expires:  time.Now().Add(-1 * time.Hour),
			HTTPOnly: true,
			Secure:   auth.CookieSecure(),
			SameSite: "Lax",
			Path:     "/api/auth",
		})

		return c.JSON(fiber.Map{
			"message": "Logged out successfully",
		})
	}
}
