package api

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

// Only a sha256 hash of each refresh token is persisted, so a copied
// database cannot be replayed as live tokens.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// StoreRefreshToken persists a refresh token hash with its expiry and TTL.
// Storing an already-known token refreshes its metadata and un-revokes it.
func StoreRefreshToken(db *sql.DB, userID int, token string, expiresAt time.Time, ttlDays int) error {
	th := hashToken(token)
	// INSERT OR IGNORE avoids unique constraint failures when identical
	// tokens are generated in quick succession.
	_, err := db.Exec("INSERT OR IGNORE INTO refresh_tokens (user_id, token_hash, expires_at, ttl_days) VALUES (?, ?, ?, ?)", userID, th, expiresAt, ttlDays)
	if err != nil {
		return err
	}
	_, err = db.Exec("UPDATE refresh_tokens SET expires_at = ?, ttl_days = ?, revoked = 0 WHERE token_hash = ?", expiresAt, ttlDays, th)
	return err
}

// ValidateRefreshTokenInDB checks that the token exists, is not revoked and
// has not expired, returning the owning user and the token's TTL in days.
func ValidateRefreshTokenInDB(db *sql.DB, token string) (int, int, error) {
	var userID, ttlDays int
	var expiresAt time.Time
	var revoked bool
	row := db.QueryRow("SELECT user_id, expires_at, revoked, ttl_days FROM refresh_tokens WHERE token_hash = ?", hashToken(token))
	if err := row.Scan(&userID, &expiresAt, &revoked, &ttlDays); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, errors.New("refresh token not found")
		}
		return 0, 0, err
	}
	if revoked {
		return 0, 0, errors.New("refresh token revoked")
	}
	if time.Now().After(expiresAt) {
		return 0, 0, errors.New("refresh token expired")
	}
	return userID, ttlDays, nil
}

// RevokeRefreshToken revokes a refresh token by token string.
func RevokeRefreshToken(db *sql.DB, token string) error {
	_, err := db.Exec("UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?", hashToken(token))
	return err
}
