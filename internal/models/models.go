package models

import "time"

type User struct {
	ID           int        `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Entry is one user's journal submission for one calendar date.
// EntryDate is the local calendar day in YYYY-MM-DD form, unique per user.
type Entry struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	EntryDate    string    `json:"entry_date"`
	Reflection   string    `json:"reflection"`
	PlanTomorrow string    `json:"plan_tomorrow"`
	Outfit       string    `json:"outfit"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EntryFields carries the three free-text fields of a submission,
// separate from the stored record so validation can happen before the
// store is touched.
type EntryFields struct {
	Reflection   string `json:"reflection"`
	PlanTomorrow string `json:"plan_tomorrow"`
	Outfit       string `json:"outfit"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
