package types

import "time"

// User is an operator account. Passwords are stored only as bcrypt hashes.
type User struct {
	UserID       string `db:"user_id" json:"user_id"`
	UserName     string `db:"user_name" json:"user_name"`
	Name         string `db:"name" json:"name"`
	PasswordHash string `db:"password_hash" json:"-"`
}

// Actor is the authenticated operator on whose behalf a service call runs.
type Actor struct {
	UserID   string `json:"user_id" validate:"required"`
	UserName string `json:"user_name" validate:"required"`
}

// HistoryEntry is one row of the administrative audit log.
type HistoryEntry struct {
	HistoryID  string    `json:"history_id"`
	UserName   string    `json:"user_name"`
	Action     string    `json:"action"`
	Table      string    `json:"table,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
