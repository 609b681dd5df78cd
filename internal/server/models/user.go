// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the identity anchor. TokenVersion is embedded in every issued
// token; incrementing it revokes all of them at once.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	TokenVersion int64      `json:"token_version"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"-"`
}

// Session is a per-device record referenced by refresh tokens. Removing it
// revokes that device without touching the user's TokenVersion.
type Session struct {
	ID        string
	UserID    string
	Client    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

const (
	ClientWeb    = "web"
	ClientMobile = "mobile"
)
