package domain

import "time"

// Entry is the canonical feed record stored in PostgreSQL.
type Entry struct {
	ID         string
	UserID     string
	Content    string
	IsAdmin    bool
	AppVersion string
	CreatedAt  time.Time
}
