// Package events defines the payloads published for feed changes.
package events

import "time"

// EventTypeEntryCreated is the event_type header value for new feed entries.
const EventTypeEntryCreated = "feed.entry_created"

// EntryCreated is the message emitted when a new feed entry is accepted.
// It carries everything a live viewer needs, so consumers never have to
// read back from Postgres.
type EntryCreated struct {
	EntryID    string    `json:"entry_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	IsAdmin    bool      `json:"is_admin"`
	AppVersion string    `json:"app_version"`
	CreatedAt  time.Time `json:"created_at"`
}
