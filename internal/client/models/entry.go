// Package models defines the rows the client reads from and writes to the
// backend tables.
package models

import "time"

// Table names as they exist in the hosted backend.
const (
	EntriesTable       = "japanese_text_entries"
	ProfilesTable      = "user_profiles"
	LoginHistoryTable  = "login_history"
	LoginSessionsTable = "user_login_sessions"
)

// Entry is one short text note.
type Entry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntry is the insert payload for Entry; the backend assigns id and
// timestamps.
type NewEntry struct {
	Content string `json:"content"`
}

// Profile is the per-user record keyed by the auth user id.
type Profile struct {
	ID        string    `json:"id"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayEmail returns the profile email or "" when unset.
func (p *Profile) DisplayEmail() string {
	if p == nil || p.Email == nil {
		return ""
	}
	return *p.Email
}
