package models

import "time"

// SystemLog is an immutable audit entry produced for state-changing
// operations. Entries are append-only and queried newest first.
type SystemLog struct {
	ID         string    `db:"id" json:"id"`
	AccountID  *string   `db:"account_id" json:"account_id,omitempty"`
	Path       string    `db:"path" json:"path"`
	Method     string    `db:"method" json:"method"`
	Authorized bool      `db:"authorized" json:"authorized"`
	Status     int       `db:"status" json:"status"`
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SystemLogEntry is the personalised shape returned to the UI: the requesting
// teacher's own name is replaced with "You" in the message.
type SystemLogEntry struct {
	Key       string    `json:"key"`
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
