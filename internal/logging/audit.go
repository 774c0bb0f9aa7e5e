package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region events

// Event names the audit-relevant moments in the decision core.
type Event string

const (
	EventEscalation       Event = "escalation"
	EventTopCrossing      Event = "top_crossing"
	EventIntentConfirmed  Event = "intent_confirmed"
	EventLockCreated      Event = "lock_created"
	EventEvidenceAdded    Event = "evidence_added"
	EventLockCancelled    Event = "lock_cancelled"
	EventLockReleased     Event = "lock_released"
	EventSilentModeReset  Event = "silent_mode_reset"
	EventVoiceEnrolled    Event = "voice_enrolled"
	EventVoiceMatch       Event = "voice_match"
)

// #endregion events

// #region entry

// Entry is a single audit row. Score and Level are zero-valued for
// events that carry neither (vault and voice events).
type Entry struct {
	Domain    string
	Event     Event
	Level     string
	Score     int
	Detail    string
	CreatedAt time.Time
}

// Recorder is the write side of the audit trail. Monitors and the vault
// depend on this interface, not on SQLite.
type Recorder interface {
	Record(entry Entry) error
}

// Discard is a Recorder that drops every entry. Used where no store is wired.
type Discard struct{}

// Record implements Recorder.
func (Discard) Record(Entry) error { return nil }

// #endregion entry

// #region schema

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	domain      TEXT NOT NULL DEFAULT '',
	event       TEXT NOT NULL,
	level       TEXT NOT NULL DEFAULT '',
	score       INTEGER NOT NULL DEFAULT 0,
	detail      TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
`

const auditIndex = `
CREATE INDEX IF NOT EXISTS idx_audit_log_domain_event
ON audit_log(domain, event);
`

// #endregion schema

// #region audit-log

// AuditLog persists audit entries in SQLite, sharing the store's handle.
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog initializes the audit_log table on the given handle.
func NewAuditLog(db *sql.DB) (*AuditLog, error) {
	if _, err := db.Exec(auditSchema); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	if _, err := db.Exec(auditIndex); err != nil {
		return nil, fmt.Errorf("audit index: %w", err)
	}
	return &AuditLog{db: db}, nil
}

// Record inserts one audit row.
func (a *AuditLog) Record(entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := a.db.Exec(
		`INSERT INTO audit_log (domain, event, level, score, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Domain,
		string(entry.Event),
		entry.Level,
		entry.Score,
		entry.Detail,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (a *AuditLog) List(limit int) ([]Entry, error) {
	rows, err := a.db.Query(
		`SELECT domain, event, level, score, detail, created_at
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var event, createdStr string
		if err := rows.Scan(&e.Domain, &event, &e.Level, &e.Score, &e.Detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Event = Event(event)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListByDomain returns the most recent entries for one domain, oldest first,
// in the shape fixture export wants.
func (a *AuditLog) ListByDomain(domain string, limit int) ([]Entry, error) {
	rows, err := a.db.Query(
		`SELECT domain, event, level, score, detail, created_at
		 FROM audit_log WHERE domain = ? ORDER BY id ASC LIMIT ?`, domain, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries for %s: %w", domain, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var event, createdStr string
		if err := rows.Scan(&e.Domain, &event, &e.Level, &e.Score, &e.Detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Event = Event(event)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion audit-log
