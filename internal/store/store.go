package store

// #region imports
import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kestrel-safety/guardian/internal/vault"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS truth_locks (
	lock_id            TEXT PRIMARY KEY,
	locked_at          TEXT NOT NULL,
	unlock_deadline    TEXT NOT NULL,
	cancel_window_end  TEXT NOT NULL,
	auto_release_hours REAL NOT NULL,
	evidence_hash      TEXT NOT NULL,
	outcome            TEXT,
	released_at        TEXT
);

CREATE TABLE IF NOT EXISTS evidence_items (
	item_id        TEXT PRIMARY KEY,
	lock_id        TEXT NOT NULL,
	item_type      TEXT NOT NULL,
	payload        BLOB NOT NULL,
	recorded_at    TEXT NOT NULL,
	integrity_hash TEXT NOT NULL,
	FOREIGN KEY (lock_id) REFERENCES truth_locks(lock_id)
);

CREATE INDEX IF NOT EXISTS idx_evidence_items_lock
	ON evidence_items(lock_id, recorded_at);

CREATE TABLE IF NOT EXISTS signal_journal (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	domain      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	value       REAL NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store persists truth locks and their evidence ledgers in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region save-lock
// SaveLock inserts a new lock row. Outcome columns start NULL.
func (s *Store) SaveLock(lock vault.Lock) error {
	_, err := s.db.Exec(
		`INSERT INTO truth_locks (lock_id, locked_at, unlock_deadline, cancel_window_end, auto_release_hours, evidence_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		lock.ID,
		lock.LockedAt.UTC().Format(time.RFC3339Nano),
		lock.UnlockDeadline.UTC().Format(time.RFC3339Nano),
		lock.CancelWindowEnd.UTC().Format(time.RFC3339Nano),
		lock.AutoReleaseHours,
		lock.EvidenceHash,
	)
	if err != nil {
		return fmt.Errorf("insert lock: %w", err)
	}
	return nil
}

// #endregion save-lock

// #region save-evidence
// SaveEvidence appends one ledger item under a lock. Items already
// persisted keep their row; the ledger is append-only.
func (s *Store) SaveEvidence(lockID string, item vault.EvidenceItem) error {
	_, err := s.db.Exec(
		`INSERT INTO evidence_items (item_id, lock_id, item_type, payload, recorded_at, integrity_hash)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(item_id) DO NOTHING`,
		item.ID, lockID, item.Type, item.Payload,
		item.Timestamp.UTC().Format(time.RFC3339Nano), item.IntegrityHash,
	)
	if err != nil {
		return fmt.Errorf("insert evidence %s: %w", item.ID, err)
	}
	return nil
}

// #endregion save-evidence

// #region mark-released
// MarkReleased records the single terminal outcome for a lock.
func (s *Store) MarkReleased(lockID string, outcome vault.Outcome, at time.Time) error {
	res, err := s.db.Exec(
		`UPDATE truth_locks SET outcome = ?, released_at = ?
		 WHERE lock_id = ? AND outcome IS NULL`,
		string(outcome), at.UTC().Format(time.RFC3339Nano), lockID,
	)
	if err != nil {
		return fmt.Errorf("mark released: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lock %s already terminal or unknown", lockID)
	}
	return nil
}

// #endregion mark-released

// #region load-unreleased
// LoadUnreleased returns the most recent lock without a terminal
// outcome, with its evidence in recorded order. Nil when none exists.
func (s *Store) LoadUnreleased() (*vault.Lock, []vault.EvidenceItem, error) {
	var lock vault.Lock
	var lockedStr, deadlineStr, windowStr string
	err := s.db.QueryRow(
		`SELECT lock_id, locked_at, unlock_deadline, cancel_window_end, auto_release_hours, evidence_hash
		 FROM truth_locks WHERE outcome IS NULL ORDER BY locked_at DESC LIMIT 1`,
	).Scan(&lock.ID, &lockedStr, &deadlineStr, &windowStr, &lock.AutoReleaseHours, &lock.EvidenceHash)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load unreleased lock: %w", err)
	}
	if lock.LockedAt, err = time.Parse(time.RFC3339Nano, lockedStr); err != nil {
		return nil, nil, fmt.Errorf("parse locked_at: %w", err)
	}
	if lock.UnlockDeadline, err = time.Parse(time.RFC3339Nano, deadlineStr); err != nil {
		return nil, nil, fmt.Errorf("parse unlock_deadline: %w", err)
	}
	if lock.CancelWindowEnd, err = time.Parse(time.RFC3339Nano, windowStr); err != nil {
		return nil, nil, fmt.Errorf("parse cancel_window_end: %w", err)
	}

	items, err := s.loadEvidence(lock.ID)
	if err != nil {
		return nil, nil, err
	}
	return &lock, items, nil
}

// ListEvidence returns a lock's ledger in recorded order.
func (s *Store) ListEvidence(lockID string) ([]vault.EvidenceItem, error) {
	return s.loadEvidence(lockID)
}

func (s *Store) loadEvidence(lockID string) ([]vault.EvidenceItem, error) {
	rows, err := s.db.Query(
		`SELECT item_id, item_type, payload, recorded_at, integrity_hash
		 FROM evidence_items WHERE lock_id = ? ORDER BY recorded_at ASC`, lockID,
	)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var items []vault.EvidenceItem
	for rows.Next() {
		var item vault.EvidenceItem
		var recordedStr string
		if err := rows.Scan(&item.ID, &item.Type, &item.Payload, &recordedStr, &item.IntegrityHash); err != nil {
			return nil, fmt.Errorf("scan evidence row: %w", err)
		}
		item.Timestamp, _ = time.Parse(time.RFC3339Nano, recordedStr)
		items = append(items, item)
	}
	return items, rows.Err()
}

// #endregion load-unreleased

// #region list-locks
// LockRecord is one truth lock row including any terminal outcome.
type LockRecord struct {
	Lock       vault.Lock
	Outcome    vault.Outcome
	ReleasedAt time.Time
}

// ListLocks returns the most recent locks, newest first.
func (s *Store) ListLocks(limit int) ([]LockRecord, error) {
	rows, err := s.db.Query(
		`SELECT lock_id, locked_at, unlock_deadline, cancel_window_end, auto_release_hours, evidence_hash, outcome, released_at
		 FROM truth_locks ORDER BY locked_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	defer rows.Close()

	var records []LockRecord
	for rows.Next() {
		var rec LockRecord
		var lockedStr, deadlineStr, windowStr string
		var outcome, releasedStr sql.NullString
		if err := rows.Scan(&rec.Lock.ID, &lockedStr, &deadlineStr, &windowStr,
			&rec.Lock.AutoReleaseHours, &rec.Lock.EvidenceHash, &outcome, &releasedStr); err != nil {
			return nil, fmt.Errorf("scan lock row: %w", err)
		}
		rec.Lock.LockedAt, _ = time.Parse(time.RFC3339Nano, lockedStr)
		rec.Lock.UnlockDeadline, _ = time.Parse(time.RFC3339Nano, deadlineStr)
		rec.Lock.CancelWindowEnd, _ = time.Parse(time.RFC3339Nano, windowStr)
		if outcome.Valid {
			rec.Outcome = vault.Outcome(outcome.String)
		}
		if releasedStr.Valid {
			rec.ReleasedAt, _ = time.Parse(time.RFC3339Nano, releasedStr.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-locks

// #region signal-journal

// JournalEntry is one ingested event as recorded for replay. Intent
// events journal under domain "intent" with the detector confidence
// in Value.
type JournalEntry struct {
	Domain      string
	Kind        string
	Value       float64
	Description string
	RecordedAt  time.Time
}

// SaveSignal appends one entry to the signal journal.
func (s *Store) SaveSignal(e JournalEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO signal_journal (domain, kind, value, description, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Domain, e.Kind, e.Value, e.Description,
		e.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// ListSignals returns the last N journal entries in recorded order.
func (s *Store) ListSignals(limit int) ([]JournalEntry, error) {
	rows, err := s.db.Query(
		`SELECT domain, kind, value, description, recorded_at FROM (
			SELECT id, domain, kind, value, description, recorded_at
			FROM signal_journal ORDER BY id DESC LIMIT ?
		) sub ORDER BY id ASC`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var recordedStr string
		if err := rows.Scan(&e.Domain, &e.Kind, &e.Value, &e.Description, &recordedStr); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion signal-journal
