package vault

// #region imports
import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kestrel-safety/guardian/internal/logging"
	"github.com/kestrel-safety/guardian/internal/metrics"
)

// #endregion

// #region outcomes

// Outcome is the terminal state of a truth lock. Exactly one wins.
type Outcome string

const (
	OutcomeCancelled Outcome = "released-by-cancel"
	OutcomeManual    Outcome = "released-manually"
	OutcomeDeadline  Outcome = "released-by-deadline"
)

// CancelWindow is how long after locking a cancellation is honored.
// Fixed and independent of the auto-release deadline: a coercer who
// forces a "call it off" a few minutes in cannot stop the release.
const CancelWindow = 10 * time.Minute

// #endregion outcomes

// #region errors

var (
	// ErrNotLocked is returned for cancel/release before any lock exists.
	ErrNotLocked = errors.New("no incident locked")
	// ErrAlreadyLocked is returned for a second lock on an active incident.
	ErrAlreadyLocked = errors.New("incident already locked")
	// ErrCancelWindowExpired is returned when cancelling after the window.
	ErrCancelWindowExpired = errors.New("cancellation window expired")
	// ErrAlreadyTerminal is returned once a terminal outcome exists.
	ErrAlreadyTerminal = errors.New("lock already reached a terminal outcome")
)

// #endregion errors

// #region types

// EvidenceItem is one append-only ledger entry. The integrity hash is
// computed from the payload alone: the same payload always hashes the same.
type EvidenceItem struct {
	ID            string
	Type          string
	Payload       []byte
	Timestamp     time.Time
	IntegrityHash string
}

// Lock is the metadata of one locked incident.
type Lock struct {
	ID               string
	LockedAt         time.Time
	UnlockDeadline   time.Time
	CancelWindowEnd  time.Time
	AutoReleaseHours float64
	EvidenceHash     string // snapshot hash over evidence present at lock time
}

// Store is the persistence collaborator. Implementations live outside
// this package; the vault only needs these four calls.
type Store interface {
	SaveLock(lock Lock) error
	SaveEvidence(lockID string, item EvidenceItem) error
	MarkReleased(lockID string, outcome Outcome, at time.Time) error
	LoadUnreleased() (*Lock, []EvidenceItem, error)
}

// ReleaseSink receives the evidence exactly once when a lock releases
// (manually or by deadline). Cancellation never reaches the sink.
type ReleaseSink func(lock Lock, evidence []EvidenceItem, outcome Outcome)

// Config wires the vault's collaborators. Store and OnRelease may be nil.
type Config struct {
	Store     Store
	OnRelease ReleaseSink
	Audit     logging.Recorder
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Audit == nil {
		c.Audit = logging.Discard{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// State is a snapshot for display. Remaining is always derived from
// the deadline and the clock, never stored.
type State struct {
	Locked        bool
	Lock          Lock
	EvidenceCount int
	Outcome       Outcome
	Remaining     time.Duration
}

// #endregion types

// #region vault

// Vault is the time-locked evidence ledger for one incident. Evidence
// may accumulate before locking; locking starts the auto-release
// countdown and the short cancellation window.
type Vault struct {
	mu       sync.Mutex
	cfg      Config
	evidence []EvidenceItem
	lock     *Lock
	outcome  Outcome
}

// New creates an empty vault.
func New(cfg Config) *Vault {
	return &Vault{cfg: cfg.withDefaults()}
}

// Resume rebuilds a vault from an unreleased persisted lock and
// immediately honors any deadline that passed while the process was
// down. Returns nil when the store holds no unreleased lock.
func Resume(cfg Config) (*Vault, error) {
	cfg = cfg.withDefaults()
	if cfg.Store == nil {
		return nil, nil
	}
	lock, evidence, err := cfg.Store.LoadUnreleased()
	if err != nil {
		return nil, fmt.Errorf("load unreleased lock: %w", err)
	}
	if lock == nil {
		return nil, nil
	}
	v := &Vault{cfg: cfg, lock: lock, evidence: evidence}
	v.Evaluate()
	return v, nil
}

// #endregion vault

// #region hashing

// HashPayload returns the hex SHA-256 of an evidence payload.
func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// snapshotHash chains the item hashes present at lock time into one
// reproducible digest.
func snapshotHash(items []EvidenceItem) string {
	h := sha256.New()
	for _, item := range items {
		h.Write([]byte(item.IntegrityHash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion hashing

// #region add-evidence

// AddEvidence appends one item to the ledger. Allowed while the lock is
// not terminal; a released or cancelled incident accepts nothing more.
func (v *Vault) AddEvidence(itemType string, payload []byte) (EvidenceItem, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.outcome != "" {
		return EvidenceItem{}, ErrAlreadyTerminal
	}

	item := EvidenceItem{
		ID:            uuid.New().String(),
		Type:          itemType,
		Payload:       payload,
		Timestamp:     v.cfg.Now(),
		IntegrityHash: HashPayload(payload),
	}
	v.evidence = append(v.evidence, item)

	if v.lock != nil && v.cfg.Store != nil {
		if err := v.cfg.Store.SaveEvidence(v.lock.ID, item); err != nil {
			return item, fmt.Errorf("persist evidence: %w", err)
		}
	}
	v.auditLocked(logging.EventEvidenceAdded, itemType, item.Timestamp)
	if v.cfg.Metrics != nil {
		v.cfg.Metrics.VaultEvidenceSize.Set(float64(len(v.evidence)))
	}
	return item, nil
}

// #endregion add-evidence

// #region lock

// LockIncident seals the current evidence snapshot and schedules the
// irrevocable release.
func (v *Vault) LockIncident(autoReleaseHours float64) (Lock, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.outcome != "" {
		return Lock{}, ErrAlreadyTerminal
	}
	if v.lock != nil {
		return *v.lock, ErrAlreadyLocked
	}

	now := v.cfg.Now()
	lock := Lock{
		ID:               uuid.New().String(),
		LockedAt:         now,
		UnlockDeadline:   now.Add(time.Duration(autoReleaseHours * float64(time.Hour))),
		CancelWindowEnd:  now.Add(CancelWindow),
		AutoReleaseHours: autoReleaseHours,
		EvidenceHash:     snapshotHash(v.evidence),
	}
	v.lock = &lock

	if v.cfg.Store != nil {
		if err := v.cfg.Store.SaveLock(lock); err != nil {
			return lock, fmt.Errorf("persist lock: %w", err)
		}
		for _, item := range v.evidence {
			if err := v.cfg.Store.SaveEvidence(lock.ID, item); err != nil {
				return lock, fmt.Errorf("persist evidence snapshot: %w", err)
			}
		}
	}
	v.auditLocked(logging.EventLockCreated,
		fmt.Sprintf("auto-release in %.1fh, %d evidence items", autoReleaseHours, len(v.evidence)), now)
	return lock, nil
}

// #endregion lock

// #region cancel

// Cancel stops the release, but only inside the fixed cancellation
// window. Past the window the overall deadline still stands, however far
// away it is — that gap is the anti-coercion property.
func (v *Vault) Cancel() error {
	v.mu.Lock()
	if v.lock == nil {
		v.mu.Unlock()
		return ErrNotLocked
	}
	if v.outcome != "" {
		v.mu.Unlock()
		return ErrAlreadyTerminal
	}
	now := v.cfg.Now()
	if now.Sub(v.lock.LockedAt) >= CancelWindow {
		v.mu.Unlock()
		return fmt.Errorf("cancel %s after %s: %w",
			v.lock.ID, now.Sub(v.lock.LockedAt).Round(time.Second), ErrCancelWindowExpired)
	}
	v.terminalLocked(OutcomeCancelled, now)
	v.mu.Unlock()
	return nil
}

// #endregion cancel

// #region release

// Release publishes the evidence immediately. Idempotency guard: a lock
// already terminal rejects the call without re-notifying the sink.
func (v *Vault) Release() error {
	v.mu.Lock()
	if v.lock == nil {
		v.mu.Unlock()
		return ErrNotLocked
	}
	if v.outcome != "" {
		v.mu.Unlock()
		return ErrAlreadyTerminal
	}
	lock, evidence := *v.lock, v.snapshotEvidenceLocked()
	v.terminalLocked(OutcomeManual, v.cfg.Now())
	v.mu.Unlock()

	v.fireRelease(lock, evidence, OutcomeManual)
	return nil
}

// Evaluate applies deadline-exceeded semantics: whenever called, a lock
// whose deadline has passed releases, no matter how late the check runs.
// Correctness does not depend on evaluation frequency. Returns whether
// this call performed the release.
func (v *Vault) Evaluate() bool {
	v.mu.Lock()
	if v.lock == nil || v.outcome != "" {
		v.mu.Unlock()
		return false
	}
	now := v.cfg.Now()
	if now.Before(v.lock.UnlockDeadline) {
		v.mu.Unlock()
		return false
	}
	lock, evidence := *v.lock, v.snapshotEvidenceLocked()
	v.terminalLocked(OutcomeDeadline, now)
	v.mu.Unlock()

	v.fireRelease(lock, evidence, OutcomeDeadline)
	return true
}

// #endregion release

// #region state

// Countdown returns the derived time remaining until auto-release,
// floored at zero.
func (v *Vault) Countdown() (time.Duration, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.lock == nil {
		return 0, ErrNotLocked
	}
	remaining := v.lock.UnlockDeadline.Sub(v.cfg.Now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// State returns a display snapshot.
func (v *Vault) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := State{
		EvidenceCount: len(v.evidence),
		Outcome:       v.outcome,
	}
	if v.lock != nil {
		st.Locked = true
		st.Lock = *v.lock
		if remaining := v.lock.UnlockDeadline.Sub(v.cfg.Now()); remaining > 0 && v.outcome == "" {
			st.Remaining = remaining
		}
	}
	return st
}

// Outcome returns the terminal outcome, empty while the lock is live.
func (v *Vault) Outcome() Outcome {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.outcome
}

// #endregion state

// #region internal

// terminalLocked commits the single terminal outcome. Caller holds mu
// and has already checked outcome is empty.
func (v *Vault) terminalLocked(outcome Outcome, at time.Time) {
	v.outcome = outcome
	if v.cfg.Store != nil && v.lock != nil {
		if err := v.cfg.Store.MarkReleased(v.lock.ID, outcome, at); err != nil {
			log.Printf("[VAULT] persist terminal outcome: %v", err)
		}
	}
	event := logging.EventLockReleased
	if outcome == OutcomeCancelled {
		event = logging.EventLockCancelled
	}
	v.auditLocked(event, string(outcome), at)
	if v.cfg.Metrics != nil {
		v.cfg.Metrics.VaultOutcomes.WithLabelValues(string(outcome)).Inc()
	}
}

func (v *Vault) snapshotEvidenceLocked() []EvidenceItem {
	out := make([]EvidenceItem, len(v.evidence))
	copy(out, v.evidence)
	return out
}

func (v *Vault) fireRelease(lock Lock, evidence []EvidenceItem, outcome Outcome) {
	if v.cfg.OnRelease != nil {
		v.cfg.OnRelease(lock, evidence, outcome)
	}
}

func (v *Vault) auditLocked(event logging.Event, detail string, at time.Time) {
	if err := v.cfg.Audit.Record(logging.Entry{
		Domain:    "vault",
		Event:     event,
		Detail:    detail,
		CreatedAt: at,
	}); err != nil {
		log.Printf("[VAULT] audit record failed: %v", err)
	}
}

// #endregion internal
