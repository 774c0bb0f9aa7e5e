package vault

// #region imports
import "time"

// #endregion

// #region types

// ItemCheck is the verification result for one evidence item.
type ItemCheck struct {
	ItemID    string
	Type      string
	Timestamp time.Time
	Stored    string
	Computed  string
	OK        bool
}

// Report is a full integrity sweep over the ledger.
type Report struct {
	LockID        string
	SnapshotOK    bool
	SnapshotCount int // items covered by the lock-time snapshot hash
	Items         []ItemCheck
	TamperedCount int
}

// #endregion types

// #region verify

// Verify recomputes every item hash from its payload and, when a lock
// exists, replays the snapshot hash from the first SnapshotCount items.
// A mismatch anywhere means the payload or ledger order changed after
// hashing.
func (v *Vault) Verify() Report {
	v.mu.Lock()
	defer v.mu.Unlock()

	report := Report{SnapshotOK: true}
	for _, item := range v.evidence {
		computed := HashPayload(item.Payload)
		check := ItemCheck{
			ItemID:    item.ID,
			Type:      item.Type,
			Timestamp: item.Timestamp,
			Stored:    item.IntegrityHash,
			Computed:  computed,
			OK:        computed == item.IntegrityHash,
		}
		if !check.OK {
			report.TamperedCount++
		}
		report.Items = append(report.Items, check)
	}

	if v.lock != nil {
		report.LockID = v.lock.ID
		locked := prefixAtOrBefore(v.evidence, v.lock.LockedAt)
		report.SnapshotCount = len(locked)
		report.SnapshotOK = snapshotHash(locked) == v.lock.EvidenceHash
	}
	return report
}

// prefixAtOrBefore returns the leading run of items recorded no later
// than the cutoff. The ledger is append-only so a prefix is enough.
func prefixAtOrBefore(items []EvidenceItem, cutoff time.Time) []EvidenceItem {
	for i, item := range items {
		if item.Timestamp.After(cutoff) {
			return items[:i]
		}
	}
	return items
}

// #endregion verify
