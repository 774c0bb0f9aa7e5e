package main

// #region imports
import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kestrel-safety/guardian/internal/logging"
	"github.com/kestrel-safety/guardian/internal/store"
	"github.com/kestrel-safety/guardian/internal/vault"
)

// #endregion

// #region main

func main() {
	dbPath := flag.String("db", "", "path to guardian.db")
	last := flag.Int("last", 20, "show N most recent entries")
	lockID := flag.String("lock", "", "show single lock detail with its evidence")
	domain := flag.String("domain", "", "filter audit entries to one domain")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/guardian.db [--last N] [--lock id] [--domain name] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	audit, err := logging.NewAuditLog(st.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open audit log: %v\n", err)
		os.Exit(1)
	}

	if *lockID != "" {
		err = runLockDetail(st, *lockID, *jsonOut)
	} else {
		err = runOverview(st, audit, *last, *domain, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region overview

type overview struct {
	Locks []lockRow  `json:"locks"`
	Audit []auditRow `json:"audit"`
}

type lockRow struct {
	LockID     string  `json:"lock_id"`
	LockedAt   string  `json:"locked_at"`
	Deadline   string  `json:"unlock_deadline"`
	Hours      float64 `json:"auto_release_hours"`
	Outcome    string  `json:"outcome,omitempty"`
	ReleasedAt string  `json:"released_at,omitempty"`
}

type auditRow struct {
	At     string `json:"at"`
	Domain string `json:"domain"`
	Event  string `json:"event"`
	Level  string `json:"level,omitempty"`
	Score  int    `json:"score"`
	Detail string `json:"detail,omitempty"`
}

func runOverview(st *store.Store, audit *logging.AuditLog, last int, domain string, jsonOut bool) error {
	locks, err := st.ListLocks(last)
	if err != nil {
		return err
	}

	var entries []logging.Entry
	if domain != "" {
		entries, err = audit.ListByDomain(domain, last)
	} else {
		entries, err = audit.List(last)
	}
	if err != nil {
		return err
	}

	out := overview{}
	for _, rec := range locks {
		row := lockRow{
			LockID:   rec.Lock.ID,
			LockedAt: rec.Lock.LockedAt.Format(time.RFC3339),
			Deadline: rec.Lock.UnlockDeadline.Format(time.RFC3339),
			Hours:    rec.Lock.AutoReleaseHours,
			Outcome:  string(rec.Outcome),
		}
		if !rec.ReleasedAt.IsZero() {
			row.ReleasedAt = rec.ReleasedAt.Format(time.RFC3339)
		}
		out.Locks = append(out.Locks, row)
	}
	for _, e := range entries {
		out.Audit = append(out.Audit, auditRow{
			At:     e.CreatedAt.Format(time.RFC3339),
			Domain: e.Domain,
			Event:  string(e.Event),
			Level:  e.Level,
			Score:  e.Score,
			Detail: e.Detail,
		})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Truth locks (%d):\n", len(out.Locks))
	if len(out.Locks) == 0 {
		fmt.Println("  none")
	}
	for _, row := range out.Locks {
		outcome := row.Outcome
		if outcome == "" {
			outcome = "live"
		}
		fmt.Printf("  %-10s %-22s %-24s %s\n", shortID(row.LockID), outcome, row.LockedAt, row.Deadline)
	}

	fmt.Printf("\nAudit trail (%d):\n", len(out.Audit))
	for _, row := range out.Audit {
		fmt.Printf("  %s  %-11s %-17s %-10s %3d  %s\n",
			row.At, row.Domain, row.Event, row.Level, row.Score, row.Detail)
	}
	return nil
}

// #endregion overview

// #region lock-detail

type lockDetail struct {
	lockRow
	EvidenceHash string        `json:"evidence_hash"`
	Evidence     []evidenceRow `json:"evidence"`
}

type evidenceRow struct {
	ItemID     string `json:"item_id"`
	Type       string `json:"type"`
	RecordedAt string `json:"recorded_at"`
	Hash       string `json:"integrity_hash"`
	Bytes      int    `json:"bytes"`
}

func runLockDetail(st *store.Store, lockID string, jsonOut bool) error {
	records, err := st.ListLocks(1000)
	if err != nil {
		return err
	}
	var found *store.LockRecord
	for i := range records {
		if records[i].Lock.ID == lockID {
			found = &records[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("lock %s not found", lockID)
	}

	items, err := st.ListEvidence(lockID)
	if err != nil {
		return err
	}

	out := lockDetail{
		lockRow: lockRow{
			LockID:   found.Lock.ID,
			LockedAt: found.Lock.LockedAt.Format(time.RFC3339),
			Deadline: found.Lock.UnlockDeadline.Format(time.RFC3339),
			Hours:    found.Lock.AutoReleaseHours,
			Outcome:  string(found.Outcome),
		},
		EvidenceHash: found.Lock.EvidenceHash,
	}
	if !found.ReleasedAt.IsZero() {
		out.ReleasedAt = found.ReleasedAt.Format(time.RFC3339)
	}
	for _, item := range items {
		out.Evidence = append(out.Evidence, evidenceRow{
			ItemID:     item.ID,
			Type:       item.Type,
			RecordedAt: item.Timestamp.Format(time.RFC3339),
			Hash:       item.IntegrityHash,
			Bytes:      len(item.Payload),
		})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Lock:       %s\n", out.LockID)
	fmt.Printf("Locked:     %s\n", out.LockedAt)
	fmt.Printf("Deadline:   %s (%.1fh)\n", out.Deadline, out.Hours)
	if out.Outcome != "" {
		fmt.Printf("Outcome:    %s at %s\n", out.Outcome, out.ReleasedAt)
	} else {
		fmt.Printf("Outcome:    live\n")
	}
	fmt.Printf("Snapshot:   %s\n", out.EvidenceHash)

	fmt.Printf("\nEvidence (%d items):\n", len(out.Evidence))
	for _, row := range out.Evidence {
		ok := "OK"
		if stored := row.Hash; stored != hashOf(items, row.ItemID) {
			ok = "TAMPERED"
		}
		fmt.Printf("  %-10s %-10s %6dB  %s  %s  %s\n",
			shortID(row.ItemID), row.Type, row.Bytes, row.RecordedAt, shortID(row.Hash), ok)
	}
	return nil
}

// hashOf recomputes an item's payload hash for the integrity column.
func hashOf(items []vault.EvidenceItem, itemID string) string {
	for _, item := range items {
		if item.ID == itemID {
			return vault.HashPayload(item.Payload)
		}
	}
	return ""
}

// #endregion lock-detail

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion output
