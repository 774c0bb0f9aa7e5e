package logging

// #region imports
import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #endregion

// #region fixtures

func tempAuditLog(t *testing.T) *AuditLog {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	a, err := NewAuditLog(db)
	if err != nil {
		t.Fatalf("NewAuditLog: %v", err)
	}
	return a
}

// #endregion fixtures

// #region tests

func TestRecordAndList(t *testing.T) {
	a := tempAuditLog(t)
	at := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Domain: "danger", Event: EventEscalation, Level: "high", Score: 65, CreatedAt: at},
		{Domain: "danger", Event: EventTopCrossing, Level: "emergency", Score: 82, CreatedAt: at.Add(time.Minute)},
		{Domain: "vault", Event: EventLockCreated, Detail: "auto-release in 24.0h", CreatedAt: at.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := a.Record(e); err != nil {
			t.Fatalf("Record(%s): %v", e.Event, err)
		}
	}

	got, err := a.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entry count = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].Event != EventLockCreated {
		t.Errorf("first entry = %s, want %s", got[0].Event, EventLockCreated)
	}
	if got[2].Score != 65 || got[2].Level != "high" {
		t.Errorf("oldest entry = score %d level %q, want 65 high", got[2].Score, got[2].Level)
	}
	if !got[0].CreatedAt.Equal(at.Add(2 * time.Minute)) {
		t.Errorf("timestamp round-trip = %v, want %v", got[0].CreatedAt, at.Add(2*time.Minute))
	}
}

func TestListByDomain_OldestFirstAndFiltered(t *testing.T) {
	a := tempAuditLog(t)
	at := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)

	a.Record(Entry{Domain: "coercion", Event: EventEscalation, Level: "suspected", Score: 47, CreatedAt: at})
	a.Record(Entry{Domain: "danger", Event: EventEscalation, Level: "uncertain", Score: 34, CreatedAt: at.Add(time.Minute)})
	a.Record(Entry{Domain: "coercion", Event: EventTopCrossing, Level: "confirmed", Score: 75, CreatedAt: at.Add(2 * time.Minute)})

	got, err := a.ListByDomain("coercion", 10)
	if err != nil {
		t.Fatalf("ListByDomain: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entry count = %d, want 2", len(got))
	}
	if got[0].Event != EventEscalation || got[1].Event != EventTopCrossing {
		t.Errorf("entries out of recorded order: %s, %s", got[0].Event, got[1].Event)
	}
}

func TestRecord_FillsMissingTimestamp(t *testing.T) {
	a := tempAuditLog(t)
	if err := a.Record(Entry{Domain: "intent", Event: EventIntentConfirmed}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := a.List(1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].CreatedAt.IsZero() {
		t.Fatal("missing timestamp must be filled at record time")
	}
}

func TestDiscard(t *testing.T) {
	var r Recorder = Discard{}
	if err := r.Record(Entry{Event: EventEscalation}); err != nil {
		t.Fatalf("Discard.Record: %v", err)
	}
}

// #endregion tests
