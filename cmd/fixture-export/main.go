package main

// #region imports
import (
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/kestrel-safety/guardian/internal/replay"
	"github.com/kestrel-safety/guardian/internal/store"
)

// #endregion

// #region main

func main() {
	dbPath := flag.String("db", "", "path to guardian.db")
	last := flag.Int("last", 25, "number of most recent journal entries to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath string, last int, outPath string) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	entries, err := st.ListSignals(last)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("signal journal is empty, nothing to export")
	}

	fixture := buildFixture(entries)

	// Expectations come from a clean replay of the exported steps, so
	// the fixture is self-consistent and catches behavior drift later.
	results := replay.Replay(fixture)
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("step %s does not replay: %w", r.StepID, r.Err)
		}
		fixture.Expected = append(fixture.Expected, replay.FixtureExpected{
			StepID:          r.StepID,
			Level:           string(r.Level),
			Score:           r.Score,
			IntentConfirmed: r.IntentConfirmed,
		})
	}

	if err := replay.SaveFixture(outPath, fixture); err != nil {
		return err
	}
	fmt.Printf("Wrote fixture to %s (%d steps)\n", outPath, len(fixture.Steps))
	return nil
}

func buildFixture(entries []store.JournalEntry) *replay.Fixture {
	start := entries[0].RecordedAt
	fixture := &replay.Fixture{
		Description: fmt.Sprintf("Journal export: %d recorded events", len(entries)),
		StartTime:   start,
	}
	for i, e := range entries {
		fixture.Steps = append(fixture.Steps, replay.FixtureStep{
			StepID:        fmt.Sprintf("s%d", i+1),
			OffsetSeconds: e.RecordedAt.Sub(start).Seconds(),
			Domain:        e.Domain,
			Kind:          e.Kind,
			Value:         e.Value,
			Description:   e.Description,
		})
	}
	return fixture
}

// #endregion export
