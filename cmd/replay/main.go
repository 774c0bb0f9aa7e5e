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
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	dbPath := flag.String("db", "", "path to guardian.db (journal mode)")
	verbose := flag.Bool("v", false, "print every step, not only divergences")
	flag.Parse()

	if (*fixturePath == "" && *dbPath == "") || (*fixturePath != "" && *dbPath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [-v]")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/guardian.db [-v]")
		os.Exit(2)
	}

	var f *replay.Fixture
	var err error
	if *fixturePath != "" {
		f, err = replay.LoadFixture(*fixturePath)
	} else {
		f, err = fixtureFromJournal(*dbPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(run(f, *verbose))
}

// fixtureFromJournal rebuilds the recorded timeline from the signal
// journal. No expectations: journal mode reports outcomes only.
func fixtureFromJournal(dbPath string) (*replay.Fixture, error) {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	entries, err := st.ListSignals(1000)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("signal journal is empty")
	}

	start := entries[0].RecordedAt
	f := &replay.Fixture{
		Description: fmt.Sprintf("Journal replay: %d recorded events", len(entries)),
		StartTime:   start,
	}
	for i, e := range entries {
		f.Steps = append(f.Steps, replay.FixtureStep{
			StepID:        fmt.Sprintf("s%d", i+1),
			OffsetSeconds: e.RecordedAt.Sub(start).Seconds(),
			Domain:        e.Domain,
			Kind:          e.Kind,
			Value:         e.Value,
			Description:   e.Description,
		})
	}
	return f, nil
}

// #endregion main

// #region run

func run(f *replay.Fixture, verbose bool) int {
	if f.Description != "" {
		fmt.Printf("Fixture: %s\n\n", f.Description)
	}

	results := replay.Replay(f)
	mismatches := replay.Compare(results, f.Expected)

	if verbose {
		printResults(results)
	}
	if len(f.Expected) > 0 {
		printMismatches(mismatches)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d steps, %d alerts, %d intent confirmations, %d errors, %d divergences\n",
		s.TotalSteps, s.Alerts, s.IntentConfirmations, s.Errors, len(mismatches))

	if len(mismatches) > 0 || s.Errors > 0 {
		return 1
	}
	return 0
}

func printResults(results []replay.Result) {
	fmt.Printf("%-8s| %-12s| %5s | %-11s| %s\n", "Step", "Domain", "Score", "Level", "Flags")
	fmt.Printf("%-8s+%-13s+%7s+%-12s+%s\n",
		"--------", "-------------", "-------", "------------", "---------")
	for _, r := range results {
		flags := ""
		if r.Alerted {
			flags += "alert "
		}
		if r.IntentConfirmed {
			flags += "confirmed "
		}
		if r.Err != nil {
			flags += fmt.Sprintf("err=%v", r.Err)
		}
		fmt.Printf("%-8s| %-12s| %5d | %-11s| %s\n", r.StepID, r.Domain, r.Score, r.Level, flags)
	}
	fmt.Println()
}

func printMismatches(mismatches []replay.Mismatch) {
	if len(mismatches) == 0 {
		fmt.Println("All expectations matched.")
		return
	}
	fmt.Printf("%-8s| %-18s| %-12s| %s\n", "Step", "Field", "Got", "Want")
	fmt.Printf("%-8s+%-19s+%-13s+%s\n",
		"--------", "-------------------", "-------------", "------------")
	for _, m := range mismatches {
		fmt.Printf("%-8s| %-18s| %-12s| %s\n", m.StepID, m.Field, m.Got, m.Want)
	}
}

// #endregion run
