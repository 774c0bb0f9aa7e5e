package replay

// #region imports
import (
	"os"
	"path/filepath"
	"testing"
)

// #endregion

// #region fixture-tests

func TestFixture_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incident.json")
	original := coercionFixture()
	if err := SaveFixture(path, original); err != nil {
		t.Fatalf("SaveFixture: %v", err)
	}

	loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if loaded.Description != original.Description {
		t.Errorf("description = %q, want %q", loaded.Description, original.Description)
	}
	if !loaded.StartTime.Equal(original.StartTime) {
		t.Errorf("start time = %v, want %v", loaded.StartTime, original.StartTime)
	}
	if len(loaded.Steps) != len(original.Steps) {
		t.Fatalf("step count = %d, want %d", len(loaded.Steps), len(original.Steps))
	}
	if loaded.Steps[1].Kind != "shaking_hands" || loaded.Steps[1].OffsetSeconds != 60 {
		t.Errorf("step 2 = %+v", loaded.Steps[1])
	}

	// The loaded fixture replays identically.
	if mismatches := Compare(Replay(loaded), loaded.Expected); len(mismatches) != 0 {
		t.Errorf("loaded fixture diverged: %+v", mismatches)
	}
}

func TestLoadFixture_MissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestLoadFixture_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFixture_MissingStartTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-start.json")
	os.WriteFile(path, []byte(`{"description":"x","steps":[]}`), 0o644)
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for zero start_time")
	}
}

// #endregion fixture-tests
