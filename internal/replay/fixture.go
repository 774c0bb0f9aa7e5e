package replay

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// #endregion

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. Steps
// carry offsets from StartTime so a recorded incident replays with the
// exact decay behavior of the original timeline.
type Fixture struct {
	Description string            `json:"description"`
	StartTime   time.Time         `json:"start_time"`
	Steps       []FixtureStep     `json:"steps"`
	Expected    []FixtureExpected `json:"expected"`
}

// FixtureStep is one recorded event. Domain selects the target: danger,
// coercion, and situational feed the matching monitor, intent feeds the
// correlator. For intent steps Value is the detector confidence in [0,1].
type FixtureStep struct {
	StepID        string  `json:"step_id"`
	OffsetSeconds float64 `json:"offset_seconds"`
	Domain        string  `json:"domain"`
	Kind          string  `json:"kind"`
	Value         float64 `json:"value"`
	Description   string  `json:"description,omitempty"`
}

// FixtureExpected captures the expected observable state after a step.
type FixtureExpected struct {
	StepID          string `json:"step_id"`
	Level           string `json:"level,omitempty"`
	Score           int    `json:"score"`
	IntentConfirmed bool   `json:"intent_confirmed,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.StartTime.IsZero() {
		return nil, fmt.Errorf("fixture %s: start_time required", path)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader
