package replay

// #region imports
import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kestrel-safety/guardian/internal/confidence"
	"github.com/kestrel-safety/guardian/internal/intent"
	"github.com/kestrel-safety/guardian/internal/monitor"
	"github.com/kestrel-safety/guardian/internal/notify"
	"github.com/kestrel-safety/guardian/internal/signal"
)

// #endregion

// #region types

// Result captures the observable state after one replayed step.
type Result struct {
	StepID          string
	Domain          string
	Score           int
	Level           confidence.Level
	IntentConfirmed bool
	Alerted         bool
	Err             error
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalSteps          int
	Alerts              int
	IntentConfirmations int
	Errors              int
}

// Mismatch is one divergence between a result and the fixture's
// expectation for that step.
type Mismatch struct {
	StepID string
	Field  string
	Got    string
	Want   string
}

// #endregion types

// #region clock

// scriptedClock serves the timestamp of the step being replayed. The
// monitors see the recorded timeline, not wall time.
type scriptedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *scriptedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *scriptedClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// countingNotifier counts alerts per replayed step.
type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Notify(_ context.Context, _ notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func (n *countingNotifier) take() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := n.count
	n.count = 0
	return c
}

// #endregion clock

// #region replay

// Replay feeds a fixture's steps through fresh monitors and a fresh
// correlator on the recorded timeline. Operates entirely in-memory.
func Replay(f *Fixture) []Result {
	clock := &scriptedClock{now: f.StartTime}
	alerts := &countingNotifier{}
	cfg := monitor.Config{Notifier: alerts, Now: clock.Now}

	monitors := map[string]interface {
		AddSignal(kind signal.Kind, value float64, description string) (confidence.State, error)
	}{
		string(signal.DomainDanger):      monitor.NewDanger(cfg),
		string(signal.DomainCoercion):    monitor.NewCoercion(cfg),
		string(signal.DomainSituational): monitor.NewSituational(cfg),
	}
	correlator := intent.New(intent.Config{Now: clock.Now})

	results := make([]Result, 0, len(f.Steps))
	for _, step := range f.Steps {
		clock.set(f.StartTime.Add(time.Duration(step.OffsetSeconds * float64(time.Second))))
		result := Result{StepID: step.StepID, Domain: step.Domain}

		switch {
		case step.Domain == "intent":
			st, err := correlator.RegisterEvent(intent.Kind(step.Kind), step.Value)
			result.Score = st.Score
			result.IntentConfirmed = st.Confirmed
			result.Err = err
		default:
			m, ok := monitors[step.Domain]
			if !ok {
				result.Err = fmt.Errorf("unknown domain %q", step.Domain)
				break
			}
			st, err := m.AddSignal(signal.Kind(step.Kind), step.Value, step.Description)
			result.Score = st.Score
			result.Level = st.Level
			result.Err = err
		}

		result.Alerted = alerts.take() > 0
		results = append(results, result)
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalSteps: len(results)}
	confirmed := false
	for _, r := range results {
		if r.Alerted {
			s.Alerts++
		}
		if r.IntentConfirmed && !confirmed {
			s.IntentConfirmations++
			confirmed = true
		}
		if r.Err != nil {
			s.Errors++
		}
	}
	return s
}

// Compare checks results against the fixture's expectations. Steps
// without an expectation entry are unchecked.
func Compare(results []Result, expected []FixtureExpected) []Mismatch {
	byStep := make(map[string]Result, len(results))
	for _, r := range results {
		byStep[r.StepID] = r
	}

	var mismatches []Mismatch
	for _, want := range expected {
		got, ok := byStep[want.StepID]
		if !ok {
			mismatches = append(mismatches, Mismatch{
				StepID: want.StepID, Field: "step", Got: "absent", Want: "present",
			})
			continue
		}
		if want.Level != "" && string(got.Level) != want.Level {
			mismatches = append(mismatches, Mismatch{
				StepID: want.StepID, Field: "level", Got: string(got.Level), Want: want.Level,
			})
		}
		if got.Score != want.Score {
			mismatches = append(mismatches, Mismatch{
				StepID: want.StepID, Field: "score",
				Got: fmt.Sprintf("%d", got.Score), Want: fmt.Sprintf("%d", want.Score),
			})
		}
		if got.IntentConfirmed != want.IntentConfirmed {
			mismatches = append(mismatches, Mismatch{
				StepID: want.StepID, Field: "intent_confirmed",
				Got: fmt.Sprintf("%t", got.IntentConfirmed), Want: fmt.Sprintf("%t", want.IntentConfirmed),
			})
		}
	}
	return mismatches
}

// #endregion replay
