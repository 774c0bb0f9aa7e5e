package confidence

import (
	"math"
	"time"

	"github.com/kestrel-safety/guardian/internal/signal"
)

// #region aggregator

// Aggregator turns a bounded history of signals into a 0-100 confidence
// score with linear decay. It is not goroutine-safe on its own: the
// owning monitor serializes ingestion (single-writer discipline).
type Aggregator struct {
	profile Profile
	history *signal.History
}

// NewAggregator creates an aggregator for one domain profile.
func NewAggregator(profile Profile) *Aggregator {
	return &Aggregator{
		profile: profile,
		history: signal.NewHistory(profile.HistoryCapacity),
	}
}

// Profile returns the domain constants this aggregator scores with.
func (a *Aggregator) Profile() Profile {
	return a.profile
}

// #endregion aggregator

// #region add-signal

// AddSignal validates and appends a signal, then recomputes the state at
// the signal's own instant. Invalid input leaves the history unchanged.
func (a *Aggregator) AddSignal(kind signal.Kind, value float64, description string, now time.Time) (State, error) {
	if err := signal.Validate(a.profile.Domain, kind, value); err != nil {
		return a.StateAt(now), err
	}
	a.history.Append(signal.New(kind, value, description, now))
	return a.StateAt(now), nil
}

// #endregion add-signal

// #region state-at

// StateAt evaluates the current history at an explicit instant. Decay is
// lazy: no periodic re-scan is needed, any poll recomputes from scratch.
func (a *Aggregator) StateAt(now time.Time) State {
	items := a.history.Items()

	var sum float64
	for _, s := range items {
		ageMinutes := now.Sub(s.Timestamp).Minutes()
		decay := 1 - ageMinutes/a.profile.HalfLifeMinutes
		if decay < 0 {
			decay = 0
		}
		if decay > 1 {
			// Clock skew can put a timestamp in the future; cap at full weight.
			decay = 1
		}
		sum += s.Value * a.profile.Weights[s.Kind] * decay
	}

	score := int(math.Round(sum / a.profile.Normalizer))
	if score > 100 {
		score = 100
	}

	return State{
		Score:   score,
		Level:   a.levelFor(score),
		Signals: items,
	}
}

// levelFor maps a score onto the profile's threshold ladder.
func (a *Aggregator) levelFor(score int) Level {
	for _, t := range a.profile.Thresholds {
		if score >= t.Min {
			return t.Level
		}
	}
	return a.profile.Lowest
}

// #endregion state-at
