package confidence

import "github.com/kestrel-safety/guardian/internal/signal"

// #region level

// Level is an ordered named state derived from the current score.
// Each domain has its own ladder; levels only carry meaning within
// their profile's threshold table.
type Level string

// Danger ladder.
const (
	LevelSafe      Level = "safe"
	LevelUncertain Level = "uncertain"
	LevelHigh      Level = "high"
	LevelEmergency Level = "emergency"
)

// Coercion ladder (shares "none" with situational).
const (
	LevelNone      Level = "none"
	LevelSuspected Level = "suspected"
	LevelConfirmed Level = "confirmed"
)

// Situational ladder.
const (
	LevelMonitoring Level = "monitoring"
	LevelArmed      Level = "armed"
	LevelCritical   Level = "critical"
)

// #endregion level

// #region threshold

// Threshold maps a minimum score to a level. Tables are ordered by
// descending Min; the first entry the score reaches wins.
type Threshold struct {
	Min   int
	Level Level
}

// #endregion threshold

// #region profile

// Profile fixes the scoring constants for one domain. Weight tables,
// half-lives, and thresholds are compiled in: an unrecognized kind is
// a rejection at ingestion, never a silent zero weight.
type Profile struct {
	Domain          signal.Domain
	Weights         map[signal.Kind]float64
	HalfLifeMinutes float64 // decay reaches zero at this age
	Normalizer      float64 // divisor keeping one strong signal below saturation
	HistoryCapacity int
	Thresholds      []Threshold // descending by Min
	Lowest          Level
	Highest         Level
}

// DangerProfile returns the overt-danger domain constants.
func DangerProfile() Profile {
	return Profile{
		Domain:          signal.DomainDanger,
		Weights:         signal.Weights(signal.DomainDanger),
		HalfLifeMinutes: 10,
		Normalizer:      2.5,
		HistoryCapacity: 40,
		Thresholds: []Threshold{
			{Min: 80, Level: LevelEmergency},
			{Min: 60, Level: LevelHigh},
			{Min: 30, Level: LevelUncertain},
		},
		Lowest:  LevelSafe,
		Highest: LevelEmergency,
	}
}

// CoercionProfile returns the coercion-risk domain constants. Coercion
// decays fastest: stale duress signals lose relevance within minutes.
func CoercionProfile() Profile {
	return Profile{
		Domain:          signal.DomainCoercion,
		Weights:         signal.Weights(signal.DomainCoercion),
		HalfLifeMinutes: 5,
		Normalizer:      2.0,
		HistoryCapacity: 30,
		Thresholds: []Threshold{
			{Min: 70, Level: LevelConfirmed},
			{Min: 40, Level: LevelSuspected},
		},
		Lowest:  LevelNone,
		Highest: LevelConfirmed,
	}
}

// SituationalProfile returns the pre-danger situational-risk constants.
func SituationalProfile() Profile {
	return Profile{
		Domain:          signal.DomainSituational,
		Weights:         signal.Weights(signal.DomainSituational),
		HalfLifeMinutes: 15,
		Normalizer:      3.0,
		HistoryCapacity: 50,
		Thresholds: []Threshold{
			{Min: 75, Level: LevelCritical},
			{Min: 50, Level: LevelArmed},
			{Min: 25, Level: LevelMonitoring},
		},
		Lowest:  LevelNone,
		Highest: LevelCritical,
	}
}

// #endregion profile

// #region state

// State is the derived output of an aggregator evaluation. It is a pure
// function of the history and the evaluation instant, never persisted
// independently of its inputs.
type State struct {
	Score   int
	Level   Level
	Signals []signal.Signal
}

// #endregion state
