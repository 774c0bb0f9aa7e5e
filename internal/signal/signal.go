package signal

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// #region domain

// Domain identifies one of the three independent monitoring domains.
type Domain string

const (
	DomainDanger      Domain = "danger"
	DomainCoercion    Domain = "coercion"
	DomainSituational Domain = "situational"
)

// #endregion domain

// #region kind

// Kind identifies the type of an observed signal within a domain.
type Kind string

// Danger domain kinds.
const (
	KindMotion     Kind = "motion"
	KindVoice      Kind = "voice"
	KindInactivity Kind = "inactivity"
	KindLocation   Kind = "location"
	KindTime       Kind = "time"
)

// Coercion domain kinds.
const (
	KindForcedUnlock    Kind = "forced_unlock"
	KindShakingHands    Kind = "shaking_hands"
	KindErraticTouch    Kind = "erratic_touch"
	KindRapidNavigation Kind = "rapid_navigation"
	KindUnusualTiming   Kind = "unusual_timing"
	KindStressPattern   Kind = "stress_pattern"
)

// Situational domain kinds (motion, location, time shared with danger).
const (
	KindHandling  Kind = "handling"
	KindNoise     Kind = "noise"
	KindRoutine   Kind = "routine"
	KindStillness Kind = "stillness"
)

// #endregion kind

// #region errors

var (
	// ErrUnknownKind is returned when a signal kind is not part of the
	// target domain's weight table.
	ErrUnknownKind = errors.New("unknown signal kind for domain")
	// ErrNegativeValue is returned when a signal value is below zero.
	ErrNegativeValue = errors.New("signal value must be non-negative")
)

// #endregion errors

// #region signal

// Signal is a single timestamped, typed, valued observation. Immutable
// once created; the aggregator never rewrites a recorded signal.
type Signal struct {
	ID          string
	Kind        Kind
	Value       float64
	Timestamp   time.Time
	Description string
}

// New builds a Signal with a fresh ID. Validation against a domain's
// weight table happens at the aggregator, which knows the domain.
func New(kind Kind, value float64, description string, now time.Time) Signal {
	return Signal{
		ID:          uuid.New().String(),
		Kind:        kind,
		Value:       value,
		Timestamp:   now,
		Description: description,
	}
}

// #endregion signal

// #region weights

// danger weights favor direct observations over circumstantial ones.
var dangerWeights = map[Kind]float64{
	KindMotion:     1.2,
	KindVoice:      1.5,
	KindInactivity: 1.0,
	KindLocation:   0.9,
	KindTime:       0.7,
}

var coercionWeights = map[Kind]float64{
	KindForcedUnlock:    1.5,
	KindShakingHands:    1.3,
	KindErraticTouch:    1.2,
	KindRapidNavigation: 1.0,
	KindUnusualTiming:   0.8,
	KindStressPattern:   1.4,
}

var situationalWeights = map[Kind]float64{
	KindMotion:    1.1,
	KindLocation:  1.0,
	KindTime:      0.8,
	KindHandling:  1.2,
	KindNoise:     0.9,
	KindRoutine:   0.7,
	KindStillness: 1.0,
}

// Weights returns the fixed weight table for a domain. The tables are
// closed: a kind absent from the table is rejected at ingestion.
func Weights(domain Domain) map[Kind]float64 {
	switch domain {
	case DomainDanger:
		return dangerWeights
	case DomainCoercion:
		return coercionWeights
	case DomainSituational:
		return situationalWeights
	default:
		return nil
	}
}

// Validate checks a (kind, value) pair against a domain's weight table.
func Validate(domain Domain, kind Kind, value float64) error {
	if _, ok := Weights(domain)[kind]; !ok {
		return ErrUnknownKind
	}
	if value < 0 {
		return ErrNegativeValue
	}
	return nil
}

// #endregion weights
