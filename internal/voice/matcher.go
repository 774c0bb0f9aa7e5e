package voice

import (
	"errors"
	"math"
	"sync"
	"time"
)

// #region constants

const (
	// EnrollmentSamples is the exact number of reference samples a
	// voiceprint is built from.
	EnrollmentSamples = 5
	// MatchThreshold is the fixed similarity bar for a positive match.
	MatchThreshold = 0.75
	// NeutralSimilarity is reported when no references exist: "no data"
	// is neither "no match" nor "full match".
	NeutralSimilarity = 0.5
)

// #endregion constants

// #region errors

var (
	// ErrNoVoiceprint is returned when matching without enrolled references.
	ErrNoVoiceprint = errors.New("no enrolled voiceprint")
	// ErrEnrollmentComplete is returned when adding a sample past the limit.
	ErrEnrollmentComplete = errors.New("enrollment already has all samples")
	// ErrEnrollmentIncomplete is returned when finalizing early.
	ErrEnrollmentIncomplete = errors.New("enrollment requires exactly 5 samples")
	// ErrAlreadyFinalized is returned on a second finalize; re-enrollment
	// requires a full reset.
	ErrAlreadyFinalized = errors.New("voiceprint already finalized")
)

// #endregion errors

// #region similarity

// similarity weights; they sum to 1.0 so no renormalization is needed.
const (
	weightMFCC     = 0.4
	weightPitch    = 0.25
	weightEnergy   = 0.15
	weightCentroid = 0.1
	weightZCR      = 0.1
)

// Similarity computes the weighted 0-1 similarity between two feature
// vectors.
func Similarity(a, b FeatureVector) float64 {
	var mfccSum float64
	for i := range a.MFCC {
		mfccSum += 1 / (1 + math.Abs(a.MFCC[i]-b.MFCC[i]))
	}
	mfccSim := mfccSum / float64(len(a.MFCC))

	pitchSim := 1 / (1 + math.Abs(a.Pitch-b.Pitch)/100)
	energySim := 1 / (1 + math.Abs(a.Energy-b.Energy)*10)
	centroidSim := 1 / (1 + math.Abs(a.SpectralCentroid-b.SpectralCentroid)/100)
	zcrSim := 1 / (1 + math.Abs(a.ZeroCrossingRate-b.ZeroCrossingRate)*10)

	return weightMFCC*mfccSim +
		weightPitch*pitchSim +
		weightEnergy*energySim +
		weightCentroid*centroidSim +
		weightZCR*zcrSim
}

// #endregion similarity

// #region voiceprint

// Voiceprint is the finalized set of enrollment references for one user.
// Immutable after creation; re-enrollment starts from a full reset.
type Voiceprint struct {
	References [EnrollmentSamples]FeatureVector
	CreatedAt  time.Time
}

// MatchResult reports one verification attempt.
type MatchResult struct {
	Similarity float64
	Match      bool
}

// Match compares a probe against every stored reference and averages the
// similarities. Averaging (rather than best-match) penalizes inconsistent
// enrollment samples instead of rewarding a single lucky hit.
func Match(probe FeatureVector, vp *Voiceprint) (MatchResult, error) {
	if vp == nil {
		return MatchResult{Similarity: NeutralSimilarity}, ErrNoVoiceprint
	}
	var sum float64
	for _, ref := range vp.References {
		sum += Similarity(probe, ref)
	}
	avg := sum / EnrollmentSamples
	return MatchResult{Similarity: avg, Match: avg >= MatchThreshold}, nil
}

// #endregion voiceprint

// #region enrollment

// Enrollment accumulates reference samples toward a voiceprint.
type Enrollment struct {
	mu        sync.Mutex
	samples   []FeatureVector
	finalized bool
	now       func() time.Time
}

// NewEnrollment creates an empty enrollment. now may be nil (wall clock).
func NewEnrollment(now func() time.Time) *Enrollment {
	if now == nil {
		now = time.Now
	}
	return &Enrollment{now: now}
}

// AddSample records one reference vector and returns the running count.
func (e *Enrollment) AddSample(v FeatureVector) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return len(e.samples), ErrAlreadyFinalized
	}
	if len(e.samples) >= EnrollmentSamples {
		return len(e.samples), ErrEnrollmentComplete
	}
	e.samples = append(e.samples, v)
	return len(e.samples), nil
}

// Count returns the number of samples collected so far.
func (e *Enrollment) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.samples)
}

// Finalize builds the voiceprint. One-way: after a successful finalize
// the enrollment accepts nothing more until Reset.
func (e *Enrollment) Finalize() (*Voiceprint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return nil, ErrAlreadyFinalized
	}
	if len(e.samples) != EnrollmentSamples {
		return nil, ErrEnrollmentIncomplete
	}
	vp := &Voiceprint{CreatedAt: e.now()}
	copy(vp.References[:], e.samples)
	e.finalized = true
	return vp, nil
}

// Reset discards all samples and the finalized flag.
func (e *Enrollment) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samples = nil
	e.finalized = false
}

// #endregion enrollment
