package voice

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/kestrel-safety/guardian/internal/logging"
	"github.com/kestrel-safety/guardian/internal/metrics"
)

// #region sample-source

// SampleSource is the capture collaborator: it owns microphone access and
// hands back already-sampled audio. Retry policy on capture failure
// belongs to the collaborator, not here.
type SampleSource interface {
	RecordSample(ctx context.Context) (samples []int16, sampleRate int, err error)
}

// #endregion sample-source

// #region verifier

// Verifier ties capture, enrollment, and matching into the biometric
// interface the rest of the app consumes.
type Verifier struct {
	source SampleSource
	cfg    VerifierConfig

	mu         sync.Mutex
	enrollment *Enrollment
	voiceprint *Voiceprint
}

// VerifierConfig wires optional collaborators.
type VerifierConfig struct {
	Audit   logging.Recorder
	Metrics *metrics.Metrics
}

// NewVerifier creates a verifier over a capture collaborator.
func NewVerifier(source SampleSource, cfg VerifierConfig) *Verifier {
	if cfg.Audit == nil {
		cfg.Audit = logging.Discard{}
	}
	return &Verifier{
		source:     source,
		cfg:        cfg,
		enrollment: NewEnrollment(nil),
	}
}

// #endregion verifier

// #region enroll

// Enroll captures one sample and adds it to the open enrollment.
// Returns the running sample count.
func (v *Verifier) Enroll(ctx context.Context) (int, error) {
	samples, rate, err := v.source.RecordSample(ctx)
	if err != nil {
		return v.enrollmentCount(), fmt.Errorf("capture enrollment sample: %w", err)
	}
	vec, err := Extract(samples, rate)
	if err != nil {
		return v.enrollmentCount(), fmt.Errorf("extract enrollment sample: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enrollment.AddSample(vec)
}

// FinalizeEnrollment turns the collected samples into the voiceprint.
func (v *Verifier) FinalizeEnrollment() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	vp, err := v.enrollment.Finalize()
	if err != nil {
		return err
	}
	v.voiceprint = vp
	if err := v.cfg.Audit.Record(logging.Entry{
		Domain: "voice",
		Event:  logging.EventVoiceEnrolled,
		Detail: fmt.Sprintf("%d reference samples", EnrollmentSamples),
	}); err != nil {
		log.Printf("[VOICE] audit record failed: %v", err)
	}
	return nil
}

// Enrolled reports whether a voiceprint exists.
func (v *Verifier) Enrolled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.voiceprint != nil
}

// Reset discards the voiceprint and any partial enrollment. Full
// re-enrollment is the only path to a new voiceprint.
func (v *Verifier) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.voiceprint = nil
	v.enrollment.Reset()
}

func (v *Verifier) enrollmentCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enrollment.Count()
}

// #endregion enroll

// #region verify

// Verify captures a probe sample and matches it against the voiceprint.
func (v *Verifier) Verify(ctx context.Context) (MatchResult, error) {
	samples, rate, err := v.source.RecordSample(ctx)
	if err != nil {
		return MatchResult{}, fmt.Errorf("capture probe sample: %w", err)
	}
	vec, err := Extract(samples, rate)
	if err != nil {
		return MatchResult{}, fmt.Errorf("extract probe sample: %w", err)
	}

	v.mu.Lock()
	vp := v.voiceprint
	v.mu.Unlock()

	result, err := Match(vec, vp)
	if err != nil {
		return result, err
	}

	outcome := "reject"
	if result.Match {
		outcome = "match"
	}
	if v.cfg.Metrics != nil {
		v.cfg.Metrics.VoiceMatches.WithLabelValues(outcome).Inc()
	}
	if err := v.cfg.Audit.Record(logging.Entry{
		Domain: "voice",
		Event:  logging.EventVoiceMatch,
		Score:  int(result.Similarity * 100),
		Detail: outcome,
	}); err != nil {
		log.Printf("[VOICE] audit record failed: %v", err)
	}
	return result, nil
}

// #endregion verify
