package voice

import (
	"context"
	"errors"
	"testing"
)

// #region helpers

// enrolledVoiceprint builds a voiceprint from five near-identical takes
// of the same 220 Hz tone (amplitude varies slightly per take).
func enrolledVoiceprint(t *testing.T) *Voiceprint {
	t.Helper()
	e := NewEnrollment(nil)
	amplitudes := []float64{0.80, 0.79, 0.81, 0.80, 0.78}
	for _, amp := range amplitudes {
		vec, err := Extract(sineWave(220, 8000, 4000, amp), 8000)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if _, err := e.AddSample(vec); err != nil {
			t.Fatalf("AddSample: %v", err)
		}
	}
	vp, err := e.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return vp
}

// #endregion helpers

// #region similarity-tests

func TestSimilarity_IdenticalVectorsIsOne(t *testing.T) {
	vec, _ := Extract(sineWave(220, 8000, 4000, 0.8), 8000)
	if sim := Similarity(vec, vec); sim < 0.999 {
		t.Fatalf("self-similarity = %v, want ~1", sim)
	}
}

func TestSimilarity_DissimilarVectorsScoreLow(t *testing.T) {
	a := FeatureVector{Pitch: 100, Energy: 0.1, SpectralCentroid: 300, ZeroCrossingRate: 0.05}
	b := FeatureVector{Pitch: 400, Energy: 0.9, SpectralCentroid: 900, ZeroCrossingRate: 0.5}
	for i := range a.MFCC {
		a.MFCC[i] = -2
		b.MFCC[i] = -8
	}
	if sim := Similarity(a, b); sim >= MatchThreshold {
		t.Fatalf("similarity = %v, want < %v", sim, MatchThreshold)
	}
}

// #endregion similarity-tests

// #region match-tests

func TestMatch_ProbeIdenticalToReference(t *testing.T) {
	vp := enrolledVoiceprint(t)
	probe := vp.References[0]

	result, err := Match(probe, vp)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !result.Match {
		t.Fatalf("expected match, similarity = %v", result.Similarity)
	}
	if result.Similarity < MatchThreshold {
		t.Fatalf("similarity = %v, want >= %v", result.Similarity, MatchThreshold)
	}
}

func TestMatch_UnrelatedProbeRejected(t *testing.T) {
	vp := enrolledVoiceprint(t)
	// Very different voice: much higher pitch, quieter, noisier spectrum.
	probe := FeatureVector{Pitch: 2000, Energy: 0.02, SpectralCentroid: 3500, ZeroCrossingRate: 0.6}
	for i := range probe.MFCC {
		probe.MFCC[i] = -12
	}

	result, err := Match(probe, vp)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Match {
		t.Fatalf("expected rejection, similarity = %v", result.Similarity)
	}
}

func TestMatch_AveragesAcrossAllReferences(t *testing.T) {
	// One deliberately bad reference drags the average below a lucky
	// best-match: averaging penalizes inconsistent enrollment.
	e := NewEnrollment(nil)
	good, _ := Extract(sineWave(220, 8000, 4000, 0.8), 8000)
	bad := FeatureVector{Pitch: 3000, Energy: 0.01, SpectralCentroid: 3800, ZeroCrossingRate: 0.7}
	for i := range bad.MFCC {
		bad.MFCC[i] = -13
	}
	for i := 0; i < EnrollmentSamples-1; i++ {
		e.AddSample(good)
	}
	e.AddSample(bad)
	vp, err := e.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	result, _ := Match(good, vp)
	bestOnly := Similarity(good, good)
	if result.Similarity >= bestOnly {
		t.Fatalf("average %v should be below best-match %v", result.Similarity, bestOnly)
	}
}

func TestMatch_NoVoiceprintIsNeutral(t *testing.T) {
	probe, _ := Extract(sineWave(220, 8000, 4000, 0.8), 8000)
	result, err := Match(probe, nil)
	if !errors.Is(err, ErrNoVoiceprint) {
		t.Fatalf("expected ErrNoVoiceprint, got %v", err)
	}
	if result.Similarity != NeutralSimilarity {
		t.Fatalf("similarity = %v, want neutral %v", result.Similarity, NeutralSimilarity)
	}
	if result.Match {
		t.Fatal("no data must not report a match")
	}
}

// #endregion match-tests

// #region enrollment-tests

func TestEnrollment_RequiresExactlyFiveSamples(t *testing.T) {
	e := NewEnrollment(nil)
	vec, _ := Extract(sineWave(220, 8000, 2000, 0.8), 8000)

	for i := 1; i <= EnrollmentSamples; i++ {
		n, err := e.AddSample(vec)
		if err != nil {
			t.Fatalf("AddSample %d: %v", i, err)
		}
		if n != i {
			t.Fatalf("count = %d, want %d", n, i)
		}
		if i < EnrollmentSamples {
			if _, err := e.Finalize(); !errors.Is(err, ErrEnrollmentIncomplete) {
				t.Fatalf("early finalize at %d samples: %v", i, err)
			}
		}
	}

	if _, err := e.AddSample(vec); !errors.Is(err, ErrEnrollmentComplete) {
		t.Fatalf("expected ErrEnrollmentComplete, got %v", err)
	}
	if _, err := e.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func TestEnrollment_FinalizeIsOneWay(t *testing.T) {
	vp := enrolledVoiceprint(t)
	if vp == nil {
		t.Fatal("expected voiceprint")
	}

	e := NewEnrollment(nil)
	vec, _ := Extract(sineWave(220, 8000, 2000, 0.8), 8000)
	for i := 0; i < EnrollmentSamples; i++ {
		e.AddSample(vec)
	}
	if _, err := e.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := e.Finalize(); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("second finalize: %v", err)
	}
	if _, err := e.AddSample(vec); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("add after finalize: %v", err)
	}

	e.Reset()
	if e.Count() != 0 {
		t.Fatal("reset must discard samples")
	}
	if _, err := e.AddSample(vec); err != nil {
		t.Fatalf("add after reset: %v", err)
	}
}

// #endregion enrollment-tests

// #region verifier-tests

// scriptedSource replays canned captures, failing when exhausted.
type scriptedSource struct {
	waves [][]int16
	rate  int
	calls int
}

func (s *scriptedSource) RecordSample(context.Context) ([]int16, int, error) {
	if s.calls >= len(s.waves) {
		return nil, 0, errors.New("microphone unavailable")
	}
	w := s.waves[s.calls]
	s.calls++
	return w, s.rate, nil
}

func TestVerifier_EnrollVerifyRoundTrip(t *testing.T) {
	waves := make([][]int16, 0, EnrollmentSamples+1)
	for i := 0; i < EnrollmentSamples; i++ {
		waves = append(waves, sineWave(220, 8000, 4000, 0.8))
	}
	waves = append(waves, sineWave(220, 8000, 4000, 0.8)) // probe
	v := NewVerifier(&scriptedSource{waves: waves, rate: 8000}, VerifierConfig{})

	ctx := context.Background()
	for i := 0; i < EnrollmentSamples; i++ {
		if _, err := v.Enroll(ctx); err != nil {
			t.Fatalf("Enroll %d: %v", i, err)
		}
	}
	if err := v.FinalizeEnrollment(); err != nil {
		t.Fatalf("FinalizeEnrollment: %v", err)
	}
	if !v.Enrolled() {
		t.Fatal("expected enrolled verifier")
	}

	result, err := v.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Match {
		t.Fatalf("expected match, similarity = %v", result.Similarity)
	}
}

func TestVerifier_CaptureFailureSurfaces(t *testing.T) {
	v := NewVerifier(&scriptedSource{}, VerifierConfig{})
	if _, err := v.Enroll(context.Background()); err == nil {
		t.Fatal("expected capture error to surface")
	}
}

func TestVerifier_VerifyWithoutEnrollment(t *testing.T) {
	v := NewVerifier(&scriptedSource{
		waves: [][]int16{sineWave(220, 8000, 4000, 0.8)},
		rate:  8000,
	}, VerifierConfig{})

	result, err := v.Verify(context.Background())
	if !errors.Is(err, ErrNoVoiceprint) {
		t.Fatalf("expected ErrNoVoiceprint, got %v", err)
	}
	if result.Similarity != NeutralSimilarity {
		t.Fatalf("similarity = %v, want neutral", result.Similarity)
	}
}

// #endregion verifier-tests
