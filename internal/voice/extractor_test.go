package voice

import (
	"errors"
	"math"
	"testing"
)

// #region synth

// sineWave synthesizes a fixed-point sine at the given frequency.
func sineWave(freq float64, sampleRate, n int, amplitude float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		out[i] = int16(v * 32000)
	}
	return out
}

// #endregion synth

// #region extract-tests

func TestExtract_EmptyBuffer(t *testing.T) {
	_, err := Extract(nil, 8000)
	if !errors.Is(err, ErrEmptySample) {
		t.Fatalf("expected ErrEmptySample, got %v", err)
	}
}

func TestExtract_BadSampleRate(t *testing.T) {
	_, err := Extract(make([]int16, 100), 0)
	if !errors.Is(err, ErrBadSampleRate) {
		t.Fatalf("expected ErrBadSampleRate, got %v", err)
	}
}

func TestExtract_PitchOfSine(t *testing.T) {
	// 220 Hz at 8 kHz: period ~36.4 samples, inside the [20, 500] lag range.
	vec, err := Extract(sineWave(220, 8000, 4000, 0.8), 8000)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if vec.Pitch < 200 || vec.Pitch > 245 {
		t.Fatalf("pitch = %.1f Hz, want ~220", vec.Pitch)
	}
}

func TestExtract_EnergyOfFullScaleSine(t *testing.T) {
	vec, err := Extract(sineWave(220, 8000, 4000, 1.0), 8000)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// RMS of a sine is amplitude/sqrt(2); amplitude here is 32000/32768.
	want := (32000.0 / 32768.0) / math.Sqrt2
	if math.Abs(vec.Energy-want) > 0.02 {
		t.Fatalf("energy = %.4f, want ~%.4f", vec.Energy, want)
	}
}

func TestExtract_ZeroCrossingRateScalesWithFrequency(t *testing.T) {
	low, _ := Extract(sineWave(110, 8000, 4000, 0.8), 8000)
	high, _ := Extract(sineWave(440, 8000, 4000, 0.8), 8000)
	if high.ZeroCrossingRate <= low.ZeroCrossingRate {
		t.Fatalf("zcr(440Hz)=%.4f should exceed zcr(110Hz)=%.4f",
			high.ZeroCrossingRate, low.ZeroCrossingRate)
	}
}

func TestExtract_SilenceHasZeroEnergyAndCentroid(t *testing.T) {
	vec, err := Extract(make([]int16, 1000), 8000)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if vec.Energy != 0 {
		t.Fatalf("energy = %v, want 0", vec.Energy)
	}
	if vec.SpectralCentroid != 0 {
		t.Fatalf("centroid = %v, want 0", vec.SpectralCentroid)
	}
	if vec.ZeroCrossingRate != 0 {
		t.Fatalf("zcr = %v, want 0", vec.ZeroCrossingRate)
	}
}

func TestExtract_ShortBufferHasNoPitch(t *testing.T) {
	vec, err := Extract(sineWave(220, 8000, 15, 0.8), 8000)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if vec.Pitch != 0 {
		t.Fatalf("pitch = %v for buffer shorter than min lag, want 0", vec.Pitch)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	wave := sineWave(330, 8000, 2000, 0.6)
	a, _ := Extract(wave, 8000)
	b, _ := Extract(wave, 8000)
	if a != b {
		t.Fatal("identical buffers must yield identical feature vectors")
	}
}

// #endregion extract-tests
