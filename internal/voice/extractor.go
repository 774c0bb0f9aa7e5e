package voice

import (
	"errors"
	"math"
)

// #region errors

var (
	// ErrEmptySample is returned for a zero-length sample buffer.
	ErrEmptySample = errors.New("empty audio sample buffer")
	// ErrBadSampleRate is returned for a non-positive sample rate.
	ErrBadSampleRate = errors.New("sample rate must be positive")
)

// #endregion errors

// #region feature-vector

// FeatureVector is a fixed summary of one audio sample. Produced once
// per enrollment sample and once per verification attempt, never mutated.
type FeatureVector struct {
	MFCC             [13]float64
	Pitch            float64 // Hz, 0 when no autocorrelation peak found
	Energy           float64
	SpectralCentroid float64
	ZeroCrossingRate float64
}

// #endregion feature-vector

// #region extract

const (
	mfccBins   = 13
	minPitchLag = 20
	maxPitchLag = 500
	logFloor   = 1e-6
)

// Extract computes a feature vector from fixed-point time-domain audio.
// These are cheap heuristic features, not a certified biometric front end:
// the spectral term is an index-weighted centroid standing in for an
// FFT-based one, and the 13-bin vector is mean log-magnitude per
// partition rather than true MFCCs.
func Extract(samples []int16, sampleRate int) (FeatureVector, error) {
	if len(samples) == 0 {
		return FeatureVector{}, ErrEmptySample
	}
	if sampleRate <= 0 {
		return FeatureVector{}, ErrBadSampleRate
	}

	norm := make([]float64, len(samples))
	for i, s := range samples {
		norm[i] = float64(s) / (1 << 15)
	}

	return FeatureVector{
		MFCC:             mfccLike(norm),
		Pitch:            pitchEstimate(norm, sampleRate),
		Energy:           rms(norm),
		SpectralCentroid: spectralCentroid(norm),
		ZeroCrossingRate: zeroCrossingRate(norm),
	}, nil
}

// #endregion extract

// #region features

// rms computes the root-mean-square energy of the normalized buffer.
func rms(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// zeroCrossingRate counts sign changes per sample.
func zeroCrossingRate(samples []float64) float64 {
	var crossings int
	for i := 1; i < len(samples); i++ {
		if (samples[i] >= 0) != (samples[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples))
}

// spectralCentroid computes the index-weighted centroid of absolute
// magnitudes. Returns 0 for an all-zero buffer.
func spectralCentroid(samples []float64) float64 {
	var weighted, total float64
	for i, s := range samples {
		mag := math.Abs(s)
		weighted += float64(i) * mag
		total += mag
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// pitchEstimate finds the autocorrelation peak over lags [20, 500] and
// converts the winning lag to Hz. Returns 0 when the buffer is shorter
// than the minimum lag or no positive correlation exists.
func pitchEstimate(samples []float64, sampleRate int) float64 {
	maxLag := maxPitchLag
	if maxLag >= len(samples) {
		maxLag = len(samples) - 1
	}
	if maxLag < minPitchLag {
		return 0
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minPitchLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(samples); i++ {
			corr += samples[i] * samples[i+lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}

// mfccLike computes per-bin mean log-magnitude over 13 equal partitions.
func mfccLike(samples []float64) [13]float64 {
	var bins [mfccBins]float64
	binSize := len(samples) / mfccBins
	if binSize == 0 {
		binSize = 1
	}
	for b := 0; b < mfccBins; b++ {
		lo := b * binSize
		hi := lo + binSize
		if b == mfccBins-1 || hi > len(samples) {
			hi = len(samples)
		}
		if lo >= len(samples) {
			break
		}
		var sum float64
		for i := lo; i < hi; i++ {
			sum += math.Log(math.Abs(samples[i]) + logFloor)
		}
		bins[b] = sum / float64(hi-lo)
	}
	return bins
}

// #endregion features
