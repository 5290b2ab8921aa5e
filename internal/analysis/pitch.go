// SPDX-License-Identifier: MIT
/*
Package analysis implements pitch estimation over fixed-length windows of
monophonic audio, plus the real-time processors that feed estimates to
transports and result providers.

The estimator computes a normalized autocorrelation similarity function
(NSDF) over every lag of the window, collects the peak of each positive
run, selects the earliest peak within a threshold of the strongest,
refines the chosen lag with a symmetric turning-point comparison, and
converts the refined lag to a frequency. Confidence is the NSDF value at
the refined lag: near 1.0 for cleanly periodic input, near 0 for silence
or noise.
*/
package analysis

import (
	"errors"
	"fmt"
)

// Errors reported for caller-side precondition violations. Silent,
// aperiodic, or degenerate input is not an error; Estimate reports it
// as a (0, 0) result.
var (
	ErrInvalidLength = errors.New("analysis: invalid window length")
	ErrInvalidInput  = errors.New("analysis: invalid input")
)

const (
	// MaxWindowLength caps the analysis window length. The direct
	// similarity computation is O(N^2) per call; windows beyond this are
	// impractical to analyze at audio rates.
	MaxWindowLength = 1 << 16

	// DefaultMinVolumeDecibels is the advisory input-level floor (dBFS)
	// carried by estimators for their calling layers. Estimate itself
	// never applies it; gating is the caller's decision.
	DefaultMinVolumeDecibels = -45.0

	// peakThreshold sets the fraction of the strongest candidate peak a
	// candidate must reach to win. The earliest qualifying lag is chosen,
	// which keeps integer-aligned period multiples from displacing the
	// fundamental.
	peakThreshold = 0.9
)

// Estimator is the operation surface shared by the direct and the
// FFT-accelerated pitch estimators.
type Estimator interface {
	// Estimate returns the estimated fundamental frequency in Hz and the
	// confidence of the estimate for one window of samples. A (0, 0)
	// result means no pitch was found.
	Estimate(samples []float64, sampleRate float64) (frequency, confidence float64, err error)

	// Length returns the fixed window length the estimator accepts.
	Length() int
}

// PitchEstimator is the canonical estimator. It computes the NSDF by the
// direct O(N^2) definition with per-call scratch storage, so a single
// instance is safe for concurrent use; it holds no state between calls
// beyond its configuration.
type PitchEstimator struct {
	length            int
	minVolumeDecibels float64
}

var _ Estimator = (*PitchEstimator)(nil)

// NewPitchEstimator creates an estimator for windows of exactly length
// samples. Returns ErrInvalidLength when length is non-positive or exceeds
// MaxWindowLength. The window length is immutable; build a new estimator
// to analyze a different size.
func NewPitchEstimator(length int) (*PitchEstimator, error) {
	if err := validateWindowLength(length); err != nil {
		return nil, err
	}
	return &PitchEstimator{
		length:            length,
		minVolumeDecibels: DefaultMinVolumeDecibels,
	}, nil
}

// Length returns the fixed window length the estimator accepts.
func (pe *PitchEstimator) Length() int { return pe.length }

// MinVolumeDecibels returns the advisory gate level (dBFS) for callers
// that want to skip analysis of near-silent windows.
func (pe *PitchEstimator) MinVolumeDecibels() float64 { return pe.minVolumeDecibels }

// SetMinVolumeDecibels updates the advisory gate level. The estimator
// itself never enforces it.
func (pe *PitchEstimator) SetMinVolumeDecibels(db float64) { pe.minVolumeDecibels = db }

// Estimate computes (frequency, confidence) for one window of samples.
// Returns ErrInvalidInput when len(samples) differs from the configured
// window length or sampleRate is not positive. All finite sample values
// are valid input; NaN or Inf samples propagate into the result.
func (pe *PitchEstimator) Estimate(samples []float64, sampleRate float64) (frequency, confidence float64, err error) {
	if err := validateEstimateInput(len(samples), pe.length, sampleRate); err != nil {
		return 0, 0, err
	}

	nsdf := make([]float64, pe.length)
	computeNSDF(samples, nsdf)

	frequency, confidence = estimateFromNSDF(nsdf, nil, sampleRate)
	return frequency, confidence, nil
}

func validateWindowLength(length int) error {
	if length <= 0 {
		return fmt.Errorf("%w: window length must be positive, got %d", ErrInvalidLength, length)
	}
	if length > MaxWindowLength {
		return fmt.Errorf("%w: window length %d exceeds maximum %d", ErrInvalidLength, length, MaxWindowLength)
	}
	return nil
}

func validateEstimateInput(got, want int, sampleRate float64) error {
	if got != want {
		return fmt.Errorf("%w: got %d samples, want %d", ErrInvalidInput, got, want)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidInput, sampleRate)
	}
	return nil
}

// computeNSDF fills nsdf with the normalized similarity function of
// samples by the direct definition:
//
//	acf(tau)     = sum_i samples[i] * samples[i+tau]
//	divisor(tau) = sum_i (samples[i]^2 + samples[i+tau]^2)
//	nsdf[tau]    = 2*acf(tau) / divisor(tau)
//
// with i ranging over [0, n-tau). Lags with a zero divisor map to 0, which
// makes an all-zero window produce an all-zero NSDF. nsdf[0] is exactly 1
// for any non-silent window since acf(0) is half of divisor(0).
func computeNSDF(samples, nsdf []float64) {
	n := len(samples)
	for tau := 0; tau < n; tau++ {
		var acf, divisor float64
		for i := 0; i+tau < n; i++ {
			a, b := samples[i], samples[i+tau]
			acf += a * b
			divisor += a*a + b*b
		}
		if divisor > 0 {
			nsdf[tau] = 2 * acf / divisor
		} else {
			nsdf[tau] = 0
		}
	}
}

// estimateFromNSDF runs peak picking, best-peak selection, and
// turning-point refinement over a computed NSDF. Shared by the direct and
// accelerated estimators so the two can only differ in how the NSDF was
// produced. scratch is optional backing storage for the candidate list;
// pass nil to allocate per call.
func estimateFromNSDF(nsdf []float64, scratch []int, sampleRate float64) (frequency, confidence float64) {
	peaks := pickPeaks(nsdf, scratch[:0])
	best, ok := bestPeak(nsdf, peaks)
	if !ok {
		return 0, 0
	}

	lag := refineLag(nsdf, best)
	if lag == 0 {
		// Refinement walked back to lag 0, the canonical silence signal.
		return 0, 0
	}

	confidence = nsdf[lag]
	if confidence > 1 {
		confidence = 1
	} else if confidence < -1 {
		confidence = -1
	}
	return sampleRate / float64(lag), confidence
}

// pickPeaks appends the lag of each positive run's maximum to peaks, in
// increasing lag order, ties within a run broken by first occurrence.
// Tracking arms only at a positive-going zero crossing, so the run
// containing lag 0 never yields a candidate and every returned lag is > 0.
func pickPeaks(nsdf []float64, peaks []int) []int {
	tracking := false
	best := 0

	for tau := 1; tau < len(nsdf); tau++ {
		v := nsdf[tau]
		if !tracking {
			if v > 0 && nsdf[tau-1] <= 0 {
				tracking = true
				best = tau
			}
			continue
		}
		if v <= 0 {
			peaks = append(peaks, best)
			tracking = false
			continue
		}
		if v > nsdf[best] {
			best = tau
		}
	}
	if tracking {
		peaks = append(peaks, best)
	}
	return peaks
}

// bestPeak selects the winning candidate: the earliest lag whose NSDF
// value reaches peakThreshold times the strongest candidate's value. For
// a clean periodic window all period multiples score near 1 and the lag
// of one period wins; a lone dominant peak wins outright.
func bestPeak(nsdf []float64, peaks []int) (int, bool) {
	if len(peaks) == 0 {
		return 0, false
	}
	strongest := nsdf[peaks[0]]
	for _, lag := range peaks[1:] {
		if nsdf[lag] > strongest {
			strongest = nsdf[lag]
		}
	}
	cutoff := peakThreshold * strongest
	for _, lag := range peaks {
		if nsdf[lag] >= cutoff {
			return lag, true
		}
	}
	return peaks[0], true
}

// refineLag nudges a coarse candidate toward the true local maximum by
// comparing symmetric neighbors at growing offsets. The first strict
// difference decides; running out of range on either side keeps the
// original lag. Offset 0 compares the lag with itself and can never
// decide, so the walk starts at 1.
func refineLag(nsdf []float64, lag int) int {
	for delta := 1; ; delta++ {
		lo, hi := lag-delta, lag+delta
		if lo < 0 || hi >= len(nsdf) {
			return lag
		}
		if nsdf[lo] > nsdf[hi] {
			return lo
		}
		if nsdf[hi] > nsdf[lo] {
			return hi
		}
	}
}
