// SPDX-License-Identifier: MIT
package analysis

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/Fjollete/PichMatcher/pkg/bitint"
)

// FFTPitchEstimator produces the same estimate as PitchEstimator with the
// autocorrelation computed by real FFT in O(N log N). Peak picking and
// refinement share the exact code paths of the direct estimator, so the
// two can only differ by floating-point rounding in the NSDF itself.
//
// The estimator owns its transform plan and scratch buffers and reuses
// them across calls: calls on one instance must be serialized by the
// caller. Independent instances are fully isolated.
type FFTPitchEstimator struct {
	length            int
	minVolumeDecibels float64

	// padded is the transform length: next power of two >= 2*length, so
	// the circular autocorrelation equals the linear one for every lag
	// of interest.
	padded int
	fft    *fourier.FFT

	input  []float64
	coeffs []complex128
	acf    []float64
	nsdf   []float64
	peaks  []int
}

var _ Estimator = (*FFTPitchEstimator)(nil)

// NewFFTPitchEstimator creates an accelerated estimator for windows of
// exactly length samples. Returns ErrInvalidLength under the same rules
// as NewPitchEstimator.
func NewFFTPitchEstimator(length int) (*FFTPitchEstimator, error) {
	if err := validateWindowLength(length); err != nil {
		return nil, err
	}

	padded := bitint.NextPowerOfTwo(2 * length)
	return &FFTPitchEstimator{
		length:            length,
		minVolumeDecibels: DefaultMinVolumeDecibels,
		padded:            padded,
		fft:               fourier.NewFFT(padded),
		input:             make([]float64, padded),
		coeffs:            make([]complex128, padded/2+1),
		acf:               make([]float64, padded),
		nsdf:              make([]float64, length),
		peaks:             make([]int, 0, length/2+1),
	}, nil
}

// Length returns the fixed window length the estimator accepts.
func (pe *FFTPitchEstimator) Length() int { return pe.length }

// MinVolumeDecibels returns the advisory gate level (dBFS) for callers.
func (pe *FFTPitchEstimator) MinVolumeDecibels() float64 { return pe.minVolumeDecibels }

// SetMinVolumeDecibels updates the advisory gate level. Never enforced
// by Estimate.
func (pe *FFTPitchEstimator) SetMinVolumeDecibels(db float64) { pe.minVolumeDecibels = db }

// Estimate computes (frequency, confidence) for one window of samples.
// Same contract as PitchEstimator.Estimate, with the instance-scratch
// concurrency caveat documented on the type.
func (pe *FFTPitchEstimator) Estimate(samples []float64, sampleRate float64) (frequency, confidence float64, err error) {
	if err := validateEstimateInput(len(samples), pe.length, sampleRate); err != nil {
		return 0, 0, err
	}

	pe.computeNSDF(samples)

	frequency, confidence = estimateFromNSDF(pe.nsdf, pe.peaks, sampleRate)
	return frequency, confidence, nil
}

// computeNSDF fills pe.nsdf from the power spectrum of the zero-padded
// window. gonum's Sequence returns the inverse transform scaled by the
// transform length, hence the 1/padded factor. The divisor never needs a
// second O(N^2) pass: with S(tau) = divisor(tau),
//
//	S(0)   = 2*acf(0)
//	S(tau) = S(tau-1) - samples[tau-1]^2 - samples[n-tau]^2
//
// which follows from dropping one term of each square sum per lag step.
func (pe *FFTPitchEstimator) computeNSDF(samples []float64) {
	n := pe.length
	copy(pe.input, samples)
	for i := n; i < pe.padded; i++ {
		pe.input[i] = 0
	}

	pe.fft.Coefficients(pe.coeffs, pe.input)
	for i, c := range pe.coeffs {
		re, im := real(c), imag(c)
		pe.coeffs[i] = complex(re*re+im*im, 0)
	}
	pe.fft.Sequence(pe.acf, pe.coeffs)

	scale := 1 / float64(pe.padded)
	divisor := 2 * pe.acf[0] * scale
	for tau := 0; tau < n; tau++ {
		if tau > 0 {
			head := samples[tau-1]
			tail := samples[n-tau]
			divisor -= head*head + tail*tail
		}
		if divisor > 0 {
			pe.nsdf[tau] = 2 * pe.acf[tau] * scale / divisor
		} else {
			pe.nsdf[tau] = 0
		}
	}
}
