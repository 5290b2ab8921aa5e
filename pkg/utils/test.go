// Package utils holds shared test helpers: deterministic signal
// generators, a recording transport stub, and a spectrum peak finder.
package utils

import (
	"math"
	"math/rand"
)

// MockTransport records everything sent through it for later inspection.
// It satisfies the transport.Transport interface.
type MockTransport struct {
	Sent   []any
	Closed bool
}

// Send stores the data instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.Sent = append(m.Sent, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.Closed = true
	return nil
}

// Last returns the most recently sent payload, or nil when nothing was
// sent.
func (m *MockTransport) Last() any {
	if len(m.Sent) == 0 {
		return nil
	}
	return m.Sent[len(m.Sent)-1]
}

// GenerateSineSamples returns a pure sine at the given frequency and
// amplitude, sampled at sampleRate.
func GenerateSineSamples(size int, sampleRate, frequency, amplitude float64) []float64 {
	samples := make([]float64, size)
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return samples
}

// GenerateHarmonicSamples returns a 440 Hz fundamental with two harmonics
// (880 Hz and 1320 Hz at decreasing amplitude), the classic voiced-signal
// stand-in.
func GenerateHarmonicSamples(size int, sampleRate float64) []float64 {
	samples := make([]float64, size)
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return samples
}

// GenerateNoiseSamples returns uniform noise in [-amplitude, amplitude]
// from a fixed seed, so regression tests see the same buffer every run.
func GenerateNoiseSamples(size int, amplitude float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]float64, size)
	for i := range samples {
		samples[i] = amplitude * (2*rng.Float64() - 1)
	}
	return samples
}

// GenerateSineWave returns an int32 capture-format sine at 90% of full
// scale, for exercising the engine-facing processors.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int32(math.Sin(2*math.Pi*frequency*t) * math.MaxInt32 * 0.9)
	}
	return buffer
}

// GenerateComplexWave returns an int32 capture-format signal with a 440 Hz
// fundamental plus harmonics.
func GenerateComplexWave(size int, sampleRate float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
		buffer[i] = int32(signal * math.MaxInt32 * 0.9)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin], clamped to the slice bounds.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if startBin >= len(magnitudes) {
		startBin = len(magnitudes) - 1
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
