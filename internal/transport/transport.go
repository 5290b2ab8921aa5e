// SPDX-License-Identifier: MIT

// Package transport defines how analysis results leave the engine: a
// generic Transport sink plus the provider interfaces processors expose
// to pull-based publishers. Concrete transports live in this package and
// its subpackages.
package transport

// Transport sends processed results or events to a consumer.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// Processor consumes raw capture buffers from the engine callback.
// Implementations must be real-time safe: non-blocking, with minimal or
// no allocations per call.
type Processor interface {
	Process(buffer []int32)
}

// ClosableProcessor is a Processor holding resources that must be
// released at shutdown.
type ClosableProcessor interface {
	Processor
	Close() error
}

// PitchResultProvider exposes the most recent pitch estimate of a
// processor: frequency in Hz, estimation confidence, and the input level
// of the analyzed window in dBFS. Safe for concurrent use.
type PitchResultProvider interface {
	LatestPitch() (frequency, confidence, level float64)
}

// SpectrumProvider exposes the magnitude spectrum of the most recently
// analyzed window. GetMagnitudesInto copies into dst to keep callers
// allocation-free. Safe for concurrent use.
type SpectrumProvider interface {
	GetMagnitudesInto(dst []float64) error
	GetFrequencyForBin(bin int) float64
	GetFFTSize() int
	GetSampleRate() float64
}
