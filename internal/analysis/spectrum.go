// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	applog "github.com/Fjollete/PichMatcher/internal/log"
	"github.com/Fjollete/PichMatcher/internal/transport"
	"github.com/Fjollete/PichMatcher/pkg/bitint"
)

// WindowFunc selects the taper applied before the spectrum transform.
type WindowFunc int

// Available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// defaultSpectrumSendInterval rate-limits transport pushes so spectrum
// frames do not flood slow consumers at small buffer sizes.
const defaultSpectrumSendInterval = 33 * time.Millisecond

// SpectrumFrame is the transport payload for one analyzed window. BinHz
// is the frequency step between adjacent magnitude bins.
type SpectrumFrame struct {
	Type       string    `json:"type"`
	BinHz      float64   `json:"bin_hz"`
	Magnitudes []float64 `json:"magnitudes"`
}

// spectrumWorkspace holds the pre-allocated transform buffers.
type spectrumWorkspace struct {
	input     []float64    // windowed, normalized input
	coeffs    []complex128 // FFT output, fftSize/2+1 values
	magnitude []float64    // latest magnitude spectrum
	window    []float64    // window coefficients
	mu        sync.RWMutex // guards magnitude reads against Process writes
}

// SpectrumProcessor computes the magnitude spectrum of each capture
// buffer for visualization consumers. Process runs on the single stream
// goroutine; the magnitude getters are safe for concurrent use.
type SpectrumProcessor struct {
	fft        *fourier.FFT
	fftSize    int
	sampleRate float64
	workspace  spectrumWorkspace

	transport    transport.Transport
	sendInterval time.Duration
	lastSend     time.Time // stream goroutine only
}

var (
	_ transport.Processor         = (*SpectrumProcessor)(nil)
	_ transport.ClosableProcessor = (*SpectrumProcessor)(nil)
	_ transport.SpectrumProvider  = (*SpectrumProcessor)(nil)
)

// NewSpectrumProcessor creates a processor for fftSize-sample windows at
// sampleRate. fftSize must be a power of two. tr may be nil to disable
// broadcasting.
func NewSpectrumProcessor(fftSize int, sampleRate float64, windowType WindowFunc, tr transport.Transport) (*SpectrumProcessor, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%w: fft size must be a power of two, got %d", ErrInvalidLength, fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidInput, sampleRate)
	}

	windowCoeffs := make([]float64, fftSize)
	applyWindow(windowCoeffs, windowType)

	// Real-input FFT yields fftSize/2 + 1 complex values.
	outputSize := fftSize/2 + 1

	return &SpectrumProcessor{
		fft:        fourier.NewFFT(fftSize),
		fftSize:    fftSize,
		sampleRate: sampleRate,
		workspace: spectrumWorkspace{
			input:     make([]float64, fftSize),
			coeffs:    make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    windowCoeffs,
		},
		transport:    tr,
		sendInterval: defaultSpectrumSendInterval,
	}, nil
}

// Process windows and normalizes one capture buffer, transforms it, and
// publishes the magnitude spectrum. Buffers shorter than the FFT size
// are zero-padded.
func (p *SpectrumProcessor) Process(buffer []int32) {
	p.workspace.mu.Lock()

	bufLen := len(buffer)
	for i := range p.workspace.input {
		if i < bufLen {
			p.workspace.input[i] = float64(buffer[i]) * int32Scale * p.workspace.window[i]
		} else {
			p.workspace.input[i] = 0
		}
	}

	p.fft.Coefficients(p.workspace.coeffs, p.workspace.input)
	for i, c := range p.workspace.coeffs {
		p.workspace.magnitude[i] = cmplx.Abs(c)
	}

	p.workspace.mu.Unlock()

	if p.transport == nil {
		return
	}
	now := time.Now()
	if now.Sub(p.lastSend) < p.sendInterval {
		return
	}
	p.lastSend = now

	// The broadcast is asynchronous, so the frame carries a copy rather
	// than the live workspace buffer.
	mags := make([]float64, len(p.workspace.magnitude))
	p.workspace.mu.RLock()
	copy(mags, p.workspace.magnitude)
	p.workspace.mu.RUnlock()

	frame := SpectrumFrame{
		Type:       "spectrum",
		BinHz:      p.sampleRate / float64(p.fftSize),
		Magnitudes: mags,
	}
	if err := p.transport.Send(frame); err != nil {
		applog.Debugf("Analysis: spectrum frame send failed: %v", err)
	}
}

// GetMagnitudes returns a copy of the latest magnitude spectrum.
// Allocation-sensitive readers should use GetMagnitudesInto.
func (p *SpectrumProcessor) GetMagnitudes() []float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	mags := make([]float64, len(p.workspace.magnitude))
	copy(mags, p.workspace.magnitude)
	return mags
}

// GetMagnitudesInto copies the latest magnitude spectrum into dst, which
// must have exactly fftSize/2+1 elements.
func (p *SpectrumProcessor) GetMagnitudesInto(dst []float64) error {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	if len(dst) != len(p.workspace.magnitude) {
		return fmt.Errorf("%w: destination length %d, want %d", ErrInvalidInput, len(dst), len(p.workspace.magnitude))
	}
	copy(dst, p.workspace.magnitude)
	return nil
}

// GetFrequencyForBin returns the center frequency in Hz of a magnitude
// bin; out-of-range bins return 0.
func (p *SpectrumProcessor) GetFrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(p.workspace.magnitude) {
		return 0
	}
	return float64(bin) * (p.sampleRate / float64(p.fftSize))
}

// GetFFTSize returns the configured transform size.
func (p *SpectrumProcessor) GetFFTSize() int { return p.fftSize }

// GetSampleRate returns the configured sample rate in Hz.
func (p *SpectrumProcessor) GetSampleRate() float64 { return p.sampleRate }

// Close satisfies transport.ClosableProcessor; the processor holds no
// resources of its own.
func (p *SpectrumProcessor) Close() error { return nil }

// ParseWindowFunc converts a window function name (case-insensitive) to
// its WindowFunc. Unknown names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("analysis: unknown window function %q", name)
	}
}

// applyWindow fills coeffs with the coefficients of the selected window.
// The slice is seeded with ones because the gonum window functions
// multiply in place. Unknown types fall back to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("Analysis: unknown window function %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
