// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sync"
	"time"

	applog "github.com/Fjollete/PichMatcher/internal/log"
	"github.com/Fjollete/PichMatcher/internal/music"
	"github.com/Fjollete/PichMatcher/internal/transport"
)

// PitchFrame is the transport payload for one analyzed window. Frequency
// and confidence are zero for unvoiced windows; MIDI is -1 and Note empty
// when no note could be derived.
type PitchFrame struct {
	Type       string  `json:"type"`
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
	Level      float64 `json:"level"`
	Voiced     bool    `json:"voiced"`
	Note       string  `json:"note,omitempty"`
	MIDI       int     `json:"midi"`
	Cents      float64 `json:"cents"`
	Timestamp  int64   `json:"timestamp"`
}

// pitchResult is the provider-facing snapshot of the latest window.
type pitchResult struct {
	frequency  float64
	confidence float64
	level      float64
}

// PitchProcessor runs the accelerated pitch estimator over capture
// buffers: it normalizes int32 samples, measures the window level in
// dBFS, applies the minimum-volume gate, estimates the pitch, and fans
// the result out to a transport and to LatestPitch readers. Process is
// meant to be called from the single stream goroutine; everything else
// is safe for concurrent use.
type PitchProcessor struct {
	estimator  *FFTPitchEstimator
	sampleRate float64
	transport  transport.Transport

	samples []float64 // normalization scratch, len == estimator.Length()

	mu        sync.RWMutex
	minVolume float64
	latest    pitchResult
}

var (
	_ transport.Processor           = (*PitchProcessor)(nil)
	_ transport.ClosableProcessor   = (*PitchProcessor)(nil)
	_ transport.PitchResultProvider = (*PitchProcessor)(nil)
)

// NewPitchProcessor creates a processor analyzing windows of exactly
// windowLength samples at sampleRate. minVolumeDecibels gates analysis:
// quieter windows report (0, 0) without running the estimator. tr may be
// nil to disable broadcasting.
func NewPitchProcessor(windowLength int, sampleRate, minVolumeDecibels float64, tr transport.Transport) (*PitchProcessor, error) {
	estimator, err := NewFFTPitchEstimator(windowLength)
	if err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidInput, sampleRate)
	}
	return &PitchProcessor{
		estimator:  estimator,
		sampleRate: sampleRate,
		transport:  tr,
		samples:    make([]float64, windowLength),
		minVolume:  minVolumeDecibels,
	}, nil
}

// Process analyzes one capture buffer. Buffers shorter than the window
// are zero-padded; longer ones are truncated.
func (p *PitchProcessor) Process(buffer []int32) {
	bufLen := len(buffer)
	for i := range p.samples {
		if i < bufLen {
			p.samples[i] = float64(buffer[i]) * int32Scale
		} else {
			p.samples[i] = 0
		}
	}

	level := LevelDecibels(p.samples)

	var frequency, confidence float64
	if level >= p.MinVolumeDecibels() {
		frequency, confidence, _ = p.estimator.Estimate(p.samples, p.sampleRate)
	}

	p.mu.Lock()
	p.latest = pitchResult{frequency: frequency, confidence: confidence, level: level}
	p.mu.Unlock()

	if p.transport == nil {
		return
	}
	frame := PitchFrame{
		Type:       "pitch",
		Frequency:  frequency,
		Confidence: confidence,
		Level:      level,
		Voiced:     frequency > 0,
		MIDI:       -1,
		Timestamp:  time.Now().UnixNano(),
	}
	if frequency > 0 {
		if note, err := music.FromFrequency(frequency); err == nil {
			frame.Note = note.String()
			frame.MIDI = note.MIDI
			frame.Cents = note.Cents
		}
	}
	if err := p.transport.Send(frame); err != nil {
		applog.Debugf("Analysis: pitch frame send failed: %v", err)
	}
}

// LatestPitch returns the most recent estimate: frequency in Hz,
// confidence, and the analyzed window's level in dBFS.
func (p *PitchProcessor) LatestPitch() (frequency, confidence, level float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest.frequency, p.latest.confidence, p.latest.level
}

// MinVolumeDecibels returns the analysis gate level (dBFS).
func (p *PitchProcessor) MinVolumeDecibels() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.minVolume
}

// SetMinVolumeDecibels moves the analysis gate, for example after
// ambient calibration.
func (p *PitchProcessor) SetMinVolumeDecibels(db float64) {
	p.mu.Lock()
	p.minVolume = db
	p.mu.Unlock()
}

// Length returns the window length the processor analyzes.
func (p *PitchProcessor) Length() int { return p.estimator.Length() }

// Close satisfies transport.ClosableProcessor; the processor holds no
// resources of its own.
func (p *PitchProcessor) Close() error { return nil }
