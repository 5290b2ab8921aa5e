// SPDX-License-Identifier: MIT
package analysis

import (
	"sync"
	"time"

	applog "github.com/Fjollete/PichMatcher/internal/log"
	"github.com/Fjollete/PichMatcher/internal/transport"
)

const (
	// voicingHysteresisDecibels separates the open and close thresholds
	// so level jitter around the gate cannot retrigger events.
	voicingHysteresisDecibels = 6.0

	// defaultVoicingHoldoff is how many consecutive quiet buffers must
	// pass before a stop event fires.
	defaultVoicingHoldoff = 3
)

// VoicingEvent is the transport payload for a voicing transition.
type VoicingEvent struct {
	Type      string  `json:"type"` // "voicing_start" or "voicing_stop"
	Level     float64 `json:"level"`
	Timestamp int64   `json:"timestamp"`
}

// VoicingDetector is an energy-only voicing gate over capture buffers.
// It opens when the buffer RMS level reaches the open threshold, closes
// after a hold-off of consecutive buffers below the close threshold
// (open minus a fixed hysteresis), and emits a VoicingEvent over the
// transport at each transition. It performs no pitch tracking.
type VoicingDetector struct {
	transport transport.Transport

	mu            sync.Mutex
	openDecibels  float64
	closeDecibels float64
	holdoff       int
	quiet         int
	voiced        bool
}

var _ transport.Processor = (*VoicingDetector)(nil)

// NewVoicingDetector creates a detector opening at openDecibels (dBFS).
// tr may be nil to track state without emitting events.
func NewVoicingDetector(openDecibels float64, tr transport.Transport) *VoicingDetector {
	return &VoicingDetector{
		transport:     tr,
		openDecibels:  openDecibels,
		closeDecibels: openDecibels - voicingHysteresisDecibels,
		holdoff:       defaultVoicingHoldoff,
	}
}

// Process updates the gate with one capture buffer and emits an event on
// a state transition.
func (d *VoicingDetector) Process(buffer []int32) {
	level := BufferLevelDecibels(buffer)

	d.mu.Lock()
	var event string
	if !d.voiced {
		if level >= d.openDecibels {
			d.voiced = true
			d.quiet = 0
			event = "voicing_start"
		}
	} else if level < d.closeDecibels {
		d.quiet++
		if d.quiet >= d.holdoff {
			d.voiced = false
			d.quiet = 0
			event = "voicing_stop"
		}
	} else {
		d.quiet = 0
	}
	d.mu.Unlock()

	if event == "" {
		return
	}
	applog.Debugf("Analysis: %s at %.1f dBFS", event, level)
	if d.transport == nil {
		return
	}
	if err := d.transport.Send(VoicingEvent{Type: event, Level: level, Timestamp: time.Now().UnixNano()}); err != nil {
		applog.Debugf("Analysis: voicing event send failed: %v", err)
	}
}

// Voiced reports whether the gate is currently open.
func (d *VoicingDetector) Voiced() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voiced
}

// SetOpenThreshold moves the open threshold (dBFS); the close threshold
// follows at the fixed hysteresis below it.
func (d *VoicingDetector) SetOpenThreshold(db float64) {
	d.mu.Lock()
	d.openDecibels = db
	d.closeDecibels = db - voicingHysteresisDecibels
	d.mu.Unlock()
}
