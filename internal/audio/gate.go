// SPDX-License-Identifier: MIT
package audio

import (
	"math"

	"github.com/Fjollete/PichMatcher/internal/analysis"
)

// EnableGate turns the input noise gate on.
func (e *Engine) EnableGate() {
	e.gateEnabled.Store(true)
}

// DisableGate turns the input noise gate off so every frame reaches the
// processors unmuted.
func (e *Engine) DisableGate() {
	e.gateEnabled.Store(false)
}

// GateEnabled reports whether the noise gate is active.
func (e *Engine) GateEnabled() bool {
	return e.gateEnabled.Load()
}

// SetMinVolumeDecibels places the gate at a dBFS level, clamped to
// [analysis.SilenceFloorDecibels, 0]. Safe to call while the stream is
// running.
func (e *Engine) SetMinVolumeDecibels(db float64) {
	if db > 0 {
		db = 0
	}
	if db < analysis.SilenceFloorDecibels {
		db = analysis.SilenceFloorDecibels
	}

	e.gateDecibels.Store(math.Float64bits(db))
	e.gateThreshold.Store(decibelsToAmplitude(db))
}

// MinVolumeDecibels returns the gate level in dBFS.
func (e *Engine) MinVolumeDecibels() float64 {
	return math.Float64frombits(e.gateDecibels.Load())
}

// decibelsToAmplitude converts a dBFS level to the absolute int32
// amplitude with the same ratio to full scale.
func decibelsToAmplitude(db float64) int32 {
	linear := math.Pow(10, db/20)
	if linear >= 1.0 {
		return math.MaxInt32
	}
	return int32(linear * float64(math.MaxInt32))
}

// amplitudeToDecibels is the inverse mapping; zero amplitude reports the
// silence floor.
func amplitudeToDecibels(amplitude int32) float64 {
	if amplitude <= 0 {
		return analysis.SilenceFloorDecibels
	}
	return 20 * math.Log10(float64(amplitude)/float64(math.MaxInt32))
}
