// SPDX-License-Identifier: MIT
package analysis

import "sort"

const (
	// DefaultCalibrationWindows is how many buffers the calibrator
	// observes before producing a threshold.
	DefaultCalibrationWindows = 30

	// calibrationPercentile picks the ambient level the margin is added
	// to. A low percentile keeps short noise bursts during calibration
	// from inflating the result.
	calibrationPercentile = 0.25

	// calibrationMarginDecibels sits the suggested gate above the
	// observed ambient level.
	calibrationMarginDecibels = 10.0
)

// AmbientCalibrator collects the RMS level of the first K analysis
// windows and derives a suggested gate threshold from them. It is fed
// from the stream goroutine and is not safe for concurrent use.
type AmbientCalibrator struct {
	levels []float64
	target int
}

// NewAmbientCalibrator creates a calibrator observing the given number
// of windows. Non-positive counts fall back to the default.
func NewAmbientCalibrator(windows int) *AmbientCalibrator {
	if windows <= 0 {
		windows = DefaultCalibrationWindows
	}
	return &AmbientCalibrator{
		levels: make([]float64, 0, windows),
		target: windows,
	}
}

// Add records one window level (dBFS) and reports whether collection is
// complete. Levels added after completion are ignored.
func (c *AmbientCalibrator) Add(levelDecibels float64) bool {
	if c.Done() {
		return true
	}
	c.levels = append(c.levels, levelDecibels)
	return c.Done()
}

// Done reports whether enough windows have been observed.
func (c *AmbientCalibrator) Done() bool { return len(c.levels) >= c.target }

// Threshold returns the suggested gate level: the calibration percentile
// of the observed levels plus a fixed margin, clamped to the valid gate
// range. With no observations it returns the default gate.
func (c *AmbientCalibrator) Threshold() float64 {
	if len(c.levels) == 0 {
		return DefaultMinVolumeDecibels
	}
	sorted := make([]float64, len(c.levels))
	copy(sorted, c.levels)
	sort.Float64s(sorted)

	idx := int(calibrationPercentile * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	threshold := sorted[idx] + calibrationMarginDecibels
	if threshold > 0 {
		threshold = 0
	}
	if threshold < SilenceFloorDecibels {
		threshold = SilenceFloorDecibels
	}
	return threshold
}
