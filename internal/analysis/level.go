// SPDX-License-Identifier: MIT
package analysis

import "math"

// SilenceFloorDecibels is the level reported for windows with no signal
// at all, keeping levels finite for downstream consumers.
const SilenceFloorDecibels = -120.0

// int32Scale maps int32 capture samples onto [-1, 1).
const int32Scale = 1.0 / 2147483648.0

// LevelDecibels returns the RMS level of normalized samples in dBFS.
// All-zero or empty windows report the silence floor rather than -Inf.
func LevelDecibels(samples []float64) float64 {
	if len(samples) == 0 {
		return SilenceFloorDecibels
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return rmsDecibels(math.Sqrt(sum / float64(len(samples))))
}

// BufferLevelDecibels returns the RMS level of an int32 capture buffer in
// dBFS without converting it to float64 samples first.
func BufferLevelDecibels(buffer []int32) float64 {
	if len(buffer) == 0 {
		return SilenceFloorDecibels
	}
	var sum float64
	for _, s := range buffer {
		v := float64(s) * int32Scale
		sum += v * v
	}
	return rmsDecibels(math.Sqrt(sum / float64(len(buffer))))
}

func rmsDecibels(rms float64) float64 {
	if rms <= 0 {
		return SilenceFloorDecibels
	}
	db := 20 * math.Log10(rms)
	if db < SilenceFloorDecibels {
		return SilenceFloorDecibels
	}
	return db
}
