// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
)

// Shared fixtures for the audio package tests.
const (
	testSampleRate = 44100.0
	testFrameSize  = 1024

	lowThreshold  int32 = math.MaxInt32 / 1000 // ~0.1% of full scale
	highThreshold int32 = math.MaxInt32 / 10 * 9
)

var (
	testBuffer  = rampBuffer(testFrameSize)
	quietBuffer = sineBuffer(testFrameSize, 0.001)
	loudBuffer  = sineBuffer(testFrameSize, 0.9)
)

// rampBuffer cycles through amplitudes across the int32 range the way a
// varied real signal would.
func rampBuffer(size int) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		buffer[i] = int32((i % 100) * 10000000)
	}
	return buffer
}

// sineBuffer renders a 440 Hz sine at the given fraction of full scale.
func sineBuffer(size int, scale float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		sample := math.Sin(2 * math.Pi * 440 * float64(i) / testSampleRate)
		buffer[i] = int32(sample * scale * float64(math.MaxInt32))
	}
	return buffer
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.4f", f)
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
