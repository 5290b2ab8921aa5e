// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/Fjollete/PichMatcher/internal/analysis"
)

// WindowResult is one analysis window of an offline file report.
// Frequency and Confidence are zero for windows the level gate rejected.
type WindowResult struct {
	Offset     time.Duration
	Frequency  float64
	Confidence float64
	Level      float64
}

// ReadWAVFile decodes a WAV file into mono float64 samples normalized to
// [-1, 1] and returns them with the file's sample rate. Multi-channel
// files are folded by averaging the channels.
func ReadWAVFile(path string) ([]float64, float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("audio: %q is not a valid WAV file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: decode %q: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, 0, fmt.Errorf("audio: %q reports no channels", path)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("audio: %q has unsupported bit depth %d", path, bitDepth)
	}
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels) * scale
	}

	return samples, float64(decoder.SampleRate), nil
}

// AnalyzeFile runs the pitch estimator over consecutive windows of a WAV
// file. Windows quieter than minVolumeDecibels report no pitch; a
// trailing partial window is dropped.
func AnalyzeFile(path string, windowLength int, minVolumeDecibels float64) ([]WindowResult, error) {
	samples, sampleRate, err := ReadWAVFile(path)
	if err != nil {
		return nil, err
	}

	estimator, err := analysis.NewFFTPitchEstimator(windowLength)
	if err != nil {
		return nil, err
	}

	results := make([]WindowResult, 0, len(samples)/windowLength)
	for start := 0; start+windowLength <= len(samples); start += windowLength {
		window := samples[start : start+windowLength]
		level := analysis.LevelDecibels(window)

		var frequency, confidence float64
		if level >= minVolumeDecibels {
			frequency, confidence, err = estimator.Estimate(window, sampleRate)
			if err != nil {
				return nil, err
			}
		}

		results = append(results, WindowResult{
			Offset:     time.Duration(float64(start) / sampleRate * float64(time.Second)),
			Frequency:  frequency,
			Confidence: confidence,
			Level:      level,
		})
	}

	return results, nil
}
