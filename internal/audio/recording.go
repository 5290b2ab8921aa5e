// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "github.com/Fjollete/PichMatcher/internal/log"
)

// StartRecording begins writing the raw input stream to filename as
// 32-bit PCM WAV. The encoder and conversion buffer are allocated here
// so the stream callback stays allocation free.
func (e *Engine) StartRecording(filename string) error {
	if e.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	e.wavEncoder = wav.NewEncoder(file, int(e.config.SampleRate),
		32, e.config.Channels, 1)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.config.Channels,
			SampleRate:  int(e.config.SampleRate),
		},
		Data: make([]int, e.config.FramesPerBuffer*e.config.Channels),
	}

	e.isRecording.Store(true)
	applog.Infof("Audio: recording to %s", filename)

	return nil
}

// StopRecording flushes and closes the WAV file. Calling it while not
// recording is a no-op.
func (e *Engine) StopRecording() error {
	if !e.isRecording.Load() {
		return nil
	}

	e.isRecording.Store(false)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	applog.Infof("Audio: recording stopped")

	return nil
}

// Close stops any active recording and the input stream. The engine does
// not own its processors; the caller closes those.
func (e *Engine) Close() error {
	if e.isRecording.Load() {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	if err := e.StopInputStream(); err != nil {
		return err
	}

	return nil
}
