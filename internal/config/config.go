// SPDX-License-Identifier: MIT

// Package config carries the runtime configuration for the capture and
// analysis pipeline. Values are layered: built-in defaults, then an
// optional YAML file, then environment overrides, then command-line
// flags bound by the CLI.
package config

import "time"

// Defaults and hard limits for the pipeline.
const (
	DefaultChannels        = 1 // Mono capture; extra channels are folded down.
	DefaultDeviceID        = MinDeviceID
	DefaultFormat          = "wav"
	DefaultFramesPerBuffer = 2048 // Two full periods of a low E at 44.1kHz.
	DefaultLowLatency      = false
	DefaultSampleRate      = 44100

	DefaultMinVolumeDecibels = -45.0
	DefaultWindowName        = "Hann"

	DefaultWSAddr           = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond

	MinDeviceID     = -1 // -1 selects the system default device.
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MaxChannels     = 8

	// MinVolumeFloorDecibels bounds how far down the analysis gate can
	// be configured.
	MinVolumeFloorDecibels = -120.0
)

// Config is the flat runtime view consumed by the engine, processors,
// and transports.
type Config struct {
	// Capture device
	DeviceID        int
	Channels        int
	SampleRate      float64
	FramesPerBuffer int
	LowLatency      bool

	// Analysis
	MinVolumeDecibels float64
	WindowName        string
	AutoCalibrate     bool

	// Recording
	RecordInputStream bool
	OutputFile        string
	Format            string

	// Transports
	WSEnabled        bool
	WSAddr           string
	UDPEnabled       bool
	UDPTargetAddress string
	UDPSendInterval  time.Duration

	// Runtime behavior
	Verbose bool
	TUIMode bool
}

// NewConfig returns a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		DeviceID:          DefaultDeviceID,
		Channels:          DefaultChannels,
		SampleRate:        DefaultSampleRate,
		FramesPerBuffer:   DefaultFramesPerBuffer,
		LowLatency:        DefaultLowLatency,
		MinVolumeDecibels: DefaultMinVolumeDecibels,
		WindowName:        DefaultWindowName,
		Format:            DefaultFormat,
		WSAddr:            DefaultWSAddr,
		UDPTargetAddress:  DefaultUDPTargetAddress,
		UDPSendInterval:   DefaultUDPSendInterval,
	}
}
