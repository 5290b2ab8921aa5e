// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "github.com/Fjollete/PichMatcher/internal/log"
	"github.com/Fjollete/PichMatcher/pkg/bitint"
)

// fileConfig is the on-disk YAML schema. It is mapped onto the flat
// Config after unmarshalling so the rest of the program never deals
// with the nested file layout.
type fileConfig struct {
	Debug     bool             `yaml:"debug"`
	Audio     audioSection     `yaml:"audio"`
	Analysis  analysisSection  `yaml:"analysis"`
	Recording recordingSection `yaml:"recording"`
	Transport transportSection `yaml:"transport"`
}

type audioSection struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index, -1 for the system default.
	InputChannels   int     `yaml:"input_channels"`    // Captured channels; extra channels are folded to mono.
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g. 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per callback buffer, must be a power of two.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low-latency profile.
}

type analysisSection struct {
	MinVolumeDecibels float64 `yaml:"min_volume_decibels"` // Windows quieter than this (dBFS) report no pitch.
	Window            string  `yaml:"window"`              // Window function for spectrum analysis (e.g. "Hann").
	AutoCalibrate     bool    `yaml:"auto_calibrate"`      // Measure ambient noise at startup to place the gate.
}

type recordingSection struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // Empty selects a timestamped name.
	Format     string `yaml:"format"`
}

type transportSection struct {
	WSEnabled        bool   `yaml:"ws_enabled"`
	WSAddr           string `yaml:"ws_addr"`
	UDPEnabled       bool   `yaml:"udp_enabled"`
	UDPTargetAddress string `yaml:"udp_target_address"`
	UDPSendInterval  string `yaml:"udp_send_interval"` // time.ParseDuration syntax, e.g. "33ms".
}

// LoadConfig assembles the runtime configuration. path names an explicit
// YAML file; when empty, default locations are searched and a missing
// file falls back to built-in defaults. Environment overrides are
// applied after the file layer, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"config.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// mergeFile layers the YAML file at path over the current values.
// Fields absent from the file keep whatever they already hold, so the
// schema struct is seeded from c before unmarshalling.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	fc := fileConfig{
		Debug: c.Verbose,
		Audio: audioSection{
			InputDevice:     c.DeviceID,
			InputChannels:   c.Channels,
			SampleRate:      c.SampleRate,
			FramesPerBuffer: c.FramesPerBuffer,
			LowLatency:      c.LowLatency,
		},
		Analysis: analysisSection{
			MinVolumeDecibels: c.MinVolumeDecibels,
			Window:            c.WindowName,
			AutoCalibrate:     c.AutoCalibrate,
		},
		Recording: recordingSection{
			Enabled:    c.RecordInputStream,
			OutputFile: c.OutputFile,
			Format:     c.Format,
		},
		Transport: transportSection{
			WSEnabled:        c.WSEnabled,
			WSAddr:           c.WSAddr,
			UDPEnabled:       c.UDPEnabled,
			UDPTargetAddress: c.UDPTargetAddress,
		},
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	c.Verbose = fc.Debug
	c.DeviceID = fc.Audio.InputDevice
	c.Channels = fc.Audio.InputChannels
	c.SampleRate = fc.Audio.SampleRate
	c.FramesPerBuffer = fc.Audio.FramesPerBuffer
	c.LowLatency = fc.Audio.LowLatency
	c.MinVolumeDecibels = fc.Analysis.MinVolumeDecibels
	c.WindowName = fc.Analysis.Window
	c.AutoCalibrate = fc.Analysis.AutoCalibrate
	c.RecordInputStream = fc.Recording.Enabled
	c.OutputFile = fc.Recording.OutputFile
	c.Format = fc.Recording.Format
	c.WSEnabled = fc.Transport.WSEnabled
	c.WSAddr = fc.Transport.WSAddr
	c.UDPEnabled = fc.Transport.UDPEnabled
	c.UDPTargetAddress = fc.Transport.UDPTargetAddress
	if fc.Transport.UDPSendInterval != "" {
		dur, err := time.ParseDuration(fc.Transport.UDPSendInterval)
		if err != nil {
			return fmt.Errorf("failed to parse config file: udp_send_interval: %w", err)
		}
		c.UDPSendInterval = dur
	}
	return nil
}

// applyEnvOverrides layers ENV_* variables over the current values.
// Unparsable values are logged and skipped rather than failing startup.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Verbose = bVal
			applog.Debugf("config: overriding debug from env: %v", bVal)
		} else {
			applog.Warnf("config: ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}

	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		c.WSAddr = val
		c.WSEnabled = val != ""
		applog.Debugf("config: overriding transport.ws_addr from env: %s", val)
	}

	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.UDPEnabled = bVal
			applog.Debugf("config: overriding transport.udp_enabled from env: %v", bVal)
		} else {
			applog.Warnf("config: ignoring ENV_UDP_ENABLED=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.UDPTargetAddress = val
		applog.Debugf("config: overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.UDPSendInterval = dur
			applog.Debugf("config: overriding transport.udp_send_interval from env: %s", dur)
		} else {
			applog.Warnf("config: ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}

// Validate checks the assembled configuration against the hard limits.
func (c *Config) Validate() error {
	if c.DeviceID < MinDeviceID {
		return fmt.Errorf("audio.input_device %d is invalid (minimum %d)", c.DeviceID, MinDeviceID)
	}
	if c.Channels < 1 || c.Channels > MaxChannels {
		return fmt.Errorf("audio.input_channels %d out of range [1, %d]", c.Channels, MaxChannels)
	}
	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %v out of range [%d, %d]", c.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.FramesPerBuffer < 1 || c.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d out of range [1, %d]", c.FramesPerBuffer, MaxBufferFrames)
	}
	if !bitint.IsPowerOfTwo(c.FramesPerBuffer) {
		return fmt.Errorf("audio.frames_per_buffer %d must be a power of two", c.FramesPerBuffer)
	}
	if c.MinVolumeDecibels < MinVolumeFloorDecibels || c.MinVolumeDecibels > 0 {
		return fmt.Errorf("analysis.min_volume_decibels %v out of range [%v, 0]", c.MinVolumeDecibels, MinVolumeFloorDecibels)
	}
	if c.WSEnabled && c.WSAddr == "" {
		return fmt.Errorf("transport.ws_addr must be set when the WebSocket transport is enabled")
	}
	if c.UDPEnabled {
		if c.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if !strings.Contains(c.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address %q is missing a port", c.UDPTargetAddress)
		}
		if c.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	return nil
}
