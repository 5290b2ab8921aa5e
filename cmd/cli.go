// SPDX-License-Identifier: MIT

// Package cmd wires the command line to the runtime configuration.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Fjollete/PichMatcher/internal/audio"
	"github.com/Fjollete/PichMatcher/internal/config"
	applog "github.com/Fjollete/PichMatcher/internal/log"
	"github.com/Fjollete/PichMatcher/internal/music"
	"github.com/Fjollete/PichMatcher/internal/tui"
	"github.com/Fjollete/PichMatcher/pkg/build"
)

// ParseArgs executes the CLI: it layers the configuration (defaults,
// YAML file, environment, flags) and dispatches subcommands. It returns
// the configuration for live engine mode, or nil after a one-off
// subcommand (list, analyze) has already done its work.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	name := buildInfo.Name
	if name == "unknown" {
		name = "pichmatcher"
	}

	var (
		options     *config.Config
		configPath  string
		engineMode  bool
		interactive bool
	)

	rootCmd := &cobra.Command{
		Use:           name,
		Short:         "Real-time pitch detection for live audio input",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			applyFlagOverrides(cfg, cmd)
			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.Verbose {
				applog.SetLevel(applog.LevelDebug)
			}

			options = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			engineMode = true
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive {
				return tui.StartDeviceListUI()
			}
			return audio.ListDevices()
		},
	}
	listCmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Browse devices in a terminal UI")
	rootCmd.AddCommand(listCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Report the pitch of a WAV file window by window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args[0], options)
		},
	}
	rootCmd.AddCommand(analyzeCmd)

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntP("device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().IntP("channels", "c", config.DefaultChannels,
		"Number of channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64P("sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntP("frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency and analysis window)")
	rootCmd.PersistentFlags().BoolP("low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Analysis Configuration
	rootCmd.PersistentFlags().Float64P("min-volume", "m", config.DefaultMinVolumeDecibels,
		"Gate level in dBFS below which no pitch is reported")
	rootCmd.PersistentFlags().BoolP("auto-calibrate", "a", false,
		"Measure ambient noise on startup and derive the gate level")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolP("record", "r", false,
		"Record audio from the input device")
	rootCmd.PersistentFlags().StringP("output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Transport Configuration
	rootCmd.PersistentFlags().Bool("ws", false,
		"Serve analysis frames to WebSocket clients")
	rootCmd.PersistentFlags().String("ws-addr", config.DefaultWSAddr,
		"WebSocket listen address")
	rootCmd.PersistentFlags().Bool("udp", false,
		"Publish binary pitch packets over UDP")
	rootCmd.PersistentFlags().String("udp-target", config.DefaultUDPTargetAddress,
		"UDP target address (host:port)")
	rootCmd.PersistentFlags().Duration("udp-interval", config.DefaultUDPSendInterval,
		"Interval between UDP pitch packets")

	// Runtime Configuration
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (default searches config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Show verbose output")
	rootCmd.PersistentFlags().BoolP("tui", "t", false,
		"Show the live tuner view")

	// A nil slice would make cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if !engineMode {
		return nil, nil
	}

	if options.OutputFile == "" {
		options.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") +
			"." + options.Format
	}

	return options, nil
}

// applyFlagOverrides copies every flag the user set onto the loaded
// configuration, leaving file and environment values in place otherwise.
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("device") {
		cfg.DeviceID, _ = flags.GetInt("device")
	}
	if flags.Changed("channels") {
		cfg.Channels, _ = flags.GetInt("channels")
	}
	if flags.Changed("sample-rate") {
		cfg.SampleRate, _ = flags.GetFloat64("sample-rate")
	}
	if flags.Changed("frames-per-buffer") {
		cfg.FramesPerBuffer, _ = flags.GetInt("frames-per-buffer")
	}
	if flags.Changed("low-latency") {
		cfg.LowLatency, _ = flags.GetBool("low-latency")
	}
	if flags.Changed("min-volume") {
		cfg.MinVolumeDecibels, _ = flags.GetFloat64("min-volume")
	}
	if flags.Changed("auto-calibrate") {
		cfg.AutoCalibrate, _ = flags.GetBool("auto-calibrate")
	}
	if flags.Changed("record") {
		cfg.RecordInputStream, _ = flags.GetBool("record")
	}
	if flags.Changed("output") {
		cfg.OutputFile, _ = flags.GetString("output")
	}
	if flags.Changed("ws") {
		cfg.WSEnabled, _ = flags.GetBool("ws")
	}
	if flags.Changed("ws-addr") {
		cfg.WSAddr, _ = flags.GetString("ws-addr")
	}
	if flags.Changed("udp") {
		cfg.UDPEnabled, _ = flags.GetBool("udp")
	}
	if flags.Changed("udp-target") {
		cfg.UDPTargetAddress, _ = flags.GetString("udp-target")
	}
	if flags.Changed("udp-interval") {
		cfg.UDPSendInterval, _ = flags.GetDuration("udp-interval")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("tui") {
		cfg.TUIMode, _ = flags.GetBool("tui")
	}
}

// runAnalyze prints one line per analysis window of the file.
func runAnalyze(path string, cfg *config.Config) error {
	results, err := audio.AnalyzeFile(path, cfg.FramesPerBuffer, cfg.MinVolumeDecibels)
	if err != nil {
		return err
	}

	fmt.Printf("%-10s %-12s %-10s %-11s %s\n",
		"OFFSET", "FREQUENCY", "NOTE", "CONFIDENCE", "LEVEL")

	for _, r := range results {
		frequency := "-"
		noteName := "-"
		if r.Frequency > 0 {
			frequency = fmt.Sprintf("%.2f Hz", r.Frequency)
			if note, err := music.FromFrequency(r.Frequency); err == nil {
				noteName = fmt.Sprintf("%s %+.0fc", note, note.Cents)
			}
		}

		fmt.Printf("%-10s %-12s %-10s %-11.2f %.1f dBFS\n",
			fmt.Sprintf("%.3fs", r.Offset.Seconds()),
			frequency, noteName, r.Confidence, r.Level)
	}

	return nil
}
