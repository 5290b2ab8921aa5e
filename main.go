package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Fjollete/PichMatcher/cmd"
	"github.com/Fjollete/PichMatcher/internal/analysis"
	"github.com/Fjollete/PichMatcher/internal/audio"
	applog "github.com/Fjollete/PichMatcher/internal/log"
	"github.com/Fjollete/PichMatcher/internal/transport"
	"github.com/Fjollete/PichMatcher/internal/transport/udp"
	"github.com/Fjollete/PichMatcher/internal/tui"
	"github.com/Fjollete/PichMatcher/pkg/build"
)

// main is the entry point for the pitch detection application.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Initialize PortAudio
//   - Parse command line arguments and configuration
//
// 2. Concurrent Phase (Hot Path):
//   - Build analysis processors and result transports
//   - Start the audio engine and input stream
//   - Begin recording if enabled
//   - Run the tuner UI, or block until a termination signal
//
// 3. Shutdown Phase (Cold Path):
//   - Stop recording if active
//   - Close the engine, transports, and processors
func main() {
	if err := run(); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Build information is injected via ldflags; a build without them
	// still runs and reports "unknown".
	if err := build.Initialize(); err != nil {
		applog.Warnf("Build info incomplete: %v", err)
	}

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to audio engine (time-critical)
	// - One thread for UI and I/O operations
	runtime.GOMAXPROCS(2)

	// Initialize PortAudio subsystem
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			applog.Errorf("Error terminating PortAudio: %v", err)
		}
	}()

	// Parse command line arguments and build configuration
	config, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if config == nil {
		// A subcommand (list, analyze) handled the invocation.
		return nil
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// Pitch, spectrum, and voicing results share one outbound transport.
	// A nil sink keeps the processors local-only.
	var sink transport.Transport
	var wst *transport.WebSocketTransport
	if config.WSEnabled {
		wst = transport.NewWebSocketTransport(config.WSAddr)
		sink = wst
	} else if config.Verbose && !config.TUIMode {
		// With nothing downstream, verbose runs log the frames instead.
		sink = transport.NewLoggingTransport()
	}

	pitchProc, err := analysis.NewPitchProcessor(config.FramesPerBuffer, config.SampleRate, config.MinVolumeDecibels, sink)
	if err != nil {
		return err
	}

	windowFunc, err := analysis.ParseWindowFunc(config.WindowName)
	if err != nil {
		applog.Warnf("%v, using Hann", err)
	}
	spectrumProc, err := analysis.NewSpectrumProcessor(config.FramesPerBuffer, config.SampleRate, windowFunc, sink)
	if err != nil {
		return err
	}

	voicing := analysis.NewVoicingDetector(config.MinVolumeDecibels, sink)

	processors := []transport.Processor{pitchProc, spectrumProc, voicing}

	// Initialize the audio engine
	engine, err := audio.NewEngine(config, processors...)
	if err != nil {
		return err
	}

	// Ambient calibration replaces the configured gate threshold once the
	// noise floor has been measured, on the engine and every processor
	// that keeps its own level gate.
	if config.AutoCalibrate {
		engine.EnableCalibration(analysis.DefaultCalibrationWindows, func(thresholdDecibels float64) {
			pitchProc.SetMinVolumeDecibels(thresholdDecibels)
			voicing.SetOpenThreshold(thresholdDecibels)
		})
	}

	var publisher *udp.PitchPublisher
	var udpSender *udp.Sender
	if config.UDPEnabled {
		udpSender, err = udp.NewSender(config.UDPTargetAddress)
		if err != nil {
			return err
		}
		publisher, err = udp.NewPitchPublisher(config.UDPSendInterval, udpSender, pitchProc)
		if err != nil {
			if cerr := udpSender.Close(); cerr != nil {
				applog.Errorf("Error closing UDP sender: %v", cerr)
			}
			return err
		}
		publisher.Start()
	}

	// CRITICAL: Start of real-time audio processing
	// The first call to StartInputStream triggers PortAudio to begin
	// calling the callback function, marking the start of the hot path
	if err := engine.StartInputStream(); err != nil {
		return err
	}

	// Start recording if enabled in configuration
	if config.RecordInputStream {
		if err := engine.StartRecording(config.OutputFile); err != nil {
			if cerr := engine.Close(); cerr != nil {
				applog.Errorf("Error closing audio engine: %v", cerr)
			}
			return err
		}
	}

	if config.TUIMode {
		// The tuner owns the terminal until the user quits; quitting the
		// tuner shuts the whole program down.
		if err := tui.StartTuner(pitchProc); err != nil {
			applog.Errorf("Tuner UI: %v", err)
		}
	} else {
		fmt.Printf("%s listening. '%s --help' for usage, Ctrl+C to stop.\n",
			build.GetBuildFlags().Name, build.GetBuildFlags().Name)

		// Block until termination signal is received
		<-done
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	// Stop recording if active and save the file
	if config.RecordInputStream {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("Error stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", config.OutputFile)
		}
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			applog.Errorf("Error closing UDP publisher: %v", err)
		}
	}
	if udpSender != nil {
		if err := udpSender.Close(); err != nil {
			applog.Errorf("Error closing UDP sender: %v", err)
		}
	}

	// Clean up audio engine resources
	if err := engine.Close(); err != nil {
		applog.Errorf("Error closing audio engine: %v", err)
	}

	for _, p := range processors {
		closer, ok := p.(transport.ClosableProcessor)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			applog.Errorf("Error closing processor: %v", err)
		}
	}

	if wst != nil {
		if err := wst.Close(); err != nil {
			applog.Errorf("Error closing WebSocket transport: %v", err)
		}
	}

	return nil
}
