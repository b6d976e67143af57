// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/samuelpmahan/audio-viz/cmd"
	"github.com/samuelpmahan/audio-viz/internal/audio"
	"github.com/samuelpmahan/audio-viz/internal/build"
	applog "github.com/samuelpmahan/audio-viz/internal/log"
	"github.com/samuelpmahan/audio-viz/internal/transport"
	"github.com/samuelpmahan/audio-viz/internal/transport/udp"
	"github.com/samuelpmahan/audio-viz/internal/tui"
)

// main is the entry point for the analysis engine. The program flow is
// divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Initialize PortAudio
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Build the engine and attach metric transports
//   - Begin input stream processing (device or WAV file)
//   - Publish metrics until a termination signal arrives
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop publishers and the input stream
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Build information is injected by release builds; development builds
	// run with placeholders.
	if err := build.Initialize(); err != nil {
		applog.Warnf("build info incomplete: %v (development build)", err)
	}

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the audio callback (time-critical)
	// - One thread for transports and I/O
	runtime.GOMAXPROCS(2)

	// Initialize PortAudio subsystem
	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	// Parse command line arguments, load the YAML config and apply overrides
	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	// Handle one-off commands (device listing/picking) that don't require
	// the engine to be running
	if cfg.Command != "" {
		if err := executeCommand(cfg.Command); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// Help or version output was shown; nothing to run
	if !cfg.Run {
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// Build the processing chain
	engine, err := audio.NewEngine(cfg)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	// Attach metric transports before the first tick so clients see the
	// stream from the start
	if cfg.Transport.WSEnabled {
		ws := transport.NewWebSocket(cfg.Transport.WSAddr)
		if err := ws.Start(); err != nil {
			applog.Fatalf("%v", err)
		}
		engine.AddTransport(ws)
	}

	var publisher *udp.Publisher
	var sender *udp.Sender
	if cfg.Transport.UDPEnabled {
		sender, err = udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		publisher, err = udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, engine)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		publisher.Start()
	}

	if cfg.Debug {
		engine.AddTransport(transport.NewLogging())
	}

	// CRITICAL: start of real-time processing. From here the PortAudio
	// callback (or the file feeder) drives one pipeline tick per buffer.
	var source *audio.FileSource
	if cfg.Audio.InputFile != "" {
		source, err = audio.NewFileSource(cfg.Audio.InputFile, engine)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		source.Start()
	} else if err := engine.Start(); err != nil {
		// No input is not fatal to the process: transports keep serving the
		// zero snapshot so attached visualizers render their idle state.
		applog.Errorf("audio input unavailable, running inert: %v", err)
	}

	applog.Infof("%s %s ready", build.GetBuildFlags().Name, build.GetBuildFlags().Version)

	// Block until a termination signal or, in file mode, end of input
	if source != nil {
		select {
		case <-done:
		case <-source.Done():
		}
	} else {
		<-done
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if publisher != nil {
		if err := publisher.Stop(); err != nil {
			applog.Errorf("error stopping udp publisher: %v", err)
		}
	}
	if sender != nil {
		if err := sender.Close(); err != nil {
			applog.Errorf("error closing udp sender: %v", err)
		}
	}
	if source != nil {
		source.Stop()
	}

	// Close stops the stream and every attached transport
	if err := engine.Close(); err != nil {
		applog.Errorf("error closing audio engine: %v", err)
	}
}

// executeCommand handles one-off commands that don't require the engine to
// be running.
func executeCommand(command string) error {
	switch command {
	case "list":
		return audio.ListDevices()
	case "pick":
		device, err := tui.PickDevice()
		if err != nil {
			return err
		}
		if device == nil {
			return nil // Quit without choosing.
		}
		fmt.Printf("Selected [%d] %s\n", device.ID, device.Name)
		fmt.Printf("Start the engine with: audio-viz --device %d\n", device.ID)
		return nil
	default:
		return fmt.Errorf("unknown command: %q", command)
	}
}
