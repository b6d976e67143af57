// SPDX-License-Identifier: MIT

// Package cmd builds the command line interface: the root command that runs
// the engine, the one-off device commands, and the flag-over-config overlay.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/samuelpmahan/audio-viz/internal/build"
	"github.com/samuelpmahan/audio-viz/internal/config"
)

// cliFlags holds the raw flag values. Only flags the user actually set are
// copied onto the loaded configuration, so YAML values survive unless
// explicitly overridden.
type cliFlags struct {
	configPath string

	device          int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	gain            float64
	inputFile       string

	bandMode string

	wsAddr      string
	noWS        bool
	udpTarget   string
	udpInterval time.Duration

	verbose bool
}

// ParseArgs parses the command line, loads the YAML configuration and applies
// flag overrides on top. The returned config either names a one-off Command,
// has Run set (start the engine), or neither (help/version was shown).
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	cfg := config.NewConfig()
	var flags cliFlags

	rootCmd := &cobra.Command{
		Use:   "audio-viz",
		Short: "Real-time audio analysis engine for visualizer clients",
		Long: "audio-viz captures a live audio input, extracts band energies, onsets,\n" +
			"kick/snare events and tempo, and publishes the resulting metrics to\n" +
			"visualizer clients over WebSocket and UDP.",
		Version:       fmt.Sprintf("%s (built %s, commit %s)", buildInfo.Version, buildInfo.Time, buildInfo.Commit),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded
			applyFlagOverrides(cmd, cfg, &flags)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}
			cfg.Run = true
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	pickCmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick an input device interactively",
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Command = "pick"
		},
	}
	rootCmd.AddCommand(pickCmd)

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"Path to a YAML config file (default: config.yaml, audio-viz.yaml)")

	// Audio capture configuration
	rootCmd.PersistentFlags().IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices")
	rootCmd.PersistentFlags().IntVarP(&flags.channels, "channels", "c", config.DefaultInputChannels,
		"Number of input channels (1=mono, 2=stereo); analysis reads channel 0")
	rootCmd.PersistentFlags().Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per buffer; one analysis tick per buffer")
	rootCmd.PersistentFlags().BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Request the device's low-latency setting")
	rootCmd.PersistentFlags().Float64VarP(&flags.gain, "gain", "g", config.DefaultGain,
		"Input pre-amplification multiplier")
	rootCmd.PersistentFlags().StringVarP(&flags.inputFile, "input", "i", "",
		"Analyze a WAV file instead of capturing from a device")

	// Analysis configuration
	rootCmd.PersistentFlags().StringVar(&flags.bandMode, "band-mode", "three",
		"Macro band split: 'three' (bass/mid/treble) or 'five'")

	// Transport configuration
	rootCmd.PersistentFlags().StringVar(&flags.wsAddr, "ws-addr", config.DefaultWSAddr,
		"Listen address for the metrics WebSocket")
	rootCmd.PersistentFlags().BoolVar(&flags.noWS, "no-ws", false,
		"Disable the metrics WebSocket")
	rootCmd.PersistentFlags().StringVar(&flags.udpTarget, "udp-target", "",
		"Send binary metrics packets to this UDP address (enables UDP)")
	rootCmd.PersistentFlags().DurationVar(&flags.udpInterval, "udp-interval", config.DefaultUDPInterval,
		"Interval between UDP metrics packets")

	// Debug configuration
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"Debug logging plus a periodic metrics summary on stderr")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFlagOverrides copies explicitly set flags onto the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, flags *cliFlags) {
	set := cmd.Flags().Changed

	if set("device") {
		cfg.Audio.InputDevice = flags.device
	}
	if set("channels") {
		cfg.Audio.InputChannels = flags.channels
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = flags.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = flags.framesPerBuffer
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = flags.lowLatency
	}
	if set("gain") {
		cfg.Audio.Gain = flags.gain
	}
	if set("input") {
		cfg.Audio.InputFile = flags.inputFile
	}
	if set("band-mode") {
		cfg.Analysis.BandMode = flags.bandMode
	}
	if set("ws-addr") {
		cfg.Transport.WSAddr = flags.wsAddr
	}
	if flags.noWS {
		cfg.Transport.WSEnabled = false
	}
	if set("udp-target") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = flags.udpTarget
	}
	if set("udp-interval") {
		cfg.Transport.UDPSendInterval = flags.udpInterval
	}
	if flags.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}
