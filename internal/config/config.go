// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	applog "github.com/samuelpmahan/audio-viz/internal/log"
	"github.com/samuelpmahan/audio-viz/pkg/bitint"
)

// Default values used when no config file is present and no flag overrides
// are given. Kept as named constants so flags, YAML and tests agree on one
// source of truth.
const (
	DefaultDeviceID        = -1 // -1 selects the system default input device
	DefaultSampleRate      = 44100.0
	DefaultFramesPerBuffer = 512
	DefaultInputChannels   = 2
	DefaultGain            = 1.0
	DefaultGateThreshold   = 0.001

	DefaultFFTSize     = 512
	DefaultRawFFTSize  = 2048
	DefaultFFTWindow   = "hann"
	DefaultRawSmooth   = 0.8
	DefaultMelBands    = 32
	DefaultMelLowHz    = 20.0
	DefaultMelHighHz   = 16000.0
	DefaultWSAddr      = ":8080"
	DefaultUDPTarget   = "127.0.0.1:9090"
	DefaultUDPInterval = 16 * time.Millisecond // ~60Hz
)

// Config is the full application configuration, loaded from YAML with
// environment and flag overrides applied on top.
type Config struct {
	Debug    bool   `yaml:"debug"`             // Verbose logging and the metrics logging transport.
	LogLevel string `yaml:"log_level"`         // "debug", "info", "warn", "error".
	Command  string `yaml:"command,omitempty"` // One-off command ("list", "pick") instead of running the engine.
	Run      bool   `yaml:"-"`                 // Set by the CLI when the root command asks for the engine; --help and one-off commands leave it false.

	Audio     AudioConfig     `yaml:"audio"`
	DSP       DSPConfig       `yaml:"dsp"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`         // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`          // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"`    // Frames per callback; also the analysis tick size.
	InputChannels   int     `yaml:"input_channels"`       // 1 mono, 2 stereo. Analysis always runs on channel 0.
	LowLatency      bool    `yaml:"low_latency"`          // Request the device's low-latency setting.
	Gain            float64 `yaml:"gain"`                 // Input pre-amplification multiplier.
	GateEnabled     bool    `yaml:"gate_enabled"`         // Noise gate on the capture path.
	GateThreshold   float64 `yaml:"gate_threshold"`       // 0..1 of full scale.
	InputFile       string  `yaml:"input_file,omitempty"` // WAV file fed instead of the microphone.
}

// DSPConfig holds spectral frontend settings.
type DSPConfig struct {
	FFTSize      int     `yaml:"fft_size"`      // Fast analysis window (power of two).
	RawFFTSize   int     `yaml:"raw_fft_size"`  // Wide window backing the raw byte spectrum.
	Window       string  `yaml:"window"`        // Window function name ("hann", "hamming", ...).
	RawSmoothing float64 `yaml:"raw_smoothing"` // Per-bin time smoothing on the raw window, 0..1.
	MelBands     int     `yaml:"mel_bands"`     // Mel filterbank size.
	MelLowHz     float64 `yaml:"mel_low_hz"`
	MelHighHz    float64 `yaml:"mel_high_hz"`
}

// AnalysisConfig holds feature pipeline settings. The numeric thresholds of
// the pipeline itself live in the analysis package; this selects between the
// documented presets.
type AnalysisConfig struct {
	BandMode string `yaml:"band_mode"` // "three" or "five".
}

// TransportConfig holds settings for publishing metrics to renderer clients.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`
	WSAddr           string        `yaml:"ws_addr"`            // Listen address for the metrics WebSocket.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Binary metrics packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // "host:port".
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
			LowLatency:      false,
			Gain:            DefaultGain,
			GateEnabled:     true,
			GateThreshold:   DefaultGateThreshold,
		},
		DSP: DSPConfig{
			FFTSize:      DefaultFFTSize,
			RawFFTSize:   DefaultRawFFTSize,
			Window:       DefaultFFTWindow,
			RawSmoothing: DefaultRawSmooth,
			MelBands:     DefaultMelBands,
			MelLowHz:     DefaultMelLowHz,
			MelHighHz:    DefaultMelHighHz,
		},
		Analysis: AnalysisConfig{
			BandMode: "three",
		},
		Transport: TransportConfig{
			WSEnabled:        true,
			WSAddr:           DefaultWSAddr,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPInterval,
		},
	}
}

// LoadConfig loads configuration from a YAML file. If path is empty it
// searches default locations ("config.yaml", "audio-viz.yaml"); when no file
// is found the built-in defaults are used. Environment overrides are applied
// after the file, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"audio-viz.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %f", c.Audio.SampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer)
	}
	if c.Audio.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be at least 1, got %d", c.Audio.InputChannels)
	}
	if c.Audio.Gain < 0 {
		return fmt.Errorf("audio.gain must be non-negative, got %f", c.Audio.Gain)
	}
	if c.Audio.GateThreshold < 0 || c.Audio.GateThreshold > 1 {
		return fmt.Errorf("audio.gate_threshold must be in [0,1], got %f", c.Audio.GateThreshold)
	}
	if !bitint.IsPowerOfTwo(c.DSP.FFTSize) {
		return fmt.Errorf("dsp.fft_size must be a power of 2, got %d", c.DSP.FFTSize)
	}
	if !bitint.IsPowerOfTwo(c.DSP.RawFFTSize) {
		return fmt.Errorf("dsp.raw_fft_size must be a power of 2, got %d", c.DSP.RawFFTSize)
	}
	if c.DSP.RawSmoothing < 0 || c.DSP.RawSmoothing >= 1 {
		return fmt.Errorf("dsp.raw_smoothing must be in [0,1), got %f", c.DSP.RawSmoothing)
	}
	if c.DSP.MelBands < 3 {
		return fmt.Errorf("dsp.mel_bands must be at least 3, got %d", c.DSP.MelBands)
	}
	if c.DSP.MelLowHz < 0 || c.DSP.MelHighHz <= c.DSP.MelLowHz {
		return fmt.Errorf("dsp mel range [%.1f, %.1f] is invalid", c.DSP.MelLowHz, c.DSP.MelHighHz)
	}
	if c.DSP.MelHighHz > c.Audio.SampleRate/2 {
		return fmt.Errorf("dsp.mel_high_hz %.1f exceeds Nyquist for sample rate %.1f", c.DSP.MelHighHz, c.Audio.SampleRate)
	}
	switch c.Analysis.BandMode {
	case "three", "five":
	default:
		return fmt.Errorf("analysis.band_mode must be \"three\" or \"five\", got %q", c.Analysis.BandMode)
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.WSEnabled && c.Transport.WSAddr == "" {
		return fmt.Errorf("transport.ws_addr must be set when the WebSocket transport is enabled")
	}
	return nil
}

// applyEnvOverrides applies AUDIOVIZ_* environment variables on top of the
// loaded configuration. Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("AUDIOVIZ_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
			applog.Infof("config: overriding debug from env: %v", b)
		} else {
			applog.Warnf("config: ignoring AUDIOVIZ_DEBUG=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("AUDIOVIZ_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("config: overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("AUDIOVIZ_INPUT_DEVICE"); ok {
		if id, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = id
			applog.Infof("config: overriding audio.input_device from env: %d", id)
		} else {
			applog.Warnf("config: ignoring AUDIOVIZ_INPUT_DEVICE=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("AUDIOVIZ_WS_ADDR"); ok {
		c.Transport.WSAddr = val
		applog.Infof("config: overriding transport.ws_addr from env: %s", val)
	}
	if val, ok := os.LookupEnv("AUDIOVIZ_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			applog.Infof("config: overriding transport.udp_enabled from env: %v", b)
		} else {
			applog.Warnf("config: ignoring AUDIOVIZ_UDP_ENABLED=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("AUDIOVIZ_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Infof("config: overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("AUDIOVIZ_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Infof("config: overriding transport.udp_send_interval from env: %s", dur)
		} else {
			applog.Warnf("config: ignoring AUDIOVIZ_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}
