// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("default sample rate = %f, want %f", cfg.Audio.SampleRate, float64(DefaultSampleRate))
	}
	if cfg.DSP.FFTSize != DefaultFFTSize {
		t.Errorf("default fft size = %d, want %d", cfg.DSP.FFTSize, DefaultFFTSize)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
debug: true
log_level: debug
audio:
  sample_rate: 48000
  frames_per_buffer: 256
dsp:
  fft_size: 1024
  mel_bands: 24
analysis:
  band_mode: five
transport:
  udp_enabled: true
  udp_target_address: "127.0.0.1:9999"
  udp_send_interval: 33ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug not taken from file")
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample rate = %f, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.DSP.FFTSize != 1024 || cfg.DSP.MelBands != 24 {
		t.Errorf("dsp = %+v, want fft_size 1024 mel_bands 24", cfg.DSP)
	}
	if cfg.Analysis.BandMode != "five" {
		t.Errorf("band mode = %q, want five", cfg.Analysis.BandMode)
	}
	if cfg.Transport.UDPSendInterval != 33*time.Millisecond {
		t.Errorf("udp interval = %s, want 33ms", cfg.Transport.UDPSendInterval)
	}
	// Untouched fields keep their defaults.
	if cfg.Audio.Gain != DefaultGain {
		t.Errorf("gain = %f, want default %f", cfg.Audio.Gain, float64(DefaultGain))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		substr string // empty means valid
	}{
		{"Defaults", func(c *Config) {}, ""},
		{"Zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "sample_rate"},
		{"Negative gain", func(c *Config) { c.Audio.Gain = -1 }, "gain"},
		{"Gate above unity", func(c *Config) { c.Audio.GateThreshold = 1.5 }, "gate_threshold"},
		{"FFT not power of two", func(c *Config) { c.DSP.FFTSize = 500 }, "power of 2"},
		{"Raw FFT not power of two", func(c *Config) { c.DSP.RawFFTSize = 3000 }, "power of 2"},
		{"Smoothing at unity", func(c *Config) { c.DSP.RawSmoothing = 1.0 }, "raw_smoothing"},
		{"Too few mel bands", func(c *Config) { c.DSP.MelBands = 2 }, "mel_bands"},
		{"Inverted mel range", func(c *Config) { c.DSP.MelLowHz = 2000; c.DSP.MelHighHz = 100 }, "invalid"},
		{"Mel above Nyquist", func(c *Config) { c.DSP.MelHighHz = 40000 }, "Nyquist"},
		{"Unknown band mode", func(c *Config) { c.Analysis.BandMode = "seven" }, "band_mode"},
		{"UDP without target", func(c *Config) { c.Transport.UDPEnabled = true; c.Transport.UDPTargetAddress = "" }, "udp_target_address"},
		{"UDP zero interval", func(c *Config) { c.Transport.UDPEnabled = true; c.Transport.UDPSendInterval = 0 }, "udp_send_interval"},
		{"WS without addr", func(c *Config) { c.Transport.WSAddr = "" }, "ws_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.substr == "" {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.substr)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUDIOVIZ_DEBUG", "true")
	t.Setenv("AUDIOVIZ_UDP_ENABLED", "true")
	t.Setenv("AUDIOVIZ_UDP_TARGET_ADDRESS", "10.0.0.5:7000")
	t.Setenv("AUDIOVIZ_UDP_SEND_INTERVAL", "25ms")
	t.Setenv("AUDIOVIZ_INPUT_DEVICE", "3")

	cfg := NewConfig()
	cfg.applyEnvOverrides()

	if !cfg.Debug {
		t.Error("AUDIOVIZ_DEBUG not applied")
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.5:7000" {
		t.Errorf("UDP env overrides not applied: %+v", cfg.Transport)
	}
	if cfg.Transport.UDPSendInterval != 25*time.Millisecond {
		t.Errorf("udp interval = %s, want 25ms", cfg.Transport.UDPSendInterval)
	}
	if cfg.Audio.InputDevice != 3 {
		t.Errorf("input device = %d, want 3", cfg.Audio.InputDevice)
	}
}

func TestEnvOverrides_BadValuesIgnored(t *testing.T) {
	t.Setenv("AUDIOVIZ_DEBUG", "not-a-bool")
	t.Setenv("AUDIOVIZ_UDP_SEND_INTERVAL", "soon")
	t.Setenv("AUDIOVIZ_INPUT_DEVICE", "first")

	cfg := NewConfig()
	cfg.applyEnvOverrides()

	if cfg.Debug {
		t.Error("bad AUDIOVIZ_DEBUG should be ignored")
	}
	if cfg.Transport.UDPSendInterval != DefaultUDPInterval {
		t.Errorf("bad interval should be ignored, got %s", cfg.Transport.UDPSendInterval)
	}
	if cfg.Audio.InputDevice != DefaultDeviceID {
		t.Errorf("bad device id should be ignored, got %d", cfg.Audio.InputDevice)
	}
}
