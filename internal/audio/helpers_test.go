package audio

import (
	"math"
	"strconv"
	"testing"

	"github.com/samuelpmahan/audio-viz/internal/config"
)

// Shared fixtures for the audio package tests. The thresholds bracket the
// buffer levels: quietBuffer peaks at lowThreshold, loudBuffer well above it
// and below highThreshold.
const (
	testSampleRate = 44100.0
	testFrameSize  = 512

	lowThreshold  = int32(math.MaxInt32 / 1000)
	highThreshold = int32(math.MaxInt32 / 2)
)

var (
	testBuffer  = rampBuffer(testFrameSize, math.MaxInt32/4)
	quietBuffer = rampBuffer(testFrameSize, math.MaxInt32/1000)
	loudBuffer  = rampBuffer(testFrameSize, math.MaxInt32/3)
)

// rampBuffer fills a buffer with an alternating-sign ramp peaking at peak.
func rampBuffer(size int, peak int32) []int32 {
	buf := make([]int32, size)
	for i := range buf {
		v := int32(int64(peak) * int64(i+1) / int64(size))
		if i%2 == 1 {
			v = -v
		}
		buf[i] = v
	}
	return buf
}

// newTestEngine builds an engine on the default configuration with capture
// conditioning neutralized: mono input, unity gain, gate off. Tests flip
// what they need.
func newTestEngine(tb testing.TB) *Engine {
	tb.Helper()

	cfg := config.NewConfig()
	cfg.Audio.InputChannels = 1
	cfg.Audio.GateEnabled = false

	e, err := NewEngine(cfg)
	if err != nil {
		tb.Fatalf("NewEngine: %v", err)
	}
	return e
}

// formatFloat renders a float for subtest names.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// absFloat returns the absolute value of x.
func absFloat(x float64) float64 {
	return math.Abs(x)
}

// absInt32 returns the absolute value of x.
func absInt32(x int32) int32 {
	mask := x >> 31
	return (x ^ mask) - mask
}
