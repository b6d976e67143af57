// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
	"time"
)

func TestGateEnableDisable(t *testing.T) {
	engine := &Engine{}

	if engine.GateEnabled() {
		t.Error("Gate should be disabled on a zero-value engine")
	}

	engine.EnableGate()
	if !engine.GateEnabled() {
		t.Error("Gate should be enabled after EnableGate()")
	}

	engine.DisableGate()
	if engine.GateEnabled() {
		t.Error("Gate should be disabled after DisableGate()")
	}

	engine.EnableGate()
	engine.EnableGate() // Multiple calls should be idempotent
	if !engine.GateEnabled() {
		t.Error("Gate should remain enabled after multiple EnableGate()")
	}

	engine.DisableGate()
	engine.DisableGate()
	if engine.GateEnabled() {
		t.Error("Gate should remain disabled after multiple DisableGate()")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
	}

	engine := &Engine{}

	for _, tt := range tests {
		t.Run(formatFloat(tt.input), func(t *testing.T) {
			engine.SetGateThreshold(tt.input)
			got := engine.GateThreshold()

			if absFloat(got-tt.expected) > 0.001 {
				t.Errorf("Gate threshold conversion: got %.3f, want %.3f", got, tt.expected)
			}
		})
	}
}

func TestGateThresholdPrecision(t *testing.T) {
	engine := &Engine{}

	tests := []struct {
		ratio float64
		desc  string
	}{
		{0.0, "Zero"},
		{0.1, "10%"},
		{0.25, "Quarter"},
		{0.5, "Half"},
		{0.75, "Three quarter"},
		{0.999, "Near max"},
		{1.0, "Unity"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			engine.SetGateThreshold(tt.ratio)
			result := engine.GateThreshold()

			if absFloat(result-tt.ratio) > 0.0001 {
				t.Errorf("Threshold conversion error: got %.6f, want %.6f", result, tt.ratio)
			}

			// The int32 representation must stay proportional.
			expectedInt32 := int32(tt.ratio * float64(math.MaxInt32))
			if absInt32(expectedInt32-engine.gateThreshold.Load()) > 100 {
				t.Errorf("Int32 threshold mismatch: got %d, want %d",
					engine.gateThreshold.Load(), expectedInt32)
			}
		})
	}
}

// TestGateBlocksChain drives buffers through the full feed chain and checks
// whether the tick reached the pipeline: a processed tick publishes a
// snapshot with a nonzero volume, a gated one leaves the zero snapshot.
func TestGateBlocksChain(t *testing.T) {
	tests := []struct {
		desc          string
		buffer        []int32
		gateEnabled   bool
		threshold     float64
		shouldProcess bool
	}{
		{"Gate disabled/Quiet signal", quietBuffer, false, 0.1, true},
		{"Gate disabled/Loud signal", loudBuffer, false, 0.1, true},
		{"Gate enabled/Quiet signal/Low threshold", quietBuffer, true, 0.0001, true},
		{"Gate enabled/Quiet signal/Mid threshold", quietBuffer, true, 0.1, false},
		{"Gate enabled/Loud signal/Mid threshold", loudBuffer, true, 0.1, true},
		{"Gate enabled/Loud signal/High threshold", loudBuffer, true, 0.999, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			engine := newTestEngine(t)
			if tt.gateEnabled {
				engine.EnableGate()
			}
			engine.SetGateThreshold(tt.threshold)

			engine.feed(tt.buffer, time.Unix(1, 0))

			processed := engine.Metrics().Volume > 0
			if processed != tt.shouldProcess {
				t.Errorf("Gate chain: got processed=%v, want %v (threshold=%d)",
					processed, tt.shouldProcess, engine.gateThreshold.Load())
			}
		})
	}
}

func BenchmarkGateThresholdConversion(b *testing.B) {
	engine := &Engine{}
	values := []float64{0.0, 0.25, 0.5, 0.75, 1.0}

	for _, v := range values {
		b.Run(formatFloat(v), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				engine.SetGateThreshold(v)
				_ = engine.GateThreshold() // Discard result to prevent optimization
			}
		})
	}
}

// BenchmarkGateScanClosed measures the gate's amplitude scan alone: the
// threshold pins the gate shut so feed returns after the scan.
func BenchmarkGateScanClosed(b *testing.B) {
	benchmarks := []struct {
		name   string
		buffer []int32
	}{
		{"Quiet signal", quietBuffer},
		{"Normal signal", testBuffer},
		{"Loud signal", loudBuffer},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			engine := newTestEngine(b)
			engine.EnableGate()
			engine.SetGateThreshold(1.0)
			now := time.Unix(1, 0)

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				engine.feed(bm.buffer, now)
			}
		})
	}
}
