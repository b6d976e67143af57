// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}

	if mt.Count() != 0 || mt.Last() != nil {
		t.Error("fresh MockTransport should be empty")
	}

	payloads := []any{"first", 42, []float64{0.1, 0.2}}
	for _, p := range payloads {
		if err := mt.Send(p); err != nil {
			t.Errorf("Send(%v) error = %v", p, err)
		}
	}

	if mt.Count() != len(payloads) {
		t.Errorf("Count() = %d, want %d", mt.Count(), len(payloads))
	}
	if last, ok := mt.Last().([]float64); !ok || len(last) != 2 {
		t.Errorf("Last() = %v, want the float slice", mt.Last())
	}
	if err := mt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 1024, 44100, 440.0},
		{"Middle C", 1024, 44100, 261.63},
		{"High Sample Rate", 1024, 192000, 440.0},
		{"Low Sample Rate", 1024, 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(tt.size, tt.sampleRate, tt.frequency)

			if len(result) != tt.size {
				t.Fatalf("buffer size = %d, want %d", len(result), tt.size)
			}

			// Zero crossings should land roughly twice per cycle.
			samplesPerCycle := tt.sampleRate / tt.frequency
			if samplesPerCycle > 2 && float64(tt.size) > samplesPerCycle {
				crossCount := 0
				for i := 1; i < tt.size; i++ {
					if (result[i-1] < 0 && result[i] >= 0) ||
						(result[i-1] >= 0 && result[i] < 0) {
						crossCount++
					}
				}
				expected := float64(tt.size) / (samplesPerCycle / 2)
				tolerance := 0.2 * expected
				if math.Abs(float64(crossCount)-expected) > tolerance {
					t.Errorf("zero crossings = %d, expected approximately %.1f±%.1f",
						crossCount, expected, tolerance)
				}
			}
		})
	}
}

func TestGenerateComplexWave(t *testing.T) {
	result := GenerateComplexWave(testSize, testSampleRate)
	if len(result) != testSize {
		t.Fatalf("buffer size = %d, want %d", len(result), testSize)
	}
	hasNonZero := false
	for _, v := range result {
		if v != 0 {
			hasNonZero = true
			break
		}
	}
	if !hasNonZero {
		t.Error("GenerateComplexWave() produced all zeros")
	}
}

func TestGenerateSilence(t *testing.T) {
	result := GenerateSilence(256)
	if len(result) != 256 {
		t.Fatalf("buffer size = %d, want 256", len(result))
	}
	for i, v := range result {
		if v != 0 {
			t.Fatalf("sample %d = %d, want 0", i, v)
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	mags := make([]float64, testSize)
	for i := range mags {
		// Hill with its peak at testSize/4.
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	tests := []struct {
		name     string
		mags     []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", mags, 0, testSize - 1, testSize / 4},
		{"Partial Range Start", mags, testSize / 8, testSize - 1, testSize / 4},
		{"Partial Range End", mags, 0, testSize / 3, testSize / 4},
		{"Negative Start", mags, -10, testSize - 1, testSize / 4},
		{"Out of Range End", mags, 0, testSize * 2, testSize / 4},
		{"Empty Slice", []float64{}, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(tt.mags, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(mags, 0, len(mags)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkGenerateSineWave(b *testing.B) {
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		GenerateSineWave(testSize, testSampleRate, testFrequency)
	}
}

func BenchmarkFindPeakBin(b *testing.B) {
	mags := make([]float64, testSize)
	peakPos := testSize / 2
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-peakPos), 2))
	}

	b.ReportAllocs()
	for b.Loop() {
		FindPeakBin(mags, 0, testSize-1)
	}
}
