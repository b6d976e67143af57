// Package utils holds shared test helpers: deterministic signal generators
// and a transport stub. It is imported only from _test files but lives as a
// normal package so every test package can share one copy.
package utils

import (
	"math"
	"sync"
)

// MockTransport records everything sent through it for later inspection.
// Safe for concurrent senders.
type MockTransport struct {
	mu   sync.Mutex
	Sent []any
}

// Send appends the payload to Sent. Metrics snapshots are value types, so
// the append is a copy of the data that mattered at send time.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, data)
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MockTransport) Close() error { return nil }

// Count returns how many payloads were sent.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// Last returns the most recent payload, or nil if nothing was sent.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return m.Sent[len(m.Sent)-1]
}

// GenerateSineWave fills a buffer with a single tone at 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int32(math.Sin(2*math.Pi*frequency*t) * math.MaxInt32 * 0.9)
	}
	return buffer
}

// GenerateComplexWave fills a buffer with a 440 Hz fundamental plus two
// harmonics, the standard "rich" test signal.
func GenerateComplexWave(size int, sampleRate float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = int32(signal * math.MaxInt32 * 0.9)
	}
	return buffer
}

// GenerateSilence returns an all-zero buffer.
func GenerateSilence(size int) []int32 {
	return make([]int32, size)
}

// FindPeakBin returns the index of the largest magnitude in [startBin,
// endBin], clamped to the slice bounds.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
