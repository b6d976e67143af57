// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// beatHistoryCap bounds the beat timestamp history; oldest evicted first.
	beatHistoryCap = 8
	// beatMinHistory is the number of accepted beats needed to compute BPM.
	beatMinHistory = 4
)

// beatTracker infers tempo from qualifying bass hits. Accepted beat
// timestamps form a bounded history; BPM is the rounded mean of consecutive
// inter-beat intervals and confidence falls with their spread. Phase and the
// on-beat pulse are recomputed every tick whether or not a beat arrived.
type beatTracker struct {
	strengthGate float64
	minGapMS     float64

	history   []float64 // accepted beat timestamps (ms), oldest first
	intervals []float64 // scratch for the consecutive gaps
	lastBeat  float64   // ms

	intervalMS float64 // mean inter-beat gap; 0 until a tempo is tracked
	bpm        float64
	confidence float64
	phase      float64 // [0,1), wraps to 0 at each accepted beat
	onBeat     float64
}

func newBeatTracker(cfg Config) beatTracker {
	return beatTracker{
		strengthGate: cfg.BeatStrengthGate,
		minGapMS:     float64(cfg.BeatMinGap.Milliseconds()),
		history:      make([]float64, 0, beatHistoryCap),
		intervals:    make([]float64, 0, beatHistoryCap-1),
		lastBeat:     math.Inf(-1),
	}
}

// update advances one tick. strength is the bass hit detector's decaying
// value: a trigger tick arrives as 1.0 and the minimum gap absorbs its decay
// tail, so one physical onset counts once.
func (b *beatTracker) update(nowMS, strength float64) {
	if strength > b.strengthGate && nowMS-b.lastBeat > b.minGapMS {
		if len(b.history) == beatHistoryCap {
			copy(b.history, b.history[1:])
			b.history = b.history[:beatHistoryCap-1]
		}
		b.history = append(b.history, nowMS)
		b.lastBeat = nowMS
		b.retrack()
	}

	if b.intervalMS > 0 {
		b.phase = math.Mod(nowMS-b.lastBeat, b.intervalMS) / b.intervalMS
		c := math.Cos(2 * math.Pi * b.phase)
		b.onBeat = c * c * b.confidence
	}
}

// retrack recomputes interval, BPM and confidence from the current history.
func (b *beatTracker) retrack() {
	if len(b.history) < beatMinHistory {
		return
	}

	b.intervals = b.intervals[:0]
	for i := 1; i < len(b.history); i++ {
		b.intervals = append(b.intervals, b.history[i]-b.history[i-1])
	}

	mean := stat.Mean(b.intervals, nil)
	if mean <= 0 {
		return
	}
	b.intervalMS = mean
	b.bpm = math.Round(60000 / mean)
	b.confidence = math.Max(0, 1-stat.StdDev(b.intervals, nil)/mean)
}
