// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

// beatRun drives a tracker with 10ms ticks and a decaying synthetic hit
// strength, the same signal shape the bass hit detector emits.
type beatRun struct {
	b        beatTracker
	nowMS    float64
	strength float64
}

func newBeatRun() *beatRun {
	return &beatRun{b: newBeatTracker(DefaultConfig())}
}

// tick advances 10ms; pulse marks a fresh bass hit.
func (r *beatRun) tick(pulse bool) {
	if pulse {
		r.strength = 1.0
	}
	r.b.update(r.nowMS, r.strength)
	r.nowMS += 10
	r.strength *= 0.85
}

func TestBeatTrackerConvergence(t *testing.T) {
	r := newBeatRun()

	// A hit train at exactly 500ms spacing for 8 beats.
	for tick := 1; tick <= 400; tick++ {
		r.tick(tick%50 == 0)
	}

	if math.Abs(r.b.bpm-120) > 2 {
		t.Errorf("bpm = %f, want 120±2", r.b.bpm)
	}
	if r.b.confidence <= 0.9 {
		t.Errorf("confidence = %f, want > 0.9", r.b.confidence)
	}
}

func TestBeatTrackerDecayTailCountsOnce(t *testing.T) {
	r := newBeatRun()

	// The strength stays above the gate for one tick after a pulse; the
	// minimum gap keeps that tail from registering as a second beat.
	for tick := 1; tick <= 100; tick++ {
		r.tick(tick == 10)
	}
	if len(r.b.history) != 1 {
		t.Errorf("history length = %d, want 1", len(r.b.history))
	}
}

func TestBeatTrackerDoubleTriggerRejected(t *testing.T) {
	r := newBeatRun()

	for tick := 1; tick <= 40; tick++ {
		r.tick(tick == 10 || tick == 20) // pulses 100ms apart
	}
	if len(r.b.history) != 1 {
		t.Errorf("history length = %d, want 1 after a double trigger", len(r.b.history))
	}
}

func TestBeatTrackerHistoryCap(t *testing.T) {
	r := newBeatRun()

	for tick := 1; tick <= 50*20; tick++ { // 20 beats
		r.tick(tick%50 == 0)
	}
	if len(r.b.history) != beatHistoryCap {
		t.Errorf("history length = %d, want %d", len(r.b.history), beatHistoryCap)
	}
}

func TestBeatTrackerNeedsFourBeats(t *testing.T) {
	r := newBeatRun()

	for tick := 1; tick <= 160; tick++ { // 3 beats
		r.tick(tick%50 == 0)
	}
	if r.b.bpm != 0 {
		t.Errorf("bpm = %f after 3 beats, want 0", r.b.bpm)
	}

	for tick := 161; tick <= 210; tick++ { // 4th beat
		r.tick(tick%50 == 0)
	}
	if r.b.bpm == 0 {
		t.Error("bpm still 0 after 4 beats")
	}
}

func TestBeatTrackerPhase(t *testing.T) {
	r := newBeatRun()
	for tick := 1; tick <= 400; tick++ {
		r.tick(tick%50 == 0)
	}
	if r.b.intervalMS <= 0 {
		t.Fatal("no tempo established")
	}

	// Phase wraps to 0 exactly on accepted beats and climbs between them.
	prev := r.b.phase
	for tick := 401; tick <= 600; tick++ {
		pulse := tick%50 == 0
		r.tick(pulse)
		if pulse {
			if r.b.phase > 1e-9 {
				t.Fatalf("tick %d: phase at beat = %f, want 0", tick, r.b.phase)
			}
			if math.Abs(r.b.onBeat-r.b.confidence) > 1e-9 {
				t.Fatalf("tick %d: onBeat at beat = %f, want confidence %f",
					tick, r.b.onBeat, r.b.confidence)
			}
		} else if r.b.phase <= prev {
			t.Fatalf("tick %d: phase %f did not increase from %f", tick, r.b.phase, prev)
		}
		prev = r.b.phase
	}
}

func TestBeatTrackerIrregularLowConfidence(t *testing.T) {
	r := newBeatRun()

	// Same 500ms mean spacing as the convergence train, but jittered.
	times := []float64{500, 800, 1500, 1900, 2500, 2850, 3500}
	next := 0
	for r.nowMS <= 3600 {
		pulse := next < len(times) && r.nowMS == times[next]
		if pulse {
			next++
		}
		r.tick(pulse)
	}

	if r.b.bpm != 120 {
		t.Errorf("bpm = %f, want 120 from the mean interval", r.b.bpm)
	}
	if r.b.confidence >= 0.7 {
		t.Errorf("confidence = %f, want < 0.7 for jittered beats", r.b.confidence)
	}
}
