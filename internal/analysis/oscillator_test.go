// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestOscillatorDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	dts := []float64{0.010, 0.016, 0.021, 0.009, 0.050, 0.011}

	a := newOscillatorBank(cfg)
	b := newOscillatorBank(cfg)
	for _, dt := range dts {
		a.advance(130, dt)
	}
	for _, dt := range dts {
		b.advance(130, dt)
	}
	for i := range oscillatorDivisors {
		if a.lfo(i) != b.lfo(i) || a.ramp(i) != b.ramp(i) {
			t.Fatalf("subdivision %d: replaying the same sequence diverged", i)
		}
	}

	// The same cumulative elapsed time in different step sizes lands on
	// the same outputs.
	var total float64
	for _, dt := range dts {
		total += dt
	}
	c := newOscillatorBank(cfg)
	for range 10 {
		c.advance(130, total/10)
	}
	if math.Abs(c.lfo(1)-a.lfo(1)) > 1e-9 || math.Abs(c.ramp(1)-a.ramp(1)) > 1e-9 {
		t.Errorf("outputs depend on step size: lfo4 %f vs %f, ramp4 %f vs %f",
			c.lfo(1), a.lfo(1), c.ramp(1), a.ramp(1))
	}
}

func TestOscillatorFallbackTempo(t *testing.T) {
	o := newOscillatorBank(DefaultConfig()) // 120 BPM fallback

	// At 120 BPM the half-note LFO runs at 1 Hz: a quarter second in is
	// the crest of the sine and a quarter of the ramp cycle.
	o.advance(0, 0.25)
	if got := o.lfo(0); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("lfo2 after 0.25s = %f, want 1.0", got)
	}
	if got := o.ramp(0); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("ramp2 after 0.25s = %f, want 0.25", got)
	}
	if got := o.ramp(1); math.Abs(got-0.125) > 1e-12 {
		t.Errorf("ramp4 after 0.25s = %f, want 0.125", got)
	}
}

func TestOscillatorBounds(t *testing.T) {
	o := newOscillatorBank(DefaultConfig())
	for i := range 5000 {
		o.advance(float64(60+i%180), 0.013)
		for j := range oscillatorDivisors {
			if v := o.lfo(j); v < 0 || v > 1 {
				t.Fatalf("lfo %d = %f outside [0,1]", j, v)
			}
			if v := o.ramp(j); v < 0 || v >= 1 {
				t.Fatalf("ramp %d = %f outside [0,1)", j, v)
			}
		}
	}
}
