// SPDX-License-Identifier: MIT
package analysis

import "math"

// oscillatorDivisors are the beat subdivisions driving the LFO and ramp
// pairs: one cycle every 2, 4 and 8 beats.
var oscillatorDivisors = [3]float64{2, 4, 8}

// oscillatorBank holds the tempo-locked phase accumulators. Outputs are pure
// functions of cumulative elapsed time and the BPM sequence fed in; there is
// no other state and no failure mode.
type oscillatorBank struct {
	fallbackBPM float64
	lfoPhase    [3]float64 // radians
	rampPhase   [3]float64 // cycles in [0,1)
}

func newOscillatorBank(cfg Config) oscillatorBank {
	return oscillatorBank{fallbackBPM: cfg.FallbackBPM}
}

// advance moves every accumulator forward by dt seconds at the given tempo.
// bpm <= 0 means no tempo has been tracked yet and the fallback applies.
func (o *oscillatorBank) advance(bpm, dt float64) {
	if bpm <= 0 {
		bpm = o.fallbackBPM
	}
	beatHz := bpm / 60
	for i, div := range oscillatorDivisors {
		o.lfoPhase[i] = math.Mod(o.lfoPhase[i]+beatHz/div*dt*2*math.Pi, 2*math.Pi)
		o.rampPhase[i] = math.Mod(o.rampPhase[i]+beatHz/div*dt, 1)
	}
}

// lfo returns the sine output for subdivision index i, in [0,1].
func (o *oscillatorBank) lfo(i int) float64 {
	return (math.Sin(o.lfoPhase[i]) + 1) / 2
}

// ramp returns the sawtooth output for subdivision index i, in [0,1).
func (o *oscillatorBank) ramp(i int) float64 {
	return o.rampPhase[i]
}
