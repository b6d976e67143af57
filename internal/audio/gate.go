// SPDX-License-Identifier: MIT
package audio

import "math"

// EnableGate turns the noise gate on. Idempotent, callable while the stream
// runs.
func (e *Engine) EnableGate() {
	e.gateEnabled.Store(true)
}

// DisableGate turns the noise gate off; every tick then reaches the DSP
// chain.
func (e *Engine) DisableGate() {
	e.gateEnabled.Store(false)
}

// GateEnabled reports whether the noise gate is active.
func (e *Engine) GateEnabled() bool {
	return e.gateEnabled.Load()
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	e.gateThreshold.Store(int32(threshold * float64(math.MaxInt32)))
}

// GateThreshold returns the current noise gate threshold as a float64 in the
// range 0.0-1.0.
func (e *Engine) GateThreshold() float64 {
	return float64(e.gateThreshold.Load()) / float64(math.MaxInt32)
}
