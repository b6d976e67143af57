// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"time"
)

// hitDetector fires a one-tick onset pulse when a band's energy rises
// sharply above its running average. After a trigger the detector is in
// cooldown until the window elapses; no event moves it back to idle.
type hitDetector struct {
	cooldownMS  float64
	avgDecay    float64
	valueDecay  float64
	deltaFloor  float64
	deltaRatio  float64
	energyFloor float64

	detected    bool    // this-tick edge, reset at the top of every update
	lastTrigger float64 // ms
	avgEnergy   float64
	prevEnergy  float64
	value       float64 // decaying hit strength in [0,1]
}

func newHitDetector(cfg Config, cooldown time.Duration) hitDetector {
	return hitDetector{
		cooldownMS:  float64(cooldown.Milliseconds()),
		avgDecay:    cfg.HitAverageDecay,
		valueDecay:  cfg.HitValueDecay,
		deltaFloor:  cfg.HitDeltaFloor,
		deltaRatio:  cfg.HitDeltaRatio,
		energyFloor: cfg.HitEnergyFloor,
		lastTrigger: math.Inf(-1),
	}
}

// update advances one tick. The trigger threshold uses the running average
// from before this tick's blend so a sharp rise is judged against the quiet
// baseline it interrupts.
func (h *hitDetector) update(energy, nowMS float64) {
	h.detected = false
	h.value *= h.valueDecay

	delta := energy - h.prevEnergy
	threshold := math.Max(h.deltaFloor, h.avgEnergy*h.deltaRatio)
	if delta > threshold && energy > h.energyFloor && nowMS-h.lastTrigger > h.cooldownMS {
		h.detected = true
		h.lastTrigger = nowMS
		h.value = 1.0
	}

	h.avgEnergy = h.avgEnergy*h.avgDecay + energy*(1-h.avgDecay)
	h.prevEnergy = energy
}
