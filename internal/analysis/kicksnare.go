// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"github.com/samuelpmahan/audio-viz/internal/dsp"
)

// drumClassifier separates kick and snare onsets. Broadband spectral flux
// crossing a dynamic threshold marks an onset; the spectral centroid at that
// instant classifies it (dark spectrum = kick, brighter = snare). Kick is
// checked first, so at most one of the two fires per tick. Flux is the mean
// absolute frame-to-frame change of the spectrum on the 0..255 dB byte
// scale; the flux threshold constants are calibrated to that scale.
type drumClassifier struct {
	valueDecay float64
	fluxDecay  float64
	fluxFloor  float64
	fluxRatio  float64

	kickCentroidMax  float64
	snareCentroidMax float64
	kickBassGate     float64
	kickCooldownMS   float64
	snareCooldownMS  float64
	snareLockoutMS   float64
	bassDominance    float64

	prev    []float64 // previous tick's byte-scaled spectrum
	cur     []float64
	fftSize int
	primed  bool

	avgFlux float64

	kickDetected  bool // this-tick edges
	snareDetected bool
	kickValue     float64 // decaying strengths in [0,1]
	snareValue    float64
	lastKick      float64 // ms
	lastSnare     float64
}

func newDrumClassifier(cfg Config) drumClassifier {
	return drumClassifier{
		valueDecay:       cfg.HitValueDecay,
		fluxDecay:        cfg.FluxDecay,
		fluxFloor:        cfg.FluxFloor,
		fluxRatio:        cfg.FluxRatio,
		kickCentroidMax:  cfg.KickCentroidMax,
		snareCentroidMax: cfg.SnareCentroidMax,
		kickBassGate:     cfg.KickBassGate,
		kickCooldownMS:   float64(cfg.KickCooldown.Milliseconds()),
		snareCooldownMS:  float64(cfg.SnareCooldown.Milliseconds()),
		snareLockoutMS:   float64(cfg.SnareKickLockout.Milliseconds()),
		bassDominance:    cfg.SnareBassDominance,
		lastKick:         math.Inf(-1),
		lastSnare:        math.Inf(-1),
	}
}

// update advances one tick. spectrum is the fast-window magnitude spectrum,
// centroid the normalized spectral centroid, bass and mid the tick's
// normalized band energies. The flux threshold uses the average from before
// this tick's blend, like the per-band hit detectors.
func (d *drumClassifier) update(spectrum []float64, centroid, bass, mid, nowMS float64) {
	d.kickDetected = false
	d.snareDetected = false
	d.kickValue *= d.valueDecay
	d.snareValue *= d.valueDecay

	if len(spectrum) == 0 {
		return
	}
	if len(d.prev) != len(spectrum) {
		d.prev = make([]float64, len(spectrum))
		d.cur = make([]float64, len(spectrum))
		d.fftSize = 2 * (len(spectrum) - 1)
		d.primed = false
	}
	if !d.primed {
		// First frame after start or resize only primes the reference.
		for i, mag := range spectrum {
			d.prev[i] = dsp.ByteValue(mag, d.fftSize)
		}
		d.primed = true
		return
	}

	var fluxSum float64
	for i, mag := range spectrum {
		v := dsp.ByteValue(mag, d.fftSize)
		d.cur[i] = v
		fluxSum += math.Abs(v - d.prev[i])
	}
	flux := fluxSum / float64(len(spectrum))

	threshold := math.Max(d.fluxFloor, d.avgFlux*d.fluxRatio)
	if flux > threshold {
		if centroid < d.kickCentroidMax {
			if nowMS-d.lastKick > d.kickCooldownMS && bass >= d.kickBassGate {
				d.kickDetected = true
				d.kickValue = 1.0
				d.lastKick = nowMS
			}
		} else if centroid < d.snareCentroidMax {
			// A loud kick bleeding into the snare range must not be
			// double-counted, hence the lockout and bass dominance check.
			if nowMS-d.lastSnare > d.snareCooldownMS &&
				nowMS-d.lastKick > d.snareLockoutMS &&
				bass <= mid*d.bassDominance {
				d.snareDetected = true
				d.snareValue = 1.0
				d.lastSnare = nowMS
			}
		}
	}

	d.avgFlux = d.avgFlux*d.fluxDecay + flux*(1-d.fluxDecay)
	d.prev, d.cur = d.cur, d.prev
}
