// SPDX-License-Identifier: MIT
package analysis

// BandEnergies holds one tick's normalized macro band energies. LowMid and
// HighMid are zero in three-band mode.
type BandEnergies struct {
	Bass    float64
	LowMid  float64
	Mid     float64
	HighMid float64
	Treble  float64
}

// Proportional splits of the mel vector, bottom band first. Proportions
// rather than fixed bin counts keep behavior stable across different mel
// resolutions.
var (
	threeBandSplit = []float64{0.20, 0.30, 0.50}
	fiveBandSplit  = []float64{0.20, 0.15, 0.25, 0.20, 0.20}
)

// peakTracker follows one band's running maximum with slow exponential
// decay. The tracked peak is the adaptive normalization denominator: peak ≥
// any recent observation within the decay horizon, never reset after start.
type peakTracker struct {
	peak     float64
	decay    float64
	floor    float64
	headroom float64
}

func newPeakTracker(cfg Config) peakTracker {
	return peakTracker{
		decay:    cfg.PeakDecay,
		floor:    cfg.PeakFloor,
		headroom: cfg.PeakHeadroom,
	}
}

// normalize updates the peak with raw and returns raw scaled to [0,1]. The
// headroom factor lets fresh transients clip to 1.0; the floor keeps the
// denominator sane through silence.
func (p *peakTracker) normalize(raw float64) float64 {
	if raw > p.peak {
		p.peak = raw
	} else {
		p.peak *= p.decay
	}
	if p.peak < p.floor {
		p.peak = p.floor
	}

	denom := p.peak * p.headroom
	if denom < p.floor {
		denom = p.floor
	}
	e := raw / denom
	if e > 1 {
		return 1
	}
	return e
}

// bandAggregator collapses the mel vector into macro bands: arithmetic mean
// over each proportional slice, then per-band peak normalization.
type bandAggregator struct {
	mode   BandMode
	splits []float64
	peaks  []peakTracker
	bounds []int // mel slice boundaries, recomputed when the vector length changes
	melLen int
	raw    []float64
}

func newBandAggregator(cfg Config) *bandAggregator {
	splits := threeBandSplit
	if cfg.BandMode == FiveBand {
		splits = fiveBandSplit
	}
	peaks := make([]peakTracker, len(splits))
	for i := range peaks {
		peaks[i] = newPeakTracker(cfg)
	}
	return &bandAggregator{
		mode:   cfg.BandMode,
		splits: splits,
		peaks:  peaks,
		bounds: make([]int, len(splits)+1),
		raw:    make([]float64, len(splits)),
	}
}

// aggregate produces the tick's band energies. Peak state updates
// unconditionally on every call.
func (a *bandAggregator) aggregate(mel []float64) BandEnergies {
	if len(mel) == 0 {
		return BandEnergies{}
	}
	if len(mel) != a.melLen {
		a.resize(len(mel))
	}

	for b := range a.splits {
		lo, hi := a.bounds[b], a.bounds[b+1]
		if hi <= lo {
			a.raw[b] = 0
			continue
		}
		var sum float64
		for _, v := range mel[lo:hi] {
			sum += v
		}
		a.raw[b] = a.peaks[b].normalize(sum / float64(hi-lo))
	}

	if a.mode == FiveBand {
		return BandEnergies{
			Bass:    a.raw[0],
			LowMid:  a.raw[1],
			Mid:     a.raw[2],
			HighMid: a.raw[3],
			Treble:  a.raw[4],
		}
	}
	return BandEnergies{Bass: a.raw[0], Mid: a.raw[1], Treble: a.raw[2]}
}

// resize recomputes the slice boundaries for a new mel vector length. Each
// band keeps at least one bin when the vector is long enough.
func (a *bandAggregator) resize(melLen int) {
	a.melLen = melLen
	cum := 0.0
	a.bounds[0] = 0
	for i, p := range a.splits {
		cum += p
		bound := int(cum*float64(melLen) + 0.5)
		if bound <= a.bounds[i] {
			bound = a.bounds[i] + 1
		}
		if bound > melLen {
			bound = melLen
		}
		a.bounds[i+1] = bound
	}
	a.bounds[len(a.splits)] = melLen
}
