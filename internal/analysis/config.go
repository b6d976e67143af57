// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"
	"time"
)

// BandMode selects how many macro bands the aggregator produces.
type BandMode int

const (
	// ThreeBand splits the mel vector into bass/mid/treble (20/30/50%).
	ThreeBand BandMode = iota
	// FiveBand adds lowMid and highMid (20/15/25/20/20%).
	FiveBand
)

// Bands returns the number of macro bands for the mode.
func (m BandMode) Bands() int {
	if m == FiveBand {
		return 5
	}
	return 3
}

func (m BandMode) String() string {
	if m == FiveBand {
		return "five"
	}
	return "three"
}

// ParseBandMode converts a mode name ("three" or "five") to a BandMode.
func ParseBandMode(name string) (BandMode, error) {
	switch strings.ToLower(name) {
	case "three", "3":
		return ThreeBand, nil
	case "five", "5":
		return FiveBand, nil
	default:
		return ThreeBand, fmt.Errorf("unknown band mode: %q", name)
	}
}

// Config names every threshold and smoothing constant of the feature
// pipeline. The defaults are the canonical tuning; behavioral variants are
// configuration, not code forks. Decay fields are the fraction of the
// previous value retained per tick.
type Config struct {
	BandMode BandMode

	// Adaptive peak normalization (one tracker per macro band).
	PeakDecay    float64 // running peak retain per tick
	PeakFloor    float64 // minimum peak, prevents divide-by-near-zero in silence
	PeakHeadroom float64 // fraction of the peak used as denominator; <1 lets transients clip to 1.0

	// Per-band onset detection.
	HitAverageDecay float64 // average-energy EMA retain
	HitValueDecay   float64 // hit-strength decay per tick
	HitDeltaFloor   float64 // minimum energy rise to trigger
	HitDeltaRatio   float64 // rise must also exceed avgEnergy*ratio
	HitEnergyFloor  float64 // absolute energy floor, no triggers near silence
	BassCooldown    time.Duration
	MidCooldown     time.Duration
	TrebleCooldown  time.Duration

	// Kick/snare classification over broadband spectral flux.
	FluxDecay          float64 // average-flux EMA retain
	FluxFloor          float64 // minimum flux threshold (0..255 dB byte scale)
	FluxRatio          float64 // dynamic threshold = max(floor, avgFlux*ratio)
	KickCentroidMax    float64 // normalized centroid below this classifies kick
	SnareCentroidMax   float64 // centroid in [KickCentroidMax, this) classifies snare
	KickBassGate       float64 // minimum bass energy for a kick
	KickCooldown       time.Duration
	SnareCooldown      time.Duration
	SnareKickLockout   time.Duration // snare suppressed this long after any kick
	SnareBassDominance float64       // snare rejected when bass > mid*ratio

	// Beat/tempo tracking.
	BeatStrengthGate float64       // bass hit strength required to count a beat
	BeatMinGap       time.Duration // double-trigger rejection window

	// Presence smoothing and tempo-locked oscillators.
	PresenceDecay float64
	FallbackBPM   float64 // oscillator tempo before any BPM is tracked
}

// DefaultConfig returns the canonical pipeline tuning.
func DefaultConfig() Config {
	return Config{
		BandMode: ThreeBand,

		PeakDecay:    0.999,
		PeakFloor:    0.1,
		PeakHeadroom: 0.8,

		HitAverageDecay: 0.95,
		HitValueDecay:   0.85,
		HitDeltaFloor:   0.1,
		HitDeltaRatio:   0.5,
		HitEnergyFloor:  0.2,
		BassCooldown:    100 * time.Millisecond,
		MidCooldown:     90 * time.Millisecond,
		TrebleCooldown:  80 * time.Millisecond,

		FluxDecay:          0.96,
		FluxFloor:          0.5,
		FluxRatio:          1.2,
		KickCentroidMax:    0.35,
		SnareCentroidMax:   0.85,
		KickBassGate:       0.3,
		KickCooldown:       150 * time.Millisecond,
		SnareCooldown:      100 * time.Millisecond,
		SnareKickLockout:   100 * time.Millisecond,
		SnareBassDominance: 1.5,

		BeatStrengthGate: 0.8,
		BeatMinGap:       200 * time.Millisecond,

		PresenceDecay: 0.98,
		FallbackBPM:   120,
	}
}
