// SPDX-License-Identifier: MIT

// Package analysis turns per-tick spectral frames into musically meaningful
// metrics: normalized band energies, onset pulses, kick/snare events, tempo
// with confidence, presence trends and tempo-locked oscillators. One Pipeline
// instance owns all of that state and is driven from a single goroutine;
// renderers consume the Metrics value snapshot.
package analysis

import (
	"time"

	"github.com/samuelpmahan/audio-viz/internal/dsp"
)

// Pipeline is the per-tick feature pipeline. All state mutates only inside
// Update, once per audio buffer; Metrics returns the latest snapshot by
// value. Concurrent Update calls are not permitted.
type Pipeline struct {
	cfg Config

	bands  *bandAggregator
	bass   hitDetector
	mid    hitDetector
	treble hitDetector
	drums  drumClassifier
	beat   beatTracker
	osc    oscillatorBank

	presence [5]float64 // bass, lowMid, mid, highMid, treble

	epoch    time.Time
	lastTick float64 // ms since epoch
	started  bool

	metrics Metrics
}

// NewPipeline constructs a pipeline with all state zeroed. Pure and
// synchronous; the caller drives it by calling Update once per tick.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		bands:  newBandAggregator(cfg),
		bass:   newHitDetector(cfg, cfg.BassCooldown),
		mid:    newHitDetector(cfg, cfg.MidCooldown),
		treble: newHitDetector(cfg, cfg.TrebleCooldown),
		drums:  newDrumClassifier(cfg),
		beat:   newBeatTracker(cfg),
		osc:    newOscillatorBank(cfg),
	}
}

// Update advances every stage by one tick. frame is the tick's feature frame
// and now its timestamp. An invalid frame (extractor not warmed up) leaves
// all state and the previous metrics untouched. Zero allocations in steady
// state.
func (p *Pipeline) Update(frame dsp.Frame, now time.Time) {
	if !frame.Valid() {
		return
	}

	var nowMS, dt float64
	if !p.started {
		p.epoch = now
		p.started = true
	} else {
		nowMS = now.Sub(p.epoch).Seconds() * 1000
		dt = (nowMS - p.lastTick) / 1000
		if dt < 0 {
			dt = 0
		}
	}
	p.lastTick = nowMS

	energies := p.bands.aggregate(frame.Mel)

	p.bass.update(energies.Bass, nowMS)
	p.mid.update(energies.Mid, nowMS)
	p.treble.update(energies.Treble, nowMS)

	p.drums.update(frame.Spectrum, frame.Centroid, energies.Bass, energies.Mid, nowMS)

	p.beat.update(nowMS, p.bass.value)

	keep := p.cfg.PresenceDecay
	blend := 1 - keep
	for i, e := range [5]float64{energies.Bass, energies.LowMid, energies.Mid, energies.HighMid, energies.Treble} {
		p.presence[i] = p.presence[i]*keep + e*blend
	}

	p.osc.advance(p.beat.bpm, dt)

	p.snapshot(energies, frame)
}

// Metrics returns the latest snapshot. Side-effect-free; call from the
// goroutine driving Update (the engine republishes snapshots atomically for
// everyone else).
func (p *Pipeline) Metrics() Metrics {
	return p.metrics
}

// snapshot rebuilds the public metrics record from the tick's results.
func (p *Pipeline) snapshot(e BandEnergies, frame dsp.Frame) {
	p.metrics = Metrics{
		Bass:    e.Bass,
		LowMid:  e.LowMid,
		Mid:     e.Mid,
		HighMid: e.HighMid,
		Treble:  e.Treble,

		BassPresence:    p.presence[0],
		LowMidPresence:  p.presence[1],
		MidPresence:     p.presence[2],
		HighMidPresence: p.presence[3],
		TreblePresence:  p.presence[4],

		BassHit:           p.bass.detected,
		MidHit:            p.mid.detected,
		TrebleHit:         p.treble.detected,
		BassHitStrength:   p.bass.value,
		MidHitStrength:    p.mid.value,
		TrebleHitStrength: p.treble.value,

		Kick:          p.drums.kickDetected,
		Snare:         p.drums.snareDetected,
		KickStrength:  p.drums.kickValue,
		SnareStrength: p.drums.snareValue,

		BPM:            p.beat.bpm,
		BeatConfidence: p.beat.confidence,
		BeatPhase:      p.beat.phase,
		OnBeat:         p.beat.onBeat,

		LFO2:  p.osc.lfo(0),
		LFO4:  p.osc.lfo(1),
		LFO8:  p.osc.lfo(2),
		Ramp2: p.osc.ramp(0),
		Ramp4: p.osc.ramp(1),
		Ramp8: p.osc.ramp(2),

		Volume:   frame.RMS,
		Centroid: frame.Centroid,
	}
}
