// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"

	applog "github.com/samuelpmahan/audio-viz/internal/log"
	"github.com/samuelpmahan/audio-viz/pkg/bitint"
)

// ExtractorConfig configures the mel filterbank extractor.
type ExtractorConfig struct {
	SampleRate float64 // Hz.
	FFTSize    int     // Size of the fast analysis window (power of two).
	Bands      int     // Number of mel bands.
	LowHz      float64 // Lower edge of the filterbank.
	HighHz     float64 // Upper edge; must be <= Nyquist.
}

// DefaultExtractorConfig returns the standard extractor setup: 32 mel bands
// over 20 Hz..16 kHz on a 512-point window at 44.1 kHz.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		SampleRate: 44100,
		FFTSize:    512,
		Bands:      32,
		LowHz:      20,
		HighHz:     16000,
	}
}

// melFilter is one triangular filter: weights apply to consecutive FFT bins
// starting at start. norm is the weight sum used to average the band.
type melFilter struct {
	start   int
	weights []float64
	norm    float64
}

// Extractor reduces a raw audio tick to a Frame: it copies the fast-window
// magnitude spectrum, applies a triangular mel filterbank and computes RMS
// and spectral centroid. One instance is owned by the engine and driven from
// the audio callback; Extract allocates nothing.
type Extractor struct {
	cfg      ExtractorConfig
	filters  []melFilter
	spectrum []float64 // Scratch copy of the latest magnitudes.
	mel      []float64
	bins     int
}

// NewExtractor builds the filterbank for the given configuration.
func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if !bitint.IsPowerOfTwo(cfg.FFTSize) {
		return nil, fmt.Errorf("extractor fft size must be a power of 2, got %d", cfg.FFTSize)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("extractor sample rate must be positive, got %f", cfg.SampleRate)
	}
	if cfg.Bands < 3 {
		return nil, fmt.Errorf("extractor needs at least 3 mel bands, got %d", cfg.Bands)
	}
	if cfg.LowHz < 0 || cfg.HighHz <= cfg.LowHz {
		return nil, fmt.Errorf("extractor mel range [%.1f, %.1f] is invalid", cfg.LowHz, cfg.HighHz)
	}
	nyquist := cfg.SampleRate / 2
	if cfg.HighHz > nyquist {
		return nil, fmt.Errorf("extractor mel upper edge %.1f exceeds Nyquist %.1f", cfg.HighHz, nyquist)
	}

	bins := cfg.FFTSize/2 + 1

	applog.Debugf("dsp: new extractor (%d mel bands over %.0f..%.0f Hz, %d bins)",
		cfg.Bands, cfg.LowHz, cfg.HighHz, bins)

	return &Extractor{
		cfg:      cfg,
		filters:  buildFilterbank(cfg, bins),
		spectrum: make([]float64, bins),
		mel:      make([]float64, cfg.Bands),
		bins:     bins,
	}, nil
}

// Bands returns the number of mel bands produced per frame.
func (e *Extractor) Bands() int { return e.cfg.Bands }

// Bins returns the spectrum length the extractor expects.
func (e *Extractor) Bins() int { return e.bins }

// Extract produces the Frame for one tick. samples is the mono time-domain
// buffer of the tick, spec the fast-window Spectrum already processed for the
// same buffer. The returned Frame borrows the extractor's buffers and is
// valid until the next call.
func (e *Extractor) Extract(samples []int32, spec *Spectrum) (Frame, error) {
	if spec.Bins() != e.bins {
		return Frame{}, fmt.Errorf("spectrum has %d bins, extractor expects %d", spec.Bins(), e.bins)
	}
	if err := spec.MagnitudesInto(e.spectrum); err != nil {
		return Frame{}, err
	}

	// Mel band energies: RMS of the weighted power in each filter, same
	// accumulate-square-then-root shape as the band energy of the wider
	// Hz-range bands this replaced.
	for i := range e.filters {
		f := &e.filters[i]
		var energy float64
		for j, w := range f.weights {
			mag := e.spectrum[f.start+j]
			energy += w * mag * mag
		}
		e.mel[i] = math.Sqrt(energy / f.norm)
	}

	return Frame{
		Spectrum: e.spectrum,
		Mel:      e.mel,
		RMS:      rmsLevel(samples),
		Centroid: spectralCentroid(e.spectrum),
	}, nil
}

// rmsLevel computes the root mean square of the buffer on the [-1,1) scale.
func rmsLevel(samples []int32) float64 {
	if len(samples) == 0 {
		return 0
	}
	const normFactor = 1.0 / float64(0x80000000)
	var sumSquare float64
	for _, s := range samples {
		f := float64(s) * normFactor
		sumSquare += f * f
	}
	return math.Sqrt(sumSquare / float64(len(samples)))
}

// spectralCentroid returns the magnitude-weighted mean bin position,
// normalized to 0..1 by the highest bin. Near-silent spectra return 0.
func spectralCentroid(spectrum []float64) float64 {
	if len(spectrum) < 2 {
		return 0
	}
	var weighted, total float64
	for i, mag := range spectrum {
		weighted += float64(i) * mag
		total += mag
	}
	if total < 1e-9 {
		return 0
	}
	return weighted / total / float64(len(spectrum)-1)
}

// hzToMel converts Hz to the mel scale.
func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// melToHz converts mel back to Hz.
func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// buildFilterbank lays out cfg.Bands triangular filters with edges evenly
// spaced on the mel scale between LowHz and HighHz.
func buildFilterbank(cfg ExtractorConfig, bins int) []melFilter {
	lowMel := hzToMel(cfg.LowHz)
	highMel := hzToMel(cfg.HighHz)
	step := (highMel - lowMel) / float64(cfg.Bands+1)

	// Edge bins for bands+2 mel points.
	edges := make([]int, cfg.Bands+2)
	binWidth := cfg.SampleRate / float64(cfg.FFTSize)
	for i := range edges {
		hz := melToHz(lowMel + float64(i)*step)
		bin := int(hz / binWidth)
		if bin >= bins {
			bin = bins - 1
		}
		edges[i] = bin
	}

	filters := make([]melFilter, cfg.Bands)
	for b := 0; b < cfg.Bands; b++ {
		left, center, right := edges[b], edges[b+1], edges[b+2]

		// Narrow low filters can collapse to zero width at small FFT
		// sizes; pin those to their center bin so the band stays live.
		if right <= left {
			filters[b] = melFilter{start: center, weights: []float64{1}, norm: 1}
			continue
		}

		weights := make([]float64, 0, right-left)
		start := left + 1
		if start > center && left == center {
			start = left
		}
		var norm float64
		for bin := start; bin <= right; bin++ {
			var w float64
			switch {
			case bin <= center && center > left:
				w = float64(bin-left) / float64(center-left)
			case bin > center && right > center:
				w = float64(right-bin) / float64(right-center)
			default:
				w = 1
			}
			weights = append(weights, w)
			norm += w
		}
		if norm == 0 {
			filters[b] = melFilter{start: center, weights: []float64{1}, norm: 1}
			continue
		}
		filters[b] = melFilter{start: start, weights: weights, norm: norm}
	}
	return filters
}
