// SPDX-License-Identifier: MIT
package dsp

// Frame is one tick of analysis input: the magnitude spectrum of the fast
// window, the mel band energies derived from it, plus overall level and
// spectral centroid.
//
// The slices are views into buffers owned by the Extractor that produced the
// Frame. They are valid until the next Extract call and must be consumed
// synchronously; the feature pipeline copies anything it keeps.
type Frame struct {
	Spectrum []float64 // Magnitudes, fftSize/2+1 bins.
	Mel      []float64 // Mel band energies, ExtractorConfig.Bands entries.
	RMS      float64   // Root mean square level of the tick, 0..~1.
	Centroid float64   // Spectral centroid normalized by Nyquist, 0..1.
}

// Valid reports whether the frame carries data. The zero Frame is invalid
// and makes the pipeline skip the tick.
func (f Frame) Valid() bool {
	return len(f.Spectrum) > 0 && len(f.Mel) > 0
}
