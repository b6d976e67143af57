// SPDX-License-Identifier: MIT
/*
Package dsp provides the spectral primitives the analysis pipeline consumes:
a windowed FFT magnitude spectrum with optional per-bin time smoothing, and a
mel filterbank feature extractor that reduces each audio tick to the Frame
fed into the feature pipeline.

The hot-path methods (Process, Extract, the *Into accessors) are designed to
run inside the real-time audio callback: all buffers are pre-allocated and no
call allocates after construction.
*/
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	applog "github.com/samuelpmahan/audio-viz/internal/log"
	"github.com/samuelpmahan/audio-viz/pkg/bitint"
)

// WindowFunc selects the FFT window function.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Byte magnitude mapping range, dBFS. Magnitudes below minDecibels map to 0,
// above maxDecibels to 255.
const (
	minDecibels = -100.0
	maxDecibels = -30.0
)

// Pre-allocated buffers for one spectrum instance.
type spectrumWorkspace struct {
	input     []float64    // Windowed input signal.
	coeffs    []complex128 // FFT complex output.
	magnitude []float64    // Magnitudes; holds the smoothed values when smoothing is on.
	window    []float64    // Window coefficients.
	mu        sync.RWMutex // Guards magnitude for concurrent readers.
}

// Spectrum computes a magnitude spectrum from raw int32 audio. Two instances
// run side by side in the engine: a fast window for the feature pipeline and
// a wide, smoothed window backing the raw byte-spectrum accessor.
//
// Process is single-writer (the audio callback); the accessor methods may be
// called concurrently from other goroutines.
type Spectrum struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64
	smoothing  float64 // 0 disables time smoothing.
	ws         spectrumWorkspace
}

// NewSpectrum creates a Spectrum for the given window size (a power of two)
// and sample rate. smoothing is a per-bin exponential blend in [0,1): each
// Process keeps smoothing of the previous magnitude and adds 1-smoothing of
// the new one.
func NewSpectrum(size int, sampleRate float64, win WindowFunc, smoothing float64) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("spectrum size must be a power of 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if smoothing < 0 || smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be in [0,1), got %f", smoothing)
	}

	windowCoeffs := make([]float64, size)
	applyWindow(windowCoeffs, win)

	bins := size/2 + 1

	applog.Debugf("dsp: new spectrum (size %d, rate %.1f Hz, smoothing %.2f)", size, sampleRate, smoothing)

	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		smoothing:  smoothing,
		ws: spectrumWorkspace{
			input:     make([]float64, size),
			coeffs:    make([]complex128, bins),
			magnitude: make([]float64, bins),
			window:    windowCoeffs,
		},
	}, nil
}

// Process windows the input, runs the FFT and updates the magnitude buffer.
// Input shorter than the window size is zero-padded; longer input uses the
// leading samples. Zero allocations.
func (s *Spectrum) Process(buffer []int32) {
	s.ws.mu.Lock()

	// int32 full scale maps to [-1.0, 1.0).
	const normFactor = 1.0 / float64(0x80000000)
	inputLen := len(buffer)
	for i := 0; i < s.size; i++ {
		if i < inputLen {
			s.ws.input[i] = float64(buffer[i]) * normFactor * s.ws.window[i]
		} else {
			s.ws.input[i] = 0
		}
	}

	s.fft.Coefficients(s.ws.coeffs, s.ws.input)

	if s.smoothing > 0 {
		keep := s.smoothing
		blend := 1 - s.smoothing
		for i, c := range s.ws.coeffs {
			s.ws.magnitude[i] = keep*s.ws.magnitude[i] + blend*cmplx.Abs(c)
		}
	} else {
		for i, c := range s.ws.coeffs {
			s.ws.magnitude[i] = cmplx.Abs(c)
		}
	}

	s.ws.mu.Unlock()
}

// Magnitudes returns a copy of the latest magnitude spectrum. Allocates; use
// MagnitudesInto from performance-sensitive readers.
func (s *Spectrum) Magnitudes() []float64 {
	s.ws.mu.RLock()
	defer s.ws.mu.RUnlock()

	out := make([]float64, len(s.ws.magnitude))
	copy(out, s.ws.magnitude)
	return out
}

// MagnitudesInto copies the latest magnitude spectrum into dst, which must
// have length Bins(). Zero allocations.
func (s *Spectrum) MagnitudesInto(dst []float64) error {
	s.ws.mu.RLock()
	defer s.ws.mu.RUnlock()

	if len(dst) != len(s.ws.magnitude) {
		return fmt.Errorf("destination length %d does not match %d bins", len(dst), len(s.ws.magnitude))
	}
	copy(dst, s.ws.magnitude)
	return nil
}

// ByteMagnitudesInto writes the spectrum as unsigned bytes into dst, which
// must have length Bins(). Each bin is converted to dBFS (magnitude scaled
// by 1/size) and mapped linearly from [minDecibels, maxDecibels] onto
// [0, 255]. Zero allocations.
func (s *Spectrum) ByteMagnitudesInto(dst []byte) error {
	s.ws.mu.RLock()
	defer s.ws.mu.RUnlock()

	if len(dst) != len(s.ws.magnitude) {
		return fmt.Errorf("destination length %d does not match %d bins", len(dst), len(s.ws.magnitude))
	}

	for i, mag := range s.ws.magnitude {
		dst[i] = byte(ByteValue(mag, s.size))
	}
	return nil
}

// ByteValue maps one linear FFT magnitude onto the 0..255 dB byte scale used
// by ByteMagnitudesInto. size is the FFT window size the magnitude came from.
func ByteValue(mag float64, size int) float64 {
	db := 20 * math.Log10(mag/float64(size)+1e-12)
	v := (db - minDecibels) / (maxDecibels - minDecibels) * 255
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// FrequencyForBin returns the center frequency (Hz) of an FFT bin, or 0 for
// an out-of-range index.
func (s *Spectrum) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(s.ws.coeffs) {
		return 0
	}
	return float64(bin) * (s.sampleRate / float64(s.size))
}

// Size returns the FFT window size.
func (s *Spectrum) Size() int { return s.size }

// Bins returns the number of magnitude bins (size/2 + 1).
func (s *Spectrum) Bins() int { return s.size/2 + 1 }

// SampleRate returns the configured sample rate in Hz.
func (s *Spectrum) SampleRate() float64 { return s.sampleRate }

// ParseWindowFunc converts a window name (case-insensitive) to a WindowFunc.
// Unknown names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: %q", name)
	}
}

// applyWindow fills coeffs with the selected window. The slice is set to 1.0
// first because the gonum window functions multiply in place.
func applyWindow(coeffs []float64, win WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch win {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("dsp: unknown window function %d, defaulting to Hann", win)
		window.Hann(coeffs)
	}
}
