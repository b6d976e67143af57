// SPDX-License-Identifier: MIT
/*
Package audio owns audio capture and the per-tick feature chain:
- Lock-free capture callback using PortAudio
- Input gain and a branchless noise gate for signal conditioning
- Fast and raw (wide, smoothed) magnitude spectra per tick
- Mel frame extraction feeding the analysis pipeline
- Atomic republication of the latest Metrics snapshot to transports

Thread Safety:
- Gain, gate and the published snapshot use atomic operations
- All hot-path buffers are pre-allocated to avoid GC in the callback
- The OS thread is locked during audio processing
*/
package audio

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/samuelpmahan/audio-viz/internal/analysis"
	"github.com/samuelpmahan/audio-viz/internal/config"
	"github.com/samuelpmahan/audio-viz/internal/dsp"
	applog "github.com/samuelpmahan/audio-viz/internal/log"
	"github.com/samuelpmahan/audio-viz/internal/transport"
)

// Engine drives one capture stream through the feature chain. Construct with
// NewEngine, attach transports, then Start to open the input stream, or hand
// the engine to a FileSource to drive the same chain from a WAV file.
type Engine struct {
	cfg *config.Config

	// Audio input handling.
	inputBuffer  []int32
	monoBuffer   []int32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Signal conditioning, adjustable while the stream runs.
	gainBits      atomic.Uint64
	gateEnabled   atomic.Bool
	gateThreshold atomic.Int32

	// Rolling mono window backing the wide raw spectrum. The ring holds the
	// last rawSize samples; rawWindow is the linearized scratch copy handed
	// to the FFT each tick.
	rawRing   []int32
	rawMask   int
	rawPos    int
	rawWindow []int32

	// Spectral frontend and feature pipeline.
	fastSpectrum *dsp.Spectrum
	rawSpectrum  *dsp.Spectrum
	extractor    *dsp.Extractor
	pipeline     *analysis.Pipeline

	// Latest published snapshot; never nil after NewEngine.
	snapshot atomic.Pointer[analysis.Metrics]

	transportsMu sync.RWMutex
	transports   []transport.Transport

	running atomic.Bool
}

// NewEngine builds the processing chain from the configuration. It does not
// touch any audio device; Start resolves the input device and opens the
// stream.
func NewEngine(cfg *config.Config) (*Engine, error) {
	win, err := dsp.ParseWindowFunc(cfg.DSP.Window)
	if err != nil {
		applog.Warnf("audio: %v, using Hann", err)
	}

	fastSpectrum, err := dsp.NewSpectrum(cfg.DSP.FFTSize, cfg.Audio.SampleRate, win, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis spectrum: %w", err)
	}
	rawSpectrum, err := dsp.NewSpectrum(cfg.DSP.RawFFTSize, cfg.Audio.SampleRate, win, cfg.DSP.RawSmoothing)
	if err != nil {
		return nil, fmt.Errorf("failed to create raw spectrum: %w", err)
	}

	extractor, err := dsp.NewExtractor(dsp.ExtractorConfig{
		SampleRate: cfg.Audio.SampleRate,
		FFTSize:    cfg.DSP.FFTSize,
		Bands:      cfg.DSP.MelBands,
		LowHz:      cfg.DSP.MelLowHz,
		HighHz:     cfg.DSP.MelHighHz,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	mode, err := analysis.ParseBandMode(cfg.Analysis.BandMode)
	if err != nil {
		applog.Warnf("audio: %v, using %s", err, mode)
	}
	analysisCfg := analysis.DefaultConfig()
	analysisCfg.BandMode = mode

	rawSize := cfg.DSP.RawFFTSize
	inputSize := cfg.Audio.FramesPerBuffer * cfg.Audio.InputChannels

	e := &Engine{
		cfg:          cfg,
		inputBuffer:  make([]int32, inputSize),
		monoBuffer:   make([]int32, cfg.Audio.FramesPerBuffer),
		rawRing:      make([]int32, rawSize),
		rawMask:      rawSize - 1,
		rawWindow:    make([]int32, rawSize),
		fastSpectrum: fastSpectrum,
		rawSpectrum:  rawSpectrum,
		extractor:    extractor,
		pipeline:     analysis.NewPipeline(analysisCfg),
	}

	e.SetGain(cfg.Audio.Gain)
	e.SetGateThreshold(cfg.Audio.GateThreshold)
	e.gateEnabled.Store(cfg.Audio.GateEnabled)

	var zero analysis.Metrics
	e.snapshot.Store(&zero)

	return e, nil
}

// AddTransport registers a consumer for per-tick metrics snapshots. Safe to
// call while the stream runs. Transports are closed by Close.
func (e *Engine) AddTransport(t transport.Transport) {
	if t == nil {
		return
	}
	e.transportsMu.Lock()
	e.transports = append(e.transports, t)
	e.transportsMu.Unlock()
}

// Start resolves the configured input device and opens the capture stream.
// The engine stays inert when it fails; callers may log and continue.
func (e *Engine) Start() error {
	if e.running.Load() {
		return fmt.Errorf("audio engine already running")
	}

	device, err := InputDevice(e.cfg.Audio.InputDevice)
	if err != nil {
		return err
	}
	e.inputDevice = device

	if e.cfg.Audio.LowLatency {
		e.inputLatency = device.DefaultLowInputLatency
	} else {
		e.inputLatency = device.DefaultHighInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.cfg.Audio.InputChannels,
			Device:   device,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.cfg.Audio.FramesPerBuffer,
		SampleRate:      e.cfg.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream on %q: %w", device.Name, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream on %q: %w", device.Name, err)
	}

	e.inputStream = stream
	e.running.Store(true)

	applog.Infof("audio: capturing from %q at %.0f Hz (%d frames, %d ch, latency %s)",
		device.Name, e.cfg.Audio.SampleRate, e.cfg.Audio.FramesPerBuffer,
		e.cfg.Audio.InputChannels, e.inputLatency)

	return nil
}

// Stop stops and closes the capture stream. Safe to call when not running.
func (e *Engine) Stop() error {
	if !e.running.Swap(false) {
		return nil
	}
	if e.inputStream == nil {
		return nil
	}

	if err := e.inputStream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := e.inputStream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	e.inputStream = nil

	return nil
}

// Close stops the stream and closes every attached transport. The first
// error wins; later cleanup still runs.
func (e *Engine) Close() error {
	err := e.Stop()

	e.transportsMu.Lock()
	transports := e.transports
	e.transports = nil
	e.transportsMu.Unlock()

	for _, t := range transports {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Metrics returns the latest published snapshot, the zero value before the
// first processed tick.
func (e *Engine) Metrics() analysis.Metrics {
	return *e.snapshot.Load()
}

// RawBins returns the raw byte-spectrum length (rawFFTSize/2 + 1).
func (e *Engine) RawBins() int {
	return e.rawSpectrum.Bins()
}

// RawBytesInto writes the raw byte spectrum into dst, which must have length
// RawBins. Zero allocations.
func (e *Engine) RawBytesInto(dst []byte) error {
	return e.rawSpectrum.ByteMagnitudesInto(dst)
}

// RawBytes returns a fresh copy of the raw byte spectrum. Allocates; the UDP
// publisher uses RawBytesInto with a reused buffer instead.
func (e *Engine) RawBytes() []byte {
	out := make([]byte, e.rawSpectrum.Bins())
	_ = e.rawSpectrum.ByteMagnitudesInto(out) // dst length always matches
	return out
}

// SetGain sets the input gain multiplier applied before the gate. Negative
// values clamp to zero.
func (e *Engine) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	e.gainBits.Store(math.Float64bits(gain))
}

// Gain returns the current input gain multiplier.
func (e *Engine) Gain() float64 {
	return math.Float64frombits(e.gainBits.Load())
}

// processInputStream is the capture callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations besides the published snapshot
func (e *Engine) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	copy(e.inputBuffer, in)

	// Interleaved multi-channel input is reduced to channel 0.
	mono := e.inputBuffer
	channels := e.cfg.Audio.InputChannels
	if channels > 1 {
		frames := len(e.inputBuffer) / channels
		for i := 0; i < frames && i < len(e.monoBuffer); i++ {
			e.monoBuffer[i] = e.inputBuffer[i*channels]
		}
		mono = e.monoBuffer[:frames]
	}

	e.feed(mono, time.Now())
}

// feed runs the full per-tick chain on one mono buffer: gain, gate, both
// spectra, frame extraction, pipeline update, snapshot republication and
// transport fan-out. The capture callback and the WAV file source both
// converge here.
func (e *Engine) feed(mono []int32, now time.Time) {
	e.applyGain(mono)

	// Branchless noise gate: a closed gate skips all DSP work for the tick.
	if e.gateEnabled.Load() {
		threshold := e.gateThreshold.Load()
		var maxAmplitude int32
		for i := range mono {
			sample := mono[i]
			mask := sample >> 31
			amplitude := (sample ^ mask) - mask
			diff := amplitude - maxAmplitude
			maxAmplitude += (diff & (diff >> 31)) ^ diff
		}
		if maxAmplitude <= threshold {
			return
		}
	}

	e.fastSpectrum.Process(mono)

	// The raw spectrum sees the last rawSize samples, not just this tick.
	for _, s := range mono {
		e.rawRing[e.rawPos] = s
		e.rawPos = (e.rawPos + 1) & e.rawMask
	}
	for i := range e.rawWindow {
		e.rawWindow[i] = e.rawRing[(e.rawPos+i)&e.rawMask]
	}
	e.rawSpectrum.Process(e.rawWindow)

	frame, err := e.extractor.Extract(mono, e.fastSpectrum)
	if err != nil {
		applog.Errorf("audio: frame extraction failed: %v", err)
		return
	}

	e.pipeline.Update(frame, now)

	m := e.pipeline.Metrics()
	e.snapshot.Store(&m)

	e.transportsMu.RLock()
	for _, t := range e.transports {
		if err := t.Send(&m); err != nil {
			applog.Debugf("audio: transport send failed: %v", err)
		}
	}
	e.transportsMu.RUnlock()
}

// applyGain scales samples in place with int32 saturation. Unity gain is a
// no-op.
func (e *Engine) applyGain(buffer []int32) {
	gain := e.Gain()
	if gain == 1.0 {
		return
	}
	for i, s := range buffer {
		v := float64(s) * gain
		if v > math.MaxInt32 {
			v = math.MaxInt32
		} else if v < math.MinInt32 {
			v = math.MinInt32
		}
		buffer[i] = int32(v)
	}
}
