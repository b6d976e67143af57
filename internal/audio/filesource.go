package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "github.com/samuelpmahan/audio-viz/internal/log"
)

// FileSource drives an Engine's processing chain from a WAV file instead of
// a capture stream, paced at the file's native rate. It stands in for the
// microphone during development and offline analysis.
type FileSource struct {
	engine *Engine
	path   string

	file    *os.File
	decoder *wav.Decoder

	sampleRate int
	channels   int
	bitDepth   int
	frames     int // samples per tick, per channel

	pcmBuf  *audio.IntBuffer
	monoBuf []int32

	done      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewFileSource opens and validates the WAV file and sizes the tick buffers
// from the engine's configuration. The file's sample rate overrides the
// configured one for pacing; a mismatch is logged since the spectral chain
// keeps the configured rate.
func NewFileSource(path string, engine *Engine) (*FileSource, error) {
	if engine == nil {
		return nil, fmt.Errorf("file source requires an engine")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("input file %q is not a valid WAV file", path)
	}

	bitDepth := int(decoder.BitDepth)
	switch bitDepth {
	case 16, 24, 32:
	default:
		file.Close()
		return nil, fmt.Errorf("input file %q has unsupported bit depth %d", path, bitDepth)
	}

	sampleRate := int(decoder.SampleRate)
	channels := int(decoder.NumChans)
	frames := engine.cfg.Audio.FramesPerBuffer

	if float64(sampleRate) != engine.cfg.Audio.SampleRate {
		applog.Warnf("audio: file rate %d Hz differs from configured %.0f Hz, pacing by the file",
			sampleRate, engine.cfg.Audio.SampleRate)
	}

	return &FileSource{
		engine:     engine,
		path:       path,
		file:       file,
		decoder:    decoder,
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
		frames:     frames,
		pcmBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			Data: make([]int, frames*channels),
		},
		monoBuf: make([]int32, frames),
		done:    make(chan struct{}),
	}, nil
}

// Start begins feeding the engine, one buffer per tick interval, until the
// file ends or Stop is called.
func (s *FileSource) Start() {
	interval := time.Duration(float64(s.frames) / float64(s.sampleRate) * float64(time.Second))

	applog.Infof("audio: playing %q (%d Hz, %d ch, %d-bit, tick %s)",
		s.path, s.sampleRate, s.channels, s.bitDepth, interval)

	s.wg.Add(1)
	go s.run(interval)
}

// Stop halts playback and closes the file. Idempotent; blocks until the
// feeder goroutine exits.
func (s *FileSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	s.closeOnce.Do(func() {
		s.file.Close()
	})
}

// Done returns a channel closed when playback finishes, whether by EOF or by
// Stop.
func (s *FileSource) Done() <-chan struct{} {
	return s.done
}

func (s *FileSource) run(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			ok, err := s.tick(now)
			if err != nil {
				applog.Errorf("audio: file read failed: %v", err)
			}
			if !ok {
				applog.Infof("audio: reached end of %q", s.path)
				s.stopOnce.Do(func() { close(s.done) })
				return
			}
		}
	}
}

// tick reads one buffer, converts it to full-scale mono int32 and feeds the
// engine. Returns false when the file is exhausted.
func (s *FileSource) tick(now time.Time) (bool, error) {
	s.pcmBuf.Data = s.pcmBuf.Data[:cap(s.pcmBuf.Data)]
	n, err := s.decoder.PCMBuffer(s.pcmBuf)
	if err != nil {
		return false, fmt.Errorf("failed to decode %q: %w", s.path, err)
	}
	if n == 0 {
		return false, nil
	}

	// Samples arrive at the file's bit depth; shift to int32 full scale and
	// keep channel 0 of each frame.
	shift := uint(32 - s.bitDepth)
	frames := n / s.channels
	if frames > len(s.monoBuf) {
		frames = len(s.monoBuf)
	}
	for i := 0; i < len(s.monoBuf); i++ {
		if i < frames {
			s.monoBuf[i] = int32(s.pcmBuf.Data[i*s.channels]) << shift
		} else {
			s.monoBuf[i] = 0 // Final short buffer is zero-padded.
		}
	}

	s.engine.feed(s.monoBuf, now)
	return true, nil
}

// IsWAVFile reports whether the path points at a decodable WAV file, used
// for flag validation before the engine spins up.
func IsWAVFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return wav.NewDecoder(f).IsValidFile()
}
