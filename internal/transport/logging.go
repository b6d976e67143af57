package transport

import (
	"time"

	"github.com/samuelpmahan/audio-viz/internal/analysis"
	applog "github.com/samuelpmahan/audio-viz/internal/log"
)

// Logging prints a one-line summary of the metrics stream at debug level.
// It rides alongside the real transports in --verbose runs so the pipeline
// can be eyeballed without attaching a client.
type Logging struct {
	lastLog  time.Time
	interval time.Duration
}

// NewLogging returns a Logging transport that summarizes at most twice per
// second.
func NewLogging() *Logging {
	applog.Debug("transport: logging transport enabled")
	return &Logging{interval: 500 * time.Millisecond}
}

// Send logs a summary of metrics payloads; other payload types are printed
// verbatim. Never fails.
func (l *Logging) Send(data any) error {
	now := time.Now()
	if now.Sub(l.lastLog) < l.interval {
		return nil
	}
	l.lastLog = now

	switch m := data.(type) {
	case *analysis.Metrics:
		applog.Debugf("metrics: bass %.2f mid %.2f treble %.2f | bpm %.0f conf %.2f phase %.2f | kick=%t snare=%t vol %.3f",
			m.Bass, m.Mid, m.Treble, m.BPM, m.BeatConfidence, m.BeatPhase, m.Kick, m.Snare, m.Volume)
	case analysis.Metrics:
		applog.Debugf("metrics: bass %.2f mid %.2f treble %.2f | bpm %.0f conf %.2f phase %.2f | kick=%t snare=%t vol %.3f",
			m.Bass, m.Mid, m.Treble, m.BPM, m.BeatConfidence, m.BeatPhase, m.Kick, m.Snare, m.Volume)
	default:
		applog.Debugf("transport: %+v", data)
	}
	return nil
}

// Close is a no-op.
func (l *Logging) Close() error { return nil }

var _ Transport = (*Logging)(nil)
