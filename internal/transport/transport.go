package transport

import "github.com/samuelpmahan/audio-viz/internal/analysis"

// Transport delivers metrics snapshots to renderer clients. Send must not
// block: it is called from the engine's processing goroutine once per tick
// and is expected to drop data when a queue or client cannot keep up.
// Implementations are safe for concurrent use unless noted otherwise.
type Transport interface {
	Send(data any) error
	Close() error
}

// MetricsSource is the pull side of the engine boundary. Pull-based
// publishers (the UDP publisher) read the latest snapshot and the raw byte
// spectrum at their own rate instead of being driven per tick.
type MetricsSource interface {
	// Metrics returns the latest published snapshot; the zero value before
	// the first tick.
	Metrics() analysis.Metrics

	// RawBins returns the length RawBytesInto expects.
	RawBins() int

	// RawBytesInto copies the latest raw byte spectrum into dst.
	RawBytesInto(dst []byte) error
}
