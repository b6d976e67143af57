// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/samuelpmahan/audio-viz/internal/analysis"
	applog "github.com/samuelpmahan/audio-viz/internal/log"
	"github.com/samuelpmahan/audio-viz/internal/transport"
)

// MetricCount is the number of float32 values in the packet's metrics
// vector. The order is fixed and documented on metricsVector; renderers
// index into the vector by position.
const MetricCount = 32

// defaultInterval is used when the configured send interval is not positive.
const defaultInterval = 16 * time.Millisecond // ~60Hz

// Publisher periodically pulls the latest metrics snapshot and raw byte
// spectrum from a MetricsSource, packs them into one binary packet and sends
// it through a Sender. Start and Stop manage the publishing goroutine.
type Publisher struct {
	sender   *Sender
	source   transport.MetricsSource
	interval time.Duration

	mu       sync.Mutex // Guards ticker and doneChan across Start/Stop.
	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	seq uint32

	// Packet scratch, reused every tick.
	metricsBuf [MetricCount]float32
	rawBuf     []byte
	packetBuf  *bytes.Buffer
}

// NewPublisher wires a publisher to its sender and snapshot source. A
// non-positive interval falls back to ~60Hz.
func NewPublisher(interval time.Duration, sender *Sender, source transport.MetricsSource) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher needs a sender")
	}
	if source == nil {
		return nil, fmt.Errorf("udp publisher needs a metrics source")
	}
	if interval <= 0 {
		applog.Warnf("transport: invalid udp interval %s, defaulting to %s", interval, defaultInterval)
		interval = defaultInterval
	}

	applog.Infof("transport: udp publisher ready (interval %s, %d metrics, %d spectrum bytes)",
		interval, MetricCount, source.RawBins())

	return &Publisher{
		sender:    sender,
		source:    source,
		interval:  interval,
		rawBuf:    make([]byte, source.RawBins()),
		packetBuf: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start while running is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warn("transport: udp publisher already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	done := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("transport: udp publisher started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call more
// than once and before Start.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Info("transport: udp publisher stopped")
	return nil
}

// Close stops the publisher; it does not close the sender, which the caller
// owns.
func (p *Publisher) Close() error {
	return p.Stop()
}

/*
Packet layout (all fields BigEndian):

|<-- 4 bytes -->|<--- 8 bytes --->|<- 2 bytes ->|<- 32*4 bytes ->|<- 2 bytes ->|<- S bytes ->|
+---------------+-----------------+-------------+----------------+-------------+-------------+
|   Sequence    |    Timestamp    |   Metric    |    Metrics     |  Spectrum   |  Spectrum   |
|    (uint32)   | (ns, int64)     |   count     |   (float32)    |   count     |   (bytes)   |
|               |                 |  (uint16)   |                |  (uint16)   |             |
+---------------+-----------------+-------------+----------------+-------------+-------------+

The metrics vector order is fixed (see metricsVector); the spectrum is the
raw 0..255 byte magnitude spectrum of the wide analysis window.
*/

// publish builds one packet from the current snapshot and sends it.
func (p *Publisher) publish() {
	m := p.source.Metrics()
	metricsVector(m, p.metricsBuf[:])

	if err := p.source.RawBytesInto(p.rawBuf); err != nil {
		applog.Errorf("transport: udp raw spectrum fetch: %v", err)
		return
	}

	p.seq++
	timestamp := time.Now().UnixNano()

	p.packetBuf.Reset()
	err := binary.Write(p.packetBuf, binary.BigEndian, p.seq)
	if err == nil {
		err = binary.Write(p.packetBuf, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuf, binary.BigEndian, uint16(MetricCount))
	}
	if err == nil {
		err = binary.Write(p.packetBuf, binary.BigEndian, p.metricsBuf[:])
	}
	if err == nil {
		err = binary.Write(p.packetBuf, binary.BigEndian, uint16(len(p.rawBuf)))
	}
	if err == nil {
		_, err = p.packetBuf.Write(p.rawBuf)
	}
	if err != nil {
		applog.Errorf("transport: udp packet pack: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuf.Bytes()); err != nil {
		applog.Errorf("transport: udp send: %v", err)
		return
	}
	applog.Debugf("transport: udp packet %d sent (%d bytes)", p.seq, p.packetBuf.Len())
}

// metricsVector packs a snapshot into dst in the wire order. dst must have
// length MetricCount. Booleans encode as 0/1.
//
// Order: band energies (bass, lowMid, mid, highMid, treble), presence per
// band, hit flags (bass, mid, treble), hit strengths, kick, snare, kick
// strength, snare strength, bpm, beatConfidence, beatPhase, onBeat, lfo2/4/8,
// ramp2/4/8, volume, centroid.
func metricsVector(m analysis.Metrics, dst []float32) {
	_ = dst[MetricCount-1]

	dst[0] = float32(m.Bass)
	dst[1] = float32(m.LowMid)
	dst[2] = float32(m.Mid)
	dst[3] = float32(m.HighMid)
	dst[4] = float32(m.Treble)

	dst[5] = float32(m.BassPresence)
	dst[6] = float32(m.LowMidPresence)
	dst[7] = float32(m.MidPresence)
	dst[8] = float32(m.HighMidPresence)
	dst[9] = float32(m.TreblePresence)

	dst[10] = b2f(m.BassHit)
	dst[11] = b2f(m.MidHit)
	dst[12] = b2f(m.TrebleHit)
	dst[13] = float32(m.BassHitStrength)
	dst[14] = float32(m.MidHitStrength)
	dst[15] = float32(m.TrebleHitStrength)

	dst[16] = b2f(m.Kick)
	dst[17] = b2f(m.Snare)
	dst[18] = float32(m.KickStrength)
	dst[19] = float32(m.SnareStrength)

	dst[20] = float32(m.BPM)
	dst[21] = float32(m.BeatConfidence)
	dst[22] = float32(m.BeatPhase)
	dst[23] = float32(m.OnBeat)

	dst[24] = float32(m.LFO2)
	dst[25] = float32(m.LFO4)
	dst[26] = float32(m.LFO8)
	dst[27] = float32(m.Ramp2)
	dst[28] = float32(m.Ramp4)
	dst[29] = float32(m.Ramp8)

	dst[30] = float32(m.Volume)
	dst[31] = float32(m.Centroid)
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

var _ interface{ Close() error } = (*Publisher)(nil)
