// Package udp publishes metrics snapshots as binary UDP packets at a fixed
// rate, for renderers that prefer a datagram feed over the WebSocket stream.
package udp

import (
	"fmt"
	"net"
	"sync"

	applog "github.com/samuelpmahan/audio-viz/internal/log"
)

// Sender writes datagrams to one fixed target address. Safe for concurrent
// use, though the publisher drives it from a single goroutine.
type Sender struct {
	mu     sync.Mutex // Guards conn against a concurrent Close.
	conn   *net.UDPConn
	closed bool
}

// NewSender dials the target ("host:port"). UDP has no handshake, so the
// only errors surfaced here are address resolution and socket setup.
func NewSender(target string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target %q: %w", target, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP target %q: %w", target, err)
	}

	applog.Infof("transport: udp sender targeting %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits one packet. Transmission errors are returned but should be
// treated as transient; the publisher logs and keeps ticking.
func (s *Sender) Send(packet []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("udp sender is closed")
	}
	_, err := s.conn.Write(packet)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Close closes the socket. Idempotent.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		if err != nil {
			return fmt.Errorf("failed to close UDP socket: %w", err)
		}
	}
	return nil
}
