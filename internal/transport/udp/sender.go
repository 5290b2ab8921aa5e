// SPDX-License-Identifier: MIT

// Package udp streams pitch results to a remote consumer as compact
// binary datagrams.
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	applog "github.com/Fjollete/PichMatcher/internal/log"
)

// ErrClosed reports a send on a closed sender.
var ErrClosed = errors.New("udp: sender is closed")

// Sender transmits byte payloads as UDP packets to one target address.
// Safe for concurrent use.
type Sender struct {
	conn   *net.UDPConn
	target *net.UDPAddr
	mu     sync.Mutex
	closed bool
}

// NewSender dials the target address ("host:port") and returns a sender
// bound to it.
func NewSender(targetAddress string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve target %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial %q: %w", targetAddress, err)
	}

	applog.Infof("UDP: sending to %s", conn.RemoteAddr())
	return &Sender{conn: conn, target: addr}, nil
}

// Send transmits data as one packet. The lock spans the write so a
// concurrent Close cannot pull the connection out from underneath it.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	_, err := s.conn.Write(data)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("udp: send: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Subsequent sends return
// ErrClosed.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn == nil {
		return nil
	}
	applog.Debugf("UDP: closing connection to %s", s.conn.RemoteAddr())
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("udp: close: %w", err)
	}
	return nil
}
