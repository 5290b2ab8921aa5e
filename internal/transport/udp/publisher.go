// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "github.com/Fjollete/PichMatcher/internal/log"
	"github.com/Fjollete/PichMatcher/internal/music"
	"github.com/Fjollete/PichMatcher/internal/transport"
)

// DefaultPublishInterval is used when no valid interval is configured,
// about one packet per display frame.
const DefaultPublishInterval = 16 * time.Millisecond

// PitchPublisher periodically reads the latest pitch estimate from a
// provider, packs it into a fixed-size binary packet, and sends it
// through a Sender. Start launches the ticker goroutine; Stop (or Close)
// tears it down.
type PitchPublisher struct {
	sender   *Sender
	provider transport.PitchResultProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

var _ interface{ Close() error } = (*PitchPublisher)(nil)

// NewPitchPublisher creates a publisher. The sender and provider are
// required; a non-positive interval falls back to
// DefaultPublishInterval.
func NewPitchPublisher(interval time.Duration, sender *Sender, provider transport.PitchResultProvider) (*PitchPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp: publisher needs a sender")
	}
	if provider == nil {
		return nil, fmt.Errorf("udp: publisher needs a result provider")
	}

	if interval <= 0 {
		interval = DefaultPublishInterval
		applog.Warnf("UDP publisher: invalid interval, defaulting to %s", interval)
	}

	return &PitchPublisher{
		sender:       sender,
		provider:     provider,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *PitchPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDP publisher: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture locals so the goroutine never races Start/Stop on the
	// struct fields.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDP publisher: started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishLatest()
			case <-doneChan:
				applog.Debug("UDP publisher: stop signal received")
				return
			}
		}
	}()
}

// Stop signals the publishing goroutine and waits for it to exit. Safe
// to call multiple times and before Start.
func (p *PitchPublisher) Stop() error {
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
	applog.Info("UDP publisher: stopped")
	return nil
}

// Close implements io.Closer by stopping the publisher.
func (p *PitchPublisher) Close() error {
	return p.Stop()
}

/*
Pitch packet layout (BigEndian), 30 bytes fixed:

| Field           | Type    | Bytes | Description                        |
|-----------------|---------|-------|------------------------------------|
| Sequence number | uint32  | 4     | Monotonically increasing           |
| Timestamp       | int64   | 8     | Nanoseconds since epoch            |
| Frequency       | float32 | 4     | Estimated fundamental, Hz (0=none) |
| Confidence      | float32 | 4     | NSDF value at the chosen lag       |
| Level           | float32 | 4     | Input level of the window, dBFS    |
| MIDI note       | int16   | 2     | Nearest note, -1 when unvoiced     |
| Cents           | float32 | 4     | Deviation from the nearest note    |
*/

// publishLatest packs the provider's current result and sends it. Errors
// are logged and the packet skipped; the next tick retries with fresh
// data.
func (p *PitchPublisher) publishLatest() {
	frequency, confidence, level := p.provider.LatestPitch()

	midi := int16(-1)
	cents := float32(0)
	if frequency > 0 {
		if note, err := music.FromFrequency(frequency); err == nil {
			midi = int16(note.MIDI)
			cents = float32(note.Cents)
		}
	}

	p.sequenceNum++
	timestamp := time.Now().UnixNano()

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, float32(frequency))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, float32(confidence))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, float32(level))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, midi)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, cents)
	}
	if err != nil {
		applog.Errorf("UDP publisher: pack error: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Debugf("UDP publisher: send error: %v", err)
		return
	}
	applog.Debugf("UDP publisher: sent packet %d", p.sequenceNum)
}
