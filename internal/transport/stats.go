package transport

import (
	"sync"
	"time"
)

// Stats tracks datagram counters for the status API and interval logging.
type Stats struct {
	mu           sync.Mutex
	packetCount  int64
	byteCount    int64
	droppedCount int64
	lastReset    time.Time
}

// NewStats creates a Stats with the reset clock started.
func NewStats() *Stats {
	return &Stats{lastReset: time.Now()}
}

// AddPacket records one received or sent datagram of the given size.
func (s *Stats) AddPacket(bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packetCount++
	s.byteCount += int64(bytes)
}

// AddDropped records a datagram discarded due to parse failure, namespace
// mismatch, or a full send queue.
func (s *Stats) AddDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedCount++
}

// Snapshot returns the counters without resetting them.
func (s *Stats) Snapshot() (packets, bytes, dropped int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packetCount, s.byteCount, s.droppedCount
}

// GetAndReset returns the counters accumulated since the last reset and
// zeroes them.
func (s *Stats) GetAndReset() (packets, bytes, dropped int64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	duration = now.Sub(s.lastReset)
	packets = s.packetCount
	bytes = s.byteCount
	dropped = s.droppedCount

	s.packetCount = 0
	s.byteCount = 0
	s.droppedCount = 0
	s.lastReset = now

	return
}
