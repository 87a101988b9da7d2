package control

import (
	"sync"

	"github.com/annagriffin/swarm-cooperative-transport/internal/scan"
)

// DefaultObstacleWindow is the averaging half-window, in degrees, for the
// left/right/front obstacle distance estimates.
const DefaultObstacleWindow = 7

// Snapshot is the consistent per-cycle view of the sensor inputs. Nil fields
// mean the corresponding reading has not arrived (or was consumed by a
// previous cycle).
type Snapshot struct {
	Scan    scan.Snapshot
	Dirs    *scan.Directional
	Bearing *float64
}

// SensorState is the hand-off point between the asynchronous sensor
// callbacks and the periodic fusion loop. Producers overwrite the latest
// readings at arbitrary rates; the loop takes a consistent snapshot each
// cycle and clears the state after a successful command so stale data is
// never acted on twice.
type SensorState struct {
	mu         sync.Mutex
	scan       scan.Snapshot
	dirs       *scan.Directional
	bearing    *float64
	dirsWindow int
}

// NewSensorState creates a SensorState. An obstacleWindow of zero selects
// the default ±7° averaging window.
func NewSensorState(obstacleWindow int) *SensorState {
	if obstacleWindow == 0 {
		obstacleWindow = DefaultObstacleWindow
	}
	return &SensorState{dirsWindow: obstacleWindow}
}

// UpdateScan replaces the held scan wholesale and derives the directional
// distances once. The ranges slice is copied; callers may reuse their buffer.
func (s *SensorState) UpdateScan(ranges []float64) {
	snap := make(scan.Snapshot, len(ranges))
	copy(snap, ranges)
	dirs, ok := scan.Directions(snap, s.dirsWindow)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scan = snap
	if ok {
		s.dirs = &dirs
	} else {
		s.dirs = nil
	}
}

// UpdateBearing replaces the held bearing-to-leader angle (signed degrees).
func (s *SensorState) UpdateBearing(deg float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := deg
	s.bearing = &b
}

// Take returns a consistent snapshot of the current sensor state.
func (s *SensorState) Take() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Scan: s.scan, Dirs: s.dirs, Bearing: s.bearing}
}

// Clear drops the held scan, directional distances, and bearing. Called by
// the loop after a successful publish so the next cycle requires genuinely
// fresh data.
func (s *SensorState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scan = nil
	s.dirs = nil
	s.bearing = nil
}
