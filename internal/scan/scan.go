// Package scan converts raw 360-sample range scans into the directional
// distance estimates consumed by the fuzzy behavior controllers.
//
// The lidar reports one range per degree. A sample of +Inf is the "no
// return" sentinel: the beam went out and nothing came back. Downstream
// rule bases are tuned against that convention, so +Inf is preserved end
// to end rather than re-encoded.
package scan

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Samples is the number of range readings in one full rotation, one per degree.
const Samples = 360

// Lidar angles for the three obstacle directions, in scan index space.
const (
	LeftAngle  = 90
	RightAngle = 270
	FrontAngle = 0
)

// Snapshot is one full rotation of range readings, index = degrees. A nil
// Snapshot means no scan has arrived yet, which is distinct from a scan
// where every sample is +Inf (nothing detected anywhere).
type Snapshot []float64

// NoReturn reports whether a sample is the "no return" sentinel.
func NoReturn(r float64) bool {
	return math.IsInf(r, 1)
}

// AverageDistance returns the mean of the valid samples within ±halfWindow
// degrees of centerDeg, wrapping indices modulo 360. Sentinel samples are
// excluded from both sum and count.
//
// A nil or truncated snapshot returns ok=false: there is no full rotation
// to index and the caller must not act on it. A window in which every sample
// is a sentinel returns (+Inf, true): the area was measured and nothing was
// detected.
func AverageDistance(snap Snapshot, centerDeg, halfWindow int) (float64, bool) {
	if len(snap) < Samples {
		return 0, false
	}

	valid := make([]float64, 0, 2*halfWindow+1)
	for off := -halfWindow; off <= halfWindow; off++ {
		idx := ((centerDeg+off)%Samples + Samples) % Samples
		if r := snap[idx]; !NoReturn(r) {
			valid = append(valid, r)
		}
	}

	if len(valid) == 0 {
		return math.Inf(1), true
	}
	return stat.Mean(valid, nil), true
}

// Directional holds the left/right/front obstacle distance estimates derived
// once per scan. A component is +Inf when nothing was detected in that
// direction.
type Directional struct {
	Left  float64
	Right float64
	Front float64
}

// Min returns the closest of the three directional distances.
func (d Directional) Min() float64 {
	return math.Min(d.Front, math.Min(d.Left, d.Right))
}

// Directions extracts the directional distance triple from a scan using the
// given averaging half-window. Returns ok=false when no full scan is
// available.
func Directions(snap Snapshot, halfWindow int) (Directional, bool) {
	if len(snap) < Samples {
		return Directional{}, false
	}

	left, _ := AverageDistance(snap, LeftAngle, halfWindow)
	right, _ := AverageDistance(snap, RightAngle, halfWindow)
	front, _ := AverageDistance(snap, FrontAngle, halfWindow)
	return Directional{Left: left, Right: right, Front: front}, true
}
