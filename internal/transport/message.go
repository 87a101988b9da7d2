// Package transport carries the follower's sensor and command traffic over
// UDP datagrams with JSON payloads. Each robot namespace has its own
// endpoints; the envelope's robot field filters out traffic for other
// robots sharing a port.
package transport

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/annagriffin/swarm-cooperative-transport/internal/scan"
)

// Message types carried in the envelope.
const (
	TypeScan    = "scan"
	TypeBearing = "bearing"
	TypeCommand = "cmd_vel"
)

// NoReturnWire is the on-wire marker for a "no return" range sample. JSON
// has no encoding for +Inf, so the sentinel is translated at this boundary
// and nowhere else.
const NoReturnWire = -1

// envelope is the wire format shared by all message types. Unused fields
// are omitted per type.
type envelope struct {
	Type    string    `json:"type"`
	Robot   string    `json:"robot"`
	Ranges  []float64 `json:"ranges,omitempty"`
	Bearing *float64  `json:"bearing,omitempty"`
	Linear  *float64  `json:"linear,omitempty"`
	Angular *float64  `json:"angular,omitempty"`
}

// decodeRanges converts wire samples to the internal +Inf sentinel and
// validates the scan length.
func decodeRanges(wire []float64) ([]float64, error) {
	if len(wire) != scan.Samples {
		return nil, fmt.Errorf("scan has %d samples, want %d", len(wire), scan.Samples)
	}
	ranges := make([]float64, scan.Samples)
	for i, r := range wire {
		if r < 0 {
			ranges[i] = math.Inf(1)
		} else {
			ranges[i] = r
		}
	}
	return ranges, nil
}

// EncodeScan builds a scan datagram, translating +Inf samples to the wire
// marker. Used by simulators and tests; the controller itself only consumes
// scans.
func EncodeScan(robot string, ranges []float64) ([]byte, error) {
	wire := make([]float64, len(ranges))
	for i, r := range ranges {
		if scan.NoReturn(r) {
			wire[i] = NoReturnWire
		} else {
			wire[i] = r
		}
	}
	return json.Marshal(envelope{Type: TypeScan, Robot: robot, Ranges: wire})
}

// EncodeBearing builds a bearing datagram.
func EncodeBearing(robot string, deg float64) ([]byte, error) {
	return json.Marshal(envelope{Type: TypeBearing, Robot: robot, Bearing: &deg})
}
