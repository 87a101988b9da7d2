// Package control implements the follower's behavior-blending control loop:
// the formation-keeping and collision-avoidance controllers, the fuzzy
// arbitration between them, and the fixed-rate fusion driver.
package control

import (
	"math"

	"github.com/annagriffin/swarm-cooperative-transport/internal/fuzzy"
	"github.com/annagriffin/swarm-cooperative-transport/internal/monitoring"
	"github.com/annagriffin/swarm-cooperative-transport/internal/scan"
)

// Command is a velocity command: forward speed in m/s and yaw rate in rad/s.
type Command struct {
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

// BlendWeights are the arbitration coefficients applied to the two behavior
// outputs. They are linear coefficients, not required to sum to 1.
type BlendWeights struct {
	Formation float64 `json:"formation"`
	Collision float64 `json:"collision"`
}

// DefaultDesiredDistance is the following-distance setpoint in meters.
const DefaultDesiredDistance = 0.75

// DefaultLeaderWindow is the averaging half-window, in degrees, for the
// leader-relative distance estimate. Narrower than the obstacle windows:
// the leader is a small target.
const DefaultLeaderWindow = 3

// Formation steers toward the leader. It wraps the formation fuzzy unit and
// owns the distance-error computation shared with arbitration.
type Formation struct {
	unit       *fuzzy.Unit
	desired    float64
	halfWindow int
}

// NewFormation builds the formation controller from its rule base. A
// desired distance or half-window of zero selects the defaults.
func NewFormation(cfg fuzzy.UnitConfig, desired float64, halfWindow int) (*Formation, error) {
	if desired == 0 {
		desired = DefaultDesiredDistance
	}
	if halfWindow == 0 {
		halfWindow = DefaultLeaderWindow
	}
	unit, err := fuzzy.NewUnit(cfg)
	if err != nil {
		return nil, err
	}
	return &Formation{unit: unit, desired: desired, halfWindow: halfWindow}, nil
}

// Decide computes the formation command for the cycle's sensor snapshot.
// It returns the distance error (desired minus measured) alongside the
// command: arbitration reuses that exact value rather than recomputing it,
// so both units see the same estimate.
//
// The decision is undefined (ok=false) when the snapshot is missing the
// bearing or the scan, or when the scan has no data at the leader's angle.
func (f *Formation) Decide(snap Snapshot) (cmd Command, distanceErr float64, ok bool) {
	if snap.Bearing == nil || snap.Scan == nil {
		return Command{}, 0, false
	}

	bearing := *snap.Bearing
	// The scan is indexed clockwise while bearings are counter-clockwise,
	// so the leader sits at index 360-bearing.
	measured, haveData := scan.AverageDistance(snap.Scan, scan.Samples-int(bearing), f.halfWindow)
	if !haveData {
		return Command{}, 0, false
	}
	distanceErr = f.desired - measured

	if err := f.unit.SetInput("Angle", bearing); err != nil {
		monitoring.Logf("formation: %v", err)
		return Command{}, 0, false
	}
	if err := f.unit.SetInput("Distance", distanceErr); err != nil {
		monitoring.Logf("formation: %v", err)
		return Command{}, 0, false
	}
	if err := f.unit.Process(); err != nil {
		monitoring.Logf("formation: inference failed: %v", err)
		return Command{}, 0, false
	}

	cmd.Linear, _ = f.unit.Output("Velocity")
	cmd.Angular, _ = f.unit.Output("Rotation")
	return cmd, distanceErr, true
}

// Avoidance steers away from obstacles using the directional distance triple.
type Avoidance struct {
	unit *fuzzy.Unit
}

// NewAvoidance builds the avoidance controller from its rule base.
func NewAvoidance(cfg fuzzy.UnitConfig) (*Avoidance, error) {
	unit, err := fuzzy.NewUnit(cfg)
	if err != nil {
		return nil, err
	}
	return &Avoidance{unit: unit}, nil
}

// Decide computes the avoidance command. Undefined when no directional
// distances have been derived this cycle. Directions with no detection are
// already +Inf, which the rule bases read as "clear".
func (a *Avoidance) Decide(dirs *scan.Directional) (Command, bool) {
	if dirs == nil {
		return Command{}, false
	}

	inputs := map[string]float64{
		"LeftLaser":  dirs.Left,
		"RightLaser": dirs.Right,
		"FrontLaser": dirs.Front,
	}
	for name, v := range inputs {
		if err := a.unit.SetInput(name, v); err != nil {
			monitoring.Logf("avoidance: %v", err)
			return Command{}, false
		}
	}
	if err := a.unit.Process(); err != nil {
		monitoring.Logf("avoidance: inference failed: %v", err)
		return Command{}, false
	}

	var cmd Command
	cmd.Linear, _ = a.unit.Output("Velocity")
	cmd.Angular, _ = a.unit.Output("Rotation")
	return cmd, true
}

// Arbitration produces the blend weights from the shared distance error and
// the closest obstacle distance. It only runs after both behavior decisions
// succeeded, so a false return here means a broken rule base, not missing
// data.
type Arbitration struct {
	unit *fuzzy.Unit
}

// NewArbitration builds the arbitration controller from its rule base.
func NewArbitration(cfg fuzzy.UnitConfig) (*Arbitration, error) {
	unit, err := fuzzy.NewUnit(cfg)
	if err != nil {
		return nil, err
	}
	return &Arbitration{unit: unit}, nil
}

// Weights maps (|distance error|, min obstacle distance) to the two blend
// weights. The weights are returned as-is; the caller does not renormalize.
func (a *Arbitration) Weights(distanceErrMagnitude, minDistance float64) (BlendWeights, bool) {
	if err := a.unit.SetInput("PositionMeasure", math.Abs(distanceErrMagnitude)); err != nil {
		monitoring.Logf("arbitration: %v", err)
		return BlendWeights{}, false
	}
	if err := a.unit.SetInput("MinLaser", minDistance); err != nil {
		monitoring.Logf("arbitration: %v", err)
		return BlendWeights{}, false
	}
	if err := a.unit.Process(); err != nil {
		monitoring.Logf("arbitration: inference failed: %v", err)
		return BlendWeights{}, false
	}

	var w BlendWeights
	w.Formation, _ = a.unit.Output("FormationWeight")
	w.Collision, _ = a.unit.Output("CollisionWeight")
	return w, true
}
