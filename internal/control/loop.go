package control

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/annagriffin/swarm-cooperative-transport/internal/monitoring"
	"github.com/annagriffin/swarm-cooperative-transport/internal/scan"
)

// DefaultInterval is the control loop period (5 Hz).
const DefaultInterval = 200 * time.Millisecond

// State is the loop's observable phase within a cycle.
type State int

const (
	// StateIdle means the loop is waiting for fresh sensor data and
	// holding the robot in the zero-velocity safe state.
	StateIdle State = iota
	// StateReady means both behavior decisions succeeded this cycle.
	StateReady
	// StateCommanded means a blended command was published and the sensor
	// state cleared.
	StateCommanded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateCommanded:
		return "commanded"
	default:
		return "unknown"
	}
}

// FormationDecider yields the formation-keeping command plus the cycle's
// shared distance error.
type FormationDecider interface {
	Decide(snap Snapshot) (cmd Command, distanceErr float64, ok bool)
}

// AvoidanceDecider yields the collision-avoidance command.
type AvoidanceDecider interface {
	Decide(dirs *scan.Directional) (Command, bool)
}

// Arbiter yields the blend weights for the two behavior commands.
type Arbiter interface {
	Weights(distanceErrMagnitude, minDistance float64) (BlendWeights, bool)
}

// Publisher delivers velocity commands to the robot base.
type Publisher interface {
	Publish(Command) error
}

// CycleRecord is the telemetry emitted for one control cycle.
type CycleRecord struct {
	State           string    `json:"state"`
	Linear          float64   `json:"linear"`
	Angular         float64   `json:"angular"`
	FormationWeight float64   `json:"formation_weight"`
	CollisionWeight float64   `json:"collision_weight"`
	DistanceError   float64   `json:"distance_error"`
	MinDistance     float64   `json:"min_distance"`
	At              time.Time `json:"at"`
}

// Recorder persists per-cycle telemetry. Recording failures are logged,
// never allowed to disturb the control cycle.
type Recorder interface {
	RecordCycle(CycleRecord) error
}

// LoopConfig wires up a fusion Loop.
type LoopConfig struct {
	Formation   FormationDecider
	Avoidance   AvoidanceDecider
	Arbitration Arbiter
	Sensors     *SensorState
	Publisher   Publisher
	// Recorder is optional telemetry persistence.
	Recorder Recorder
	// Interval is the loop period (default 200ms / 5 Hz).
	Interval time.Duration
	// Logger is optional; if nil, uses log.Default().
	Logger *log.Logger
}

// Loop is the fixed-rate fusion driver. Each tick it snapshots the sensor
// state, runs the two behavior controllers independently, blends their
// commands with the arbitration weights, and publishes the result. Missing
// sensor data is routine (startup, dropout) and degrades to the safe state
// without clearing the sensors, so the next cycle can retry with whatever
// has arrived by then.
type Loop struct {
	formation   FormationDecider
	avoidance   AvoidanceDecider
	arbitration Arbiter
	sensors     *SensorState
	publisher   Publisher
	recorder    Recorder
	interval    time.Duration
	logger      *log.Logger

	mu        sync.Mutex
	state     State
	cycles    int64
	commanded int64
	safe      int64
}

// LoopStatus is a point-in-time view of the loop for the status API.
type LoopStatus struct {
	State     string `json:"state"`
	Cycles    int64  `json:"cycles"`
	Commanded int64  `json:"commanded"`
	Safe      int64  `json:"safe"`
}

// NewLoop creates a fusion Loop from its configuration.
func NewLoop(cfg LoopConfig) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		formation:   cfg.Formation,
		avoidance:   cfg.Avoidance,
		arbitration: cfg.Arbitration,
		sensors:     cfg.Sensors,
		publisher:   cfg.Publisher,
		recorder:    cfg.Recorder,
		interval:    interval,
		logger:      logger,
	}
}

// Status returns the loop's current state and cycle counters.
func (l *Loop) Status() LoopStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoopStatus{
		State:     l.state.String(),
		Cycles:    l.cycles,
		Commanded: l.commanded,
		Safe:      l.safe,
	}
}

// Run drives the loop until the context is cancelled. Before returning it
// publishes a final zero-velocity command so the robot never coasts on the
// last blended command after shutdown.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Printf("fusion loop started: interval=%v", l.interval)

	for {
		select {
		case <-ctx.Done():
			l.logger.Printf("fusion loop stopping: publishing final stop command")
			l.publish(Command{}, CycleRecord{State: "shutdown", At: time.Now()})
			return nil
		case <-ticker.C:
			l.cycle()
		}
	}
}

// cycle executes one pass of the fusion algorithm.
func (l *Loop) cycle() {
	snap := l.sensors.Take()

	fCmd, distanceErr, fOK := l.formation.Decide(snap)
	aCmd, aOK := l.avoidance.Decide(snap.Dirs)

	if !fOK || !aOK {
		// Routine: no (or partial) sensor data yet. Hold position and
		// keep the sensor state so a later-arriving reading can pair
		// with it next cycle.
		l.tally(StateIdle)
		monitoring.Debugf("fusion: safe state (formation=%v avoidance=%v)", fOK, aOK)
		l.publish(Command{}, CycleRecord{State: "safe", At: time.Now()})
		return
	}
	l.tally(StateReady)

	minDistance := snap.Dirs.Min()
	weights, ok := l.arbitration.Weights(math.Abs(distanceErr), minDistance)
	if !ok {
		l.tally(StateIdle)
		l.publish(Command{}, CycleRecord{State: "safe", At: time.Now()})
		return
	}

	final := Command{
		Linear:  fCmd.Linear*weights.Formation + aCmd.Linear*weights.Collision,
		Angular: fCmd.Angular*weights.Formation + aCmd.Angular*weights.Collision,
	}

	monitoring.Debugf("fusion: formation=(%.4f, %.4f) avoidance=(%.4f, %.4f) weights=(%.3f, %.3f) final=(%.4f, %.4f)",
		fCmd.Linear, fCmd.Angular, aCmd.Linear, aCmd.Angular,
		weights.Formation, weights.Collision, final.Linear, final.Angular)

	record := CycleRecord{
		State:           "commanded",
		Linear:          final.Linear,
		Angular:         final.Angular,
		FormationWeight: weights.Formation,
		CollisionWeight: weights.Collision,
		DistanceError:   distanceErr,
		MinDistance:     minDistance,
		At:              time.Now(),
	}
	if !l.publish(final, record) {
		return
	}

	// Fresh data only from here on: a stalled sensor must not keep
	// commanding motion off one old reading.
	l.sensors.Clear()
	l.tally(StateCommanded)
}

// publish sends a command and records the cycle. Returns false when the
// publish failed (the sensor state is then left intact for a retry).
func (l *Loop) publish(cmd Command, record CycleRecord) bool {
	if err := l.publisher.Publish(cmd); err != nil {
		l.logger.Printf("fusion: publish failed: %v", err)
		return false
	}
	if l.recorder != nil {
		if err := l.recorder.RecordCycle(record); err != nil {
			l.logger.Printf("fusion: telemetry record failed: %v", err)
		}
	}
	return true
}

// tally records a state transition and bumps the cycle counters. A cycle
// ends in either StateIdle (safe fallback) or StateCommanded; StateReady is
// the intermediate phase between the behavior decisions and the publish.
func (l *Loop) tally(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch s {
	case StateIdle:
		l.cycles++
		l.safe++
	case StateCommanded:
		l.cycles++
		l.commanded++
	}
	l.state = s
}
