package fuzzy

// Built-in rule bases for the three follower controllers. These mirror the
// tuned behavior of the reference robot: bearings in signed degrees with
// positive to the left, distances in meters, a 0.75 m following setpoint,
// and +Inf obstacle distances meaning "clear". All three can be overridden
// from a JSON config file via LoadControllerSet.

// DefaultFormationConfig maps (Angle, Distance) to (Velocity, Rotation).
// Distance is the setpoint error: desired minus measured, so a negative
// value means the leader is too far away.
func DefaultFormationConfig() *UnitConfig {
	return &UnitConfig{
		Name: "formation",
		Inputs: []VariableConfig{
			{
				Name:  "Angle",
				Range: [2]float64{-180, 180},
				Terms: []TermConfig{
					{Name: "Right", Points: []float64{-180, -180, -30, -5}},
					{Name: "Center", Points: []float64{-15, 0, 15}},
					{Name: "Left", Points: []float64{5, 30, 180, 180}},
				},
			},
			{
				Name:  "Distance",
				Range: [2]float64{-3, 1},
				Terms: []TermConfig{
					{Name: "TooFar", Points: []float64{-3, -3, -0.5, -0.1}, Open: "left"},
					{Name: "Good", Points: []float64{-0.15, 0, 0.15}},
					{Name: "TooClose", Points: []float64{0.05, 0.3, 1, 1}, Open: "right"},
				},
			},
		},
		Outputs: []VariableConfig{
			{
				Name:  "Velocity",
				Range: [2]float64{-0.1, 0.4},
				Terms: []TermConfig{
					{Name: "Reverse", Points: []float64{-0.1, -0.05, 0}},
					{Name: "Stop", Points: []float64{-0.02, 0, 0.02}},
					{Name: "Slow", Points: []float64{0.02, 0.12, 0.22}},
					{Name: "Fast", Points: []float64{0.15, 0.25, 0.4, 0.4}},
				},
			},
			{
				Name:  "Rotation",
				Range: [2]float64{-1.5, 1.5},
				Terms: []TermConfig{
					{Name: "TurnRight", Points: []float64{-1.5, -0.75, 0}},
					{Name: "Zero", Points: []float64{-0.25, 0, 0.25}},
					{Name: "TurnLeft", Points: []float64{0, 0.75, 1.5}},
				},
			},
		},
		Rules: []string{
			"if Distance is TooFar and Angle is Center then Velocity is Fast",
			"if Distance is TooFar and Angle is Left then Velocity is Slow",
			"if Distance is TooFar and Angle is Right then Velocity is Slow",
			"if Distance is Good then Velocity is Stop",
			"if Distance is TooClose then Velocity is Reverse",
			"if Angle is Left then Rotation is TurnLeft",
			"if Angle is Center then Rotation is Zero",
			"if Angle is Right then Rotation is TurnRight",
		},
	}
}

// DefaultAvoidanceConfig maps (LeftLaser, RightLaser, FrontLaser) to
// (Velocity, Rotation). A laser of +Inf lands on the open shoulder of Far,
// so "nothing detected" steers exactly like "clear".
func DefaultAvoidanceConfig() *UnitConfig {
	laser := func(name string) VariableConfig {
		return VariableConfig{
			Name:  name,
			Range: [2]float64{0, 4},
			Terms: []TermConfig{
				{Name: "Near", Points: []float64{0, 0, 0.3, 0.6}},
				{Name: "Far", Points: []float64{0.4, 0.8, 4, 4}, Open: "right"},
			},
		}
	}
	return &UnitConfig{
		Name:   "avoidance",
		Inputs: []VariableConfig{laser("LeftLaser"), laser("RightLaser"), laser("FrontLaser")},
		Outputs: []VariableConfig{
			{
				Name:  "Velocity",
				Range: [2]float64{-0.2, 0.2},
				Terms: []TermConfig{
					{Name: "Brake", Points: []float64{-0.2, -0.1, 0}},
					{Name: "Coast", Points: []float64{-0.05, 0, 0.05}},
				},
			},
			{
				Name:  "Rotation",
				Range: [2]float64{-1.5, 1.5},
				Terms: []TermConfig{
					{Name: "SwerveRight", Points: []float64{-1.5, -0.9, -0.3}},
					{Name: "Hold", Points: []float64{-0.3, 0, 0.3}},
					{Name: "SwerveLeft", Points: []float64{0.3, 0.9, 1.5}},
				},
			},
		},
		Rules: []string{
			"if FrontLaser is Near then Velocity is Brake",
			"if FrontLaser is Far then Velocity is Coast",
			"if LeftLaser is Near then Rotation is SwerveRight",
			"if RightLaser is Near then Rotation is SwerveLeft",
			"if LeftLaser is Far and RightLaser is Far then Rotation is Hold",
		},
	}
}

// DefaultArbitrationConfig maps (PositionMeasure, MinLaser) to the two blend
// weights. PositionMeasure is |distance error|; MinLaser is the closest
// obstacle in any watched direction. When an obstacle is near, collision
// avoidance takes over, but a robot badly out of position keeps partial
// formation authority so it is not pushed out of the swarm.
func DefaultArbitrationConfig() *UnitConfig {
	weight := func(name string) VariableConfig {
		return VariableConfig{
			Name:  name,
			Range: [2]float64{0, 1},
			Terms: []TermConfig{
				{Name: "Low", Points: []float64{0, 0, 0.2, 0.5}},
				{Name: "Medium", Points: []float64{0.3, 0.5, 0.7}},
				{Name: "High", Points: []float64{0.5, 0.8, 1, 1}},
			},
		}
	}
	return &UnitConfig{
		Name: "arbitration",
		Inputs: []VariableConfig{
			{
				Name:  "PositionMeasure",
				Range: [2]float64{0, 3},
				Terms: []TermConfig{
					{Name: "Small", Points: []float64{0, 0, 0.1, 0.3}},
					{Name: "Large", Points: []float64{0.2, 0.5, 3, 3}, Open: "right"},
				},
			},
			{
				Name:  "MinLaser",
				Range: [2]float64{0, 4},
				Terms: []TermConfig{
					{Name: "Near", Points: []float64{0, 0, 0.3, 0.7}},
					{Name: "Far", Points: []float64{0.5, 1, 4, 4}, Open: "right"},
				},
			},
		},
		Outputs: []VariableConfig{weight("FormationWeight"), weight("CollisionWeight")},
		Rules: []string{
			"if MinLaser is Far then FormationWeight is High and CollisionWeight is Low",
			"if MinLaser is Near and PositionMeasure is Small then FormationWeight is Low and CollisionWeight is High",
			"if MinLaser is Near and PositionMeasure is Large then FormationWeight is Medium and CollisionWeight is High",
		},
	}
}

// DefaultControllerSet returns the built-in rule bases for all three
// controllers.
func DefaultControllerSet() *ControllerSet {
	return &ControllerSet{
		Formation:   DefaultFormationConfig(),
		Avoidance:   DefaultAvoidanceConfig(),
		Arbitration: DefaultArbitrationConfig(),
	}
}
