package fuzzy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TermConfig describes one membership function. Points holds three values
// for a triangle or four for a trapezoid. Open may be "left" or "right" to
// hold membership at 1 beyond the flat top (used for outermost terms so
// that +Inf inputs read as full membership).
type TermConfig struct {
	Name   string    `json:"name"`
	Points []float64 `json:"points"`
	Open   string    `json:"open,omitempty"`
}

// VariableConfig describes a linguistic variable and its universe.
type VariableConfig struct {
	Name  string       `json:"name"`
	Range [2]float64   `json:"range"`
	Terms []TermConfig `json:"terms"`
}

// UnitConfig is the full static configuration of one decision unit.
type UnitConfig struct {
	Name       string           `json:"name"`
	Inputs     []VariableConfig `json:"inputs"`
	Outputs    []VariableConfig `json:"outputs"`
	Rules      []string         `json:"rules"`
	Resolution *int             `json:"resolution,omitempty"`
}

// ControllerSet bundles the three rule bases the follower needs. Fields
// omitted from a JSON override file fall back to the built-in defaults, so
// partial configs are safe.
type ControllerSet struct {
	Formation   *UnitConfig `json:"formation,omitempty"`
	Avoidance   *UnitConfig `json:"avoidance,omitempty"`
	Arbitration *UnitConfig `json:"arbitration,omitempty"`
}

func (c VariableConfig) build() (*Variable, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("variable with empty name")
	}
	if c.Range[0] >= c.Range[1] {
		return nil, fmt.Errorf("variable %s: range [%v, %v] is not increasing", c.Name, c.Range[0], c.Range[1])
	}
	if len(c.Terms) == 0 {
		return nil, fmt.Errorf("variable %s: no terms", c.Name)
	}

	v := &Variable{Name: c.Name, Min: c.Range[0], Max: c.Range[1]}
	for _, tc := range c.Terms {
		t := Term{Name: tc.Name}
		switch len(tc.Points) {
		case 3:
			t.A, t.B, t.C, t.D = tc.Points[0], tc.Points[1], tc.Points[1], tc.Points[2]
		case 4:
			t.A, t.B, t.C, t.D = tc.Points[0], tc.Points[1], tc.Points[2], tc.Points[3]
		default:
			return nil, fmt.Errorf("variable %s term %s: want 3 or 4 points, got %d", c.Name, tc.Name, len(tc.Points))
		}
		if t.A > t.B || t.B > t.C || t.C > t.D {
			return nil, fmt.Errorf("variable %s term %s: points must be non-decreasing", c.Name, tc.Name)
		}
		switch tc.Open {
		case "":
		case "left":
			t.OpenLeft = true
		case "right":
			t.OpenRight = true
		default:
			return nil, fmt.Errorf("variable %s term %s: open must be \"left\" or \"right\", got %q", c.Name, tc.Name, tc.Open)
		}
		v.Terms = append(v.Terms, t)
	}
	return v, nil
}

// Validate checks the configuration without building a Unit.
func (c *UnitConfig) Validate() error {
	_, err := NewUnit(*c)
	return err
}

// NewUnit builds a decision unit from its configuration, resolving every
// rule clause against the declared variables.
func NewUnit(cfg UnitConfig) (*Unit, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("unit with empty name")
	}
	if len(cfg.Inputs) == 0 || len(cfg.Outputs) == 0 {
		return nil, fmt.Errorf("unit %s: needs at least one input and one output", cfg.Name)
	}
	if len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("unit %s: empty rule base", cfg.Name)
	}

	u := &Unit{
		name:       cfg.Name,
		resolution: defaultResolution,
		values:     make(map[string]float64),
		results:    make(map[string]float64),
	}
	if cfg.Resolution != nil {
		if *cfg.Resolution < 2 {
			return nil, fmt.Errorf("unit %s: resolution must be >= 2", cfg.Name)
		}
		u.resolution = *cfg.Resolution
	}

	for _, vc := range cfg.Inputs {
		v, err := vc.build()
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", cfg.Name, err)
		}
		u.inputs = append(u.inputs, v)
	}
	for _, vc := range cfg.Outputs {
		v, err := vc.build()
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", cfg.Name, err)
		}
		u.outputs = append(u.outputs, v)
	}

	for _, text := range cfg.Rules {
		r, err := ParseRule(text)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", cfg.Name, err)
		}
		for _, cl := range r.Antecedents {
			in := u.input(cl.Variable)
			if in == nil {
				return nil, fmt.Errorf("unit %s: rule references unknown input %q", cfg.Name, cl.Variable)
			}
			if _, ok := in.term(cl.Term); !ok {
				return nil, fmt.Errorf("unit %s: input %s has no term %q", cfg.Name, cl.Variable, cl.Term)
			}
		}
		for _, cl := range r.Consequents {
			out := u.output(cl.Variable)
			if out == nil {
				return nil, fmt.Errorf("unit %s: rule references unknown output %q", cfg.Name, cl.Variable)
			}
			if _, ok := out.term(cl.Term); !ok {
				return nil, fmt.Errorf("unit %s: output %s has no term %q", cfg.Name, cl.Variable, cl.Term)
			}
		}
		u.rules = append(u.rules, r)
	}
	return u, nil
}

// maxConfigFileSize caps rule-base config files at 1MB.
const maxConfigFileSize = 1 * 1024 * 1024

// LoadControllerSet reads a ControllerSet override file. The file must have
// a .json extension; sections omitted from the file keep their built-in
// defaults.
func LoadControllerSet(path string) (*ControllerSet, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	set := DefaultControllerSet()
	if err := json.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	for _, cfg := range []*UnitConfig{set.Formation, set.Avoidance, set.Arbitration} {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return set, nil
}
