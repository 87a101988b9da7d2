// Package fuzzy implements the Mamdani-style decision units used to blend
// the follower's formation-keeping and collision-avoidance behaviors.
//
// A Unit is a named set of input and output variables plus a rule base:
// crisp inputs are fuzzified against the input terms, rules fire with
// min-AND activation, consequents aggregate with max, and each output is
// defuzzified by centroid over a sampled universe. Inputs outside a
// variable's universe are clamped.
package fuzzy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/annagriffin/swarm-cooperative-transport/internal/monitoring"
)

// defaultResolution is the number of samples used for centroid
// defuzzification across an output universe.
const defaultResolution = 200

// Term is a named membership function over a variable's universe. The four
// breakpoints describe a trapezoid A <= B <= C <= D; a triangle has B == C.
// An open shoulder holds membership at 1 beyond the flat top, which is what
// makes the "+Inf means clear" convention evaluate correctly: an infinite
// obstacle distance lands on the open right shoulder of a "Far" term.
type Term struct {
	Name                string
	A, B, C, D          float64
	OpenLeft, OpenRight bool
}

// Membership returns the degree to which x belongs to the term, in [0, 1].
func (t Term) Membership(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case t.OpenLeft && x <= t.B:
		return 1
	case t.OpenRight && x >= t.C:
		return 1
	case x < t.A || x > t.D:
		return 0
	case x < t.B:
		return (x - t.A) / (t.B - t.A)
	case x <= t.C:
		return 1
	default:
		return (t.D - x) / (t.D - t.C)
	}
}

// Variable is a named linguistic variable with a bounded universe of
// discourse and a set of terms.
type Variable struct {
	Name     string
	Min, Max float64
	Terms    []Term
}

func (v *Variable) term(name string) (Term, bool) {
	for _, t := range v.Terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

// clamp pulls x into the variable's universe. +Inf clamps to Max, which an
// open-shouldered outermost term maps to full membership.
func (v *Variable) clamp(x float64) float64 {
	return math.Min(math.Max(x, v.Min), v.Max)
}

// Unit is one fuzzy decision unit: declared inputs, declared outputs, and a
// rule base. All three controllers (formation, avoidance, arbitration) are
// instances of this one type with different configurations.
type Unit struct {
	name       string
	inputs     []*Variable
	outputs    []*Variable
	rules      []Rule
	resolution int

	values  map[string]float64 // crisp input values for the current cycle
	results map[string]float64 // crisp outputs from the last Process
}

// Name returns the unit's configured name.
func (u *Unit) Name() string { return u.name }

func (u *Unit) input(name string) *Variable {
	for _, v := range u.inputs {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (u *Unit) output(name string) *Variable {
	for _, v := range u.outputs {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// SetInput assigns a crisp value to a declared input variable. Every input
// must be assigned before Process.
func (u *Unit) SetInput(name string, value float64) error {
	if u.input(name) == nil {
		return fmt.Errorf("unit %s has no input %q", u.name, name)
	}
	u.values[name] = value
	return nil
}

// Process runs one inference pass over the current input values. It fails if
// any declared input has not been assigned; after a successful pass every
// declared output has a defined crisp value.
func (u *Unit) Process() error {
	for _, in := range u.inputs {
		if _, ok := u.values[in.Name]; !ok {
			return fmt.Errorf("unit %s: input %q not set before Process", u.name, in.Name)
		}
	}

	// Rule evaluation: min-AND over antecedents, max aggregation per
	// consequent term.
	type key struct{ variable, term string }
	strengths := make(map[key]float64)
	for _, r := range u.rules {
		activation := 1.0
		for _, c := range r.Antecedents {
			in := u.input(c.Variable)
			term, _ := in.term(c.Term)
			m := term.Membership(in.clamp(u.values[c.Variable]))
			if m < activation {
				activation = m
			}
		}
		for _, c := range r.Consequents {
			k := key{c.Variable, c.Term}
			if activation > strengths[k] {
				strengths[k] = activation
			}
		}
	}

	for _, out := range u.outputs {
		u.results[out.Name] = u.defuzzify(out, func(term string) float64 {
			return strengths[key{out.Name, term}]
		})
	}
	return nil
}

// defuzzify computes the centroid of the clipped-and-aggregated output
// surface over a sampled universe.
func (u *Unit) defuzzify(out *Variable, strength func(term string) float64) float64 {
	xs := make([]float64, u.resolution)
	mus := make([]float64, u.resolution)
	step := (out.Max - out.Min) / float64(u.resolution-1)

	for i := range xs {
		x := out.Min + float64(i)*step
		mu := 0.0
		for _, t := range out.Terms {
			m := math.Min(strength(t.Name), t.Membership(x))
			if m > mu {
				mu = m
			}
		}
		xs[i] = x
		mus[i] = mu
	}

	area := floats.Sum(mus)
	if area == 0 {
		// No rule fired for this output. The rule bases are authored to
		// cover the whole universe, so this indicates a configuration
		// gap; fall back to the universe midpoint.
		monitoring.Debugf("fuzzy: unit %s output %s had no rule activation", u.name, out.Name)
		return (out.Min + out.Max) / 2
	}
	return floats.Dot(xs, mus) / area
}

// Output returns the crisp value of a declared output variable from the last
// Process pass.
func (u *Unit) Output(name string) (float64, error) {
	v, ok := u.results[name]
	if !ok {
		return 0, fmt.Errorf("unit %s has no computed output %q", u.name, name)
	}
	return v, nil
}
