package fuzzy

import (
	"fmt"
	"strings"
)

// Clause pairs a variable with one of its terms.
type Clause struct {
	Variable string
	Term     string
}

// Rule is one if-then rule: all antecedents AND together, all consequents
// receive the rule's activation.
type Rule struct {
	Antecedents []Clause
	Consequents []Clause
}

// ParseRule parses a rule of the form
//
//	if Angle is Left and Distance is TooFar then Velocity is Fast and Rotation is TurnLeft
//
// Only conjunction is supported; the controllers' rule bases never need OR.
func ParseRule(text string) (Rule, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "if") {
		return Rule{}, fmt.Errorf("rule %q: must start with 'if'", text)
	}

	thenIdx := -1
	for i, f := range fields {
		if strings.EqualFold(f, "then") {
			thenIdx = i
			break
		}
	}
	if thenIdx < 0 {
		return Rule{}, fmt.Errorf("rule %q: missing 'then'", text)
	}

	ante, err := parseClauses(fields[1:thenIdx])
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", text, err)
	}
	cons, err := parseClauses(fields[thenIdx+1:])
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", text, err)
	}
	return Rule{Antecedents: ante, Consequents: cons}, nil
}

// parseClauses consumes "X is A [and Y is B ...]".
func parseClauses(fields []string) ([]Clause, error) {
	var clauses []Clause
	for len(fields) > 0 {
		if len(fields) < 3 || !strings.EqualFold(fields[1], "is") {
			return nil, fmt.Errorf("expected '<variable> is <term>' near %q", strings.Join(fields, " "))
		}
		clauses = append(clauses, Clause{Variable: fields[0], Term: fields[2]})
		fields = fields[3:]
		if len(fields) > 0 {
			if !strings.EqualFold(fields[0], "and") {
				return nil, fmt.Errorf("expected 'and', got %q", fields[0])
			}
			fields = fields[1:]
		}
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("empty clause list")
	}
	return clauses, nil
}
