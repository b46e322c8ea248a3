// Package filter compiles untyped filter specifications into predicates over
// entity types.
package filter

import (
	"fmt"
	"strings"

	"github.com/pawbazaar/querykit/internal/orm/coerce"
)

// Equation is the comparison an entry requests
type Equation int

const (
	Equals Equation = iota
	NotEquals
	Contains
	StartsWith
	EndsWith
	Greater
	GreaterOrEqual
	Less
	LessOrEqual
	IsEmpty
	IsNotEmpty
)

var equationNames = []string{
	Equals:         "eq",
	NotEquals:      "neq",
	Contains:       "contains",
	StartsWith:     "startsWith",
	EndsWith:       "endsWith",
	Greater:        "gt",
	GreaterOrEqual: "gte",
	Less:           "lt",
	LessOrEqual:    "lte",
	IsEmpty:        "isEmpty",
	IsNotEmpty:     "isNotEmpty",
}

// equationAliases are the long spellings accepted when parsing
var equationAliases = map[string]Equation{
	"equals":           Equals,
	"not-equals":       NotEquals,
	"notequals":        NotEquals,
	"ne":               NotEquals,
	"starts-with":      StartsWith,
	"ends-with":        EndsWith,
	"greater":          Greater,
	"greater-or-equal": GreaterOrEqual,
	"greaterorequal":   GreaterOrEqual,
	"less":             Less,
	"less-or-equal":    LessOrEqual,
	"lessorequal":      LessOrEqual,
	"is-empty":         IsEmpty,
	"is-not-empty":     IsNotEmpty,
}

// String returns the short spelling of the equation
func (e Equation) String() string {
	if e < 0 || int(e) >= len(equationNames) {
		return fmt.Sprintf("Equation(%d)", int(e))
	}
	return equationNames[e]
}

// ParseEquation parses a short or long spelling, case-insensitively
func ParseEquation(s string) (Equation, error) {
	s = strings.TrimSpace(s)
	for i, name := range equationNames {
		if strings.EqualFold(s, name) {
			return Equation(i), nil
		}
	}
	if e, ok := equationAliases[strings.ToLower(s)]; ok {
		return e, nil
	}
	return 0, fmt.Errorf("unknown equation %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (e Equation) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *Equation) UnmarshalText(text []byte) error {
	parsed, err := ParseEquation(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// LogicalOperator joins the entries of a specification
type LogicalOperator int

const (
	And LogicalOperator = iota
	Or
)

// String returns the string representation of the operator
func (l LogicalOperator) String() string {
	if l == Or {
		return "or"
	}
	return "and"
}

// ParseLogicalOperator parses "and" or "or"; the empty string is And
func ParseLogicalOperator(s string) (LogicalOperator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and":
		return And, nil
	case "or":
		return Or, nil
	}
	return And, fmt.Errorf("unknown logical operator %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (l LogicalOperator) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *LogicalOperator) UnmarshalText(text []byte) error {
	parsed, err := ParseLogicalOperator(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Entry is a single filter condition: a field path, a loosely typed value
// and the comparison to apply
type Entry struct {
	Key      string       `json:"key"`
	Value    coerce.Value `json:"value"`
	Equation Equation     `json:"equation"`
}

// Specification is a list of entries joined by one logical operator
type Specification struct {
	Entries []Entry         `json:"filters"`
	Logic   LogicalOperator `json:"logic"`
}

// Add appends an entry and returns the specification for chaining
func (s *Specification) Add(key string, eq Equation, value any) *Specification {
	s.Entries = append(s.Entries, Entry{Key: key, Value: coerce.Of(value), Equation: eq})
	return s
}

// IsEmpty reports whether the specification has no entries
func (s Specification) IsEmpty() bool {
	return len(s.Entries) == 0
}
