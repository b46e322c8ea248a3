// Package sorting compiles dynamic sort entries into orderings and page
// requests into skip/take windows.
package sorting

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/pawbazaar/querykit/internal/orm/expr"
	"github.com/pawbazaar/querykit/internal/orm/schema"
)

// ErrInvalidPage is returned for a page number or size below 1
var ErrInvalidPage = errors.New("invalid page")

// Direction is the sort direction of an entry
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns the string representation of the direction
func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection parses "asc", "desc", "ascending" or "descending"
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	}
	return Asc, fmt.Errorf("unknown sort direction %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Entry is one requested sort key
type Entry struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// ParseList parses a comma-separated sort list where a leading "-" marks a
// descending key: "-price,title".
func ParseList(s string) []Entry {
	var entries []Entry
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		dir := Asc
		switch {
		case strings.HasPrefix(part, "-"):
			dir = Desc
			part = part[1:]
		case strings.HasPrefix(part, "+"):
			part = part[1:]
		}
		if part == "" {
			continue
		}
		entries = append(entries, Entry{Key: part, Direction: dir})
	}
	return entries
}

// CompileSort resolves entries against T and returns the orderings to apply,
// primary first. When entries is empty, def (if any) is the only key.
// Entries that do not resolve, or that name a field without an order, are
// skipped.
func CompileSort[T any](reg *schema.Registry, entries []Entry, def *Entry) []expr.Ordering[T] {
	if reg == nil {
		reg = schema.Default
	}
	if len(entries) == 0 && def != nil {
		entries = []Entry{*def}
	}

	t := reflect.TypeFor[T]()
	orderings := make([]expr.Ordering[T], 0, len(entries))
	for _, e := range entries {
		path, ok := reg.ResolvePath(t, e.Key)
		if !ok {
			continue
		}
		o, ok := expr.FieldOrdering[T](path, e.Direction == Desc)
		if !ok {
			continue
		}
		orderings = append(orderings, o)
	}
	return orderings
}
