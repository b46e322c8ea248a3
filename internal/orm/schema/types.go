// Package schema derives field metadata for entity types and resolves
// field paths against it. Metadata is computed once per Go type and cached
// for the lifetime of the process, so filter and sort compilation only pay
// the reflection cost on first use of a type.
package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind is the closed set of field kinds the query layer knows how to compare
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDecimal
	KindBool
	KindChar
	KindDate
	KindUUID
	KindEnum
	KindObject
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindDate:
		return "date"
	case KindUUID:
		return "uuid"
	case KindEnum:
		return "enum"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "text", "string":
		return KindText, nil
	case "number":
		return KindNumber, nil
	case "decimal":
		return KindDecimal, nil
	case "bool":
		return KindBool, nil
	case "char":
		return KindChar, nil
	case "date", "time":
		return KindDate, nil
	case "uuid":
		return KindUUID, nil
	case "enum":
		return KindEnum, nil
	case "object":
		return KindObject, nil
	default:
		return 0, fmt.Errorf("unknown field kind: %s", s)
	}
}

// FieldType is the declared type of a field.
//
// Elem is the scalar Go type after stripping the slice and pointer layers,
// e.g. a field declared as []*time.Time has Kind=KindDate, Collection=true,
// Nullable=true and Elem=time.Time.
type FieldType struct {
	Kind       Kind
	Nullable   bool
	Collection bool
	Elem       reflect.Type
}

// String returns a string representation of the FieldType
func (t FieldType) String() string {
	s := t.Kind.String()
	if t.Elem != nil && t.Kind == KindEnum {
		s = fmt.Sprintf("enum(%s)", t.Elem)
	}
	if t.Nullable {
		s += "?"
	}
	if t.Collection {
		s = "list<" + s + ">"
	}
	return s
}

// Scalar returns the element type of a collection field
func (t FieldType) Scalar() FieldType {
	t.Collection = false
	return t
}

// IsOrdered reports whether values of this type have a total order
func (t FieldType) IsOrdered() bool {
	if t.Collection {
		return false
	}
	switch t.Kind {
	case KindObject, KindBool, KindUUID:
		return false
	}
	return true
}

// FieldMeta describes a single filterable field of an entity
type FieldMeta struct {
	Name  string // Go field name
	Alias string // json or query tag name, empty if none
	Type  FieldType
	Index []int
}

// String returns the field name with its type
func (f *FieldMeta) String() string {
	return fmt.Sprintf("%s %s", f.Name, f.Type)
}

// EntityMeta is the cached field table of one entity type
type EntityMeta struct {
	Type   reflect.Type
	Fields []*FieldMeta

	exact  map[string]*FieldMeta
	folded map[string]*FieldMeta
}

// ExactField looks a field up by its Go name or alias without case folding
func (m *EntityMeta) ExactField(name string) (*FieldMeta, bool) {
	f, ok := m.exact[name]
	return f, ok
}

// Field looks a field up case-insensitively
func (m *EntityMeta) Field(name string) (*FieldMeta, bool) {
	if f, ok := m.exact[name]; ok {
		return f, true
	}
	f, ok := m.folded[foldName(name)]
	return f, ok
}

// Names returns the Go names of all fields in declaration order
func (m *EntityMeta) Names() []string {
	names := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		names = append(names, f.Name)
	}
	return names
}
