package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type color int

type address struct {
	City     string
	Postcode *string
}

type owner struct {
	Name    string
	Address *address
}

type Base struct {
	ID uuid.UUID
}

type pet struct {
	Base
	Name      string `json:"name"`
	Nickname  *string
	Age       int
	Weight    *float64
	Price     decimal.Decimal
	Sex       rune `query:",char"`
	Code      int32
	Color     color
	Vaccine   *bool
	BornAt    time.Time
	SoldAt    *time.Time
	Tags      []string
	Scores    []int
	Owner     owner
	Keeper    *owner
	Attrs     map[string]string
	Secret    string `query:"-"`
	HomeTown  string `query:"town"`
	Duration  time.Duration
	unexposed string
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindText, "text"},
		{KindNumber, "number"},
		{KindDecimal, "decimal"},
		{KindBool, "bool"},
		{KindChar, "char"},
		{KindDate, "date"},
		{KindUUID, "uuid"},
		{KindEnum, "enum"},
		{KindObject, "object"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Char")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != KindChar {
		t.Errorf("expected char, got %v", k)
	}

	if _, err := ParseKind("blob"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestDeriveFieldKinds(t *testing.T) {
	meta, err := NewRegistry().Meta(reflect.TypeOf(pet{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		field      string
		kind       Kind
		nullable   bool
		collection bool
	}{
		{"ID", KindUUID, false, false},
		{"Name", KindText, false, false},
		{"Nickname", KindText, true, false},
		{"Age", KindNumber, false, false},
		{"Weight", KindNumber, true, false},
		{"Price", KindDecimal, false, false},
		{"Sex", KindChar, false, false},
		{"Code", KindNumber, false, false},
		{"Color", KindEnum, false, false},
		{"Vaccine", KindBool, true, false},
		{"BornAt", KindDate, false, false},
		{"SoldAt", KindDate, true, false},
		{"Tags", KindText, false, true},
		{"Scores", KindNumber, false, true},
		{"Owner", KindObject, false, false},
		{"Keeper", KindObject, true, false},
		{"HomeTown", KindText, false, false},
		{"Duration", KindNumber, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, ok := meta.ExactField(tt.field)
			if !ok {
				t.Fatalf("field %s not derived", tt.field)
			}
			if f.Type.Kind != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, f.Type.Kind)
			}
			if f.Type.Nullable != tt.nullable {
				t.Errorf("expected nullable=%v, got %v", tt.nullable, f.Type.Nullable)
			}
			if f.Type.Collection != tt.collection {
				t.Errorf("expected collection=%v, got %v", tt.collection, f.Type.Collection)
			}
		})
	}

	for _, hidden := range []string{"Attrs", "Secret", "unexposed", "Base"} {
		if _, ok := meta.ExactField(hidden); ok {
			t.Errorf("field %s should not be derived", hidden)
		}
	}
}

func TestFieldTypeString(t *testing.T) {
	tests := []struct {
		name     string
		ft       FieldType
		expected string
	}{
		{"scalar", FieldType{Kind: KindNumber}, "number"},
		{"nullable", FieldType{Kind: KindDate, Nullable: true}, "date?"},
		{"collection", FieldType{Kind: KindText, Collection: true}, "list<text>"},
		{"enum", FieldType{Kind: KindEnum, Elem: reflect.TypeOf(color(0))}, "enum(schema.color)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ft.String(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestFieldTypeIsOrdered(t *testing.T) {
	if !(FieldType{Kind: KindDate, Nullable: true}).IsOrdered() {
		t.Error("nullable date should be ordered")
	}
	if (FieldType{Kind: KindText, Collection: true}).IsOrdered() {
		t.Error("collections are not ordered")
	}
	if (FieldType{Kind: KindObject}).IsOrdered() {
		t.Error("objects are not ordered")
	}
}

func TestPathHelpers(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"name", []string{"Name"}},
		{"owner.address.city", []string{"Owner", "Address", "City"}},
		{"owner:address:city", []string{"Owner", "Address", "City"}},
		{"home_town", []string{"HomeTown"}},
		{"owner..name", []string{"Owner", "Name"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SplitPath(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SplitPath(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
