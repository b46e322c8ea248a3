package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// tagOptions holds the parsed `query` struct tag
type tagOptions struct {
	name string
	skip bool
	char bool
}

// parseTag parses a tag of the form `query:"name,char"` or `query:"-"`
func parseTag(field reflect.StructField) (tagOptions, error) {
	var opts tagOptions

	tag, ok := field.Tag.Lookup("query")
	if !ok {
		return opts, nil
	}
	if tag == "-" {
		opts.skip = true
		return opts, nil
	}

	parts := strings.Split(tag, ",")
	opts.name = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case p == "char":
			opts.char = true
		default:
			return opts, fmt.Errorf("field %s: unknown query tag option %q", field.Name, p)
		}
	}
	return opts, nil
}

// jsonName returns the name from the json tag, if any
func jsonName(field reflect.StructField) string {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

// derive builds the field table of a struct type. Nested struct types are
// not walked here; the registry derives them on demand during resolution.
func derive(t reflect.Type) (*EntityMeta, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrNotEntity, t)
	}

	meta := &EntityMeta{
		Type:   t,
		Fields: make([]*FieldMeta, 0, t.NumField()),
		exact:  make(map[string]*FieldMeta),
		folded: make(map[string]*FieldMeta),
	}

	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() {
			continue
		}
		// Promoted fields of embedded structs are listed by VisibleFields
		if sf.Anonymous && indirect(sf.Type).Kind() == reflect.Struct {
			continue
		}

		opts, err := parseTag(sf)
		if err != nil {
			return nil, err
		}
		if opts.skip {
			continue
		}

		ft, ok := fieldTypeOf(sf.Type, opts)
		if !ok {
			continue
		}

		alias := opts.name
		if alias == "" {
			alias = jsonName(sf)
		}

		fm := &FieldMeta{
			Name:  sf.Name,
			Alias: alias,
			Type:  ft,
			Index: sf.Index,
		}
		meta.Fields = append(meta.Fields, fm)
		meta.add(fm.Name, fm)
		if alias != "" {
			meta.add(alias, fm)
		}
	}

	return meta, nil
}

// add registers a lookup key; the first field to claim a key wins
func (m *EntityMeta) add(key string, f *FieldMeta) {
	if _, exists := m.exact[key]; !exists {
		m.exact[key] = f
	}
	folded := foldName(key)
	if _, exists := m.folded[folded]; !exists {
		m.folded[folded] = f
	}
}

// fieldTypeOf maps a Go type to a FieldType; ok is false for types the
// query layer cannot filter on (maps, funcs, channels, interfaces)
func fieldTypeOf(t reflect.Type, opts tagOptions) (FieldType, bool) {
	var ft FieldType

	if (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && !isScalarStruct(t) {
		ft.Collection = true
		t = t.Elem()
	}
	if t.Kind() == reflect.Pointer {
		ft.Nullable = true
		t = t.Elem()
	}
	ft.Elem = t

	kind, ok := kindOf(t, opts)
	if !ok {
		return ft, false
	}
	ft.Kind = kind
	return ft, true
}

// kindOf classifies a non-pointer, non-slice Go type
func kindOf(t reflect.Type, opts tagOptions) (Kind, bool) {
	switch t {
	case timeType:
		return KindDate, true
	case uuidType:
		return KindUUID, true
	case decimalType:
		return KindDecimal, true
	}

	switch t.Kind() {
	case reflect.String:
		return KindText, true
	case reflect.Bool:
		return KindBool, true
	case reflect.Int32:
		if opts.char {
			return KindChar, true
		}
		if isNamed(t) {
			return KindEnum, true
		}
		return KindNumber, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		// time.Duration is a named integer but not an enumeration
		if isNamed(t) && t != reflect.TypeOf(time.Duration(0)) {
			return KindEnum, true
		}
		return KindNumber, true
	case reflect.Float32, reflect.Float64:
		return KindNumber, true
	case reflect.Struct:
		return KindObject, true
	}

	return 0, false
}

// isScalarStruct reports whether t is one of the value types that compare
// as a single scalar despite their Go representation (uuid.UUID is an array)
func isScalarStruct(t reflect.Type) bool {
	return t == timeType || t == uuidType || t == decimalType
}

// isNamed reports whether t is a user-defined type rather than a builtin
func isNamed(t reflect.Type) bool {
	return t.PkgPath() != ""
}

func indirect(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
