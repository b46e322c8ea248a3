package sqlstore

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	utilstrings "github.com/pawbazaar/querykit/internal/util/strings"
)

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// column maps one struct field to a table column
type column struct {
	name  string
	field string
	index []int
}

// columnSet is the column table of one entity type
type columnSet struct {
	columns []column
	byField map[string]column
}

func (s *columnSet) names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.name
	}
	return names
}

// lookup returns the column for a Go field name
func (s *columnSet) lookup(field string) (column, bool) {
	c, ok := s.byField[field]
	return c, ok
}

var columnCache sync.Map // reflect.Type -> *columnSet

// columnsOf returns the column table of a struct type, deriving it once.
// Columns are named by the `db` tag, else the snake_case field name. Fields
// tagged `db:"-"`, nested objects and collections have no column.
func columnsOf(t reflect.Type) (*columnSet, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.(*columnSet), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrNoColumns, t)
	}

	set := &columnSet{byField: make(map[string]column)}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := f.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			if !scannable(f.Type) {
				continue
			}
			name = utilstrings.ToSnakeCase(f.Name)
		}
		name, _, _ = strings.Cut(name, ",")

		c := column{name: name, field: f.Name, index: f.Index}
		set.columns = append(set.columns, c)
		set.byField[f.Name] = c
	}
	if len(set.columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoColumns, t)
	}

	actual, _ := columnCache.LoadOrStore(t, set)
	return actual.(*columnSet), nil
}

// scannable reports whether database/sql can scan a column into t
func scannable(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case reflect.TypeOf(time.Time{}), reflect.TypeOf(uuid.UUID{}), reflect.TypeOf(decimal.Decimal{}):
		return true
	}
	if reflect.PointerTo(t).Implements(scannerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// targets returns scan destinations for the fields of the struct v points at
func (s *columnSet) targets(v reflect.Value) []any {
	dest := make([]any, len(s.columns))
	for i, c := range s.columns {
		dest[i] = v.FieldByIndex(c.index).Addr().Interface()
	}
	return dest
}
