package expr

import (
	"bytes"
	"cmp"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawbazaar/querykit/internal/orm/schema"
)

// Comparator compares two non-nil scalar values of the same field type
type Comparator func(a, b reflect.Value) int

// ComparatorFor returns the comparator for scalar values of the given kind.
// The dispatch happens once here so the returned closure does no type
// switching per call.
func ComparatorFor(kind schema.Kind, elem reflect.Type) Comparator {
	switch kind {
	case schema.KindDate:
		return func(a, b reflect.Value) int {
			return a.Interface().(time.Time).Compare(b.Interface().(time.Time))
		}
	case schema.KindDecimal:
		return func(a, b reflect.Value) int {
			return a.Interface().(decimal.Decimal).Cmp(b.Interface().(decimal.Decimal))
		}
	case schema.KindUUID:
		return func(a, b reflect.Value) int {
			x, y := a.Interface().(uuid.UUID), b.Interface().(uuid.UUID)
			return bytes.Compare(x[:], y[:])
		}
	case schema.KindBool:
		return func(a, b reflect.Value) int {
			return compareBool(a.Bool(), b.Bool())
		}
	case schema.KindText:
		return func(a, b reflect.Value) int {
			return strings.Compare(a.String(), b.String())
		}
	}

	switch elem.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Int(), b.Int())
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Uint(), b.Uint())
		}
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Float(), b.Float())
		}
	}
	return nil
}

// NullableComparator wraps a scalar comparator for raw field values that may
// be nil pointers or missing (an invalid reflect.Value). Nulls compare lower
// than every value and equal to each other.
func NullableComparator(c Comparator) Comparator {
	return func(a, b reflect.Value) int {
		a, aok := Deref(a)
		b, bok := Deref(b)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return -1
		case !bok:
			return 1
		}
		return c(a, b)
	}
}

// Equal reports whether two non-nil scalar values of the given kind are
// equal. Dates compare by instant, decimals by value.
func Equal(kind schema.Kind, a, b reflect.Value) bool {
	switch kind {
	case schema.KindDate:
		return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
	case schema.KindDecimal:
		return a.Interface().(decimal.Decimal).Equal(b.Interface().(decimal.Decimal))
	}
	return a.Interface() == b.Interface()
}

// DateOnly returns the calendar date t shows in its own location, as
// midnight UTC, so that dates from different zones compare by year, month
// and day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Deref strips a pointer layer; ok is false for nil and invalid values
func Deref(v reflect.Value) (reflect.Value, bool) {
	if !v.IsValid() {
		return v, false
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v, false
		}
		return v.Elem(), true
	}
	return v, true
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
