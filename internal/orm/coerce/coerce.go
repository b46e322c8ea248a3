package coerce

import (
	"encoding"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/pawbazaar/querykit/internal/orm/schema"
)

// ErrCoercion is matched by every coercion failure
var ErrCoercion = errors.New("value coercion failed")

// CoercionError reports a value that could not be converted to the type a
// field expects
type CoercionError struct {
	Field    string
	Expected schema.FieldType
	Value    Value
	Err      error
}

// Error implements the error interface
func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("cannot convert %s to %s", e.Value, e.Expected)
	if e.Field != "" {
		msg = fmt.Sprintf("field %s: %s", e.Field, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrCoercion and the underlying parse error
func (e *CoercionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCoercion}
	}
	return []error{ErrCoercion, e.Err}
}

// Coerce converts v to the scalar type of t. For collection types the
// element type is the target, so Coerce can produce the single value tested
// for membership in a list field. The result has the field's Go element
// type (int8, Species, time.Time, ...).
func Coerce(field string, v Value, t schema.FieldType) (any, error) {
	t = t.Scalar()
	rv, err := convert(v, t)
	if err != nil {
		return nil, &CoercionError{Field: field, Expected: t, Value: v, Err: err}
	}
	return rv.Interface(), nil
}

// CoerceList converts an array value element by element to the scalar type
// of t
func CoerceList(field string, v Value, t schema.FieldType) ([]any, error) {
	t = t.Scalar()
	if v.Kind() != Array {
		return nil, &CoercionError{Field: field, Expected: t, Value: v, Err: errors.New("expected an array")}
	}

	out := make([]any, 0, len(v.Items()))
	for i, item := range v.Items() {
		rv, err := convert(item, t)
		if err != nil {
			return nil, &CoercionError{
				Field:    fmt.Sprintf("%s[%d]", field, i),
				Expected: t,
				Value:    item,
				Err:      err,
			}
		}
		out = append(out, rv.Interface())
	}
	return out, nil
}

// convert dispatches on the target kind
func convert(v Value, t schema.FieldType) (reflect.Value, error) {
	if v.IsMissing() {
		return reflect.Value{}, errors.New("value is null")
	}
	if v.Kind() == Array {
		return reflect.Value{}, errors.New("unexpected array")
	}

	out := reflect.New(t.Elem).Elem()

	switch t.Kind {
	case schema.KindText:
		s, err := toText(v)
		if err != nil {
			return out, err
		}
		out.SetString(s)

	case schema.KindNumber:
		d, err := toDecimal(v)
		if err != nil {
			return out, err
		}
		if err := setNumber(out, d); err != nil {
			return out, err
		}

	case schema.KindEnum:
		d, err := toDecimal(v)
		if err != nil {
			if named, ok := enumByName(v, out); ok {
				return named, nil
			}
			return out, err
		}
		if !d.IsInteger() {
			return out, fmt.Errorf("enum ordinal %s is not an integer", d)
		}
		if err := setNumber(out, d); err != nil {
			return out, err
		}

	case schema.KindDecimal:
		d, err := toDecimal(v)
		if err != nil {
			return out, err
		}
		out.Set(reflect.ValueOf(d))

	case schema.KindBool:
		b, err := toBool(v)
		if err != nil {
			return out, err
		}
		out.SetBool(b)

	case schema.KindChar:
		r, err := toChar(v)
		if err != nil {
			return out, err
		}
		if out.OverflowInt(int64(r)) {
			return out, fmt.Errorf("character %q out of range", r)
		}
		out.SetInt(int64(r))

	case schema.KindDate:
		ts, err := toTime(v)
		if err != nil {
			return out, err
		}
		out.Set(reflect.ValueOf(ts))

	case schema.KindUUID:
		if v.Kind() != String {
			return out, fmt.Errorf("expected a string, got %s", v.Kind())
		}
		id, err := uuid.Parse(strings.TrimSpace(v.Text()))
		if err != nil {
			return out, err
		}
		out.Set(reflect.ValueOf(id))

	default:
		return out, fmt.Errorf("%s fields cannot be compared to a value", t.Kind)
	}

	return out, nil
}

// enumByName parses a non-numeric string with the enum's own UnmarshalText
func enumByName(v Value, out reflect.Value) (reflect.Value, bool) {
	if v.Kind() != String {
		return out, false
	}
	u, ok := out.Addr().Interface().(encoding.TextUnmarshaler)
	if !ok {
		return out, false
	}
	if err := u.UnmarshalText([]byte(strings.TrimSpace(v.Text()))); err != nil {
		return out, false
	}
	return out, true
}

func toText(v Value) (string, error) {
	switch v.Kind() {
	case String, Number:
		return v.Text(), nil
	case Bool:
		return cast.ToStringE(v.Interface())
	}
	return "", fmt.Errorf("expected text, got %s", v.Kind())
}

func toDecimal(v Value) (decimal.Decimal, error) {
	switch v.Kind() {
	case Number, String:
		return decimal.NewFromString(strings.TrimSpace(v.Text()))
	case Bool:
		i, err := cast.ToInt64E(v.Interface())
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(i), nil
	}
	return decimal.Zero, fmt.Errorf("expected a number, got %s", v.Kind())
}

// setNumber stores d into an integer or float value, rejecting fractions for
// integer targets and values outside the target width
func setNumber(out reflect.Value, d decimal.Decimal) error {
	switch out.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := integerPart(d)
		if err != nil {
			return err
		}
		if !i.IsInt64() || out.OverflowInt(i.Int64()) {
			return fmt.Errorf("%s overflows %s", d, out.Type())
		}
		out.SetInt(i.Int64())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		i, err := integerPart(d)
		if err != nil {
			return err
		}
		if !i.IsUint64() || out.OverflowUint(i.Uint64()) {
			return fmt.Errorf("%s overflows %s", d, out.Type())
		}
		out.SetUint(i.Uint64())

	case reflect.Float32, reflect.Float64:
		f := d.InexactFloat64()
		if out.OverflowFloat(f) {
			return fmt.Errorf("%s overflows %s", d, out.Type())
		}
		out.SetFloat(f)

	default:
		return fmt.Errorf("%s is not numeric", out.Type())
	}
	return nil
}

func integerPart(d decimal.Decimal) (*big.Int, error) {
	if !d.IsInteger() {
		return nil, fmt.Errorf("%s is not an integer", d)
	}
	return d.BigInt(), nil
}

func toBool(v Value) (bool, error) {
	switch v.Kind() {
	case Bool:
		return v.Interface().(bool), nil
	case String, Number:
		return cast.ToBoolE(strings.TrimSpace(v.Text()))
	}
	return false, fmt.Errorf("expected a boolean, got %s", v.Kind())
}

func toChar(v Value) (rune, error) {
	switch v.Kind() {
	case String:
		if utf8.RuneCountInString(v.Text()) != 1 {
			return 0, fmt.Errorf("expected a single character, got %q", v.Text())
		}
		r, _ := utf8.DecodeRuneInString(v.Text())
		return r, nil
	case Number:
		d, err := toDecimal(v)
		if err != nil {
			return 0, err
		}
		i, err := integerPart(d)
		if err != nil {
			return 0, err
		}
		if !i.IsInt64() || i.Int64() < 0 || i.Int64() > utf8.MaxRune {
			return 0, fmt.Errorf("%s is not a valid code point", d)
		}
		return rune(i.Int64()), nil
	}
	return 0, fmt.Errorf("expected a character, got %s", v.Kind())
}

// toTime accepts a timestamp string in any layout cast understands
// (RFC3339, "2006-01-02", "2006-01-02 15:04:05", ...) or an object with
// year, month and day members and optional hour, minute and second.
func toTime(v Value) (time.Time, error) {
	switch v.Kind() {
	case String:
		return cast.ToTimeInDefaultLocationE(strings.TrimSpace(v.Text()), time.UTC)
	case Object:
		return dateFromObject(v)
	}
	return time.Time{}, fmt.Errorf("expected a timestamp string or date object, got %s", v.Kind())
}

func dateFromObject(v Value) (time.Time, error) {
	parts := map[string]int{"year": 0, "month": 0, "day": 0, "hour": 0, "minute": 0, "second": 0}
	for name := range parts {
		f, ok := v.Field(name)
		if !ok {
			if name == "year" || name == "month" || name == "day" {
				return time.Time{}, fmt.Errorf("date object is missing %q", name)
			}
			continue
		}
		d, err := toDecimal(f)
		if err != nil {
			return time.Time{}, fmt.Errorf("date object %q: %w", name, err)
		}
		i, err := integerPart(d)
		if err != nil || !i.IsInt64() {
			return time.Time{}, fmt.Errorf("date object %q is not an integer", name)
		}
		parts[name] = int(i.Int64())
	}

	if parts["month"] < 1 || parts["month"] > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", parts["month"])
	}
	if parts["day"] < 1 || parts["day"] > 31 {
		return time.Time{}, fmt.Errorf("day %d out of range", parts["day"])
	}

	return time.Date(parts["year"], time.Month(parts["month"]), parts["day"],
		parts["hour"], parts["minute"], parts["second"], 0, time.UTC), nil
}
