package filter

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawbazaar/querykit/internal/orm/coerce"
	"github.com/pawbazaar/querykit/internal/orm/expr"
	"github.com/pawbazaar/querykit/internal/orm/schema"
)

var (
	orderedOps = map[Equation]expr.Op{
		Equals:         expr.OpEq,
		NotEquals:      expr.OpNeq,
		Greater:        expr.OpGt,
		GreaterOrEqual: expr.OpGte,
		Less:           expr.OpLt,
		LessOrEqual:    expr.OpLte,
	}

	equalityOps = map[Equation]expr.Op{
		Equals:    expr.OpEq,
		NotEquals: expr.OpNeq,
	}

	textOps = map[Equation]expr.Op{
		Equals:         expr.OpEq,
		NotEquals:      expr.OpNeq,
		Greater:        expr.OpGt,
		GreaterOrEqual: expr.OpGte,
		Less:           expr.OpLt,
		LessOrEqual:    expr.OpLte,
		Contains:       expr.OpContains,
		StartsWith:     expr.OpStartsWith,
		EndsWith:       expr.OpEndsWith,
		IsEmpty:        expr.OpIsEmpty,
		IsNotEmpty:     expr.OpIsNotEmpty,
	}
)

// holds reports whether a three-way comparison result satisfies op
func holds(op expr.Op, c int) bool {
	switch op {
	case expr.OpEq:
		return c == 0
	case expr.OpNeq:
		return c != 0
	case expr.OpGt:
		return c > 0
	case expr.OpGte:
		return c >= 0
	case expr.OpLt:
		return c < 0
	case expr.OpLte:
		return c <= 0
	}
	return false
}

// truncateDate drops the time of day from a time.Time value
func truncateDate(v reflect.Value) reflect.Value {
	return reflect.ValueOf(expr.DateOnly(v.Interface().(time.Time)))
}

// text compares lower-cased text. A null field never matches.
func text(path *schema.Chain, entry Entry) (expr.Expr, error) {
	ft := path.Type()
	op, ok := textOps[entry.Equation]
	if !ok {
		return nil, unsupported(ft, entry.Equation, ScalarShape)
	}

	if op == expr.OpIsEmpty || op == expr.OpIsNotEmpty {
		empty := op == expr.OpIsEmpty
		return expr.NewCond(path, op, nil, nil, func(f reflect.Value) bool {
			v, ok := expr.Deref(f)
			if !ok {
				return false
			}
			return (v.Len() == 0) == empty
		}), nil
	}

	operand, err := coerce.Coerce(entry.Key, entry.Value, ft)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(reflect.ValueOf(operand).String())

	return expr.NewCond(path, op, want, nil, func(f reflect.Value) bool {
		v, ok := expr.Deref(f)
		if !ok {
			return false
		}
		got := strings.ToLower(v.String())
		switch op {
		case expr.OpContains:
			return strings.Contains(got, want)
		case expr.OpStartsWith:
			return strings.HasPrefix(got, want)
		case expr.OpEndsWith:
			return strings.HasSuffix(got, want)
		}
		return holds(op, strings.Compare(got, want))
	}), nil
}

// ordered builds comparisons for kinds with a three-way comparator. normalize,
// when set, is applied to both sides before comparing.
func ordered(path *schema.Chain, entry Entry, ops map[Equation]expr.Op, normalize func(reflect.Value) reflect.Value) (expr.Expr, error) {
	ft := path.Type()
	op, ok := ops[entry.Equation]
	if !ok {
		return nil, unsupported(ft, entry.Equation, ScalarShape)
	}
	compare := expr.ComparatorFor(ft.Kind, ft.Elem)
	if compare == nil {
		return nil, unsupported(ft, entry.Equation, ScalarShape)
	}

	operand, err := coerce.Coerce(entry.Key, entry.Value, ft)
	if err != nil {
		return nil, err
	}
	want := reflect.ValueOf(operand)
	if normalize != nil {
		want = normalize(want)
	}

	return expr.NewCond(path, op, want.Interface(), nil, func(f reflect.Value) bool {
		v, ok := expr.Deref(f)
		if !ok {
			return false
		}
		if normalize != nil {
			v = normalize(v)
		}
		return holds(op, compare(v, want))
	}), nil
}

// identifier handles UUID fields; the nil UUID counts as empty
func identifier(path *schema.Chain, entry Entry) (expr.Expr, error) {
	switch entry.Equation {
	case Equals, NotEquals:
		return ordered(path, entry, equalityOps, nil)
	case IsEmpty, IsNotEmpty:
		op := expr.OpIsEmpty
		if entry.Equation == IsNotEmpty {
			op = expr.OpIsNotEmpty
		}
		return expr.NewCond(path, op, nil, nil, func(f reflect.Value) bool {
			v, ok := expr.Deref(f)
			if !ok {
				return false
			}
			return (v.Interface().(uuid.UUID) == uuid.Nil) == (op == expr.OpIsEmpty)
		}), nil
	}
	return nil, unsupported(path.Type(), entry.Equation, ScalarShape)
}

// membership tests a scalar field against a list of values. The equation is
// ignored.
func membership(path *schema.Chain, entry Entry) (expr.Expr, error) {
	ft := path.Type()
	compare := expr.ComparatorFor(ft.Kind, ft.Elem)
	if compare == nil {
		return nil, unsupported(ft, entry.Equation, ScalarShape)
	}
	values, err := coerce.CoerceList(entry.Key, entry.Value, ft)
	if err != nil {
		return nil, err
	}
	candidates := reflectAll(values)

	return expr.NewCond(path, expr.OpIn, nil, values, func(f reflect.Value) bool {
		v, ok := expr.Deref(f)
		if !ok {
			return false
		}
		return containsValue(candidates, v, compare)
	}), nil
}

// has tests a collection field for one value; not-equals negates it
func has(path *schema.Chain, entry Entry) (expr.Expr, error) {
	ft := path.Type()
	if entry.Equation != Contains && entry.Equation != NotEquals {
		return nil, unsupported(ft, entry.Equation, ListFieldScalarValue)
	}
	compare := expr.ComparatorFor(ft.Kind, ft.Elem)
	if compare == nil {
		return nil, unsupported(ft, entry.Equation, ListFieldScalarValue)
	}
	operand, err := coerce.Coerce(entry.Key, entry.Value, ft)
	if err != nil {
		return nil, err
	}
	want := []reflect.Value{reflect.ValueOf(operand)}

	cond := expr.NewCond(path, expr.OpHas, operand, nil, func(f reflect.Value) bool {
		return anyElement(f, want, compare)
	})
	return negateIf(entry.Equation == NotEquals, cond), nil
}

// intersects tests a collection field for any shared element with a list;
// not-equals negates it
func intersects(path *schema.Chain, entry Entry) (expr.Expr, error) {
	ft := path.Type()
	if entry.Equation != Contains && entry.Equation != NotEquals {
		return nil, unsupported(ft, entry.Equation, ListFieldListValue)
	}
	compare := expr.ComparatorFor(ft.Kind, ft.Elem)
	if compare == nil {
		return nil, unsupported(ft, entry.Equation, ListFieldListValue)
	}
	values, err := coerce.CoerceList(entry.Key, entry.Value, ft)
	if err != nil {
		return nil, err
	}
	candidates := reflectAll(values)

	cond := expr.NewCond(path, expr.OpIntersects, nil, values, func(f reflect.Value) bool {
		return anyElement(f, candidates, compare)
	})
	return negateIf(entry.Equation == NotEquals, cond), nil
}

// anyElement reports whether the collection field holds an element equal to
// one of candidates. Nil elements match nothing.
func anyElement(field reflect.Value, candidates []reflect.Value, compare expr.Comparator) bool {
	for i := 0; i < field.Len(); i++ {
		el, ok := expr.Deref(field.Index(i))
		if !ok {
			continue
		}
		if containsValue(candidates, el, compare) {
			return true
		}
	}
	return false
}

func containsValue(candidates []reflect.Value, v reflect.Value, compare expr.Comparator) bool {
	for _, c := range candidates {
		if compare(v, c) == 0 {
			return true
		}
	}
	return false
}

func reflectAll(values []any) []reflect.Value {
	out := make([]reflect.Value, len(values))
	for i, v := range values {
		out[i] = reflect.ValueOf(v)
	}
	return out
}

func negateIf(negate bool, e expr.Expr) expr.Expr {
	if negate {
		return &expr.Not{X: e}
	}
	return e
}
