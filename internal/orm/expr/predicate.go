package expr

import (
	"reflect"
)

// Predicate is a boolean test over T. Predicates produced by the filter
// compiler carry the expression tree they were built from, which SQL
// backends translate; predicates built from a plain function carry only the
// closure. The zero Predicate matches everything.
type Predicate[T any] struct {
	expr Expr
	fn   func(T) bool
}

// Func wraps a plain function
func Func[T any](fn func(T) bool) Predicate[T] {
	return Predicate[T]{fn: fn}
}

// FromExpr wraps an expression tree. A nil tree yields the zero Predicate.
func FromExpr[T any](e Expr) Predicate[T] {
	if e == nil {
		return Predicate[T]{}
	}
	return Predicate[T]{
		expr: e,
		fn: func(v T) bool {
			return e.Eval(reflect.ValueOf(&v))
		},
	}
}

// Expr returns the expression tree, or nil for function predicates
func (p Predicate[T]) Expr() Expr {
	return p.expr
}

// IsZero reports whether p is the match-all zero value
func (p Predicate[T]) IsZero() bool {
	return p.fn == nil
}

// Translatable reports whether every part of p has an expression tree
func (p Predicate[T]) Translatable() bool {
	return p.fn == nil || p.expr != nil
}

// Test evaluates the predicate
func (p Predicate[T]) Test(v T) bool {
	if p.fn == nil {
		return true
	}
	return p.fn(v)
}

// And combines p and q; the tree survives only when both sides have one
func (p Predicate[T]) And(q Predicate[T]) Predicate[T] {
	switch {
	case p.IsZero():
		return q
	case q.IsZero():
		return p
	}
	if p.expr != nil && q.expr != nil {
		return FromExpr[T](&And{Left: p.expr, Right: q.expr})
	}
	pf, qf := p.fn, q.fn
	return Predicate[T]{fn: func(v T) bool { return pf(v) && qf(v) }}
}

// Or combines p and q; the tree survives only when both sides have one
func (p Predicate[T]) Or(q Predicate[T]) Predicate[T] {
	switch {
	case p.IsZero():
		return p
	case q.IsZero():
		return q
	}
	if p.expr != nil && q.expr != nil {
		return FromExpr[T](&Or{Left: p.expr, Right: q.expr})
	}
	pf, qf := p.fn, q.fn
	return Predicate[T]{fn: func(v T) bool { return pf(v) || qf(v) }}
}

// Not negates p. The negation of the zero Predicate matches nothing.
func (p Predicate[T]) Not() Predicate[T] {
	if p.IsZero() {
		return Func(func(T) bool { return false })
	}
	if p.expr != nil {
		return FromExpr[T](&Not{X: p.expr})
	}
	pf := p.fn
	return Predicate[T]{fn: func(v T) bool { return !pf(v) }}
}

// String describes the predicate
func (p Predicate[T]) String() string {
	switch {
	case p.expr != nil:
		return p.expr.String()
	case p.fn == nil:
		return "true"
	}
	return "<func>"
}
