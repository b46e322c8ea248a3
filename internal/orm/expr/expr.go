// Package expr holds compiled query expressions: boolean expression trees
// over entity fields, typed predicates built from them, and orderings.
//
// An expression tree is both executable and inspectable. Each leaf carries
// the compiled test that evaluates it in memory, alongside the resolved field
// path, operator and coerced operand a SQL backend needs to translate it.
package expr

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pawbazaar/querykit/internal/orm/schema"
)

// Op is the comparison performed by a leaf condition
type Op int

const (
	OpEq Op = iota
	OpNeq
	OpGt
	OpGte
	OpLt
	OpLte
	OpContains
	OpStartsWith
	OpEndsWith
	OpIsEmpty
	OpIsNotEmpty
	// OpIn tests a scalar field for membership in Values
	OpIn
	// OpHas tests a collection field for an element equal to Value
	OpHas
	// OpIntersects tests a collection field for any element in Values
	OpIntersects
)

// String returns the string representation of the operator
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "starts with"
	case OpEndsWith:
		return "ends with"
	case OpIsEmpty:
		return "is empty"
	case OpIsNotEmpty:
		return "is not empty"
	case OpIn:
		return "in"
	case OpHas:
		return "has"
	case OpIntersects:
		return "intersects"
	default:
		return "unknown"
	}
}

// Expr is a boolean expression over an entity. The set of node types is
// closed: Cond, And, Or and Not.
type Expr interface {
	// Eval evaluates the expression against an entity value (struct or
	// pointer to struct)
	Eval(entity reflect.Value) bool
	String() string
	exprNode()
}

// FieldTest is the compiled check a leaf applies to the raw field value as
// returned by schema.Chain.Get
type FieldTest func(field reflect.Value) bool

// Cond is a leaf comparison of one field against a coerced operand
type Cond struct {
	Path   *schema.Chain
	Op     Op
	Value  any   // scalar operand, nil for OpIsEmpty and OpIsNotEmpty
	Values []any // list operand for OpIn and OpIntersects

	test FieldTest
}

// NewCond creates a leaf condition
func NewCond(path *schema.Chain, op Op, value any, values []any, test FieldTest) *Cond {
	return &Cond{
		Path:   path,
		Op:     op,
		Value:  value,
		Values: values,
		test:   test,
	}
}

// Type returns the declared type of the compared field
func (c *Cond) Type() schema.FieldType {
	return c.Path.Type()
}

// Eval implements Expr. A nil object on the way to the field fails the test.
func (c *Cond) Eval(entity reflect.Value) bool {
	field, ok := c.Path.Get(entity)
	if !ok {
		return false
	}
	return c.test(field)
}

// String implements Expr
func (c *Cond) String() string {
	switch c.Op {
	case OpIsEmpty, OpIsNotEmpty:
		return fmt.Sprintf("%s %s", c.Path, c.Op)
	case OpIn, OpIntersects:
		return fmt.Sprintf("%s %s %s", c.Path, c.Op, formatList(c.Values))
	default:
		return fmt.Sprintf("%s %s %s", c.Path, c.Op, formatOperand(c.Value))
	}
}

func (*Cond) exprNode() {}

// And is true when both sides are true
type And struct {
	Left, Right Expr
}

// Eval implements Expr
func (a *And) Eval(entity reflect.Value) bool {
	return a.Left.Eval(entity) && a.Right.Eval(entity)
}

// String implements Expr
func (a *And) String() string {
	return fmt.Sprintf("(%s AND %s)", a.Left, a.Right)
}

func (*And) exprNode() {}

// Or is true when either side is true
type Or struct {
	Left, Right Expr
}

// Eval implements Expr
func (o *Or) Eval(entity reflect.Value) bool {
	return o.Left.Eval(entity) || o.Right.Eval(entity)
}

// String implements Expr
func (o *Or) String() string {
	return fmt.Sprintf("(%s OR %s)", o.Left, o.Right)
}

func (*Or) exprNode() {}

// Not negates its operand
type Not struct {
	X Expr
}

// Eval implements Expr
func (n *Not) Eval(entity reflect.Value) bool {
	return !n.X.Eval(entity)
}

// String implements Expr
func (n *Not) String() string {
	return fmt.Sprintf("NOT %s", n.X)
}

func (*Not) exprNode() {}

// Join folds exprs left to right with AND (or OR when or is set). It returns
// nil for an empty list.
func Join(or bool, exprs ...Expr) Expr {
	var acc Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		switch {
		case acc == nil:
			acc = e
		case or:
			acc = &Or{Left: acc, Right: e}
		default:
			acc = &And{Left: acc, Right: e}
		}
	}
	return acc
}

// Walk calls fn for every node of e in depth-first order, stopping early if
// fn returns false
func Walk(e Expr, fn func(Expr) bool) bool {
	if e == nil {
		return true
	}
	if !fn(e) {
		return false
	}
	switch n := e.(type) {
	case *And:
		return Walk(n.Left, fn) && Walk(n.Right, fn)
	case *Or:
		return Walk(n.Left, fn) && Walk(n.Right, fn)
	case *Not:
		return Walk(n.X, fn)
	}
	return true
}

func formatOperand(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func formatList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatOperand(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
