package sqlstore

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/pawbazaar/querykit/internal/orm/expr"
	"github.com/pawbazaar/querykit/internal/orm/schema"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// translator turns expression trees and orderings into squirrel clauses
type translator struct {
	columns *columnSet
	dialect Dialect
}

// condition translates an expression tree into a WHERE condition
func (t translator) condition(e expr.Expr) (sq.Sqlizer, error) {
	switch n := e.(type) {
	case *expr.Cond:
		return t.leaf(n)
	case *expr.And:
		l, r, err := t.pair(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return sq.And{l, r}, nil
	case *expr.Or:
		l, r, err := t.pair(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return sq.Or{l, r}, nil
	case *expr.Not:
		inner, err := t.condition(n.X)
		if err != nil {
			return nil, err
		}
		s, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT ("+s+")", args...), nil
	}
	return nil, untranslatable("expression %T", e)
}

func (t translator) pair(left, right expr.Expr) (sq.Sqlizer, sq.Sqlizer, error) {
	l, err := t.condition(left)
	if err != nil {
		return nil, nil, err
	}
	r, err := t.condition(right)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// column resolves the single-field path of a condition or ordering
func (t translator) column(path *schema.Chain) (string, error) {
	if path == nil {
		return "", untranslatable("closure without a field path")
	}
	if path.Nested() {
		return "", untranslatable("nested path %s", path)
	}
	if path.Type().Collection {
		return "", untranslatable("collection field %s", path)
	}
	c, ok := t.columns.lookup(path.Last().Name)
	if !ok {
		return "", untranslatable("field %s has no column", path)
	}
	return c.name, nil
}

// leaf translates one condition. Nullable columns are guarded with IS NOT
// NULL so that a null field is false, not unknown, under NOT.
func (t translator) leaf(c *expr.Cond) (sq.Sqlizer, error) {
	col, err := t.column(c.Path)
	if err != nil {
		return nil, err
	}
	ft := c.Type()

	var cond sq.Sqlizer
	switch {
	case c.Op == expr.OpIn:
		cond = sq.Eq{col: c.Values}
	case ft.Kind == schema.KindText:
		cond, err = t.text(col, c)
	case ft.Kind == schema.KindUUID && (c.Op == expr.OpIsEmpty || c.Op == expr.OpIsNotEmpty):
		op := expr.OpEq
		if c.Op == expr.OpIsNotEmpty {
			op = expr.OpNeq
		}
		cond, err = t.binary(col, op, uuid.Nil)
	case ft.Kind == schema.KindDate:
		tm, ok := c.Value.(time.Time)
		if !ok {
			return nil, untranslatable("date operand %T", c.Value)
		}
		cond, err = t.binary(t.dialect.dateOf(col), c.Op, t.dialect.dateArg(tm))
	default:
		cond, err = t.binary(col, c.Op, c.Value)
	}
	if err != nil {
		return nil, err
	}

	if ft.Nullable {
		return sq.And{sq.NotEq{col: nil}, cond}, nil
	}
	return cond, nil
}

// text compares LOWER(col) against the already lower-cased operand
func (t translator) text(col string, c *expr.Cond) (sq.Sqlizer, error) {
	switch c.Op {
	case expr.OpIsEmpty:
		return sq.Eq{col: ""}, nil
	case expr.OpIsNotEmpty:
		return sq.NotEq{col: ""}, nil
	}

	operand, ok := c.Value.(string)
	if !ok {
		return nil, untranslatable("text operand %T", c.Value)
	}
	lowered := fmt.Sprintf("LOWER(%s)", col)

	var pattern string
	switch c.Op {
	case expr.OpContains:
		pattern = "%" + likeEscaper.Replace(operand) + "%"
	case expr.OpStartsWith:
		pattern = likeEscaper.Replace(operand) + "%"
	case expr.OpEndsWith:
		pattern = "%" + likeEscaper.Replace(operand)
	default:
		return t.binary(lowered, c.Op, operand)
	}
	return sq.Expr(lowered+` LIKE ? ESCAPE '\'`, pattern), nil
}

// binary builds "lhs op ?"
func (t translator) binary(lhs string, op expr.Op, value any) (sq.Sqlizer, error) {
	switch op {
	case expr.OpEq, expr.OpNeq, expr.OpGt, expr.OpGte, expr.OpLt, expr.OpLte:
		return sq.Expr(fmt.Sprintf("%s %s ?", lhs, op), value), nil
	}
	return nil, untranslatable("operator %s on %s", op, lhs)
}

// orderClause translates one ordering. Nulls sort first ascending and last
// descending on every dialect.
func (t translator) orderClause(path *schema.Chain, desc bool) (string, error) {
	col, err := t.column(path)
	if err != nil {
		return "", err
	}
	if desc {
		if t.dialect.nullsFirst {
			return col + " DESC NULLS LAST", nil
		}
		return col + " DESC", nil
	}
	if t.dialect.nullsFirst {
		return col + " ASC NULLS FIRST", nil
	}
	return col + " ASC", nil
}
