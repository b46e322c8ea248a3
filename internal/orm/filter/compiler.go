package filter

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/pawbazaar/querykit/internal/orm/expr"
	"github.com/pawbazaar/querykit/internal/orm/schema"
)

// Compiler turns specifications into expression trees. It is safe for
// concurrent use; its only shared state is the schema registry.
type Compiler struct {
	registry *schema.Registry
	logger   *zap.Logger
}

// Option configures a Compiler
type Option func(*Compiler)

// WithRegistry sets the schema registry used to resolve keys
func WithRegistry(r *schema.Registry) Option {
	return func(c *Compiler) {
		c.registry = r
	}
}

// WithLogger sets the logger skipped entries are reported to
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// NewCompiler creates a compiler backed by the default registry
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		registry: schema.Default,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCompiler = NewCompiler()

// Registry returns the registry the compiler resolves keys against
func (c *Compiler) Registry() *schema.Registry {
	return c.registry
}

// Compile compiles spec for T. The zero Predicate, which matches everything,
// is returned when spec has no entries or every entry was skipped. A nil
// compiler uses a default one.
func Compile[T any](c *Compiler, spec Specification) (expr.Predicate[T], error) {
	if c == nil {
		c = defaultCompiler
	}
	e, err := c.CompileType(reflect.TypeFor[T](), spec)
	if err != nil {
		return expr.Predicate[T]{}, err
	}
	return expr.FromExpr[T](e), nil
}

// CompileType compiles spec against the entity type t (a struct or pointer to
// struct). It returns nil when there is nothing to filter on.
//
// Entries whose key does not resolve, or whose value is null or absent, are
// skipped. Any other failure aborts the whole compilation and names the
// offending key.
func (c *Compiler) CompileType(t reflect.Type, spec Specification) (expr.Expr, error) {
	if len(spec.Entries) == 0 {
		return nil, nil
	}

	var acc expr.Expr
	for _, entry := range spec.Entries {
		e, err := c.compileEntry(t, entry)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", entry.Key, err)
		}
		if e == nil {
			continue
		}
		acc = expr.Join(spec.Logic == Or, acc, e)
	}
	return acc, nil
}

func (c *Compiler) compileEntry(t reflect.Type, entry Entry) (expr.Expr, error) {
	path, ok := c.registry.ResolvePath(t, entry.Key)
	if !ok {
		c.skip(t, entry, "unresolved field")
		return nil, nil
	}
	if entry.Value.IsMissing() {
		c.skip(t, entry, "null value")
		return nil, nil
	}

	ft := path.Type()
	switch {
	case ft.Collection && entry.Value.IsArray():
		return intersects(path, entry)
	case ft.Collection:
		return has(path, entry)
	case entry.Value.IsArray():
		return membership(path, entry)
	}

	switch ft.Kind {
	case schema.KindText:
		return text(path, entry)
	case schema.KindChar, schema.KindEnum, schema.KindNumber, schema.KindDecimal:
		return ordered(path, entry, orderedOps, nil)
	case schema.KindDate:
		return ordered(path, entry, orderedOps, truncateDate)
	case schema.KindBool:
		return ordered(path, entry, equalityOps, nil)
	case schema.KindUUID:
		return identifier(path, entry)
	}
	return nil, unsupported(ft, entry.Equation, ScalarShape)
}

func (c *Compiler) skip(t reflect.Type, entry Entry, reason string) {
	c.logger.Debug("skipping filter entry",
		zap.Stringer("entity", t),
		zap.String("key", entry.Key),
		zap.Stringer("equation", entry.Equation),
		zap.String("reason", reason),
	)
}
