// Package query provides the fluent query builder that ties filter, sort and
// page compilation to a lazy backing-store query.
package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pawbazaar/querykit/internal/orm/expr"
	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/sorting"
	"github.com/pawbazaar/querykit/internal/orm/store"
)

// Builder composes a query from filter, sort and page specifications. Each
// fluent method modifies the builder and returns it so calls can be chained;
// methods that validate their input return an error instead and leave the
// builder unchanged.
type Builder[T any] struct {
	query     store.Query[T]
	predicate expr.Predicate[T]
	ordered   bool
	page      sorting.Page

	compiler *filter.Compiler
	scopes   *Scopes[T]
	logger   *zap.Logger
}

// Option configures a Builder
type Option[T any] func(*Builder[T])

// WithCompiler sets the filter compiler; its schema registry is also used to
// resolve sort keys
func WithCompiler[T any](c *filter.Compiler) Option[T] {
	return func(b *Builder[T]) {
		b.compiler = c
	}
}

// WithLogger sets the builder's logger
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(b *Builder[T]) {
		b.logger = logger
	}
}

// WithScopes sets the named scopes available to Scope
func WithScopes[T any](s *Scopes[T]) Option[T] {
	return func(b *Builder[T]) {
		b.scopes = s
	}
}

// New creates a builder over a backing-store query
func New[T any](q store.Query[T], opts ...Option[T]) *Builder[T] {
	b := &Builder[T]{
		query:  q,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.compiler == nil {
		b.compiler = filter.NewCompiler(filter.WithLogger(b.logger))
	}
	return b
}

// Filter compiles spec and narrows the query with it. A specification that
// compiles to no predicate leaves the query as is.
func (b *Builder[T]) Filter(spec filter.Specification) (*Builder[T], error) {
	p, err := filter.Compile[T](b.compiler, spec)
	if err != nil {
		return b, err
	}
	return b.Where(p), nil
}

// Where narrows the query with an explicit predicate
func (b *Builder[T]) Where(p expr.Predicate[T]) *Builder[T] {
	if p.IsZero() {
		return b
	}
	b.predicate = b.predicate.And(p)
	b.query = b.query.Where(p)
	return b
}

// Predicate returns the conjunction of every predicate applied so far
func (b *Builder[T]) Predicate() expr.Predicate[T] {
	return b.predicate
}

// Apply replaces the query with fn applied to it
func (b *Builder[T]) Apply(fn func(store.Query[T]) store.Query[T]) *Builder[T] {
	b.query = fn(b.query)
	return b
}

// Sort orders the query by entries. Unresolved keys are dropped; when
// entries is empty def is used if set. Nothing changes when no key
// resolves.
func (b *Builder[T]) Sort(entries []sorting.Entry, def *sorting.Entry) *Builder[T] {
	orderings := sorting.CompileSort[T](b.compiler.Registry(), entries, def)
	if len(orderings) == 0 {
		return b
	}
	b.query = b.query.OrderBy(orderings...)
	b.ordered = true
	return b
}

// Paginate validates p and stores it; the page is taken when the query is
// materialized
func (b *Builder[T]) Paginate(p sorting.Page) (*Builder[T], error) {
	if err := p.Validate(); err != nil {
		return b, err
	}
	b.page = p
	return b, nil
}

// OrderBy replaces the ordering with o
func (b *Builder[T]) OrderBy(o expr.Ordering[T]) *Builder[T] {
	b.query = b.query.OrderBy(o)
	b.ordered = true
	return b
}

// ThenBy adds a secondary ordering. It fails with ErrNoOrdering when no
// ordering has been applied through OrderBy or Sort.
func (b *Builder[T]) ThenBy(o expr.Ordering[T]) (*Builder[T], error) {
	if !b.ordered {
		return b, ErrNoOrdering
	}
	b.query = b.query.ThenBy(o)
	return b, nil
}

// Ordered reports whether an ordering has been applied
func (b *Builder[T]) Ordered() bool {
	return b.ordered
}

// Include requests eager loading of a related entity path
func (b *Builder[T]) Include(path string) *Builder[T] {
	b.query = b.query.Include(path)
	return b
}

// Tracking toggles identity tracking of materialized entities
func (b *Builder[T]) Tracking(enabled bool) *Builder[T] {
	b.query = b.query.Tracking(enabled)
	return b
}

// Skip skips the first n entities; n must not be negative
func (b *Builder[T]) Skip(n int) (*Builder[T], error) {
	if n < 0 {
		return b, fmt.Errorf("%w: %d", ErrInvalidSkip, n)
	}
	b.query = b.query.Skip(n)
	return b, nil
}

// Take limits the query to n entities; n must be at least 1
func (b *Builder[T]) Take(n int) (*Builder[T], error) {
	if n < 1 {
		return b, fmt.Errorf("%w: %d", ErrInvalidTake, n)
	}
	b.query = b.query.Take(n)
	return b, nil
}

// Distinct removes duplicate entities
func (b *Builder[T]) Distinct() *Builder[T] {
	b.query = b.query.Distinct()
	return b
}

// Scope applies a registered named scope
func (b *Builder[T]) Scope(name string) (*Builder[T], error) {
	if b.scopes == nil {
		return b, fmt.Errorf("%w: %s", ErrUnknownScope, name)
	}
	return b.scopes.Apply(b, name)
}

// paged returns the query with the stored page applied
func (b *Builder[T]) paged() store.Query[T] {
	skip, take, ok, err := sorting.CompilePage(b.page)
	if !ok || err != nil {
		return b.query
	}
	return b.query.Skip(skip).Take(take)
}

// Query returns the still-lazy query with the page applied
func (b *Builder[T]) Query() store.Query[T] {
	return b.paged()
}

// ListWithCount returns the current page together with the number of
// entities matching the query before pagination. The count and the page are
// fetched concurrently from the same query state.
func (b *Builder[T]) ListWithCount(ctx context.Context) ([]T, int, error) {
	unpaged, paged := b.query, b.paged()

	var (
		items []T
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := unpaged.Count(gctx)
		if err != nil {
			return err
		}
		total = n
		return nil
	})
	g.Go(func() error {
		list, err := paged.List(gctx)
		if err != nil {
			return err
		}
		items = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	b.logger.Debug("listed page",
		zap.Int("total", total),
		zap.Int("returned", len(items)),
		zap.Bool("paged", b.page.IsSet()),
	)
	return items, total, nil
}

// List materializes the current page
func (b *Builder[T]) List(ctx context.Context) ([]T, error) {
	return b.paged().List(ctx)
}

// First returns the first entity of the current page. ok is false when
// there is none.
func (b *Builder[T]) First(ctx context.Context) (T, bool, error) {
	var zero T
	list, err := b.paged().Take(1).List(ctx)
	if err != nil || len(list) == 0 {
		return zero, false, err
	}
	return list[0], true, nil
}

// Single returns the only entity of the current page. ok is false when there
// is none; more than one match is ErrMultipleResults.
func (b *Builder[T]) Single(ctx context.Context) (T, bool, error) {
	var zero T
	list, err := b.paged().Take(2).List(ctx)
	if err != nil {
		return zero, false, err
	}
	switch len(list) {
	case 0:
		return zero, false, nil
	case 1:
		return list[0], true, nil
	}
	return zero, false, ErrMultipleResults
}

// Count returns the number of entities matching the query, ignoring the
// stored page
func (b *Builder[T]) Count(ctx context.Context) (int, error) {
	return b.query.Count(ctx)
}

// Any reports whether the query matches at least one entity
func (b *Builder[T]) Any(ctx context.Context) (bool, error) {
	n, err := b.query.Take(1).Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
