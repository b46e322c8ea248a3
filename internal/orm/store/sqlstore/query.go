// Package sqlstore implements store.Query over database/sql. Compiled
// expression trees and orderings are translated to SQL with squirrel; parts
// of a query with no SQL form fail at materialization with
// ErrUntranslatable.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/pawbazaar/querykit/internal/orm/expr"
	"github.com/pawbazaar/querykit/internal/orm/relationships"
	"github.com/pawbazaar/querykit/internal/orm/store"
	"github.com/pawbazaar/querykit/internal/orm/tracking"
)

// Querier is the subset of *sql.DB and *sql.Tx used to run queries
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Option configures a Query
type Option[T any] func(*Query[T])

// WithDialect sets the SQL dialect; the default is SQLite
func WithDialect[T any](d Dialect) Option[T] {
	return func(q *Query[T]) {
		q.dialect = d
	}
}

// WithLogger sets the logger statements are logged to at debug level
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(q *Query[T]) {
		q.logger = logger
	}
}

// WithLoader sets the loader used for Include paths
func WithLoader[T any](l relationships.Loader[T]) Option[T] {
	return func(q *Query[T]) {
		q.loader = l
	}
}

// WithTracker sets the tracker that records materialized entities while
// tracking is enabled
func WithTracker[T any](t *tracking.Tracker) Option[T] {
	return func(q *Query[T]) {
		q.tracker = t
	}
}

// Query is a lazy SQL query over a table whose rows map onto T. Like
// store.Memory, composition methods return new queries and operations apply
// in call order: filtering or sorting a paged query pages first, then
// filters the page in an outer SELECT.
type Query[T any] struct {
	db      Querier
	table   string
	dialect Dialect
	logger  *zap.Logger
	loader  relationships.Loader[T]
	tracker *tracking.Tracker

	// inner is the paged query this one selects from, if any
	inner     *Query[T]
	where     []expr.Predicate[T]
	orderings []expr.Ordering[T]
	offset    int
	limit     *int
	distinct  bool
	includes  []string
	tracking  bool
}

var _ store.Query[struct{}] = (*Query[struct{}])(nil)

// New creates a query over every row of table
func New[T any](db Querier, table string, opts ...Option[T]) *Query[T] {
	q := &Query[T]{
		db:       db,
		table:    table,
		dialect:  SQLite,
		logger:   zap.NewNop(),
		tracking: true,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.where = slices.Clone(q.where)
	c.orderings = slices.Clone(q.orderings)
	c.includes = slices.Clone(q.includes)
	return &c
}

func (q *Query[T]) paged() bool {
	return q.offset > 0 || q.limit != nil
}

// outer returns a query to add a filter or ordering to. A paged query is
// nested so that the page is taken before the new clause applies.
func (q *Query[T]) outer() *Query[T] {
	if !q.paged() {
		return q.clone()
	}
	inner := q.clone()
	inner.includes = nil
	return &Query[T]{
		db:       q.db,
		table:    q.table,
		dialect:  q.dialect,
		logger:   q.logger,
		loader:   q.loader,
		tracker:  q.tracker,
		inner:    inner,
		includes: slices.Clone(q.includes),
		tracking: q.tracking,
	}
}

// Where implements store.Query
func (q *Query[T]) Where(p expr.Predicate[T]) store.Query[T] {
	if p.IsZero() {
		return q.clone()
	}
	c := q.outer()
	c.where = append(c.where, p)
	return c
}

// OrderBy implements store.Query
func (q *Query[T]) OrderBy(orderings ...expr.Ordering[T]) store.Query[T] {
	if len(orderings) == 0 {
		return q.clone()
	}
	c := q.outer()
	c.orderings = slices.Clone(orderings)
	return c
}

// ThenBy implements store.Query. It extends the nearest ordering, which may
// sit below a page, or starts one.
func (q *Query[T]) ThenBy(o expr.Ordering[T]) store.Query[T] {
	if len(q.orderings) > 0 {
		c := q.clone()
		c.orderings = append(c.orderings, o)
		return c
	}
	if q.inner != nil && q.inner.hasOrdering() {
		c := q.clone()
		c.inner = q.inner.ThenBy(o).(*Query[T])
		return c
	}
	return q.OrderBy(o)
}

func (q *Query[T]) hasOrdering() bool {
	for s := q; s != nil; s = s.inner {
		if len(s.orderings) > 0 {
			return true
		}
	}
	return false
}

// Skip implements store.Query. Skipping within a taken window shrinks it.
func (q *Query[T]) Skip(n int) store.Query[T] {
	c := q.clone()
	if n <= 0 {
		return c
	}
	c.offset += n
	if c.limit != nil {
		c.limit = ptr(max(*c.limit-n, 0))
	}
	return c
}

// Take implements store.Query
func (q *Query[T]) Take(n int) store.Query[T] {
	c := q.clone()
	n = max(n, 0)
	if c.limit != nil {
		n = min(n, *c.limit)
	}
	c.limit = &n
	return c
}

// Distinct implements store.Query
func (q *Query[T]) Distinct() store.Query[T] {
	c := q.outer()
	c.distinct = true
	return c
}

// Include implements store.Query
func (q *Query[T]) Include(path string) store.Query[T] {
	c := q.clone()
	c.includes = append(c.includes, path)
	return c
}

// Tracking implements store.Query
func (q *Query[T]) Tracking(enabled bool) store.Query[T] {
	c := q.clone()
	c.tracking = enabled
	return c
}

// build renders the SELECT for this query and everything below it
func (q *Query[T]) build(cols *columnSet) (sq.SelectBuilder, error) {
	tr := translator{columns: cols, dialect: q.dialect}

	b := sq.Select(cols.names()...).PlaceholderFormat(q.dialect.Placeholder)
	if q.inner != nil {
		inner, err := q.inner.build(cols)
		if err != nil {
			return b, err
		}
		b = b.FromSelect(inner, "paged")
	} else {
		b = b.From(q.table)
	}

	if q.distinct {
		b = b.Distinct()
	}

	for _, p := range q.where {
		e := p.Expr()
		if e == nil {
			return b, untranslatable("closure predicate %s", p)
		}
		cond, err := tr.condition(e)
		if err != nil {
			return b, err
		}
		b = b.Where(cond)
	}

	for _, o := range q.orderings {
		clause, err := tr.orderClause(o.Path, o.Desc)
		if err != nil {
			return b, err
		}
		b = b.OrderBy(clause)
	}

	if q.limit != nil {
		b = b.Limit(uint64(*q.limit))
	}
	if q.offset > 0 {
		if q.limit == nil && q.dialect.offsetNeedsLimit {
			b = b.Limit(math.MaxInt64)
		}
		b = b.Offset(uint64(q.offset))
	}
	return b, nil
}

// fetch runs the statement and scans every row. The rows are closed before
// it returns so that loaders can reuse the connection.
func (q *Query[T]) fetch(ctx context.Context, cols *columnSet, query string, args []any) ([]T, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, convertDBError(err)
	}
	defer rows.Close()
	return scanAll[T](rows, cols)
}

// ToSql renders the statement List would run
func (q *Query[T]) ToSql() (string, []any, error) {
	cols, err := columnsOf(reflect.TypeFor[T]())
	if err != nil {
		return "", nil, err
	}
	b, err := q.build(cols)
	if err != nil {
		return "", nil, err
	}
	return b.ToSql()
}

// List implements store.Query
func (q *Query[T]) List(ctx context.Context) ([]T, error) {
	if len(q.includes) > 0 && q.loader == nil {
		return nil, fmt.Errorf("%w: %s", relationships.ErrUnknownRelationship, q.includes[0])
	}
	cols, err := columnsOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	b, err := q.build(cols)
	if err != nil {
		return nil, err
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	q.logger.Debug("executing query", zap.String("sql", query), zap.Int("args", len(args)))

	items, err := q.fetch(ctx, cols, query, args)
	if err != nil {
		return nil, err
	}

	if len(q.includes) > 0 {
		if err := q.loader.Load(ctx, items, q.includes); err != nil {
			return nil, err
		}
	}

	if q.tracking && q.tracker != nil {
		for _, item := range items {
			if err := q.tracker.Attach(item); err != nil {
				return nil, err
			}
		}
	}
	return items, nil
}

// Count implements store.Query
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	cols, err := columnsOf(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}

	// ordering only matters when it decides which rows are paged in
	c := q.clone()
	if !c.paged() {
		c.orderings = nil
	}
	b, err := c.build(cols)
	if err != nil {
		return 0, err
	}
	if c.inner == nil && !c.paged() && !c.distinct {
		b = b.RemoveColumns().Column("count(*)")
	} else {
		b = sq.Select("count(*)").FromSelect(b, "counted").PlaceholderFormat(q.dialect.Placeholder)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	q.logger.Debug("executing count", zap.String("sql", query), zap.Int("args", len(args)))

	var n int
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, convertDBError(err)
	}
	return n, nil
}

// scanAll scans every row into a new T. Pointer entity types get a freshly
// allocated struct per row.
func scanAll[T any](rows *sql.Rows, cols *columnSet) ([]T, error) {
	t := reflect.TypeFor[T]()
	isPtr := t.Kind() == reflect.Pointer
	if isPtr {
		t = t.Elem()
	}

	items := make([]T, 0)
	for rows.Next() {
		v := reflect.New(t)
		if err := rows.Scan(cols.targets(v.Elem())...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if isPtr {
			items = append(items, v.Interface().(T))
		} else {
			items = append(items, v.Elem().Interface().(T))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, convertDBError(err)
	}
	return items, nil
}

func ptr[V any](v V) *V {
	return &v
}
