// Package store defines the lazy, composable query a backing store exposes to
// the query builder, and an in-memory implementation of it.
package store

import (
	"context"

	"github.com/pawbazaar/querykit/internal/orm/expr"
)

// Query is a lazy query over entities of type T. Composition methods never
// modify the receiver; they return a new query. Nothing runs until List or
// Count is called.
type Query[T any] interface {
	// Where narrows the query; successive calls are joined with AND
	Where(p expr.Predicate[T]) Query[T]
	// OrderBy replaces any existing ordering
	OrderBy(orderings ...expr.Ordering[T]) Query[T]
	// ThenBy appends a secondary ordering
	ThenBy(o expr.Ordering[T]) Query[T]
	Skip(n int) Query[T]
	Take(n int) Query[T]
	Distinct() Query[T]
	// Include requests eager loading of a related entity path
	Include(path string) Query[T]
	// Tracking toggles identity tracking of materialized entities
	Tracking(enabled bool) Query[T]

	List(ctx context.Context) ([]T, error)
	Count(ctx context.Context) (int, error)
}
