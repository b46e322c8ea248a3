package store

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/pawbazaar/querykit/internal/orm/expr"
	"github.com/pawbazaar/querykit/internal/orm/relationships"
	"github.com/pawbazaar/querykit/internal/orm/tracking"
)

// stage is one step of the in-memory pipeline. Sort stages keep their
// orderings so ThenBy can extend them.
type stage[T any] struct {
	orderings []expr.Ordering[T]
	apply     func(items []T) []T
}

// Memory is a Query over a slice. Stages run in the order they were added,
// so Where after Take filters the taken window, as a database would.
type Memory[T any] struct {
	items    []T
	stages   []stage[T]
	includes []string
	tracking bool
	loader   relationships.Loader[T]
	tracker  *tracking.Tracker
}

// MemoryOption configures a Memory query
type MemoryOption[T any] func(*Memory[T])

// WithLoader sets the loader used for Include paths
func WithLoader[T any](l relationships.Loader[T]) MemoryOption[T] {
	return func(m *Memory[T]) {
		m.loader = l
	}
}

// WithTracker sets the tracker that records materialized entities while
// tracking is enabled. Entities are keyed as tracking.Tracker describes;
// List fails for entities with no identity.
func WithTracker[T any](t *tracking.Tracker) MemoryOption[T] {
	return func(m *Memory[T]) {
		m.tracker = t
	}
}

// NewMemory creates a query over items. The slice is never modified.
func NewMemory[T any](items []T, opts ...MemoryOption[T]) *Memory[T] {
	m := &Memory[T]{
		items:    items,
		tracking: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory[T]) clone() *Memory[T] {
	c := *m
	c.stages = slices.Clone(m.stages)
	c.includes = slices.Clone(m.includes)
	return &c
}

func (m *Memory[T]) with(s stage[T]) *Memory[T] {
	c := m.clone()
	c.stages = append(c.stages, s)
	return c
}

// Where implements Query
func (m *Memory[T]) Where(p expr.Predicate[T]) Query[T] {
	if p.IsZero() {
		return m.clone()
	}
	return m.with(stage[T]{apply: func(items []T) []T {
		out := make([]T, 0, len(items))
		for _, item := range items {
			if p.Test(item) {
				out = append(out, item)
			}
		}
		return out
	}})
}

// OrderBy implements Query
func (m *Memory[T]) OrderBy(orderings ...expr.Ordering[T]) Query[T] {
	if len(orderings) == 0 {
		return m.clone()
	}
	return m.with(sortStage(slices.Clone(orderings)))
}

// ThenBy implements Query. It extends the most recent ordering, or starts
// one when there is none.
func (m *Memory[T]) ThenBy(o expr.Ordering[T]) Query[T] {
	for i := len(m.stages) - 1; i >= 0; i-- {
		if m.stages[i].orderings == nil {
			continue
		}
		c := m.clone()
		orderings := append(slices.Clone(m.stages[i].orderings), o)
		c.stages[i] = sortStage(orderings)
		return c
	}
	return m.OrderBy(o)
}

func sortStage[T any](orderings []expr.Ordering[T]) stage[T] {
	cmp := expr.Compose(orderings)
	return stage[T]{
		orderings: orderings,
		apply: func(items []T) []T {
			slices.SortStableFunc(items, cmp)
			return items
		},
	}
}

// Skip implements Query
func (m *Memory[T]) Skip(n int) Query[T] {
	return m.with(stage[T]{apply: func(items []T) []T {
		if n <= 0 {
			return items
		}
		if n >= len(items) {
			return items[:0]
		}
		return items[n:]
	}})
}

// Take implements Query
func (m *Memory[T]) Take(n int) Query[T] {
	return m.with(stage[T]{apply: func(items []T) []T {
		switch {
		case n <= 0:
			return items[:0]
		case n < len(items):
			return items[:n]
		}
		return items
	}})
}

// Distinct implements Query. Comparable entity types are deduplicated by
// value, others with reflect.DeepEqual.
func (m *Memory[T]) Distinct() Query[T] {
	byValue := reflect.TypeFor[T]().Comparable()
	return m.with(stage[T]{apply: func(items []T) []T {
		out := make([]T, 0, len(items))
		if byValue {
			seen := make(map[any]struct{}, len(items))
			for _, item := range items {
				if _, ok := seen[item]; ok {
					continue
				}
				seen[item] = struct{}{}
				out = append(out, item)
			}
			return out
		}
		for _, item := range items {
			dup := slices.ContainsFunc(out, func(o T) bool {
				return reflect.DeepEqual(o, item)
			})
			if !dup {
				out = append(out, item)
			}
		}
		return out
	}})
}

// Include implements Query
func (m *Memory[T]) Include(path string) Query[T] {
	c := m.clone()
	c.includes = append(c.includes, path)
	return c
}

// Tracking implements Query
func (m *Memory[T]) Tracking(enabled bool) Query[T] {
	c := m.clone()
	c.tracking = enabled
	return c
}

// run applies every stage to a copy of the source slice
func (m *Memory[T]) run(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := slices.Clone(m.items)
	for _, s := range m.stages {
		items = s.apply(items)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// List implements Query
func (m *Memory[T]) List(ctx context.Context) ([]T, error) {
	items, err := m.run(ctx)
	if err != nil {
		return nil, err
	}

	if len(m.includes) > 0 {
		if m.loader == nil {
			return nil, fmt.Errorf("%w: %s", relationships.ErrUnknownRelationship, m.includes[0])
		}
		if err := m.loader.Load(ctx, items, m.includes); err != nil {
			return nil, err
		}
	}

	if m.tracking && m.tracker != nil {
		for _, item := range items {
			if err := m.tracker.Attach(item); err != nil {
				return nil, err
			}
		}
	}
	return items, nil
}

// Count implements Query
func (m *Memory[T]) Count(ctx context.Context) (int, error) {
	items, err := m.run(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
