// Package specification provides statically typed query specifications: a
// criteria predicate, orderings and eager-load paths declared in code and
// applied to a query in a fixed order.
package specification

import (
	"strings"

	"github.com/pawbazaar/querykit/internal/orm/expr"
	"github.com/pawbazaar/querykit/internal/orm/store"
)

// Include is an eager-load path bound to the entity type it belongs to
type Include[T any] struct {
	path string
}

// NewInclude declares an include path for T
func NewInclude[T any](path string) Include[T] {
	return Include[T]{path: path}
}

// Path returns the relationship path
func (i Include[T]) Path() string {
	return i.path
}

// Spec describes a query over T without any runtime type inspection
type Spec[T any] struct {
	Criteria          expr.Predicate[T]
	NoTracking        bool
	OrderBy           expr.Ordering[T]
	OrderByDescending expr.Ordering[T]
	Includes          []Include[T]
	IncludePaths      []string
}

// New creates an empty specification
func New[T any]() *Spec[T] {
	return &Spec[T]{}
}

// Where sets the criteria, joining with AND any criteria already set
func (s *Spec[T]) Where(p expr.Predicate[T]) *Spec[T] {
	s.Criteria = s.Criteria.And(p)
	return s
}

// AsNoTracking disables identity tracking
func (s *Spec[T]) AsNoTracking() *Spec[T] {
	s.NoTracking = true
	return s
}

// OrderByAsc sets the ascending ordering key
func (s *Spec[T]) OrderByAsc(o expr.Ordering[T]) *Spec[T] {
	s.OrderBy = o
	return s
}

// OrderByDesc sets the descending ordering key
func (s *Spec[T]) OrderByDesc(o expr.Ordering[T]) *Spec[T] {
	s.OrderByDescending = o
	return s
}

// Include adds typed include paths
func (s *Spec[T]) Include(includes ...Include[T]) *Spec[T] {
	s.Includes = append(s.Includes, includes...)
	return s
}

// IncludePath adds string include paths
func (s *Spec[T]) IncludePath(paths ...string) *Spec[T] {
	s.IncludePaths = append(s.IncludePaths, paths...)
	return s
}

func (s *Spec[T]) ascending() expr.Ordering[T] {
	o := s.OrderBy
	o.Desc = false
	return o
}

func (s *Spec[T]) descending() expr.Ordering[T] {
	o := s.OrderByDescending
	o.Desc = true
	return o
}

// String describes the specification
func (s *Spec[T]) String() string {
	var parts []string
	if !s.Criteria.IsZero() {
		parts = append(parts, "where "+s.Criteria.String())
	}
	if s.NoTracking {
		parts = append(parts, "no tracking")
	}
	if !s.OrderBy.IsZero() {
		parts = append(parts, "order by "+s.ascending().String())
	}
	if !s.OrderByDescending.IsZero() {
		parts = append(parts, "order by "+s.descending().String())
	}
	for _, inc := range s.Includes {
		parts = append(parts, "include "+inc.Path())
	}
	for _, path := range s.IncludePaths {
		parts = append(parts, "include "+path)
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, ", ")
}

// Evaluate applies s to q in a fixed order: criteria, no-tracking, ascending
// ordering, descending ordering, typed includes, string includes. A
// descending ordering replaces an ascending one.
func Evaluate[T any](q store.Query[T], s *Spec[T]) store.Query[T] {
	if s == nil {
		return q
	}
	if !s.Criteria.IsZero() {
		q = q.Where(s.Criteria)
	}
	if s.NoTracking {
		q = q.Tracking(false)
	}
	if !s.OrderBy.IsZero() {
		q = q.OrderBy(s.ascending())
	}
	if !s.OrderByDescending.IsZero() {
		q = q.OrderBy(s.descending())
	}
	for _, inc := range s.Includes {
		q = q.Include(inc.Path())
	}
	for _, path := range s.IncludePaths {
		q = q.Include(path)
	}
	return q
}
