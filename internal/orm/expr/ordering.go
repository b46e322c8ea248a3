package expr

import (
	"cmp"
	"fmt"
	"reflect"

	"github.com/pawbazaar/querykit/internal/orm/schema"
)

// Ordering is one sort key over T
type Ordering[T any] struct {
	// Path is the resolved field for field orderings, nil for OrderFunc
	Path *schema.Chain
	Desc bool

	cmp func(a, b T) int
}

// FieldOrdering orders by a resolved field. Null fields, including those
// behind a nil object, sort before every value.
func FieldOrdering[T any](path *schema.Chain, desc bool) (Ordering[T], bool) {
	ft := path.Type()
	if ft.Collection || ft.Kind == schema.KindObject {
		return Ordering[T]{}, false
	}
	c := ComparatorFor(ft.Kind, ft.Elem)
	if c == nil {
		return Ordering[T]{}, false
	}
	nc := NullableComparator(c)

	return Ordering[T]{
		Path: path,
		Desc: desc,
		cmp: func(a, b T) int {
			av, _ := path.Get(reflect.ValueOf(&a))
			bv, _ := path.Get(reflect.ValueOf(&b))
			return nc(av, bv)
		},
	}, true
}

// OrderFunc orders with a comparison function
func OrderFunc[T any](cmp func(a, b T) int) Ordering[T] {
	return Ordering[T]{cmp: cmp}
}

// By orders by a key function
func By[T any, K cmp.Ordered](key func(T) K) Ordering[T] {
	return OrderFunc(func(a, b T) int {
		return cmp.Compare(key(a), key(b))
	})
}

// Descending returns o with the direction reversed
func (o Ordering[T]) Descending() Ordering[T] {
	o.Desc = !o.Desc
	return o
}

// Compare compares a and b under o's direction
func (o Ordering[T]) Compare(a, b T) int {
	c := o.cmp(a, b)
	if o.Desc {
		return -c
	}
	return c
}

// IsZero reports whether o was never set
func (o Ordering[T]) IsZero() bool {
	return o.cmp == nil
}

// String describes the ordering
func (o Ordering[T]) String() string {
	dir := "asc"
	if o.Desc {
		dir = "desc"
	}
	if o.Path == nil {
		return fmt.Sprintf("<func> %s", dir)
	}
	return fmt.Sprintf("%s %s", o.Path, dir)
}

// Compose compares by each ordering in turn until one differs
func Compose[T any](orderings []Ordering[T]) func(a, b T) int {
	return func(a, b T) int {
		for _, o := range orderings {
			if c := o.Compare(a, b); c != 0 {
				return c
			}
		}
		return 0
	}
}
