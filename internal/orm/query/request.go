package query

import (
	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/sorting"
)

// Request is a complete search as received from a client
type Request struct {
	Scopes  []string
	Filter  filter.Specification
	Sort    []sorting.Entry
	Include []string
	Page    sorting.Page
}

// Search applies r. Scopes run first and the filter narrows them. The sort
// keys replace any ordering a scope set; without sort keys a scope's
// ordering is kept and def applies only to an unordered query. Includes and
// the page come last.
func (b *Builder[T]) Search(r Request, def *sorting.Entry) (*Builder[T], error) {
	var err error
	for _, name := range r.Scopes {
		if _, err = b.Scope(name); err != nil {
			return b, err
		}
	}
	if _, err = b.Filter(r.Filter); err != nil {
		return b, err
	}
	if len(r.Sort) > 0 || !b.ordered {
		b.Sort(r.Sort, def)
	}
	for _, path := range r.Include {
		b.Include(path)
	}
	return b.Paginate(r.Page)
}
