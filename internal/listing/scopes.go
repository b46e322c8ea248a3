package listing

import (
	"time"

	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/query"
	"github.com/pawbazaar/querykit/internal/orm/sorting"
)

// RecentDays is how far back the recent scope looks
const RecentDays = 30

// BudgetPrice is the highest price the budget scope keeps
const BudgetPrice = "100"

// NewScopes registers the named listing scopes. now supplies the current
// time for the date based scopes.
func NewScopes(now func() time.Time) *query.Scopes[Listing] {
	today := func() string {
		return now().UTC().Format(time.DateOnly)
	}

	return query.NewScopes[Listing]().
		Register("available", func(b *query.Builder[Listing]) (*query.Builder[Listing], error) {
			var spec filter.Specification
			spec.Add("availableFrom", filter.LessOrEqual, today())
			return b.Filter(spec)
		}).
		Register("vaccinated", func(b *query.Builder[Listing]) (*query.Builder[Listing], error) {
			var spec filter.Specification
			spec.Add("vaccinated", filter.Equals, true)
			return b.Filter(spec)
		}).
		Register("recent", func(b *query.Builder[Listing]) (*query.Builder[Listing], error) {
			since := now().UTC().AddDate(0, 0, -RecentDays).Format(time.DateOnly)
			var spec filter.Specification
			spec.Add("listedOn", filter.GreaterOrEqual, since)
			if _, err := b.Filter(spec); err != nil {
				return b, err
			}
			return b.Sort([]sorting.Entry{{Key: "listedOn", Direction: sorting.Desc}}, nil), nil
		}).
		Register("budget", func(b *query.Builder[Listing]) (*query.Builder[Listing], error) {
			var spec filter.Specification
			spec.Add("price", filter.LessOrEqual, BudgetPrice)
			if _, err := b.Filter(spec); err != nil {
				return b, err
			}
			return b.Sort([]sorting.Entry{{Key: "price"}}, nil), nil
		})
}
