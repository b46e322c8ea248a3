package listing

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/pawbazaar/querykit/internal/orm/sorting"
	"github.com/pawbazaar/querykit/internal/orm/tracking"
)

// DriftKind says how a stored listing departs from its fixture
type DriftKind string

const (
	// DriftChanged is a stored listing whose fields differ from its fixture
	DriftChanged DriftKind = "changed"
	// DriftAdded is a stored listing with no fixture
	DriftAdded DriftKind = "added"
	// DriftMissing is a fixture with no stored listing
	DriftMissing DriftKind = "missing"
)

// Drift is one listing that differs between the store and the fixtures
type Drift struct {
	ID      uuid.UUID              `json:"id"`
	Title   string                 `json:"title"`
	Kind    DriftKind              `json:"kind"`
	Changes []tracking.FieldChange `json:"changes,omitempty"`
}

// Drift compares the stored listings with fx. The fixtures are attached to
// the catalog tracker as snapshots, then a tracking query materializes the
// store; since attaching keeps the first snapshot, each stored listing is
// compared with its fixture. Results are ordered by title, missing listings
// last.
func (c *Catalog) Drift(ctx context.Context, fx *Fixtures) ([]Drift, error) {
	fixtures := make(map[uuid.UUID]Listing, len(fx.Listings))
	for _, l := range fx.Listings {
		c.tracker.Detach(l)
		if err := c.tracker.Attach(l); err != nil {
			return nil, err
		}
		fixtures[l.ID] = l
	}
	defer func() {
		for _, l := range fx.Listings {
			c.tracker.Detach(l)
		}
	}()

	stored, err := c.Query().Tracking(true).Sort([]sorting.Entry{{Key: "title"}}, nil).List(ctx)
	if err != nil {
		return nil, err
	}

	var drift []Drift
	for _, l := range stored {
		if _, ok := fixtures[l.ID]; !ok {
			drift = append(drift, Drift{ID: l.ID, Title: l.Title, Kind: DriftAdded})
			c.tracker.Detach(l)
			continue
		}
		delete(fixtures, l.ID)

		changes, err := c.tracker.Changes(l)
		if err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			drift = append(drift, Drift{ID: l.ID, Title: l.Title, Kind: DriftChanged, Changes: changes})
		}
	}

	missing := make([]Drift, 0, len(fixtures))
	for _, l := range fixtures {
		missing = append(missing, Drift{ID: l.ID, Title: l.Title, Kind: DriftMissing})
	}
	sort.Slice(missing, func(i, j int) bool {
		return missing[i].Title < missing[j].Title
	})
	return append(drift, missing...), nil
}
