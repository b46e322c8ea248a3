// Package listing defines the marketplace's pet listing entity and wires it to
// the query layer: fixtures, relationships, named scopes and the SQL schema.
package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Species is the kind of animal a listing offers
type Species int

const (
	SpeciesDog Species = iota
	SpeciesCat
	SpeciesBird
	SpeciesRabbit
	SpeciesFish
	SpeciesReptile
)

var speciesNames = []string{"dog", "cat", "bird", "rabbit", "fish", "reptile"}

// String returns the species name
func (s Species) String() string {
	if s < 0 || int(s) >= len(speciesNames) {
		return fmt.Sprintf("species(%d)", int(s))
	}
	return speciesNames[s]
}

// AllSpecies returns every species name in declaration order
func AllSpecies() []string {
	return append([]string(nil), speciesNames...)
}

// ParseSpecies converts a species name to a Species
func ParseSpecies(name string) (Species, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range speciesNames {
		if n == name {
			return Species(i), nil
		}
	}
	return 0, fmt.Errorf("unknown species: %s", name)
}

// MarshalText implements encoding.TextMarshaler
func (s Species) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Species) UnmarshalText(text []byte) error {
	parsed, err := ParseSpecies(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Owner is the person or shelter offering a listing
type Owner struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	City     string    `json:"city" db:"city"`
	Shelter  bool      `json:"shelter" db:"shelter"`
	JoinedOn time.Time `json:"joinedOn" db:"joined_on"`
}

// Listing is one animal offered on the marketplace. Owner is a relation
// loaded by the owner include after filtering, so it is not a filter or sort
// path; filter on ownerId instead.
type Listing struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Title         string          `json:"title" db:"title"`
	Species       Species         `json:"species" db:"species"`
	Breed         *string         `json:"breed,omitempty" db:"breed"`
	AgeMonths     int             `json:"ageMonths" db:"age_months"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Vaccinated    bool            `json:"vaccinated" db:"vaccinated"`
	ListedOn      time.Time       `json:"listedOn" db:"listed_on"`
	AvailableFrom time.Time       `json:"availableFrom" db:"available_from"`
	OwnerID       uuid.UUID       `json:"ownerId" db:"owner_id"`
	Tags          []string        `json:"tags"`
	Owner         *Owner          `json:"owner,omitempty" query:"-"`
}

// Identity keys a listing for change tracking
func (l Listing) Identity() any {
	return l.ID
}

// Table names used by the SQL store
const (
	ListingsTable = "listings"
	OwnersTable   = "owners"
	TagsTable     = "listing_tags"
)
