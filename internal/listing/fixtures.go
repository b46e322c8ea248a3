package listing

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

//go:embed fixtures.json
var sampleFixtures []byte

// Fixtures is a set of owners and their listings
type Fixtures struct {
	Owners   []Owner   `json:"owners"`
	Listings []Listing `json:"listings"`
}

// ReadFixtures decodes fixtures from r and checks that every listing's owner
// is present
func ReadFixtures(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// LoadFixtures reads fixtures from path, or the bundled sample data when path
// is empty
func LoadFixtures(path string) (*Fixtures, error) {
	if path == "" {
		return SampleFixtures()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer f.Close()
	return ReadFixtures(f)
}

// SampleFixtures returns the bundled sample data
func SampleFixtures() (*Fixtures, error) {
	var fx Fixtures
	if err := json.Unmarshal(sampleFixtures, &fx); err != nil {
		return nil, fmt.Errorf("failed to decode sample fixtures: %w", err)
	}
	return &fx, fx.validate()
}

func (fx *Fixtures) validate() error {
	owners := make(map[string]bool, len(fx.Owners))
	for _, o := range fx.Owners {
		owners[o.ID.String()] = true
	}
	for _, l := range fx.Listings {
		if !owners[l.OwnerID.String()] {
			return fmt.Errorf("listing %s: unknown owner %s", l.ID, l.OwnerID)
		}
		if l.Owner != nil {
			return fmt.Errorf("listing %s: owners are loaded by include, not inlined", l.ID)
		}
	}
	return nil
}
