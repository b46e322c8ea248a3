package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pawbazaar/querykit/internal/listing"
)

// PageInfo describes which slice of a search a listing table shows
type PageInfo struct {
	Total  int
	Number int
	Size   int
}

// RenderListings renders one page of listings as a table under a summary
// header
func RenderListings(w io.Writer, items []listing.Listing, page PageInfo, noColor bool) {
	Header(w, summary(len(items), page), noColor)
	if len(items) == 0 {
		return
	}

	table := NewTable(w, []string{"Title", "Species", "Breed", "Age", "Price", "Available", "Owner", "Tags"},
		&TableOptions{NoColor: noColor})
	for _, l := range items {
		table.AddRow(
			l.Title,
			l.Species.String(),
			breed(l),
			age(l.AgeMonths),
			l.Price.StringFixed(2),
			l.AvailableFrom.UTC().Format(time.DateOnly),
			owner(l),
			strings.Join(l.Tags, ", "),
		)
	}
	table.Render()
}

// RenderListing renders every field of one listing
func RenderListing(w io.Writer, l listing.Listing, noColor bool) {
	Header(w, l.Title, noColor)
	kv := NewKeyValueTable(w, noColor)
	kv.AddRow("ID", l.ID.String())
	kv.AddRow("Species", l.Species.String())
	kv.AddRow("Breed", breed(l))
	kv.AddRow("Age", age(l.AgeMonths))
	kv.AddRow("Price", l.Price.StringFixed(2))
	kv.AddRow("Vaccinated", strconv.FormatBool(l.Vaccinated))
	kv.AddRow("Listed", l.ListedOn.UTC().Format(time.DateOnly))
	kv.AddRow("Available", l.AvailableFrom.UTC().Format(time.DateOnly))
	kv.AddRow("Owner", owner(l))
	kv.AddRow("Tags", strings.Join(l.Tags, ", "))
	kv.Render()
}

func summary(shown int, page PageInfo) string {
	if page.Size == 0 || page.Total <= shown {
		return fmt.Sprintf("%d listings", page.Total)
	}
	pages := (page.Total + page.Size - 1) / page.Size
	return fmt.Sprintf("%d of %d listings (page %d of %d)", shown, page.Total, page.Number, pages)
}

func breed(l listing.Listing) string {
	if l.Breed == nil {
		return "-"
	}
	return *l.Breed
}

func owner(l listing.Listing) string {
	if l.Owner == nil {
		return "-"
	}
	if l.Owner.City == "" {
		return l.Owner.Name
	}
	return l.Owner.Name + " (" + l.Owner.City + ")"
}

// age renders months as "3mo" below two years and "11y" from then on
func age(months int) string {
	if months < 24 {
		return strconv.Itoa(months) + "mo"
	}
	return strconv.Itoa(months/12) + "y"
}
