package commands

import (
	"errors"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/shopspring/decimal"

	"github.com/pawbazaar/querykit/internal/listing"
)

// askFunc asks one question; survey.AskOne outside tests
type askFunc func(p survey.Prompt, response any, opts ...survey.AskOpt) error

// sortChoices maps the sort prompt's options to sort parameters
var sortChoices = []struct{ label, sort string }{
	{"Newest first", "-listedOn"},
	{"Price, low to high", "price"},
	{"Price, high to low", "-price"},
	{"Youngest first", "ageMonths"},
	{"Title", "title"},
}

// askSearch fills opts from prompts: species, a price ceiling, scopes and
// the sort order. Answers add to filters already given as flags.
func askSearch(opts *searchOptions, scopes []string, ask askFunc) error {
	var species []string
	if err := ask(&survey.MultiSelect{
		Message: "Species (none for any):",
		Options: listing.AllSpecies(),
	}, &species); err != nil {
		return err
	}
	for _, s := range species {
		opts.filters = append(opts.filters, "species="+s)
	}

	var maxPrice string
	if err := ask(&survey.Input{
		Message: "Maximum price (empty for any):",
	}, &maxPrice, survey.WithValidator(optionalPrice)); err != nil {
		return err
	}
	if maxPrice = strings.TrimSpace(maxPrice); maxPrice != "" {
		opts.filters = append(opts.filters, "price[lte]="+maxPrice)
	}

	if len(scopes) > 0 {
		var picked []string
		if err := ask(&survey.MultiSelect{
			Message: "Scopes:",
			Options: scopes,
		}, &picked); err != nil {
			return err
		}
		opts.scopes = append(opts.scopes, picked...)
	}

	labels := make([]string, len(sortChoices))
	for i, c := range sortChoices {
		labels[i] = c.label
	}
	var order string
	if err := ask(&survey.Select{
		Message: "Sort by:",
		Options: labels,
		Default: labels[0],
	}, &order); err != nil {
		return err
	}
	for _, c := range sortChoices {
		if c.label == order {
			opts.sort = c.sort
		}
	}
	return nil
}

func optionalPrice(ans any) error {
	s, _ := ans.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.New("enter a number such as 150 or 85.50")
	}
	if d.IsNegative() {
		return errors.New("price must not be negative")
	}
	return nil
}
