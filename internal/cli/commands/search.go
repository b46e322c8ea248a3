package commands

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pawbazaar/querykit/internal/cli/ui"
	"github.com/pawbazaar/querykit/internal/listing"
	"github.com/pawbazaar/querykit/internal/orm/query"
	"github.com/pawbazaar/querykit/internal/orm/relationships"
	webquery "github.com/pawbazaar/querykit/internal/web/query"
	"github.com/pawbazaar/querykit/internal/web/response"
)

type searchOptions struct {
	filters  []string
	logic    string
	sort     string
	page     int
	size     int
	includes []string
	scopes   []string
	json     bool

	interactive bool
}

func newSearchCommand(a *app) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search listings",
		Long: `Search listings with the same filters, sorting and paging the HTTP API accepts.

A filter is key=value for equality or key[operator]=value, e.g. price[lte]=100.
Repeat a filter key to match any of several values.`,
		Example: `  querykit search --filter species=dog --filter 'title[contains]=puppy' --logic or
  querykit search --scope available --sort -price --size 5
  querykit search --filter 'tags[contains]=indoor' --include owner --json
  querykit search --interactive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			return runSearch(cmd, a, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.filters, "filter", "f", nil, "filter as key=value or key[operator]=value (repeatable)")
	flags.StringVar(&opts.logic, "logic", "", "join filters with and (default) or or")
	flags.StringVarP(&opts.sort, "sort", "s", "", "comma separated sort keys, '-' prefix for descending")
	flags.IntVar(&opts.page, "page", 1, "page number")
	flags.IntVar(&opts.size, "size", 0, "page size (default from query.default_page_size)")
	flags.StringSliceVarP(&opts.includes, "include", "i", nil, "relationships to load: owner, tags")
	flags.StringSliceVar(&opts.scopes, "scope", nil, "named scopes to apply")
	flags.BoolVar(&opts.json, "json", false, "print the response envelope as JSON")
	flags.BoolVarP(&opts.interactive, "interactive", "I", false, "build the search from prompts")

	return cmd
}

// values renders the options in the query string form the HTTP API takes
func (o *searchOptions) values(defaultSize int) (url.Values, error) {
	values := url.Values{}
	for _, f := range o.filters {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: filter %q must be key=value", webquery.ErrInvalidParameter, f)
		}
		name, op, _ := strings.Cut(key, "[")
		param := "filter[" + name + "]"
		if op != "" {
			param += "[" + op
		}
		values.Add(param, value)
	}
	if o.logic != "" {
		values.Set("logic", o.logic)
	}
	if o.sort != "" {
		values.Set("sort", o.sort)
	}

	size := o.size
	if size == 0 {
		size = defaultSize
	}
	if size != 0 {
		values.Set("page[number]", strconv.Itoa(o.page))
		values.Set("page[size]", strconv.Itoa(size))
	}
	if len(o.includes) > 0 {
		values.Set("include", strings.Join(o.includes, ","))
	}
	if len(o.scopes) > 0 {
		values.Set("scope", strings.Join(o.scopes, ","))
	}
	return values, nil
}

func runSearch(cmd *cobra.Command, a *app, opts *searchOptions) error {
	ctx := cmd.Context()

	catalog, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer catalog.Close()

	if opts.interactive {
		if err := askSearch(opts, catalog.Scopes().List(), a.ask); err != nil {
			return err
		}
	}

	values, err := opts.values(a.config.Query.DefaultPageSize)
	if err != nil {
		return report(cmd, ui.QueryError(err, a.noColor), err)
	}
	search, err := webquery.ParseValues(values)
	if err != nil {
		return report(cmd, ui.QueryError(err, a.noColor), err)
	}

	b, err := catalog.Query().Tracking(false).Search(query.Request{
		Scopes:  search.Scopes,
		Filter:  search.Filter,
		Sort:    search.Sort,
		Include: search.Include,
		Page:    search.Page,
	}, a.config.Query.Sort())
	if err != nil {
		return reportSearchError(cmd, a, catalog, search, err)
	}
	items, total, err := b.ListWithCount(ctx)
	if err != nil {
		return reportSearchError(cmd, a, catalog, search, err)
	}

	out := cmd.OutOrStdout()
	if opts.json {
		body, err := response.Marshal(response.Envelope{
			Data: items,
			Meta: &response.Meta{Total: total, Page: search.Page.Number, Size: search.Page.Size},
		})
		if err != nil {
			return err
		}
		_, err = out.Write(body)
		return err
	}

	page := ui.PageInfo{Total: total}
	if search.Page.IsSet() {
		page.Number, page.Size = *search.Page.Number, *search.Page.Size
	}
	ui.RenderListings(out, items, page, a.noColor)
	return nil
}

// reportSearchError prints err with suggestions for mistyped scope and
// include names
func reportSearchError(cmd *cobra.Command, a *app, catalog *listing.Catalog, search *webquery.Search, err error) error {
	switch {
	case errors.Is(err, query.ErrUnknownScope):
		if name := unknownName(search.Scopes, catalog.Scopes().Has); name != "" {
			return report(cmd, ui.UnknownNameError("scope", name, catalog.Scopes().List(), a.noColor), err)
		}
	case errors.Is(err, relationships.ErrUnknownRelationship):
		known := catalog.Includes()
		has := func(name string) bool {
			for _, k := range known {
				if strings.EqualFold(k, name) {
					return true
				}
			}
			return false
		}
		if name := unknownName(search.Include, has); name != "" {
			return report(cmd, ui.UnknownNameError("include", name, known, a.noColor), err)
		}
	}
	return report(cmd, ui.QueryError(err, a.noColor), err)
}

func unknownName(names []string, known func(string) bool) string {
	for _, n := range names {
		if !known(n) {
			return n
		}
	}
	return ""
}
