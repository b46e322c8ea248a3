// Package query parses listing search requests: the bracketed query string
// form used by GET requests and the JSON body accepted by search endpoints.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pawbazaar/querykit/internal/orm/coerce"
	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/sorting"
)

// ErrInvalidParameter is returned for query parameters that cannot be parsed
var ErrInvalidParameter = errors.New("invalid query parameter")

// filterPattern matches query parameters like filter[key] and filter[key][op]
var filterPattern = regexp.MustCompile(`^filter\[([^\]]+)\](?:\[([^\]]+)\])?$`)

// pagePattern matches page[number] and page[size]
var pagePattern = regexp.MustCompile(`^page\[(number|size)\]$`)

// Search is a parsed search request
type Search struct {
	Filter  filter.Specification
	Sort    []sorting.Entry
	Page    sorting.Page
	Include []string
	Scopes  []string
}

// splitList splits a comma-separated parameter, dropping empty items
func splitList(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseInclude parses the include query parameter into a slice of relationship names.
// Example: ?include=owner,tags returns ["owner", "tags"]
// Returns an empty slice if the include parameter is not present.
func ParseInclude(r *http.Request) []string {
	return splitList(r.URL.Query().Get("include"))
}

// ParseScopes parses the scope query parameter into a slice of scope names.
// Example: ?scope=available,vaccinated
func ParseScopes(r *http.Request) []string {
	return splitList(r.URL.Query().Get("scope"))
}

// ParseSort parses the sort query parameter into sort entries.
// Example: ?sort=-price,title sorts by price descending, then title.
// Returns nil if the sort parameter is not present.
func ParseSort(r *http.Request) []sorting.Entry {
	return sorting.ParseList(r.URL.Query().Get("sort"))
}

// ParseFilter parses the filter query parameters into a specification.
// Example: ?filter[species]=cat&filter[price][lte]=100&logic=or
//
// A parameter without an operator compares for equality. A parameter given
// more than once is a list: ?filter[species]=cat&filter[species]=dog
// matches either. Entries are ordered by parameter name.
func ParseFilter(r *http.Request) (filter.Specification, error) {
	return filterFrom(r.URL.Query())
}

func filterFrom(query url.Values) (filter.Specification, error) {
	spec := filter.Specification{}

	if logic := query.Get("logic"); logic != "" {
		l, err := filter.ParseLogicalOperator(logic)
		if err != nil {
			return spec, fmt.Errorf("%w: logic: %v", ErrInvalidParameter, err)
		}
		spec.Logic = l
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		if filterPattern.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		matches := filterPattern.FindStringSubmatch(key)
		eq := filter.Equals
		if matches[2] != "" {
			parsed, err := filter.ParseEquation(matches[2])
			if err != nil {
				return spec, fmt.Errorf("%w: %s: %v", ErrInvalidParameter, key, err)
			}
			eq = parsed
		}
		spec.Entries = append(spec.Entries, filter.Entry{
			Key:      matches[1],
			Value:    valueOf(query[key]),
			Equation: eq,
		})
	}

	return spec, nil
}

// valueOf turns the values of one query parameter into a filter value
func valueOf(values []string) coerce.Value {
	if len(values) == 1 {
		return coerce.StringValue(values[0])
	}
	items := make([]coerce.Value, len(values))
	for i, v := range values {
		items[i] = coerce.StringValue(v)
	}
	return coerce.ArrayValue(items...)
}

// ParsePage parses page[number] and page[size]. Either may be absent; the
// page only applies when both are given.
func ParsePage(r *http.Request) (sorting.Page, error) {
	return pageFrom(r.URL.Query())
}

func pageFrom(query url.Values) (sorting.Page, error) {
	var page sorting.Page

	for key, values := range query {
		matches := pagePattern.FindStringSubmatch(key)
		if len(matches) != 2 || len(values) == 0 {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(values[0]))
		if err != nil {
			return page, fmt.Errorf("%w: %s must be an integer, got %q", sorting.ErrInvalidPage, key, values[0])
		}
		if matches[1] == "number" {
			page.Number = &n
		} else {
			page.Size = &n
		}
	}

	return page, page.Validate()
}

// ParseSearch parses every search parameter of a GET request
func ParseSearch(r *http.Request) (*Search, error) {
	return ParseValues(r.URL.Query())
}

// ParseValues parses search parameters in query string form. Encode is its
// inverse.
func ParseValues(values url.Values) (*Search, error) {
	spec, err := filterFrom(values)
	if err != nil {
		return nil, err
	}
	page, err := pageFrom(values)
	if err != nil {
		return nil, err
	}
	return &Search{
		Filter:  spec,
		Sort:    sorting.ParseList(values.Get("sort")),
		Page:    page,
		Include: splitList(values.Get("include")),
		Scopes:  splitList(values.Get("scope")),
	}, nil
}

// searchBody is the JSON form of a search:
//
//	{"filters": [{"key": "price", "value": 100, "equation": "lte"}],
//	 "logic": "and", "sort": [{"key": "price", "direction": "desc"}],
//	 "page": {"number": 1, "size": 20}, "include": ["owner"], "scopes": ["available"]}
type searchBody struct {
	Filters []filter.Entry         `json:"filters"`
	Logic   filter.LogicalOperator `json:"logic"`
	Sort    []sorting.Entry        `json:"sort"`
	Page    sorting.Page           `json:"page"`
	Include []string               `json:"include"`
	Scopes  []string               `json:"scopes"`
}

// DecodeSearch decodes a JSON search body. An empty body is an empty search.
func DecodeSearch(r io.Reader) (*Search, error) {
	var body searchBody
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: search body: %v", ErrInvalidParameter, err)
	}
	if err := body.Page.Validate(); err != nil {
		return nil, err
	}
	return &Search{
		Filter:  filter.Specification{Entries: body.Filters, Logic: body.Logic},
		Sort:    body.Sort,
		Page:    body.Page,
		Include: body.Include,
		Scopes:  body.Scopes,
	}, nil
}

// Encode renders s back into query string parameters. The query string
// cannot carry value shapes: a one-element list reads back as a scalar,
// repeated entries read back as one list and empty lists are dropped. Use
// Canonical where two searches must only compare equal when they mean the
// same thing.
func (s *Search) Encode() url.Values {
	values := url.Values{}
	for _, e := range s.Filter.Entries {
		if e.Value.IsMissing() {
			continue
		}
		key := fmt.Sprintf("filter[%s][%s]", e.Key, e.Equation)
		if e.Value.IsArray() {
			for _, item := range e.Value.Items() {
				values.Add(key, fmt.Sprint(item.Interface()))
			}
			continue
		}
		values.Add(key, fmt.Sprint(e.Value.Interface()))
	}
	if s.Filter.Logic != filter.And {
		values.Set("logic", s.Filter.Logic.String())
	}
	if len(s.Sort) > 0 {
		keys := make([]string, len(s.Sort))
		for i, e := range s.Sort {
			keys[i] = e.Key
			if e.Direction == sorting.Desc {
				keys[i] = "-" + e.Key
			}
		}
		values.Set("sort", strings.Join(keys, ","))
	}
	if s.Page.Number != nil {
		values.Set("page[number]", strconv.Itoa(*s.Page.Number))
	}
	if s.Page.Size != nil {
		values.Set("page[size]", strconv.Itoa(*s.Page.Size))
	}
	if len(s.Include) > 0 {
		values.Set("include", strings.Join(s.Include, ","))
	}
	if len(s.Scopes) > 0 {
		values.Set("scope", strings.Join(s.Scopes, ","))
	}
	return values
}

type canonicalEntry struct {
	Key      string   `json:"key"`
	Equation string   `json:"equation"`
	List     bool     `json:"list"`
	Values   []string `json:"values"`
}

type canonicalSearch struct {
	Filters []canonicalEntry `json:"filters,omitempty"`
	Logic   string           `json:"logic"`
	Sort    []string         `json:"sort,omitempty"`
	Page    sorting.Page     `json:"page"`
	Include []string         `json:"include,omitempty"`
	Scopes  []string         `json:"scopes,omitempty"`
}

// Canonical returns an exact encoding of s. Entries keep their order and
// their value shape, so a scalar, a one-element list and an empty list all
// differ. Values compare by text, so the GET form filter[price]=100 and the
// JSON value 100 encode the same.
func (s *Search) Canonical() ([]byte, error) {
	c := canonicalSearch{
		Logic:   s.Filter.Logic.String(),
		Page:    s.Page,
		Include: s.Include,
		Scopes:  s.Scopes,
	}
	for _, e := range s.Filter.Entries {
		if e.Value.IsMissing() {
			continue
		}
		entry := canonicalEntry{Key: e.Key, Equation: e.Equation.String(), Values: []string{}}
		if e.Value.IsArray() {
			entry.List = true
			for _, item := range e.Value.Items() {
				entry.Values = append(entry.Values, fmt.Sprint(item.Interface()))
			}
		} else {
			entry.Values = append(entry.Values, fmt.Sprint(e.Value.Interface()))
		}
		c.Filters = append(c.Filters, entry)
	}
	for _, e := range s.Sort {
		key := e.Key
		if e.Direction == sorting.Desc {
			key = "-" + key
		}
		c.Sort = append(c.Sort, key)
	}
	return json.Marshal(c)
}
