package query

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/pawbazaar/querykit/internal/orm/coerce"
	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/sorting"
)

func get(url string) *http.Request {
	return httptest.NewRequest(http.MethodGet, url, nil)
}

func TestParseInclude(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected []string
	}{
		{
			name:     "empty when not present",
			url:      "/listings",
			expected: []string{},
		},
		{
			name:     "single relationship",
			url:      "/listings?include=owner",
			expected: []string{"owner"},
		},
		{
			name:     "multiple relationships",
			url:      "/listings?include=owner,tags",
			expected: []string{"owner", "tags"},
		},
		{
			name:     "trims whitespace",
			url:      "/listings?include=owner,%20tags%20",
			expected: []string{"owner", "tags"},
		},
		{
			name:     "multiple commas ignored",
			url:      "/listings?include=owner,,tags",
			expected: []string{"owner", "tags"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseInclude(get(tt.url))

			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ParseInclude() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestParseScopes(t *testing.T) {
	result := ParseScopes(get("/listings?scope=available,%20recent"))
	expected := []string{"available", "recent"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("ParseScopes() = %v, want %v", result, expected)
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected []sorting.Entry
	}{
		{
			name:     "not present",
			url:      "/listings",
			expected: nil,
		},
		{
			name: "mixed directions",
			url:  "/listings?sort=-price,title",
			expected: []sorting.Entry{
				{Key: "price", Direction: sorting.Desc},
				{Key: "title", Direction: sorting.Asc},
			},
		},
		{
			name:     "explicit ascending",
			url:      "/listings?sort=%2BlistedOn",
			expected: []sorting.Entry{{Key: "listedOn", Direction: sorting.Asc}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseSort(get(tt.url))

			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ParseSort() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected filter.Specification
	}{
		{
			name:     "no filters",
			url:      "/listings?sort=title",
			expected: filter.Specification{},
		},
		{
			name: "equality without operator",
			url:  "/listings?filter[species]=cat",
			expected: filter.Specification{Entries: []filter.Entry{
				{Key: "species", Value: coerce.StringValue("cat"), Equation: filter.Equals},
			}},
		},
		{
			name: "operators sorted by parameter",
			url:  "/listings?filter[title][contains]=puppy&filter[price][lte]=100&logic=or",
			expected: filter.Specification{
				Entries: []filter.Entry{
					{Key: "price", Value: coerce.StringValue("100"), Equation: filter.LessOrEqual},
					{Key: "title", Value: coerce.StringValue("puppy"), Equation: filter.Contains},
				},
				Logic: filter.Or,
			},
		},
		{
			name: "long operator spelling",
			url:  "/listings?filter[breed][is-not-empty]=",
			expected: filter.Specification{Entries: []filter.Entry{
				{Key: "breed", Value: coerce.StringValue(""), Equation: filter.IsNotEmpty},
			}},
		},
		{
			name: "repeated parameter is a list",
			url:  "/listings?filter[species]=cat&filter[species]=dog",
			expected: filter.Specification{Entries: []filter.Entry{
				{
					Key:      "species",
					Value:    coerce.ArrayValue(coerce.StringValue("cat"), coerce.StringValue("dog")),
					Equation: filter.Equals,
				},
			}},
		},
		{
			name: "nested key",
			url:  "/listings?filter[owner.city]=Portland",
			expected: filter.Specification{Entries: []filter.Entry{
				{Key: "owner.city", Value: coerce.StringValue("Portland"), Equation: filter.Equals},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseFilter(get(tt.url))
			if err != nil {
				t.Fatalf("ParseFilter() error = %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ParseFilter() = %+v, want %+v", result, tt.expected)
			}
		})
	}
}

func TestParseFilterErrors(t *testing.T) {
	urls := []string{
		"/listings?filter[price][around]=100",
		"/listings?logic=xor",
	}

	for _, url := range urls {
		_, err := ParseFilter(get(url))
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("ParseFilter(%s) error = %v, want ErrInvalidParameter", url, err)
		}
	}
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(get("/listings?page[number]=3&page[size]=20"))
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	if !reflect.DeepEqual(page, sorting.NewPage(3, 20)) {
		t.Errorf("ParsePage() = %v, want 3/20", page)
	}

	page, err = ParsePage(get("/listings?page[size]=20"))
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	if page.IsSet() {
		t.Error("page with only a size should not be set")
	}

	for _, url := range []string{
		"/listings?page[number]=0&page[size]=20",
		"/listings?page[number]=1&page[size]=-5",
		"/listings?page[number]=first",
	} {
		if _, err := ParsePage(get(url)); !errors.Is(err, sorting.ErrInvalidPage) {
			t.Errorf("ParsePage(%s) error = %v, want ErrInvalidPage", url, err)
		}
	}
}

func TestDecodeSearch(t *testing.T) {
	body := `{
		"filters": [
			{"key": "price", "value": 100, "equation": "lte"},
			{"key": "species", "value": ["cat", "dog"], "equation": "equals"}
		],
		"logic": "or",
		"sort": [{"key": "price", "direction": "desc"}],
		"page": {"number": 2, "size": 5},
		"include": ["owner"],
		"scopes": ["available"]
	}`

	s, err := DecodeSearch(strings.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeSearch() error = %v", err)
	}

	if len(s.Filter.Entries) != 2 || s.Filter.Logic != filter.Or {
		t.Fatalf("unexpected filter %+v", s.Filter)
	}
	if s.Filter.Entries[0].Equation != filter.LessOrEqual || s.Filter.Entries[0].Value.Kind() != coerce.Number {
		t.Errorf("unexpected first entry %+v", s.Filter.Entries[0])
	}
	if !s.Filter.Entries[1].Value.IsArray() {
		t.Errorf("expected array value, got %v", s.Filter.Entries[1].Value)
	}
	if !reflect.DeepEqual(s.Sort, []sorting.Entry{{Key: "price", Direction: sorting.Desc}}) {
		t.Errorf("unexpected sort %v", s.Sort)
	}
	if !reflect.DeepEqual(s.Page, sorting.NewPage(2, 5)) {
		t.Errorf("unexpected page %v", s.Page)
	}
	if !reflect.DeepEqual(s.Include, []string{"owner"}) || !reflect.DeepEqual(s.Scopes, []string{"available"}) {
		t.Errorf("unexpected include %v or scopes %v", s.Include, s.Scopes)
	}
}

func TestDecodeSearchErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"malformed", `{"filters": [`, ErrInvalidParameter},
		{"unknown field", `{"where": []}`, ErrInvalidParameter},
		{"unknown equation", `{"filters": [{"key": "a", "value": 1, "equation": "near"}]}`, ErrInvalidParameter},
		{"bad page", `{"page": {"number": 0, "size": 10}}`, sorting.ErrInvalidPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSearch(strings.NewReader(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeSearch() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeEmptySearch(t *testing.T) {
	s, err := DecodeSearch(strings.NewReader(""))
	if err != nil {
		t.Fatalf("DecodeSearch() error = %v", err)
	}
	if !s.Filter.IsEmpty() || s.Page.IsSet() {
		t.Errorf("expected empty search, got %+v", s)
	}
}

func TestSearchEncodeRoundTrip(t *testing.T) {
	req := get("/listings?filter[price][lte]=100&filter[species]=cat&filter[species]=dog&logic=or" +
		"&sort=-price,title&page[number]=2&page[size]=5&include=owner&scope=available")
	s, err := ParseSearch(req)
	if err != nil {
		t.Fatalf("ParseSearch() error = %v", err)
	}

	again, err := ParseSearch(get("/listings?" + s.Encode().Encode()))
	if err != nil {
		t.Fatalf("ParseSearch() error = %v", err)
	}
	if !reflect.DeepEqual(s, again) {
		t.Errorf("round trip = %+v, want %+v", again, s)
	}
}

func TestParseValues(t *testing.T) {
	values := url.Values{}
	values.Add("filter[species]", "rabbit")
	values.Set("scope", "budget")
	values.Set("page[size]", "3")

	s, err := ParseValues(values)
	if err != nil {
		t.Fatalf("ParseValues() error = %v", err)
	}
	if len(s.Filter.Entries) != 1 || s.Filter.Entries[0].Key != "species" {
		t.Errorf("ParseValues() filter = %+v", s.Filter)
	}
	if !reflect.DeepEqual(s.Scopes, []string{"budget"}) {
		t.Errorf("ParseValues() scopes = %v", s.Scopes)
	}
	if s.Page.Size == nil || *s.Page.Size != 3 || s.Page.Number != nil {
		t.Errorf("ParseValues() page = %+v", s.Page)
	}
}

func TestSearchCanonical(t *testing.T) {
	decode := func(body string) *Search {
		t.Helper()
		s, err := DecodeSearch(strings.NewReader(body))
		if err != nil {
			t.Fatalf("DecodeSearch(%s) error = %v", body, err)
		}
		return s
	}
	parse := func(target string) *Search {
		t.Helper()
		s, err := ParseSearch(get(target))
		if err != nil {
			t.Fatalf("ParseSearch(%s) error = %v", target, err)
		}
		return s
	}
	canonical := func(s *Search) string {
		t.Helper()
		b, err := s.Canonical()
		if err != nil {
			t.Fatalf("Canonical() error = %v", err)
		}
		return string(b)
	}

	tests := []struct {
		name string
		a, b *Search
		same bool
	}{
		{
			name: "query string and JSON scalar",
			a:    parse("/listings?filter[price][gt]=100"),
			b:    decode(`{"filters": [{"key": "price", "equation": "gt", "value": 100}]}`),
			same: true,
		},
		{
			name: "repeated parameter and JSON list",
			a:    parse("/listings?filter[species]=cat&filter[species]=dog"),
			b:    decode(`{"filters": [{"key": "species", "value": ["cat", "dog"]}]}`),
			same: true,
		},
		{
			name: "scalar and one-element list",
			a:    parse("/listings?filter[price][gt]=100"),
			b:    decode(`{"filters": [{"key": "price", "equation": "gt", "value": [100]}]}`),
		},
		{
			name: "empty list and no filter",
			a:    parse("/listings"),
			b:    decode(`{"filters": [{"key": "species", "value": []}]}`),
		},
		{
			name: "repeated entries and one list",
			a: decode(`{"filters": [{"key": "price", "equation": "gte", "value": 10},
				{"key": "price", "equation": "gte", "value": 20}]}`),
			b: decode(`{"filters": [{"key": "price", "equation": "gte", "value": [10, 20]}]}`),
		},
		{
			name: "null values are ignored",
			a:    parse("/listings"),
			b:    decode(`{"filters": [{"key": "breed", "value": null}]}`),
			same: true,
		},
		{
			name: "sort direction",
			a:    parse("/listings?sort=price"),
			b:    parse("/listings?sort=-price"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := canonical(tt.a), canonical(tt.b)
			if (a == b) != tt.same {
				t.Errorf("Canonical() equal = %v, want %v\na: %s\nb: %s", a == b, tt.same, a, b)
			}
		})
	}
}
