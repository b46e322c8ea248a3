package sqlstore

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawbazaar/querykit/internal/orm/expr"
	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/sorting"
	"github.com/pawbazaar/querykit/internal/orm/store"
)

type kind int

const (
	dog kind = iota
	cat
	bird
)

type owner struct {
	Name string
}

type pet struct {
	ID       uuid.UUID
	Name     string
	Age      int
	Price    decimal.Decimal
	BornOn   *time.Time
	Indoor   bool
	Kind     kind
	Nickname *string `db:"nick"`
	Notes    string  `db:"-"`
	Tags     []string
	Owner    *owner
}

const petColumns = "id, name, age, price, born_on, indoor, kind, nick"

func where(t *testing.T, build func(s *filter.Specification)) expr.Predicate[pet] {
	t.Helper()
	var spec filter.Specification
	build(&spec)
	p, err := filter.Compile[pet](nil, spec)
	require.NoError(t, err)
	return p
}

func byKey(key string, desc bool) expr.Ordering[pet] {
	dir := sorting.Asc
	if desc {
		dir = sorting.Desc
	}
	return sorting.CompileSort[pet](nil, []sorting.Entry{{Key: key, Direction: dir}}, nil)[0]
}

func toSQL(t *testing.T, q store.Query[pet]) (string, []any) {
	t.Helper()
	query, args, err := q.(*Query[pet]).ToSql()
	require.NoError(t, err)
	return query, args
}

func TestColumnsOf(t *testing.T) {
	cols, err := columnsOf(reflect.TypeFor[pet]())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age", "price", "born_on", "indoor", "kind", "nick"}, cols.names())

	c, ok := cols.lookup("Nickname")
	require.True(t, ok)
	assert.Equal(t, "nick", c.name)

	_, ok = cols.lookup("Tags")
	assert.False(t, ok)

	_, err = columnsOf(reflect.TypeFor[int]())
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestTranslateConditions(t *testing.T) {
	born := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		build    func(s *filter.Specification)
		expected string
		args     []any
	}{
		{
			name:     "text contains is lower cased and escaped",
			build:    func(s *filter.Specification) { s.Add("name", filter.Contains, "50%_Off") },
			expected: `LOWER(name) LIKE ? ESCAPE '\'`,
			args:     []any{`%50\%\_off%`},
		},
		{
			name:     "text starts with",
			build:    func(s *filter.Specification) { s.Add("name", filter.StartsWith, "Re") },
			expected: `LOWER(name) LIKE ? ESCAPE '\'`,
			args:     []any{"re%"},
		},
		{
			name:     "text ends with",
			build:    func(s *filter.Specification) { s.Add("name", filter.EndsWith, "X") },
			expected: `LOWER(name) LIKE ? ESCAPE '\'`,
			args:     []any{"%x"},
		},
		{
			name:     "text equals",
			build:    func(s *filter.Specification) { s.Add("name", filter.Equals, "Rex") },
			expected: "LOWER(name) = ?",
			args:     []any{"rex"},
		},
		{
			name:     "text is empty",
			build:    func(s *filter.Specification) { s.Add("name", filter.IsEmpty, true) },
			expected: "name = ?",
			args:     []any{""},
		},
		{
			name:     "nullable text is guarded",
			build:    func(s *filter.Specification) { s.Add("nickname", filter.NotEquals, "Bo") },
			expected: "(nick IS NOT NULL AND LOWER(nick) != ?)",
			args:     []any{"bo"},
		},
		{
			name:     "number",
			build:    func(s *filter.Specification) { s.Add("age", filter.GreaterOrEqual, "3") },
			expected: "age >= ?",
			args:     []any{3},
		},
		{
			name:     "decimal",
			build:    func(s *filter.Specification) { s.Add("price", filter.Less, "10.5") },
			expected: "price < ?",
		},
		{
			name:     "bool",
			build:    func(s *filter.Specification) { s.Add("indoor", filter.Equals, true) },
			expected: "indoor = ?",
			args:     []any{true},
		},
		{
			name:     "enum",
			build:    func(s *filter.Specification) { s.Add("kind", filter.Greater, 1) },
			expected: "kind > ?",
			args:     []any{cat},
		},
		{
			name:     "date compares the date part",
			build:    func(s *filter.Specification) { s.Add("bornOn", filter.Equals, born) },
			expected: "(born_on IS NOT NULL AND substr(born_on, 1, 10) = ?)",
			args:     []any{"2024-03-01"},
		},
		{
			name:     "uuid is empty",
			build:    func(s *filter.Specification) { s.Add("id", filter.IsEmpty, true) },
			expected: "id = ?",
			args:     []any{uuid.Nil},
		},
		{
			name:     "membership",
			build:    func(s *filter.Specification) { s.Add("age", filter.Equals, []int{1, 2}) },
			expected: "age IN (?,?)",
			args:     []any{1, 2},
		},
		{
			name: "and join",
			build: func(s *filter.Specification) {
				s.Add("age", filter.Greater, 1).Add("indoor", filter.Equals, false)
			},
			expected: "(age > ? AND indoor = ?)",
			args:     []any{1, false},
		},
		{
			name: "or join",
			build: func(s *filter.Specification) {
				s.Logic = filter.Or
				s.Add("age", filter.Greater, 1).Add("indoor", filter.Equals, false)
			},
			expected: "(age > ? OR indoor = ?)",
			args:     []any{1, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New[pet](nil, "pets").Where(where(t, tt.build))
			query, args := toSQL(t, q)
			assert.Equal(t, "SELECT "+petColumns+" FROM pets WHERE "+tt.expected, query)
			if tt.args != nil {
				assert.Equal(t, tt.args, args)
			} else {
				require.Len(t, args, 1)
			}
		})
	}
}

func TestTranslateNot(t *testing.T) {
	p := where(t, func(s *filter.Specification) { s.Add("age", filter.Greater, 3) }).Not()

	query, args := toSQL(t, New[pet](nil, "pets").Where(p))
	assert.Equal(t, "SELECT "+petColumns+" FROM pets WHERE NOT (age > ?)", query)
	assert.Equal(t, []any{3}, args)
}

func TestTranslateOrderingAndPaging(t *testing.T) {
	base := New[pet](nil, "pets")

	tests := []struct {
		name     string
		query    store.Query[pet]
		expected string
	}{
		{
			name:     "multi key ordering",
			query:    base.OrderBy(byKey("name", true)).ThenBy(byKey("age", false)),
			expected: "SELECT " + petColumns + " FROM pets ORDER BY name DESC, age ASC",
		},
		{
			name:     "skip and take",
			query:    base.Skip(10).Take(5),
			expected: "SELECT " + petColumns + " FROM pets LIMIT 5 OFFSET 10",
		},
		{
			name:     "skip inside a taken window",
			query:    base.Take(5).Skip(2),
			expected: "SELECT " + petColumns + " FROM pets LIMIT 3 OFFSET 2",
		},
		{
			name:     "skip alone still needs a limit",
			query:    base.Skip(3),
			expected: "SELECT " + petColumns + " FROM pets LIMIT 9223372036854775807 OFFSET 3",
		},
		{
			name:     "ordering a page selects from it",
			query:    base.Take(3).OrderBy(byKey("age", false)),
			expected: "SELECT " + petColumns + " FROM (SELECT " + petColumns + " FROM pets LIMIT 3) AS paged ORDER BY age ASC",
		},
		{
			name:     "then by extends the paged ordering",
			query:    base.OrderBy(byKey("age", false)).Take(3).ThenBy(byKey("name", false)),
			expected: "SELECT " + petColumns + " FROM pets ORDER BY age ASC, name ASC LIMIT 3",
		},
		{
			name:     "then by reaches into a nested page",
			query:    base.OrderBy(byKey("age", false)).Take(3).Distinct().ThenBy(byKey("name", false)),
			expected: "SELECT DISTINCT " + petColumns + " FROM (SELECT " + petColumns + " FROM pets ORDER BY age ASC, name ASC LIMIT 3) AS paged",
		},
		{
			name:     "distinct",
			query:    base.Distinct(),
			expected: "SELECT DISTINCT " + petColumns + " FROM pets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, _ := toSQL(t, tt.query)
			assert.Equal(t, tt.expected, query)
		})
	}
}

func TestPostgresDialect(t *testing.T) {
	p := where(t, func(s *filter.Specification) {
		s.Add("age", filter.Greater, 1).Add("bornOn", filter.Less, "2024-01-01")
	})
	q := New[pet](nil, "pets", WithDialect[pet](Postgres)).
		Where(p).
		OrderBy(byKey("price", false), byKey("name", true))

	query, args := toSQL(t, q)
	assert.Equal(t, "SELECT "+petColumns+" FROM pets WHERE (age > $1 AND (born_on IS NOT NULL AND CAST(born_on AS DATE) < $2)) ORDER BY price ASC NULLS FIRST, name DESC NULLS LAST", query)
	assert.Equal(t, []any{1, "2024-01-01"}, args)

	query, _ = toSQL(t, New[pet](nil, "pets", WithDialect[pet](Postgres)).Skip(3))
	assert.Equal(t, "SELECT "+petColumns+" FROM pets OFFSET 3", query)
}

func TestUntranslatable(t *testing.T) {
	base := New[pet](nil, "pets")

	tests := []struct {
		name  string
		query store.Query[pet]
	}{
		{"closure predicate", base.Where(expr.Func(func(p pet) bool { return p.Age > 1 }))},
		{"closure ordering", base.OrderBy(expr.By(func(p pet) int { return p.Age }))},
		{"collection field", base.Where(where(t, func(s *filter.Specification) { s.Add("tags", filter.Contains, "x") }))},
		{"nested path", base.Where(where(t, func(s *filter.Specification) { s.Add("owner.name", filter.Equals, "Kim") }))},
		{"nested ordering", base.OrderBy(byKey("owner.name", false))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.query.(*Query[pet]).ToSql()
			assert.ErrorIs(t, err, ErrUntranslatable)
		})
	}
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.String())

	d, err = DialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.String())

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}
