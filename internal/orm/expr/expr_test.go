package expr

import (
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawbazaar/querykit/internal/orm/schema"
)

type breeder struct {
	Name string
}

type dog struct {
	Name     string
	Age      int
	Price    decimal.Decimal
	Born     *time.Time
	Breeder  *breeder
	Verified bool
}

func chain(t *testing.T, path string) *schema.Chain {
	t.Helper()
	c, ok := schema.NewRegistry().ResolvePath(reflect.TypeOf(dog{}), path)
	require.True(t, ok, "resolve %s", path)
	return c
}

func nameIs(t *testing.T, name string) *Cond {
	return NewCond(chain(t, "name"), OpEq, name, nil, func(f reflect.Value) bool {
		return f.String() == name
	})
}

func TestCondEval(t *testing.T) {
	breederName := NewCond(chain(t, "breeder.name"), OpEq, "Kim", nil, func(f reflect.Value) bool {
		return f.String() == "Kim"
	})

	assert.True(t, breederName.Eval(reflect.ValueOf(dog{Breeder: &breeder{Name: "Kim"}})))
	assert.False(t, breederName.Eval(reflect.ValueOf(dog{Breeder: &breeder{Name: "Lee"}})))
	// nil intermediate never reaches the test
	assert.False(t, breederName.Eval(reflect.ValueOf(dog{})))
	assert.False(t, breederName.Eval(reflect.ValueOf((*dog)(nil))))
}

func TestJoinAndWalk(t *testing.T) {
	a, b, c := nameIs(t, "a"), nameIs(t, "b"), nameIs(t, "c")

	assert.Nil(t, Join(false))
	assert.Same(t, a, Join(false, nil, a))

	or := Join(true, a, b, c)
	assert.Equal(t, `((Name = "a" OR Name = "b") OR Name = "c")`, or.String())
	assert.True(t, or.Eval(reflect.ValueOf(dog{Name: "c"})))
	assert.False(t, or.Eval(reflect.ValueOf(dog{Name: "d"})))

	and := Join(false, a, &Not{X: b})
	assert.Equal(t, `(Name = "a" AND NOT Name = "b")`, and.String())
	assert.True(t, and.Eval(reflect.ValueOf(dog{Name: "a"})))

	var leaves int
	Walk(or, func(e Expr) bool {
		if _, ok := e.(*Cond); ok {
			leaves++
		}
		return true
	})
	assert.Equal(t, 3, leaves)
}

func TestCondString(t *testing.T) {
	in := NewCond(chain(t, "age"), OpIn, nil, []any{1, 2}, nil)
	assert.Equal(t, "Age in [1, 2]", in.String())

	empty := NewCond(chain(t, "name"), OpIsEmpty, nil, nil, nil)
	assert.Equal(t, "Name is empty", empty.String())
}

func TestPredicateComposition(t *testing.T) {
	var zero Predicate[dog]
	assert.True(t, zero.IsZero())
	assert.True(t, zero.Test(dog{}))
	assert.Equal(t, "true", zero.String())
	assert.False(t, zero.Not().Test(dog{}))

	named := FromExpr[dog](nameIs(t, "Max"))
	old := Func(func(d dog) bool { return d.Age > 10 })

	assert.Same(t, named.Expr(), named.And(zero).Expr())
	assert.True(t, zero.Or(named).IsZero())

	both := named.And(old)
	assert.Nil(t, both.Expr())
	assert.False(t, both.Translatable())
	assert.True(t, both.Test(dog{Name: "Max", Age: 11}))
	assert.False(t, both.Test(dog{Name: "Max", Age: 3}))

	tree := named.Or(FromExpr[dog](nameIs(t, "Rex")))
	require.NotNil(t, tree.Expr())
	assert.True(t, tree.Translatable())
	assert.True(t, tree.Test(dog{Name: "Rex"}))
	assert.True(t, tree.Not().Test(dog{Name: "Bo"}))
	assert.Equal(t, `NOT (Name = "Max" OR Name = "Rex")`, tree.Not().String())

	// pointer entities work through the same tree
	ptr := FromExpr[*dog](nameIs(t, "Max"))
	assert.True(t, ptr.Test(&dog{Name: "Max"}))
	assert.False(t, ptr.Test(nil))
}

func TestFieldOrdering(t *testing.T) {
	day := func(d int) *time.Time {
		ts := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
		return &ts
	}
	dogs := []dog{
		{Name: "c", Born: day(3), Price: decimal.NewFromInt(30)},
		{Name: "a", Born: nil, Price: decimal.RequireFromString("9.5")},
		{Name: "b", Born: day(1), Price: decimal.NewFromInt(100)},
	}
	names := func(ds []dog) string {
		out := make([]string, len(ds))
		for i, d := range ds {
			out[i] = d.Name
		}
		return strings.Join(out, "")
	}

	born, ok := FieldOrdering[dog](chain(t, "born"), false)
	require.True(t, ok)
	sorted := slices.Clone(dogs)
	slices.SortStableFunc(sorted, born.Compare)
	assert.Equal(t, "abc", names(sorted))

	slices.SortStableFunc(sorted, born.Descending().Compare)
	assert.Equal(t, "cba", names(sorted))

	price, ok := FieldOrdering[dog](chain(t, "price"), true)
	require.True(t, ok)
	slices.SortStableFunc(sorted, price.Compare)
	assert.Equal(t, "bca", names(sorted))
	assert.Equal(t, "Price desc", price.String())

	_, ok = FieldOrdering[dog](chain(t, "breeder"), false)
	assert.False(t, ok)
}

func TestComposeOrderings(t *testing.T) {
	dogs := []dog{{Name: "b", Age: 2}, {Name: "a", Age: 2}, {Name: "c", Age: 1}}

	byAge := By(func(d dog) int { return d.Age })
	byName, _ := FieldOrdering[dog](chain(t, "name"), false)

	slices.SortStableFunc(dogs, Compose([]Ordering[dog]{byAge, byName}))
	assert.Equal(t, []string{"c", "a", "b"}, []string{dogs[0].Name, dogs[1].Name, dogs[2].Name})
	assert.Equal(t, "<func> asc", byAge.String())
}

func TestNullableComparator(t *testing.T) {
	c := NullableComparator(ComparatorFor(schema.KindNumber, reflect.TypeOf(0)))
	one, two := 1, 2

	assert.Equal(t, 0, c(reflect.ValueOf((*int)(nil)), reflect.Value{}))
	assert.Equal(t, -1, c(reflect.ValueOf((*int)(nil)), reflect.ValueOf(&one)))
	assert.Equal(t, 1, c(reflect.ValueOf(&two), reflect.Value{}))
	assert.Equal(t, -1, c(reflect.ValueOf(&one), reflect.ValueOf(two)))
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	ts := time.Date(2024, 5, 6, 23, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), DateOnly(ts))
	assert.True(t, DateOnly(ts).Equal(DateOnly(time.Date(2024, 5, 6, 0, 30, 0, 0, time.UTC))))

	early := time.Date(2024, 5, 6, 5, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), DateOnly(early))
	assert.Equal(t, time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), DateOnly(early.UTC()))
}
