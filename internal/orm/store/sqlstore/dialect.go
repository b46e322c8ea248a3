package sqlstore

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures the SQL differences between supported databases
type Dialect struct {
	Name string
	// Driver is the database/sql driver name
	Driver      string
	Placeholder sq.PlaceholderFormat

	// dateOf returns an expression yielding the YYYY-MM-DD date of col
	dateOf func(col string) string
	// nullsFirst is appended to ascending orderings when the database
	// sorts NULL last by default
	nullsFirst bool
	// offsetNeedsLimit is set when OFFSET is only valid after LIMIT
	offsetNeedsLimit bool
}

var (
	// SQLite stores times as text, so the date is the first ten characters
	SQLite = Dialect{
		Name:             "sqlite",
		Driver:           "sqlite3",
		Placeholder:      sq.Question,
		dateOf:           func(col string) string { return fmt.Sprintf("substr(%s, 1, 10)", col) },
		offsetNeedsLimit: true,
	}

	// Postgres uses the pgx stdlib driver
	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "pgx",
		Placeholder: sq.Dollar,
		dateOf:      func(col string) string { return fmt.Sprintf("CAST(%s AS DATE)", col) },
		nullsFirst:  true,
	}
)

// DialectFor returns the dialect registered under name
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql dialect: %s", name)
}

// dateArg formats a date operand for comparison with dateOf
func (d Dialect) dateArg(t time.Time) any {
	return t.Format(time.DateOnly)
}

// String returns the dialect name
func (d Dialect) String() string {
	return d.Name
}
