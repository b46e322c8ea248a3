package listing

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/pawbazaar/querykit/internal/orm/store/sqlstore"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS owners (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		shelter BOOLEAN NOT NULL DEFAULT 0,
		joined_on DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		species INTEGER NOT NULL,
		breed TEXT,
		age_months INTEGER NOT NULL,
		price NUMERIC NOT NULL,
		vaccinated BOOLEAN NOT NULL DEFAULT 0,
		listed_on DATETIME NOT NULL,
		available_from DATETIME NOT NULL,
		owner_id TEXT NOT NULL REFERENCES owners (id)
	)`,
	`CREATE TABLE IF NOT EXISTS listing_tags (
		listing_id TEXT NOT NULL REFERENCES listings (id),
		position INTEGER NOT NULL,
		tag TEXT NOT NULL,
		PRIMARY KEY (listing_id, position)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS owners (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		shelter BOOLEAN NOT NULL DEFAULT FALSE,
		joined_on TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		species INTEGER NOT NULL,
		breed TEXT,
		age_months INTEGER NOT NULL,
		price NUMERIC(12, 2) NOT NULL,
		vaccinated BOOLEAN NOT NULL DEFAULT FALSE,
		listed_on TIMESTAMPTZ NOT NULL,
		available_from TIMESTAMPTZ NOT NULL,
		owner_id UUID NOT NULL REFERENCES owners (id)
	)`,
	`CREATE TABLE IF NOT EXISTS listing_tags (
		listing_id UUID NOT NULL REFERENCES listings (id),
		position INTEGER NOT NULL,
		tag TEXT NOT NULL,
		PRIMARY KEY (listing_id, position)
	)`,
}

// Schema returns the statements that create the listing tables
func Schema(d sqlstore.Dialect) []string {
	if d.Name == sqlstore.Postgres.Name {
		return postgresSchema
	}
	return sqliteSchema
}

// Migrate creates the listing tables if they do not exist
func Migrate(ctx context.Context, db *sql.DB, d sqlstore.Dialect) error {
	for _, stmt := range Schema(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create listing tables: %w", err)
		}
	}
	return nil
}

// Seed inserts fixtures in a single transaction
func Seed(ctx context.Context, db *sql.DB, d sqlstore.Dialect, fx *Fixtures) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, insert := range seedStatements(d, fx) {
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build seed statement: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to seed listings: %w", err)
		}
	}
	return tx.Commit()
}

func seedStatements(d sqlstore.Dialect, fx *Fixtures) []sq.InsertBuilder {
	var stmts []sq.InsertBuilder
	psql := sq.StatementBuilder.PlaceholderFormat(d.Placeholder)

	if len(fx.Owners) > 0 {
		owners := psql.Insert(OwnersTable).Columns("id", "name", "city", "shelter", "joined_on")
		for _, o := range fx.Owners {
			owners = owners.Values(o.ID, o.Name, o.City, o.Shelter, o.JoinedOn.UTC())
		}
		stmts = append(stmts, owners)
	}

	if len(fx.Listings) == 0 {
		return stmts
	}
	listings := psql.Insert(ListingsTable).Columns(
		"id", "title", "species", "breed", "age_months", "price",
		"vaccinated", "listed_on", "available_from", "owner_id",
	)
	tags := psql.Insert(TagsTable).Columns("listing_id", "position", "tag")
	hasTags := false
	for _, l := range fx.Listings {
		listings = listings.Values(
			l.ID, l.Title, int(l.Species), l.Breed, l.AgeMonths, l.Price,
			l.Vaccinated, l.ListedOn, l.AvailableFrom, l.OwnerID,
		)
		for i, tag := range l.Tags {
			tags = tags.Values(l.ID, i, tag)
			hasTags = true
		}
	}
	stmts = append(stmts, listings)
	if hasTags {
		stmts = append(stmts, tags)
	}
	return stmts
}
