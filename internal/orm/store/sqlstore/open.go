package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// Open opens and pings a database for the named dialect
func Open(ctx context.Context, dialect, dsn string) (*sql.DB, Dialect, error) {
	d, err := DialectFor(dialect)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("failed to open %s database: %w", d, err)
	}
	if d.Name == SQLite.Name {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("failed to connect to %s database: %w", d, err)
	}
	return db, d, nil
}
