package listing

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/query"
	"github.com/pawbazaar/querykit/internal/orm/relationships"
	"github.com/pawbazaar/querykit/internal/orm/store"
	"github.com/pawbazaar/querykit/internal/orm/store/sqlstore"
	"github.com/pawbazaar/querykit/internal/orm/tracking"
)

// Catalog is the queryable set of listings behind the CLI and the HTTP API
type Catalog struct {
	listings  store.Query[Listing]
	relations *relationships.Registry[Listing]
	compiler  *filter.Compiler
	scopes    *query.Scopes[Listing]
	tracker   *tracking.Tracker
	logger    *zap.Logger
	db        *sql.DB
}

// Option configures a Catalog
type Option func(*options)

type options struct {
	logger *zap.Logger
	now    func() time.Time
}

// WithLogger sets the logger used by the catalog and its queries
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the time source of the date based scopes
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewMemoryCatalog serves fixtures from memory
func NewMemoryCatalog(fx *Fixtures, opts ...Option) (*Catalog, error) {
	o := buildOptions(opts)
	compiler := filter.NewCompiler(filter.WithLogger(o.logger))

	owners := store.NewMemory(fx.Owners)
	relations, err := relationships.NewRegistry(
		OwnerRelation(owners, compiler),
		InlineTagsRelation(),
	)
	if err != nil {
		return nil, err
	}

	tracker := tracking.NewTracker()
	return &Catalog{
		listings: store.NewMemory(fx.Listings,
			store.WithLoader[Listing](relations),
			store.WithTracker[Listing](tracker),
		),
		relations: relations,
		compiler:  compiler,
		scopes:    NewScopes(o.now),
		tracker:   tracker,
		logger:    o.logger,
	}, nil
}

// NewSQLCatalog serves listings from the tables created by Migrate. Tags are
// loaded eagerly on every query.
func NewSQLCatalog(db *sql.DB, d sqlstore.Dialect, opts ...Option) (*Catalog, error) {
	o := buildOptions(opts)
	compiler := filter.NewCompiler(filter.WithLogger(o.logger))

	owners := sqlstore.New[Owner](db, OwnersTable,
		sqlstore.WithDialect[Owner](d),
		sqlstore.WithLogger[Owner](o.logger),
	)
	relations, err := relationships.NewRegistry(
		OwnerRelation(owners, compiler),
		TagsRelation(db, d),
	)
	if err != nil {
		return nil, err
	}

	tracker := tracking.NewTracker()
	listings := sqlstore.New[Listing](db, ListingsTable,
		sqlstore.WithDialect[Listing](d),
		sqlstore.WithLogger[Listing](o.logger),
		sqlstore.WithLoader[Listing](relations),
		sqlstore.WithTracker[Listing](tracker),
	).Include(IncludeTags)

	return &Catalog{
		listings:  listings,
		relations: relations,
		compiler:  compiler,
		scopes:    NewScopes(o.now),
		tracker:   tracker,
		logger:    o.logger,
		db:        db,
	}, nil
}

// Open builds the catalog for a store driver: "memory", "sqlite" or
// "postgres". SQL stores are migrated, and seeded with the fixtures when
// they hold no owners yet.
func Open(ctx context.Context, driver, dsn, fixtures string, opts ...Option) (*Catalog, error) {
	o := buildOptions(opts)

	if strings.EqualFold(driver, "memory") || driver == "" {
		fx, err := LoadFixtures(fixtures)
		if err != nil {
			return nil, err
		}
		return NewMemoryCatalog(fx, opts...)
	}

	db, d, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := prepare(ctx, db, d, fixtures, o.logger); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLCatalog(db, d, opts...)
}

func prepare(ctx context.Context, db *sql.DB, d sqlstore.Dialect, fixtures string, logger *zap.Logger) error {
	if err := Migrate(ctx, db, d); err != nil {
		return err
	}

	n, err := sqlstore.New[Owner](db, OwnersTable, sqlstore.WithDialect[Owner](d)).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect listing tables: %w", err)
	}
	if n > 0 {
		return nil
	}

	fx, err := LoadFixtures(fixtures)
	if err != nil {
		return err
	}
	if err := Seed(ctx, db, d, fx); err != nil {
		return err
	}
	logger.Info("seeded listing tables",
		zap.Stringer("dialect", d),
		zap.Int("owners", len(fx.Owners)),
		zap.Int("listings", len(fx.Listings)),
	)
	return nil
}

// Query starts a builder over every listing. Queries track what they
// materialize unless Tracking(false) is set.
func (c *Catalog) Query() *query.Builder[Listing] {
	return query.New(c.listings,
		query.WithCompiler[Listing](c.compiler),
		query.WithScopes(c.scopes),
		query.WithLogger[Listing](c.logger),
	)
}

// Listings returns the lazy query over every listing
func (c *Catalog) Listings() store.Query[Listing] {
	return c.listings
}

// Includes returns the relationship paths queries may include
func (c *Catalog) Includes() []string {
	return c.relations.Paths()
}

// Tracker returns the tracker holding snapshots of tracked query results
func (c *Catalog) Tracker() *tracking.Tracker {
	return c.tracker
}

// Scopes returns the named scopes
func (c *Catalog) Scopes() *query.Scopes[Listing] {
	return c.scopes
}

// Close releases the database, if any
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
