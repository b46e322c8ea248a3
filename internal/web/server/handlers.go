package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawbazaar/querykit/internal/listing"
	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/query"
	"github.com/pawbazaar/querykit/internal/orm/sorting"
	"github.com/pawbazaar/querykit/internal/web/cache"
	"github.com/pawbazaar/querykit/internal/web/middleware"
	"github.com/pawbazaar/querykit/internal/web/profiling"
	webquery "github.com/pawbazaar/querykit/internal/web/query"
	"github.com/pawbazaar/querykit/internal/web/ratelimit"
	"github.com/pawbazaar/querykit/internal/web/response"
)

// maxBodyBytes bounds POST search bodies
const maxBodyBytes = 1 << 20

// Options configures the listing API
type Options struct {
	// DefaultPageSize applies when a request sets no page size; zero leaves
	// such requests unpaged
	DefaultPageSize int

	// MaxPageSize rejects larger page sizes; zero disables the check
	MaxPageSize int

	// DefaultSort applies when a request neither sorts nor uses an
	// ordering scope
	DefaultSort *sorting.Entry

	// Cache holds rendered search responses; nil disables caching
	Cache cache.Cache

	// CacheTTL is passed to Cache.Set; zero means the cache default
	CacheTTL time.Duration

	// RequestTimeout bounds each query; zero disables the bound
	RequestTimeout time.Duration

	// Limiter bounds listing requests per client; nil disables the limit
	Limiter ratelimit.Limiter

	// Profiling mounts the pprof endpoints when set
	Profiling *profiling.Config

	Logger *zap.Logger
}

// API serves listing searches from a catalog
type API struct {
	catalog *listing.Catalog
	opts    Options
	logger  *zap.Logger
}

// NewAPI creates the listing API
func NewAPI(catalog *listing.Catalog, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		catalog: catalog,
		opts:    opts,
		logger:  logger,
	}
}

// Routes returns the router with the API's middleware installed
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		chimw.RealIP,
		middleware.Logging(a.logger, "/healthz"),
		middleware.Recovery(a.logger),
		chimw.StripSlashes,
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.fail(w, r, http.StatusNotFound, "not_found", fmt.Errorf("no route for %s", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.fail(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
			fmt.Errorf("%s is not allowed on %s", r.Method, r.URL.Path))
	})

	r.Get("/healthz", a.health)
	r.Get("/scopes", a.listScopes)
	if a.opts.Profiling != nil {
		profiling.RegisterRoutes(r, a.opts.Profiling)
	}
	r.Route("/listings", func(r chi.Router) {
		if a.opts.Limiter != nil {
			r.Use(middleware.RateLimit(a.opts.Limiter, middleware.ClientIP, a.logger))
		}
		r.Get("/", a.listListings)
		r.Post("/search", a.searchListings)
		r.Get("/{id}", a.getListing)
	})
	return r
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.queryContext(r)
	defer cancel()

	if _, err := a.catalog.Query().Tracking(false).Any(ctx); err != nil {
		a.logger.Error("health check failed", zap.Error(err))
		a.fail(w, r, http.StatusServiceUnavailable, "", errors.New("listing store unavailable"))
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) listScopes(w http.ResponseWriter, r *http.Request) {
	response.RenderJSON(w, http.StatusOK, response.Envelope{Data: a.catalog.Scopes().List()})
}

func (a *API) listListings(w http.ResponseWriter, r *http.Request) {
	search, err := webquery.ParseSearch(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.search(w, r, search)
}

func (a *API) searchListings(w http.ResponseWriter, r *http.Request) {
	search, err := webquery.DecodeSearch(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.search(w, r, search)
}

func (a *API) getListing(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.renderError(w, r, fmt.Errorf("%w: listing id: %v", webquery.ErrInvalidParameter, err))
		return
	}

	ctx, cancel := a.queryContext(r)
	defer cancel()

	var spec filter.Specification
	spec.Add("id", filter.Equals, id.String())
	b, err := a.catalog.Query().Tracking(false).Filter(spec)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	for _, path := range webquery.ParseInclude(r) {
		b = b.Include(path)
	}

	item, ok, err := b.Single(ctx)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if !ok {
		a.fail(w, r, http.StatusNotFound, "not_found", errNotFound)
		return
	}
	a.writeBody(w, r, response.Envelope{Data: item}, "")
}

// search runs s against the catalog and renders one page of results
func (a *API) search(w http.ResponseWriter, r *http.Request, s *webquery.Search) {
	if err := a.normalizePage(s); err != nil {
		a.renderError(w, r, err)
		return
	}

	canonical, err := s.Canonical()
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	key := cache.Key("listings:", canonical)
	if body, ok := a.cached(r.Context(), key); ok {
		w.Header().Set("X-Cache", "HIT")
		a.writeCached(w, r, body)
		return
	}

	ctx, cancel := a.queryContext(r)
	defer cancel()

	b, err := a.build(s)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	items, total, err := b.ListWithCount(ctx)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if items == nil {
		items = []listing.Listing{}
	}

	env := response.Envelope{
		Data: items,
		Meta: &response.Meta{Total: total, Page: s.Page.Number, Size: s.Page.Size},
	}
	if a.opts.Cache != nil {
		w.Header().Set("X-Cache", "MISS")
	}
	a.writeBody(w, r, env, key)
}

func (a *API) build(s *webquery.Search) (*query.Builder[listing.Listing], error) {
	return a.catalog.Query().Tracking(false).Search(query.Request{
		Scopes:  s.Scopes,
		Filter:  s.Filter,
		Sort:    s.Sort,
		Include: s.Include,
		Page:    s.Page,
	}, a.opts.DefaultSort)
}

// normalizePage fills in the default page and enforces the size limit
func (a *API) normalizePage(s *webquery.Search) error {
	if s.Page.Size == nil && a.opts.DefaultPageSize > 0 {
		size := a.opts.DefaultPageSize
		s.Page.Size = &size
	}
	if s.Page.Size != nil && s.Page.Number == nil {
		number := 1
		s.Page.Number = &number
	}
	if s.Page.Size != nil && a.opts.MaxPageSize > 0 && *s.Page.Size > a.opts.MaxPageSize {
		return fmt.Errorf("%w: page size must be at most %d, got %d",
			sorting.ErrInvalidPage, a.opts.MaxPageSize, *s.Page.Size)
	}
	return s.Page.Validate()
}

func (a *API) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if a.opts.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), a.opts.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

func (a *API) cached(ctx context.Context, key string) ([]byte, bool) {
	if a.opts.Cache == nil {
		return nil, false
	}
	body, err := a.opts.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			a.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return body, true
}

// writeBody renders v, stores it under key when caching is on and key is
// set, and answers conditional requests
func (a *API) writeBody(w http.ResponseWriter, r *http.Request, v any, key string) {
	body, err := response.Marshal(v)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if key != "" && a.opts.Cache != nil {
		if err := a.opts.Cache.Set(r.Context(), key, body, a.opts.CacheTTL); err != nil {
			a.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	a.writeCached(w, r, body)
}

func (a *API) writeCached(w http.ResponseWriter, r *http.Request, body []byte) {
	etag := cache.ETag(body)
	w.Header().Set("ETag", etag)
	if cache.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	response.RenderBytes(w, http.StatusOK, body)
}

// renderError maps err to a status. Server errors are logged and their
// details withheld from the client.
func (a *API) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	switch status {
	case http.StatusInternalServerError:
		a.logger.Error("listing query failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err),
		)
		err = errInternal
	case http.StatusGatewayTimeout:
		err = errTimeout
	}
	a.fail(w, r, status, code, err)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	response.RenderErrorWithCode(w, status, err, code, middleware.GetRequestID(r.Context()))
}
