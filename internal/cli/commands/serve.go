package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pawbazaar/querykit/internal/web/cache"
	"github.com/pawbazaar/querykit/internal/web/profiling"
	"github.com/pawbazaar/querykit/internal/web/ratelimit"
	"github.com/pawbazaar/querykit/internal/web/server"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the listing search API over HTTP",
		Long: `Serve the listing search API over HTTP.

  GET  /listings        search with filter[key][op]=value, sort, page[number], page[size], include and scope
  POST /listings/search the same search as a JSON body
  GET  /listings/{id}   one listing
  GET  /scopes          the named scopes
  GET  /healthz         store health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				a.config.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.config.Server.Port = port
			}
			return runServe(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "interface to listen on (default from server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from server.port)")
	return cmd
}

func runServe(ctx context.Context, a *app) (err error) {
	cfg := a.config
	logger := a.logger

	// hooks release what runServe opened, in order, once the server stops
	var hooks []server.ShutdownHook
	defer func() {
		if err != nil {
			for _, hook := range hooks {
				_ = hook(context.Background())
			}
		}
	}()

	catalog, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	hooks = append(hooks, func(context.Context) error { return catalog.Close() })

	c, err := cache.Open(ctx, cfg.Cache.Driver, cfg.Cache.Addr, cache.Config{
		DefaultTTL: cfg.Cache.TTL,
		Prefix:     "querykit:",
	})
	if err != nil {
		return err
	}
	if c != nil {
		hooks = append(hooks, func(context.Context) error { return c.Close() })
	}

	limiter, err := ratelimit.Open(ctx, cfg.RateLimit.Driver, cfg.RateLimit.Addr, ratelimit.Config{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window,
		Prefix: "querykit:ratelimit:",
	})
	if err != nil {
		return err
	}
	if limiter != nil {
		hooks = append(hooks, func(context.Context) error { return limiter.Close() })
	}

	var prof *profiling.Config
	if cfg.Server.Profiling {
		prof = profiling.DefaultConfig()
		logger.Warn("profiling endpoints enabled", zap.String("path", prof.Path))
	}

	api := server.NewAPI(catalog, server.Options{
		DefaultPageSize: cfg.Query.DefaultPageSize,
		MaxPageSize:     cfg.Query.MaxPageSize,
		DefaultSort:     cfg.Query.Sort(),
		Cache:           c,
		CacheTTL:        cfg.Cache.TTL,
		RequestTimeout:  cfg.Server.RequestTimeout,
		Limiter:         limiter,
		Profiling:       prof,
		Logger:          logger,
	})

	serverCfg := server.DefaultConfig(api.Routes())
	serverCfg.Address = cfg.Server.Address()
	srv, err := server.New(serverCfg)
	if err != nil {
		return err
	}

	shutdownCfg := server.DefaultShutdownConfig()
	shutdownCfg.Timeout = cfg.Server.ShutdownTimeout
	shutdownCfg.Logger = logger
	gs := server.NewGracefulShutdown(srv, shutdownCfg)
	for _, hook := range hooks {
		gs.RegisterHook(hook)
	}
	gs.RegisterHook(func(context.Context) error {
		// stderr sync fails on some terminals
		_ = logger.Sync()
		return nil
	})

	logger.Info("starting listing API",
		zap.String("store", cfg.Store.Driver),
		zap.String("cache", cfg.Cache.Driver),
		zap.String("rate_limit", cfg.RateLimit.Driver),
	)
	if err := srv.Listen(); err != nil {
		return err
	}
	hooks = nil
	return gs.Run(ctx)
}
