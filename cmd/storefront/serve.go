package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/storefront/internal/storefront"
	"github.com/Sternrassler/storefront/pkg/api"
	"github.com/Sternrassler/storefront/pkg/cache"
	"github.com/Sternrassler/storefront/pkg/config"
	"github.com/Sternrassler/storefront/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	s := a.settings

	resolver, err := a.loadShops()
	if err != nil {
		return err
	}

	backend, rdb, err := a.openCache()
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pool, err := a.newPool(backend, resolver)
	if err != nil {
		return err
	}

	site, err := storefront.NewSite(storefront.Config{
		ScriptName: s.mountPath(),
		Resolver:   resolver,
		API:        pool.Default(),
		Clients:    poolClients(pool),
		Timeout:    s.APITimeout,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           newMux(site, readiness(rdb)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().
			Str("addr", srv.Addr).
			Strs("shops", resolver.ShopIDs()).
			Str("gateway", s.APIGateway).
			Msg("Starting storefront server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info().Msg("Shutting down storefront server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPool builds the API client pool and a client for every shop that
// overrides api_gateway or api_token, so a broken override fails at startup.
func (a *app) newPool(backend cache.Backend, resolver *config.Resolver) (*api.Pool, error) {
	pool, err := api.NewPool(api.Config{
		Gateway: a.settings.APIGateway,
		Token:   a.settings.APIToken,
		Timeout: a.settings.APITimeout,
		Cache:   backend,
	})
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}

	for _, id := range resolver.ShopIDs() {
		settings, _ := resolver.ResolveByID(id)
		if _, err := shopClient(pool, settings); err != nil {
			return nil, fmt.Errorf("api client for shop %s: %w", id, err)
		}
	}
	return pool, nil
}

func shopClient(pool *api.Pool, settings config.Settings) (*api.Client, error) {
	return pool.For(settings.String(config.KeyAPIGateway), settings.String(config.KeyAPIToken))
}

func poolClients(pool *api.Pool) storefront.ClientFunc {
	return func(gateway, token string) (storefront.API, error) {
		client, err := pool.For(gateway, token)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// openCache selects the API response cache: redis when redis_url is set,
// otherwise the file store in cache_dir.
func (a *app) openCache() (cache.Backend, *redis.Client, error) {
	s := a.settings

	if s.RedisURL != "" {
		opts, err := redis.ParseURL(s.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		a.logger.Info().Str("addr", opts.Addr).Msg("Caching API responses in redis")
		return cache.NewRedisStore(rdb, s.CacheTTL), rdb, nil
	}

	store, err := cache.NewFileStore(cache.Config{Dir: s.CacheDir, DefaultTTL: s.CacheTTL})
	if err != nil {
		return nil, nil, err
	}
	if store.Enabled() {
		a.logger.Info().Str("dir", store.Dir()).Dur("ttl", s.CacheTTL).Msg("Caching API responses on disk")
	} else {
		a.logger.Info().Msg("API response cache disabled")
	}
	return store, nil, nil
}

// readiness reports whether the shared cache is reachable.
func readiness(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return nil
		}
		return rdb.Ping(ctx).Err()
	}
}

func newMux(site http.Handler, ready func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(ready))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", site)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(ready func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := ready(ctx); err != nil {
			http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "READY")
	}
}
