// Package main is the entry point for the Omnera server.
// It wires all dependencies together, installs the application document and
// starts the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/omnera-dev/omnera/internal/cache"
	"github.com/omnera-dev/omnera/internal/config"
	"github.com/omnera-dev/omnera/internal/document"
	"github.com/omnera-dev/omnera/internal/engine"
	"github.com/omnera-dev/omnera/internal/observability"
	"github.com/omnera-dev/omnera/internal/registry"
	"github.com/omnera-dev/omnera/internal/render"
	"github.com/omnera-dev/omnera/internal/store"
	"github.com/omnera-dev/omnera/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "omnera", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.InitMetrics(promReg)

	resultCache, cacheCheck, cacheCloser, err := buildResultCache(cfg.Cache, logger)
	if err != nil {
		logger.Error("result cache initialization failed", zap.Error(err))
		return 1
	}
	snapshots, storeCheck, storeCloser, err := buildSnapshotStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("snapshot store initialization failed", zap.Error(err))
		return 1
	}

	reg := registry.New()
	opts := []engine.Option{
		engine.WithStore(snapshots),
		engine.WithMetrics(metrics),
		engine.WithLogger(logger),
	}
	if resultCache != nil {
		opts = append(opts, engine.WithCache(resultCache))
	}
	eng := engine.New(reg, document.NewLoader(), cfg.Document.Path, opts...)

	// A broken document is fatal unless the file is watched and can still be
	// fixed in place.
	if _, err := eng.Reload(ctx); err != nil {
		if !cfg.Document.Watch {
			logger.Error("application document could not be installed", zap.Error(err))
			return 1
		}
		logger.Warn("starting without an application, waiting for a valid document", zap.Error(err))
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		logger.Error("renderer initialization failed", zap.Error(err))
		return 1
	}
	adminAuth, err := transport.AdminAuthenticator(cfg.Admin)
	if err != nil {
		logger.Error("admin authentication initialization failed", zap.Error(err))
		return 1
	}
	if adminAuth == nil {
		logger.Warn("admin routes are not protected, set admin.jwt_secret_env to guard them")
	}

	readiness := observability.ReadinessChecks{
		Application:   reg,
		SnapshotStore: storeCheck,
		ResultCache:   cacheCheck,
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:    cfg,
		Engine:    eng,
		Registry:  reg,
		Renderer:  renderer,
		Logger:    logger,
		Metrics:   metrics,
		Gatherer:  promReg,
		Readiness: readiness,
		AdminAuth: adminAuth,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	watchDone := make(chan struct{})
	if cfg.Document.Watch {
		watcher := document.NewWatcher(cfg.Document.Path, cfg.Document.Debounce, func(ctx context.Context) {
			// Reload logs its own outcome.
			_, _ = eng.Reload(ctx)
		}, logger)
		go func() {
			defer close(watchDone)
			if err := watcher.Run(bgCtx); err != nil {
				logger.Error("document watcher stopped", zap.Error(err))
			}
		}()
	} else {
		close(watchDone)
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("document", cfg.Document.Path),
		zap.Bool("watch", cfg.Document.Watch),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	bgCancel()
	<-watchDone

	if storeCloser != nil {
		storeCloser()
	}
	if cacheCloser != nil {
		cacheCloser()
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildResultCache creates the validation result cache based on config. The
// cache is nil when caching is disabled; the health checker is nil unless the
// cache lives outside the process.
func buildResultCache(cfg config.CacheConfig, logger *zap.Logger) (cache.ResultCache, observability.HealthChecker, func(), error) {
	switch cfg.Driver {
	case "none":
		logger.Info("result cache disabled")
		return nil, nil, nil, nil
	case "memory", "":
		logger.Info("using in-memory result cache", zap.Int("max_entries", cfg.MaxEntries))
		return cache.NewMemoryCache(cfg.TTL, cfg.MaxEntries), nil, nil, nil
	case "redis":
		addr := os.Getenv(cfg.AddrEnv)
		if addr == "" {
			return nil, nil, nil, fmt.Errorf("result cache: %s environment variable not set", cfg.AddrEnv)
		}
		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
		rc := cache.NewRedisCache(client, cfg.TTL)
		closer := func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close failed", zap.Error(err))
			}
		}
		logger.Info("using redis result cache", zap.String("addr", addr), zap.Int("db", cfg.DB))
		return rc, rc, closer, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported result cache driver: %q", cfg.Driver)
	}
}

// buildSnapshotStore creates the snapshot store based on config.
func buildSnapshotStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.SnapshotStore, observability.HealthChecker, func(), error) {
	switch cfg.Driver {
	case "memory", "":
		logger.Info("using in-memory snapshot store")
		s := store.NewMemoryStore()
		return s, s, nil, nil
	case "postgres":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, nil, fmt.Errorf("snapshot store: %s environment variable not set", cfg.DSNEnv)
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("snapshot store: parse DSN: %w", err)
		}
		poolCfg.MaxConns = cfg.MaxConns
		poolCfg.MinConns = cfg.MinConns
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("snapshot store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("snapshot store: ping: %w", err)
		}

		s := store.NewPgStore(pool)
		if cfg.Migrate {
			if err := s.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, nil, fmt.Errorf("snapshot store: %w", err)
			}
		}
		logger.Info("using postgres snapshot store", zap.Int32("max_conns", cfg.MaxConns))
		return s, s, pool.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported snapshot store driver: %q", cfg.Driver)
	}
}
