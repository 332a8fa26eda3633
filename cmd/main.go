package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/skillmatch/internal/adapters/expansion"
	"github.com/okian/skillmatch/internal/adapters/http/api"
	"github.com/okian/skillmatch/internal/adapters/http/swagger"
	"github.com/okian/skillmatch/internal/adapters/repository"
	app "github.com/okian/skillmatch/internal/app"
	"github.com/okian/skillmatch/internal/config"
	"github.com/okian/skillmatch/pkg/logger"
	"github.com/okian/skillmatch/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	redisPingTimeout          = 2 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to open store", logger.Error(err))
		os.Exit(1)
	}

	expander := expansion.New(cfg.ExpansionURL, expansionOptions(ctx, cfg, loggerInstance)...)

	svc := app.New(
		app.WithLogger(loggerInstance.Named("service")),
		app.WithStore(store),
		app.WithExpander(expander),
		app.WithPeopleMinOverlap(cfg.PeopleMinOverlap),
		app.WithSessionMinOverlap(cfg.SessionMinOverlap),
	)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		_ = store.Close()
		os.Exit(1)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	// Drains in-flight enrichment, then closes the store.
	if err := svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Warn(shutdownCtx, "enrichment jobs abandoned at shutdown", logger.Error(err))
	}

	loggerInstance.Info(shutdownCtx, "server stopped")
}

// openStore selects the entity store from configuration.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	if cfg.StoreDriver != config.DriverPostgres {
		log.Info(ctx, "using in-memory store")
		return repository.NewMemoryStore(ctx), nil
	}

	if cfg.RunMigrations {
		if err := repository.RunMigrations(cfg.PostgresDSN); err != nil {
			return nil, err
		}
		log.Info(ctx, "database migrations applied")
	}
	store, err := repository.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "using postgres store")
	return store, nil
}

// expansionOptions builds client options, attaching the Redis cache when
// one is configured and reachable.
func expansionOptions(ctx context.Context, cfg *config.Config, log logger.Logger) []expansion.Option {
	opts := []expansion.Option{
		expansion.WithTimeout(cfg.ExpansionTimeout()),
		expansion.WithRateLimit(cfg.ExpansionRateLimitRPS, cfg.ExpansionBurst),
		expansion.WithLogger(log.Named("expansion")),
	}
	if cfg.RedisAddr == "" {
		return opts
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn(ctx, "redis unreachable; expansion cache disabled", logger.String("addr", cfg.RedisAddr), logger.Error(err))
		_ = rdb.Close()
		return opts
	}
	log.Info(ctx, "expansion cache enabled", logger.String("addr", cfg.RedisAddr))
	return append(opts, expansion.WithCache(expansion.NewRedisCache(rdb, cfg.ExpansionCacheTTL())))
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes entity gauges through GetStats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats(ctx)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
