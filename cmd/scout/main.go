// Command scout serves the prospects dashboard.
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

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/okian/scout/internal/adapters/backend"
	"github.com/okian/scout/internal/adapters/http/shell"
	"github.com/okian/scout/internal/adapters/storage"
	"github.com/okian/scout/internal/app/workspace"
	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 2 * time.Minute
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("scout: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.InitWith(os.Stdout, logger.Format(cfg.LogFormat)); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	provider, err := storageProvider(cfg)
	if err != nil {
		return err
	}

	deps := workspace.Deps{
		BackendURL: cfg.BackendURL,
		BackendOptions: []backend.Option{
			backend.WithTimeout(time.Duration(cfg.BackendTimeoutMS) * time.Millisecond),
		},
		Storage:   provider,
		PageLimit: cfg.PageLimit,
		Logger:    log,
	}
	registry := workspace.NewRegistry(deps.Factory(),
		workspace.WithMaxSize(cfg.MaxWorkspaces),
		workspace.WithLogger(log),
	)
	defer registry.Close()

	front, err := shell.NewServer(registry,
		shell.WithLogger(log),
		shell.WithCookieSecure(cfg.CookieSecure),
	)
	if err != nil {
		return err
	}

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	front.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(mux, "scout"),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// storageProvider keeps visitor state on disk when a directory is configured.
func storageProvider(cfg *config.Config) (storage.Provider, error) {
	if cfg.StorageDir == "" {
		return storage.NewMemory(), nil
	}
	f, err := storage.NewFile(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// startSystemMetricsUpdater refreshes the runtime gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
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

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond)
	}
}
