// Command mock-backend runs an in-memory implementation of the prospects REST
// API for local development and demos.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/scout/internal/adapters/http/mockapi"
	"github.com/okian/scout/internal/adapters/http/swagger"
	"github.com/okian/scout/internal/adapters/repository"
	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/pkg/logger"
)

const (
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("mock-backend: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
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
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	mux, err := newMux(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.MockAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting mock backend", logger.String("addr", cfg.MockAddr), logger.Bool("seeded", cfg.SeedDemo))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newMux builds the API and its documentation routes over a fresh store.
func newMux(ctx context.Context, cfg *config.Config, log logger.Logger) (*http.ServeMux, error) {
	store := repository.NewMemStore()
	if cfg.SeedDemo {
		if err := mockapi.SeedDemo(ctx, store); err != nil {
			return nil, err
		}
	}
	api, err := mockapi.NewServer(store, cfg.JWTSecret, mockapi.WithLogger(log))
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	api.Register(mux)
	swagger.Register(mux)
	return mux, nil
}
