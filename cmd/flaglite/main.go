// Package main runs the FlagLite feature-flag service.
//
// Startup flow:
//
//  1. Load configuration from environment variables (config.Load)
//  2. Build the structured logger (logging.New)
//  3. Open the storage adapter chosen by DATABASE_URL's prefix (openStore)
//  4. Apply schema migrations (Store.RunMigrations)
//  5. Wire domain services and the HTTP router
//  6. Serve until SIGINT/SIGTERM, then shut down gracefully
//
// Any failure before step 6 exits non-zero so an orchestrator restarts
// the process; there is no degraded half-started mode.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/TimurManjosov/flaglite/internal/config"
	"github.com/TimurManjosov/flaglite/internal/httpapi"
	"github.com/TimurManjosov/flaglite/internal/logging"
	"github.com/TimurManjosov/flaglite/internal/service"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/TimurManjosov/flaglite/internal/store/pgstore"
	"github.com/TimurManjosov/flaglite/internal/store/sqlitestore"
)

// openStore selects the storage adapter from the DATABASE_URL prefix.
// This is the only place in the program that knows more than one
// adapter exists.
//
//   - "sqlite:..."   -> embedded single-file adapter
//   - "postgres:..." -> networked adapter
func openStore(ctx context.Context, databaseURL string) (store.Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return sqlitestore.Open(strings.TrimPrefix(databaseURL, "sqlite:"))
	case strings.HasPrefix(databaseURL, "postgres:") || strings.HasPrefix(databaseURL, "postgresql:"):
		return pgstore.Open(ctx, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL (expected sqlite: or postgres: prefix): %q", databaseURL)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLogger := logging.New("error")
		errLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	st, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	if err := st.RunMigrations(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	tokens := authn.NewTokenIssuer(cfg.JWTSecret)
	resolver := authn.NewResolver(st, st, tokens)
	server := httpapi.NewServer(
		service.NewAuthService(st, tokens),
		service.NewProjectService(st),
		service.NewFlagService(st),
		service.NewEvaluationService(st),
		resolver,
		logger,
	)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: httpapi.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr()).Msg("http server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownSignal

	logger.Info().Msg("shutdown signal received, stopping server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
	logger.Info().Msg("server stopped")
}
