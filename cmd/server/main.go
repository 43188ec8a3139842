package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wedosoft/ticketrag/internal/config"
	"github.com/wedosoft/ticketrag/internal/httpserver"
	"github.com/wedosoft/ticketrag/internal/ingest"
	"github.com/wedosoft/ticketrag/internal/servicecontext"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	sc, err := servicecontext.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building service context: %w", err)
	}
	defer sc.JobStore.Close()

	scheduler := ingest.NewScheduler(cfg.IngestCronSpec, sc.OrchestratorResolver, sc.TenantLister, sc.LastCompletedLookup, sc.Logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting ingest scheduler: %w", err)
	}

	srv := httpserver.NewServer(sc)
	srv.RegisterRoutes()

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sc.Logger.Info("server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		sc.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
