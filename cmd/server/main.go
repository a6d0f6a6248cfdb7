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

	"golang.org/x/sync/errgroup"

	"dim/internal/agent"
	"dim/internal/platform/config"
	"dim/internal/platform/health"
	"dim/internal/platform/logger"
	"dim/internal/platform/metrics"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("agent stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := agent.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize agent: %w", err)
	}
	defer a.Close()

	metrics.BuildInfo(health.Version, cfg.Server.Environment, cfg.Ledger.Mode, cfg.Events.Mode)
	log.Info("initializing dim agent",
		"addr", cfg.Server.Addr,
		"address", a.Address(),
		"ledger_mode", cfg.Ledger.Mode,
		"events_mode", cfg.Events.Mode,
		"consent_store", cfg.Consent.Store,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	for _, w := range a.Workers() {
		g.Go(func() error {
			err := w.Run(gctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("%s: %w", w.Name, err)
		})
	}
	return g.Wait()
}
