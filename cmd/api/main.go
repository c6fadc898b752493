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

	"github.com/onkernel/hypedesk/lib/logger"
	mw "github.com/onkernel/hypedesk/lib/middleware"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application terminated", "error", err)
		os.Exit(1)
	}
}

func run() error {
	app, cleanup, err := initializeApp()
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer cleanup()

	log := app.Logger
	if app.Config.JwtSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.AddToContext(ctx, log)

	// Reconcile persisted records against the runtime before serving
	if err := app.InstanceManager.SyncAll(ctx); err != nil {
		log.WarnContext(ctx, "initial reconcile incomplete", "error", err)
	}

	accessLog := mw.NewAccessLogger(logger.Config{
		Level:  logger.ParseLevel(app.Config.LogLevel),
		Output: os.Stdout,
	}, app.Otel.LogHandler)
	handler, err := app.ApiService.Handler(accessLog, app.Otel.Meter)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", app.Config.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Error group for coordinated shutdown
	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		monitorCtx := logger.AddToContext(gctx, log.With("subsystem", logger.SubsystemMonitor))
		return app.Monitor.Run(monitorCtx)
	})

	grp.Go(func() error {
		log.InfoContext(gctx, "starting hypedesk API server", "port", app.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(gctx, "http server error", "error", err)
			return err
		}
		return nil
	})

	// Shutdown handler
	grp.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown http server", "error", err)
			return err
		}

		log.Info("http server shutdown complete")
		return nil
	})

	return grp.Wait()
}
