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

	"agritrace/internal/router"
	"agritrace/internal/util"

	"github.com/spf13/cobra"
)

func serveRun(_ *cobra.Command, _ []string) {
	cfg, logger := commonRun()

	// debug mode runs without configured secrets; generate throwaway ones
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret, _ = util.RandomString(48)
		logger.Warn("jwt.secret not set, using a random secret for this process")
	}
	if cfg.Security.EncryptionKey == "" {
		cfg.Security.EncryptionKey, _ = util.RandomString(48)
		logger.Warn("security.encryption_key not set, audit records and backups will not survive a restart")
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Demo.SeedOnStartup {
		summary, err := a.services.Ledger.InitDemoData(ctx)
		if err != nil {
			logger.Error("seed demo data", "error", err)
		} else {
			logger.Info(summary.Message, "component", programName)
		}
	}

	readHeaderTimeout, err := time.ParseDuration(cfg.Server.ReadHeaderTimeout)
	if err != nil || readHeaderTimeout <= 0 {
		readHeaderTimeout = 30 * time.Second
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:           router.SetupRouter(cfg, a.services, logger),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "component", programName, "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("run server", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down", "component", programName)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}
	slog.Info("server stopped", "component", programName)
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Run:   serveRun,
	}
}
