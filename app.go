package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"agritrace/internal/config"
	"agritrace/internal/metrics"
	"agritrace/internal/router"
	"agritrace/internal/service"
	"agritrace/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app is the wired service graph shared by the subcommands.
type app struct {
	store    store.Store
	services router.Services
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := ensureDir(cfg.Backup.Dir); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	return &app{
		store: st,
		services: router.Services{
			Registry: service.NewRegistry(st, service.RegistryConfig{
				QRBaseURL:        cfg.Demo.QRBaseURL,
				EnforceOwnership: cfg.Security.EnforceOwnership,
			}, logger, m),
			Ledger:   service.NewLedger(st, cfg.Security.EnforceOwnership, cfg.Demo.Seed, logger, m),
			Users:    service.NewUsers(st, cfg.Security.BcryptCost, logger),
			Audit:    service.NewAuditTrail(st, cfg.Security.EncryptionKey),
			Backups:  service.NewBackups(st, cfg.Backup.Dir, cfg.Security.EncryptionKey, logger),
			Metrics:  m,
			Gatherer: reg,
		},
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func dirOf(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Dir(path)
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
