package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fxwallet/fxwallet/internal/config"
	"github.com/fxwallet/fxwallet/internal/ecb"
	"github.com/fxwallet/fxwallet/internal/infra"
	"github.com/fxwallet/fxwallet/internal/ingest"
	"github.com/fxwallet/fxwallet/internal/logging"
	"github.com/fxwallet/fxwallet/internal/rates"
)

// The worker polls the ECB feed and upserts rates into Postgres, where the
// API's rate cache picks them up once its TTL lapses.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName+"-worker")

	ctx := context.Background()
	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := infra.EnsureSchema(ctx, db); err != nil {
		logger.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	job := ingest.NewJob(
		ecb.NewProvider(cfg.ECBURL, nil, logger),
		ingest.NewPersister(rates.NewPostgresStore(db), logger),
		ingest.DefaultRetryPolicy,
		logger,
	)

	scheduler := ingest.NewScheduler(logger)
	if err := scheduler.AddJob(cfg.FetchSchedule, job); err != nil {
		logger.Error("schedule rate ingestion", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	scheduler.Stop(shutdownCtx)

	logger.Info("worker exited cleanly")
}
