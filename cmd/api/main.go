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
	"github.com/fxwallet/fxwallet/internal/notification"
	"github.com/fxwallet/fxwallet/internal/rates"
	"github.com/fxwallet/fxwallet/internal/routes"
	"github.com/fxwallet/fxwallet/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()
	deps := routes.Deps{Cfg: cfg, Logger: logger}

	if cfg.DatabaseURL != "" {
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
		deps.DB = db
	}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		deps.Cache = cache
	}

	notifiers := notification.Multi{notification.NewLoggerNotifier(logging.Component(logger, "notifier"))}
	if len(cfg.KafkaBrokers) > 0 {
		writer, err := infra.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Error("configure kafka", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Warn("close kafka writer", "error", err)
			}
		}()
		notifiers = append(notifiers, notification.NewKafkaNotifier(writer))
	}
	deps.Notifier = notifiers

	// Without Postgres the worker cannot share rates with us, so ingest in-process.
	var scheduler *ingest.Scheduler
	if deps.DB == nil {
		store := rates.NewMemoryStore()
		deps.RateStore = store

		job := ingest.NewJob(
			ecb.NewProvider(cfg.ECBURL, nil, logger),
			ingest.NewPersister(store, logger),
			ingest.DefaultRetryPolicy,
			logger,
		)
		scheduler = ingest.NewScheduler(logger)
		if err := scheduler.AddJob(cfg.FetchSchedule, job); err != nil {
			logger.Error("schedule rate ingestion", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	srv, err := server.New(deps)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
