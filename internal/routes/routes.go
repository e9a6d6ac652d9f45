package routes

import (
    "fmt"
    "log/slog"

    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/recover"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"

    "github.com/fxwallet/fxwallet/internal/config"
    "github.com/fxwallet/fxwallet/internal/logging"
    "github.com/fxwallet/fxwallet/internal/middleware"
    "github.com/fxwallet/fxwallet/internal/notification"
    "github.com/fxwallet/fxwallet/internal/rates"
    "github.com/fxwallet/fxwallet/internal/strategy"
    "github.com/fxwallet/fxwallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
    Cfg    config.Config
    DB     *pgxpool.Pool
    Cache  *redis.Client
    Logger *slog.Logger

    // RateStore overrides the store picked from DB, e.g. to share an
    // in-memory store with an in-process ingestion job.
    RateStore rates.Store
    // Notifier receives balance events; defaults to the logger.
    Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
    if !d.Cfg.IsDev() {
        if d.DB == nil {
            return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
        }
        if d.Cache == nil {
            return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
        }
    }
    logger := d.Logger
    if logger == nil {
        logger = logging.Discard()
    }

    app.Use(recover.New())
    app.Use(middleware.RequestID())
    app.Use(middleware.Audit(logging.Component(logger, "http")))

    rateStore := d.RateStore
    if rateStore == nil {
        if d.DB != nil {
            rateStore = rates.NewPostgresStore(d.DB)
        } else {
            rateStore = rates.NewMemoryStore()
        }
    }
    rateCache := rates.NewCache(rateStore, rates.WithTTL(d.Cfg.RateCacheTTL), rates.WithLogger(logger))

    var walletRepo wallet.Repository
    if d.DB != nil {
        walletRepo = wallet.NewPostgresRepository(d.DB)
    } else {
        walletRepo = wallet.NewMemoryRepository()
    }

    notifier := d.Notifier
    if notifier == nil {
        notifier = notification.NewLoggerNotifier(logging.Component(logger, "notifier"))
    }
    walletSvc := wallet.NewService(walletRepo, rateCache, strategy.NewResolver(), notifier, logger)
    walletHandler := wallet.NewHandler(walletSvc)

    RegisterHealthRoutes(app, d, rateCache)

    api := app.Group("/api", middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMinute, logger))
    if d.Cfg.APIKeyHash != "" {
        api.Use(middleware.APIKey(d.Cfg.APIKeyHash))
    } else {
        logger.Warn("API_KEY_HASH not set, wallet routes are unauthenticated")
    }
    if d.Cache != nil {
        api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, logger))
    }
    RegisterWalletRoutes(api, walletHandler)

    return nil
}
