package routes

import (
    "context"
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"

    "github.com/fxwallet/fxwallet/internal/rates"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints. Backing
// services that are not configured are reported as "disabled".
func RegisterHealthRoutes(app *fiber.App, d Deps, rateCache *rates.Cache) {
    app.Get("/healthz", func(c *fiber.Ctx) error {
        ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
        defer cancel()

        dbStatus := "disabled"
        if d.DB != nil {
            dbStatus = "ok"
            if err := d.DB.Ping(ctx); err != nil {
                dbStatus = err.Error()
            }
        }
        redisStatus := "disabled"
        if d.Cache != nil {
            redisStatus = "ok"
            if err := d.Cache.Ping(ctx).Err(); err != nil {
                redisStatus = err.Error()
            }
        }

        ratesLoaded := 0
        if all, err := rateCache.GetAll(ctx); err == nil {
            ratesLoaded = len(all)
        }

        status := http.StatusOK
        if !healthy(dbStatus) || !healthy(redisStatus) {
            status = http.StatusServiceUnavailable
        }
        return c.Status(status).JSON(fiber.Map{
            "status":       fiber.Map{"postgres": dbStatus, "redis": redisStatus},
            "rates_loaded": ratesLoaded,
            "timestamp":    time.Now().UTC().Format(time.RFC3339Nano),
        })
    })
}

func healthy(status string) bool {
    return status == "ok" || status == "disabled"
}
