package middleware

import (
    "log/slog"
    "net/http"
    "strconv"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/redis/go-redis/v9"
)

const rateLimitWindow = time.Minute

// RateLimit allows maxPerMin requests per client IP in fixed one-minute
// windows counted in Redis. Without Redis, or when Redis fails, requests pass.
func RateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
    if maxPerMin <= 0 {
        maxPerMin = 10
    }
    retryAfter := strconv.Itoa(int(rateLimitWindow.Seconds()))

    return func(c *fiber.Ctx) error {
        if cache == nil {
            return c.Next()
        }
        key := "fxwallet:rl:" + c.IP()
        cnt, err := cache.Incr(c.UserContext(), key).Result()
        if err != nil {
            logger.Warn("rate limit counter unavailable", slog.Any("error", err))
            return c.Next()
        }
        if cnt == 1 {
            cache.Expire(c.UserContext(), key, rateLimitWindow)
        }
        if cnt > int64(maxPerMin) {
            c.Set(fiber.HeaderRetryAfter, retryAfter)
            return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
        }
        return c.Next()
    }
}
