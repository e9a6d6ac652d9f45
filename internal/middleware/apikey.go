package middleware

import (
    "crypto/sha256"
    "net/http"
    "strings"
    "sync"

    "github.com/gofiber/fiber/v2"
    "golang.org/x/crypto/bcrypt"
)

const apiKeyHeader = "X-Api-Key"

// APIKey rejects requests whose x-api-key header does not match the bcrypt
// hash. Accepted keys are remembered by digest so bcrypt runs once per key.
func APIKey(hash string) fiber.Handler {
    hashed := []byte(strings.TrimSpace(hash))
    var accepted sync.Map

    return func(c *fiber.Ctx) error {
        key := strings.TrimSpace(c.Get(apiKeyHeader))
        if key == "" {
            return fiber.NewError(http.StatusUnauthorized, "missing api key")
        }

        digest := sha256.Sum256([]byte(key))
        if _, ok := accepted.Load(digest); ok {
            return c.Next()
        }

        if err := bcrypt.CompareHashAndPassword(hashed, []byte(key)); err != nil {
            return fiber.NewError(http.StatusUnauthorized, "invalid api key")
        }
        accepted.Store(digest, struct{}{})
        return c.Next()
    }
}
