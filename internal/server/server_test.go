package server

import (
    "context"
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    miniredis "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"

    "github.com/fxwallet/fxwallet/internal/config"
    "github.com/fxwallet/fxwallet/internal/logging"
    "github.com/fxwallet/fxwallet/internal/rates"
    "github.com/fxwallet/fxwallet/internal/routes"
)

const testAPIKey = "test-key"

func newTestServer(t *testing.T, limit int) *Server {
    t.Helper()
    mr := miniredis.RunT(t)
    cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { cache.Close() })

    hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
    require.NoError(t, err)

    store := rates.NewMemoryStore()
    asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
    require.NoError(t, store.Upsert(context.Background(), []rates.ExchangeRate{
        {Currency: "USD", Rate: decimal.RequireFromString("1.0"), AsOf: asOf},
        {Currency: "EUR", Rate: decimal.RequireFromString("0.9"), AsOf: asOf},
    }))

    srv, err := New(routes.Deps{
        Cfg: config.Config{
            AppName:            "fxwallet-test",
            AppEnv:             "test",
            IdempotencyTTL:     time.Minute,
            RateCacheTTL:       time.Hour,
            APIKeyHash:         string(hash),
            RateLimitPerMinute: limit,
        },
        Cache:     cache,
        Logger:    logging.Discard(),
        RateStore: store,
    })
    require.NoError(t, err)
    return srv
}

func call(t *testing.T, srv *Server, method, target, key string) (*http.Response, map[string]any) {
    t.Helper()
    req := httptest.NewRequest(method, target, nil)
    if key != "" {
        req.Header.Set("x-api-key", key)
    }
    resp, err := srv.App().Test(req)
    require.NoError(t, err)
    defer resp.Body.Close()

    raw, err := io.ReadAll(resp.Body)
    require.NoError(t, err)
    body := map[string]any{}
    if len(raw) > 0 {
        require.NoError(t, json.Unmarshal(raw, &body), string(raw))
    }
    return resp, body
}

func TestHealthzNeedsNoKey(t *testing.T) {
    srv := newTestServer(t, 100)

    resp, body := call(t, srv, http.MethodGet, "/healthz", "")
    assert.Equal(t, http.StatusOK, resp.StatusCode)
    assert.EqualValues(t, 2, body["rates_loaded"])
}

func TestWalletRoutesRequireAPIKey(t *testing.T) {
    srv := newTestServer(t, 100)

    resp, body := call(t, srv, http.MethodPost, "/api/wallets?currency=USD", "")
    assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
    assert.Equal(t, "missing api key", body["error"])

    resp, _ = call(t, srv, http.MethodPost, "/api/wallets?currency=USD", "nope")
    assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWalletFlowThroughServer(t *testing.T) {
    srv := newTestServer(t, 100)

    resp, created := call(t, srv, http.MethodPost, "/api/wallets?currency=usd", testAPIKey)
    require.Equal(t, http.StatusCreated, resp.StatusCode)
    id := created["id"].(string)

    resp, _ = call(t, srv, http.MethodPost, "/api/wallets/"+id+"/adjustbalance?amount=100&currency=USD&strategy=AddFunds", testAPIKey)
    require.Equal(t, http.StatusNoContent, resp.StatusCode)
    resp, _ = call(t, srv, http.MethodPost, "/api/wallets/"+id+"/adjustbalance?amount=50&currency=EUR&strategy=AddFunds", testAPIKey)
    require.Equal(t, http.StatusNoContent, resp.StatusCode)

    resp, body := call(t, srv, http.MethodGet, "/api/wallets/"+id, testAPIKey)
    require.Equal(t, http.StatusOK, resp.StatusCode)
    balance, err := decimal.NewFromString(body["balance"].(string))
    require.NoError(t, err)
    assert.Equal(t, "155.56", balance.StringFixed(2))

    resp, body = call(t, srv, http.MethodPost, "/api/wallets/"+id+"/adjustbalance?amount=1000&currency=USD&strategy=SubtractFunds", testAPIKey)
    assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
    assert.Contains(t, body["error"], "insufficient funds")
}

func TestRateLimitAppliesToAPI(t *testing.T) {
    srv := newTestServer(t, 2)

    for i := 0; i < 2; i++ {
        resp, _ := call(t, srv, http.MethodGet, "/api/wallets/unknown", testAPIKey)
        assert.Equal(t, http.StatusNotFound, resp.StatusCode)
    }
    resp, body := call(t, srv, http.MethodGet, "/api/wallets/unknown", testAPIKey)
    assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
    assert.Equal(t, "60", resp.Header.Get("Retry-After"))
    assert.NotEmpty(t, body["error"])

    resp, _ = call(t, srv, http.MethodGet, "/healthz", "")
    assert.Equal(t, http.StatusOK, resp.StatusCode)
}
