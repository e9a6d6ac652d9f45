package rates

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fxwallet/fxwallet/internal/logging"
)

// DefaultTTL is how long a loaded rate set is served before the store is
// consulted again.
const DefaultTTL = time.Hour

// DefaultLoadTimeout bounds a single store read shared by concurrent callers.
const DefaultLoadTimeout = 10 * time.Second

type snapshot struct {
	rates    []ExchangeRate
	byCode   map[string]ExchangeRate
	loadedAt time.Time
}

// Cache serves the most recent rate per currency from memory and falls back to
// the Store when the held set is empty or older than the TTL. Readers only ever
// see a complete set: refreshes swap an immutable snapshot.
type Cache struct {
	store       Store
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	current atomic.Pointer[snapshot]
	loads   singleflight.Group
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLoadTimeout overrides DefaultLoadTimeout. Non-positive values are ignored.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// WithClock injects the time source used for expiry checks.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logging.Component(logger, "rate_cache")
	}
}

// NewCache builds an empty cache over store.
func NewCache(store Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store:       store,
		ttl:         DefaultTTL,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
		logger:      logging.Component(nil, "rate_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh replaces the held set and stamps it with the current time.
func (c *Cache) Refresh(rates []ExchangeRate) {
	c.current.Store(newSnapshot(rates, c.now()))
}

// GetAll returns the held set, reloading it from the store first when it is
// empty or expired. Concurrent reloads are collapsed into one store read.
func (c *Cache) GetAll(ctx context.Context) ([]ExchangeRate, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ExchangeRate, len(snap.rates))
	copy(out, snap.rates)
	return out, nil
}

// Get returns the rate for one currency code.
func (c *Cache) Get(ctx context.Context, code string) (ExchangeRate, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return ExchangeRate{}, err
	}
	rate, ok := snap.byCode[NormalizeCode(code)]
	if !ok {
		return ExchangeRate{}, fmt.Errorf("%w: %s", ErrRateNotFound, code)
	}
	return rate, nil
}

func (c *Cache) load(ctx context.Context) (*snapshot, error) {
	if snap := c.fresh(); snap != nil {
		return snap, nil
	}

	// The shared load outlives any single caller; each caller stops waiting
	// when its own context ends.
	results := c.loads.DoChan("all", func() (any, error) {
		if snap := c.fresh(); snap != nil {
			return snap, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		c.logger.Info("loading exchange rates from store")
		rows, err := c.store.All(loadCtx)
		if err != nil {
			c.logger.Error("load exchange rates", slog.String("error", err.Error()))
			return nil, err
		}

		latest := Latest(rows)
		if len(latest) == 0 {
			c.logger.Warn("store returned no exchange rates")
			return newSnapshot(nil, c.now()), nil
		}

		snap := newSnapshot(latest, c.now())
		c.current.Store(snap)
		c.logger.Info("exchange rates cached", slog.Int("count", len(latest)))
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	}
}

func (c *Cache) fresh() *snapshot {
	snap := c.current.Load()
	if snap == nil || len(snap.rates) == 0 {
		return nil
	}
	if c.now().Sub(snap.loadedAt) >= c.ttl {
		return nil
	}
	return snap
}

func newSnapshot(rates []ExchangeRate, at time.Time) *snapshot {
	snap := &snapshot{
		rates:    make([]ExchangeRate, len(rates)),
		byCode:   make(map[string]ExchangeRate, len(rates)),
		loadedAt: at,
	}
	copy(snap.rates, rates)
	for _, r := range snap.rates {
		snap.byCode[NormalizeCode(r.Currency)] = r
	}
	return snap
}

// Latest reduces raw observations to the newest one per currency, ordered by
// currency code.
func Latest(rows []ExchangeRate) []ExchangeRate {
	newest := make(map[string]ExchangeRate, len(rows))
	for _, r := range rows {
		code := NormalizeCode(r.Currency)
		if cur, ok := newest[code]; !ok || r.AsOf.After(cur.AsOf) {
			r.Currency = code
			newest[code] = r
		}
	}

	out := make([]ExchangeRate, 0, len(newest))
	for _, r := range newest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
