package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"

	"github.com/fxwallet/fxwallet/internal/logging"
	"github.com/fxwallet/fxwallet/internal/rates"
)

// Fetcher returns the latest observations from an upstream source.
type Fetcher interface {
	Latest(ctx context.Context) ([]rates.ExchangeRate, error)
}

// RetryPolicy bounds the fetch retries of a Job.
type RetryPolicy struct {
	Attempts int
	Min      time.Duration
	Max      time.Duration
}

// DefaultRetryPolicy allows four attempts spaced 1s, 2s, 4s apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 4, Min: time.Second, Max: 30 * time.Second}

// Job fetches the latest rates and stores them.
type Job struct {
	fetcher   Fetcher
	persister *Persister
	retry     RetryPolicy
	logger    *slog.Logger
}

func NewJob(fetcher Fetcher, persister *Persister, retry RetryPolicy, logger *slog.Logger) *Job {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &Job{
		fetcher:   fetcher,
		persister: persister,
		retry:     retry,
		logger:    logging.Component(logger, "fetch_rates_job"),
	}
}

func (j *Job) Name() string { return "fetch_and_store_rates" }

// Run performs one fetch-and-store cycle. Nothing is written when the fetch
// yields no rates.
func (j *Job) Run(ctx context.Context) error {
	fetched, err := j.fetch(ctx)
	if err != nil {
		return err
	}
	if len(fetched) == 0 {
		j.logger.Warn("upstream returned no exchange rates")
		return nil
	}
	return j.persister.Persist(ctx, fetched)
}

func (j *Job) fetch(ctx context.Context) ([]rates.ExchangeRate, error) {
	b := &backoff.Backoff{Min: j.retry.Min, Max: j.retry.Max, Factor: 2, Jitter: true}

	var lastErr error
	for attempt := 1; attempt <= j.retry.Attempts; attempt++ {
		fetched, err := j.fetcher.Latest(ctx)
		if err == nil {
			return fetched, nil
		}
		lastErr = err
		if attempt == j.retry.Attempts {
			break
		}

		wait := b.Duration()
		j.logger.Warn("fetch exchange rates failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	j.logger.Error("fetch exchange rates", slog.Int("attempts", j.retry.Attempts), slog.String("error", lastErr.Error()))
	return nil, fmt.Errorf("fetch exchange rates after %d attempts: %w", j.retry.Attempts, lastErr)
}
