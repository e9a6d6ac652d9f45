package ingest

import (
	"context"
	"log/slog"

	"github.com/fxwallet/fxwallet/internal/logging"
	"github.com/fxwallet/fxwallet/internal/rates"
)

// Persister writes fetched rates to the durable store.
type Persister struct {
	store  rates.Store
	logger *slog.Logger
}

func NewPersister(store rates.Store, logger *slog.Logger) *Persister {
	return &Persister{store: store, logger: logging.Component(logger, "rate_persister")}
}

// Persist upserts every observation by (currency, date). An empty batch is
// logged and skipped.
func (p *Persister) Persist(ctx context.Context, batch []rates.ExchangeRate) error {
	if len(batch) == 0 {
		p.logger.Warn("no exchange rates to persist")
		return nil
	}
	if err := p.store.Upsert(ctx, batch); err != nil {
		p.logger.Error("persist exchange rates", slog.Int("count", len(batch)), slog.String("error", err.Error()))
		return err
	}
	p.logger.Info("exchange rates persisted", slog.Int("count", len(batch)))
	return nil
}
