package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is the durable table of rate observations.
type Store interface {
	// All returns every stored observation, unfiltered.
	All(ctx context.Context) ([]ExchangeRate, error)
	// Upsert writes observations keyed by (currency, date): an existing pair
	// gets its rate updated, a new pair is inserted.
	Upsert(ctx context.Context, rates []ExchangeRate) error
}

// PostgresStore keeps observations in the currency_rates table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed rate store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// All loads every observation. Numeric values travel as text so no precision
// is lost on the way to decimal.Decimal.
func (s *PostgresStore) All(ctx context.Context) ([]ExchangeRate, error) {
	rows, err := s.db.Query(ctx, `SELECT currency, rate::text, as_of FROM currency_rates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExchangeRate
	for rows.Next() {
		var (
			currency string
			rawRate  string
			asOf     time.Time
		)
		if err := rows.Scan(&currency, &rawRate, &asOf); err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(rawRate)
		if err != nil {
			return nil, fmt.Errorf("parse rate for %s: %w", currency, err)
		}
		out = append(out, ExchangeRate{Currency: currency, Rate: rate, AsOf: asOf.UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert writes all observations in a single transaction.
func (s *PostgresStore) Upsert(ctx context.Context, rates []ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	const query = `INSERT INTO currency_rates (currency, rate, as_of)
        VALUES ($1, $2::text::numeric, $3::date)
        ON CONFLICT (currency, as_of) DO UPDATE SET rate = EXCLUDED.rate`

	batch := &pgx.Batch{}
	for _, r := range rates {
		batch.Queue(query, NormalizeCode(r.Currency), r.Rate.String(), r.AsOf.UTC())
	}

	results := tx.SendBatch(ctx, batch)
	for range rates {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	if err := results.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
