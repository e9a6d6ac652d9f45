package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BalanceFunc computes the new balance from the wallet as read under lock.
// Returning an error aborts the update without writing.
type BalanceFunc func(current Wallet) (decimal.Decimal, error)

// Repository persists wallets.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	// UpdateBalance serialises writers per wallet: apply sees the balance
	// no other adjustment can change until the new value is stored.
	UpdateBalance(ctx context.Context, id string, apply BalanceFunc) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, balance, currency, created_at, updated_at)
        VALUES ($1, $2::text::numeric, $3, $4, $5)`,
		walletID, wallet.Balance.String(), wallet.Currency, wallet.CreatedAt.UTC(), wallet.UpdatedAt.UTC())
	return err
}

// Get fetches a wallet by identifier. Identifiers that are not UUIDs cannot
// exist and report ErrWalletNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletUUID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	row := r.db.QueryRow(ctx, `SELECT id, balance::text, currency, created_at, updated_at
        FROM wallets WHERE id = $1`, walletUUID)
	return scanWallet(row, id)
}

// UpdateBalance locks the wallet row, applies fn and writes the result in one
// transaction.
func (r *PostgresRepository) UpdateBalance(ctx context.Context, id string, apply BalanceFunc) (Wallet, error) {
	walletUUID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT id, balance::text, currency, created_at, updated_at
        FROM wallets WHERE id = $1 FOR UPDATE`, walletUUID)
	w, err := scanWallet(row, id)
	if err != nil {
		return Wallet{}, err
	}

	next, err := apply(w)
	if err != nil {
		return Wallet{}, err
	}

	updatedAt := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1::text::numeric, updated_at = $2 WHERE id = $3`,
		next.String(), updatedAt, walletUUID); err != nil {
		return Wallet{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, err
	}

	w.Balance = next
	w.UpdatedAt = updatedAt
	return w, nil
}

func scanWallet(row pgx.Row, id string) (Wallet, error) {
	var (
		w          Wallet
		idVal      uuid.UUID
		rawBalance string
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&idVal, &rawBalance, &w.Currency, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
		}
		return Wallet{}, err
	}
	balance, err := decimal.NewFromString(rawBalance)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse balance of wallet %s: %w", id, err)
	}
	w.ID = idVal.String()
	w.Balance = balance
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}
