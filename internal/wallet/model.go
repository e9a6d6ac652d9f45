package wallet

import (
    "errors"
    "time"

    "github.com/shopspring/decimal"

    "github.com/fxwallet/fxwallet/internal/strategy"
)

var (
    ErrWalletNotFound  = errors.New("wallet not found")
    ErrInvalidAmount   = errors.New("amount must be greater than zero")
    ErrInvalidCurrency = errors.New("currency must be a three-letter ISO code")
)

// Wallet is a single-currency balance.
type Wallet struct {
    ID        string
    Balance   decimal.Decimal
    Currency  string
    CreatedAt time.Time
    UpdatedAt time.Time
}

// AdjustInput describes one balance adjustment. Amount is expressed in
// Currency, which may differ from the wallet's own currency.
type AdjustInput struct {
    WalletID string
    Amount   decimal.Decimal
    Currency string
    Selector strategy.Selector
}
