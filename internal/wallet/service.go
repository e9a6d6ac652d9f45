package wallet

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/fxwallet/fxwallet/internal/logging"
    "github.com/fxwallet/fxwallet/internal/notification"
    "github.com/fxwallet/fxwallet/internal/rates"
    "github.com/fxwallet/fxwallet/internal/strategy"
)

// RateSource resolves the current rate for a currency code.
type RateSource interface {
    Get(ctx context.Context, code string) (rates.ExchangeRate, error)
}

// Service owns wallet creation, balance queries and adjustments.
type Service struct {
    repo     Repository
    rates    RateSource
    resolver *strategy.Resolver
    notifier notification.Notifier
    logger   *slog.Logger
    now      func() time.Time
}

// NewService builds a wallet service instance. A nil notifier disables events.
func NewService(repo Repository, rateSource RateSource, resolver *strategy.Resolver, notifier notification.Notifier, logger *slog.Logger) *Service {
    if resolver == nil {
        resolver = strategy.NewResolver()
    }
    return &Service{
        repo:     repo,
        rates:    rateSource,
        resolver: resolver,
        notifier: notifier,
        logger:   logging.Component(logger, "wallet_service"),
        now:      time.Now,
    }
}

// Create provisions an empty wallet in the given currency.
func (s *Service) Create(ctx context.Context, currency string) (Wallet, error) {
    code, err := normalizeCurrency(currency)
    if err != nil {
        return Wallet{}, err
    }

    now := s.now().UTC()
    wallet := Wallet{
        ID:        uuid.NewString(),
        Balance:   decimal.Zero,
        Currency:  code,
        CreatedAt: now,
        UpdatedAt: now,
    }

    if err := s.repo.Create(ctx, wallet); err != nil {
        s.logger.Error("create wallet", slog.String("currency", code), slog.String("error", err.Error()))
        return Wallet{}, err
    }

    s.logger.Info("wallet created", slog.String("wallet_id", wallet.ID), slog.String("currency", code))
    return wallet, nil
}

// Get retrieves a wallet.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
    wallet, err := s.repo.Get(ctx, id)
    if err != nil {
        s.logFailure("get wallet", id, err)
        return Wallet{}, err
    }
    return wallet, nil
}

// BaseCurrency returns the wallet's own currency code.
func (s *Service) BaseCurrency(ctx context.Context, id string) (string, error) {
    wallet, err := s.Get(ctx, id)
    if err != nil {
        return "", err
    }
    return wallet.Currency, nil
}

// Balance returns the wallet balance, expressed in target when target names a
// currency other than the wallet's. The conversion multiplies by the target's
// rate only, unlike Adjust which uses the ratio of both rates.
func (s *Service) Balance(ctx context.Context, id, target string) (decimal.Decimal, error) {
    wallet, err := s.Get(ctx, id)
    if err != nil {
        return decimal.Zero, err
    }

    target = strings.TrimSpace(target)
    if target == "" || strings.EqualFold(target, wallet.Currency) {
        return wallet.Balance, nil
    }

    rate, err := s.rates.Get(ctx, target)
    if err != nil {
        s.logFailure("balance rate lookup", id, err)
        return decimal.Zero, err
    }
    return wallet.Balance.Mul(rate.Rate), nil
}

// Adjust converts the amount into the wallet currency and applies the selected
// strategy under the repository's per-wallet lock.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (Wallet, error) {
    if !in.Amount.IsPositive() {
        return Wallet{}, ErrInvalidAmount
    }
    from, err := normalizeCurrency(in.Currency)
    if err != nil {
        return Wallet{}, err
    }

    wallet, err := s.Get(ctx, in.WalletID)
    if err != nil {
        return Wallet{}, err
    }

    converted, err := s.convert(ctx, in.Amount, from, wallet.Currency)
    if err != nil {
        s.logFailure("convert amount", in.WalletID, err)
        return Wallet{}, err
    }

    apply, err := s.resolver.Resolve(in.Selector)
    if err != nil {
        s.logFailure("resolve strategy", in.WalletID, err)
        return Wallet{}, err
    }

    updated, err := s.repo.UpdateBalance(ctx, in.WalletID, func(current Wallet) (decimal.Decimal, error) {
        return apply(current.Balance, converted)
    })
    if err != nil {
        s.logFailure("update balance", in.WalletID, err)
        return Wallet{}, err
    }

    s.logger.Info("balance adjusted",
        slog.String("wallet_id", updated.ID),
        slog.String("strategy", in.Selector.String()),
        slog.String("amount", converted.String()),
        slog.String("balance", updated.Balance.String()),
    )
    s.notify(ctx, updated, converted, in.Selector)
    return updated, nil
}

// convert expresses amount (in from) in the wallet currency. Rates are quoted
// against a common reference, so the factor is rate(to) / rate(from).
func (s *Service) convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
    if strings.EqualFold(from, to) {
        return amount, nil
    }

    fromRate, err := s.rates.Get(ctx, from)
    if err != nil {
        return decimal.Zero, err
    }
    toRate, err := s.rates.Get(ctx, to)
    if err != nil {
        return decimal.Zero, err
    }
    if fromRate.Rate.IsZero() {
        return decimal.Zero, fmt.Errorf("%w: zero rate for %s", rates.ErrRateNotFound, from)
    }
    return amount.Mul(toRate.Rate.Div(fromRate.Rate)), nil
}

func (s *Service) notify(ctx context.Context, w Wallet, amount decimal.Decimal, sel strategy.Selector) {
    if s.notifier == nil {
        return
    }
    event := notification.Event{
        Kind:       notification.KindBalanceAdjusted,
        WalletID:   w.ID,
        Currency:   w.Currency,
        Amount:     amount,
        Balance:    w.Balance,
        Strategy:   sel.String(),
        OccurredAt: s.now().UTC(),
    }
    if err := s.notifier.Send(ctx, event); err != nil {
        s.logger.Warn("balance event not delivered", slog.String("wallet_id", w.ID), slog.String("error", err.Error()))
    }
}

// logFailure keeps expected domain outcomes at warn and store failures at error.
func (s *Service) logFailure(op, walletID string, err error) {
    attrs := []any{slog.String("wallet_id", walletID), slog.String("error", err.Error())}
    switch {
    case errors.Is(err, ErrWalletNotFound),
        errors.Is(err, rates.ErrRateNotFound),
        errors.Is(err, strategy.ErrInsufficientFunds),
        errors.Is(err, strategy.ErrUnknownStrategy):
        s.logger.Warn(op, attrs...)
    default:
        s.logger.Error(op, attrs...)
    }
}

func normalizeCurrency(currency string) (string, error) {
    code := rates.NormalizeCode(currency)
    if len(code) != 3 {
        return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
    }
    for _, r := range code {
        if r < 'A' || r > 'Z' {
            return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
        }
    }
    return code, nil
}
