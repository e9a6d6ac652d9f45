package notification

import (
    "context"
    "errors"
    "log/slog"
    "time"

    "github.com/shopspring/decimal"
)

const (
    // KindBalanceAdjusted is emitted after a committed balance adjustment.
    KindBalanceAdjusted = "wallet.balance_adjusted"
)

// Event describes a wallet balance change.
type Event struct {
    Kind       string          `json:"kind"`
    WalletID   string          `json:"wallet_id"`
    Currency   string          `json:"currency"`
    Amount     decimal.Decimal `json:"amount"`
    Balance    decimal.Decimal `json:"balance"`
    Strategy   string          `json:"strategy"`
    OccurredAt time.Time       `json:"occurred_at"`
}

// Notifier delivers events to downstream systems.
type Notifier interface {
    Send(ctx context.Context, event Event) error
}

// LoggerNotifier writes events to the structured logger.
type LoggerNotifier struct {
    logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
    return &LoggerNotifier{logger: logger}
}

// Send writes the event to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, event Event) error {
    if n == nil || n.logger == nil {
        return nil
    }
    n.logger.Info("notification",
        slog.String("kind", event.Kind),
        slog.String("wallet_id", event.WalletID),
        slog.String("currency", event.Currency),
        slog.String("amount", event.Amount.String()),
        slog.String("balance", event.Balance.String()),
        slog.String("strategy", event.Strategy),
    )
    return nil
}

// Multi fans an event out to every notifier, collecting their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, event Event) error {
    var errs []error
    for _, n := range m {
        if n == nil {
            continue
        }
        if err := n.Send(ctx, event); err != nil {
            errs = append(errs, err)
        }
    }
    return errors.Join(errs...)
}
