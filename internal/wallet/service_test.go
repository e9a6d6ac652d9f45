package wallet

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/fxwallet/fxwallet/internal/logging"
    "github.com/fxwallet/fxwallet/internal/notification"
    "github.com/fxwallet/fxwallet/internal/rates"
    "github.com/fxwallet/fxwallet/internal/strategy"
)

type recordingNotifier struct {
    mu     sync.Mutex
    events []notification.Event
    err    error
}

func (n *recordingNotifier) Send(_ context.Context, e notification.Event) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.events = append(n.events, e)
    return n.err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newRateCache(t *testing.T, quotes map[string]string) *rates.Cache {
    t.Helper()
    store := rates.NewMemoryStore()
    asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
    var rows []rates.ExchangeRate
    for code, rate := range quotes {
        rows = append(rows, rates.ExchangeRate{Currency: code, Rate: dec(rate), AsOf: asOf})
    }
    require.NoError(t, store.Upsert(context.Background(), rows))
    return rates.NewCache(store)
}

func newTestService(t *testing.T, quotes map[string]string) (*Service, *recordingNotifier) {
    t.Helper()
    n := &recordingNotifier{}
    svc := NewService(NewMemoryRepository(), newRateCache(t, quotes), strategy.NewResolver(), n, logging.Discard())
    return svc, n
}

func mustCreate(t *testing.T, svc *Service, currency string) Wallet {
    t.Helper()
    w, err := svc.Create(context.Background(), currency)
    if err != nil {
        t.Fatalf("create wallet: %v", err)
    }
    return w
}

func adjust(t *testing.T, svc *Service, id, amount, currency string, sel strategy.Selector) Wallet {
    t.Helper()
    w, err := svc.Adjust(context.Background(), AdjustInput{WalletID: id, Amount: dec(amount), Currency: currency, Selector: sel})
    if err != nil {
        t.Fatalf("adjust %s %s %s: %v", sel, amount, currency, err)
    }
    return w
}

func TestServiceCreateNormalizesCurrency(t *testing.T) {
    svc, _ := newTestService(t, nil)

    w := mustCreate(t, svc, "usd")
    assert.Equal(t, "USD", w.Currency)
    assert.True(t, w.Balance.IsZero())
    assert.NotEmpty(t, w.ID)

    fetched, err := svc.Get(context.Background(), w.ID)
    require.NoError(t, err)
    assert.Equal(t, w.ID, fetched.ID)
}

func TestServiceCreateRejectsInvalidCurrency(t *testing.T) {
    svc, _ := newTestService(t, nil)

    for _, code := range []string{"", "US", "USDT", "U$D"} {
        _, err := svc.Create(context.Background(), code)
        assert.ErrorIs(t, err, ErrInvalidCurrency, "currency %q", code)
    }
}

func TestServiceAddFundsSameCurrency(t *testing.T) {
    svc, n := newTestService(t, nil)
    w := mustCreate(t, svc, "EUR")

    updated := adjust(t, svc, w.ID, "42.17", "EUR", strategy.AddFunds)
    assert.True(t, updated.Balance.Equal(dec("42.17")))

    balance, err := svc.Balance(context.Background(), w.ID, "")
    require.NoError(t, err)
    assert.True(t, balance.Equal(dec("42.17")))

    require.Len(t, n.events, 1)
    assert.Equal(t, notification.KindBalanceAdjusted, n.events[0].Kind)
    assert.Equal(t, "AddFunds", n.events[0].Strategy)
}

func TestServiceAddFundsCrossCurrency(t *testing.T) {
    svc, _ := newTestService(t, map[string]string{"USD": "1.0", "EUR": "0.9"})
    w := mustCreate(t, svc, "USD")

    adjust(t, svc, w.ID, "100", "USD", strategy.AddFunds)
    updated := adjust(t, svc, w.ID, "50", "EUR", strategy.AddFunds)

    assert.Equal(t, "155.56", updated.Balance.StringFixed(2))
}

func TestServiceCrossCurrencyRoundTrip(t *testing.T) {
    svc, _ := newTestService(t, map[string]string{"USD": "1.0856", "GBP": "0.8571", "EUR": "1"})
    usd := mustCreate(t, svc, "USD")
    gbp := mustCreate(t, svc, "GBP")

    inUSD := adjust(t, svc, usd.ID, "100", "GBP", strategy.AddFunds).Balance
    back := adjust(t, svc, gbp.ID, inUSD.String(), "USD", strategy.AddFunds).Balance

    diff := back.Sub(dec("100")).Abs()
    assert.True(t, diff.LessThan(dec("0.0000001")), "round trip drifted to %s", back)
}

func TestServiceSubtractFundsInsufficient(t *testing.T) {
    svc, n := newTestService(t, nil)
    w := mustCreate(t, svc, "EUR")
    adjust(t, svc, w.ID, "10", "EUR", strategy.AddFunds)

    _, err := svc.Adjust(context.Background(), AdjustInput{WalletID: w.ID, Amount: dec("10.01"), Currency: "EUR", Selector: strategy.SubtractFunds})
    assert.ErrorIs(t, err, strategy.ErrInsufficientFunds)

    balance, err := svc.Balance(context.Background(), w.ID, "EUR")
    require.NoError(t, err)
    assert.True(t, balance.Equal(dec("10")))
    assert.Len(t, n.events, 1)
}

func TestServiceForceSubtractGoesNegative(t *testing.T) {
    svc, _ := newTestService(t, nil)
    w := mustCreate(t, svc, "EUR")
    adjust(t, svc, w.ID, "10", "EUR", strategy.AddFunds)

    updated := adjust(t, svc, w.ID, "25", "EUR", strategy.ForceSubtractFunds)
    assert.True(t, updated.Balance.Equal(dec("-15")))
}

func TestServiceAdjustRejectsNonPositiveAmount(t *testing.T) {
    svc, _ := newTestService(t, nil)

    for _, amount := range []string{"0", "-1"} {
        _, err := svc.Adjust(context.Background(), AdjustInput{WalletID: "does-not-exist", Amount: dec(amount), Currency: "EUR", Selector: strategy.AddFunds})
        assert.ErrorIs(t, err, ErrInvalidAmount)
    }
}

func TestServiceAdjustRequiresCurrency(t *testing.T) {
    svc, n := newTestService(t, map[string]string{"USD": "1.0", "EUR": "0.9"})
    w := mustCreate(t, svc, "USD")

    for _, code := range []string{"", "  ", "EURO"} {
        _, err := svc.Adjust(context.Background(), AdjustInput{WalletID: w.ID, Amount: dec("50"), Currency: code, Selector: strategy.AddFunds})
        assert.ErrorIs(t, err, ErrInvalidCurrency, "currency %q", code)
    }

    // Validation happens before the wallet lookup.
    _, err := svc.Adjust(context.Background(), AdjustInput{WalletID: "missing", Amount: dec("50"), Selector: strategy.AddFunds})
    assert.ErrorIs(t, err, ErrInvalidCurrency)

    fetched, err := svc.Get(context.Background(), w.ID)
    require.NoError(t, err)
    assert.True(t, fetched.Balance.IsZero())
    assert.Empty(t, n.events)
}

func TestServiceAdjustUnknownWallet(t *testing.T) {
    svc, _ := newTestService(t, nil)

    _, err := svc.Adjust(context.Background(), AdjustInput{WalletID: "missing", Amount: dec("1"), Currency: "EUR", Selector: strategy.AddFunds})
    assert.ErrorIs(t, err, ErrWalletNotFound)

    _, err = svc.Balance(context.Background(), "missing", "")
    assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestServiceAdjustUnknownSelectorLeavesBalance(t *testing.T) {
    svc, n := newTestService(t, nil)
    w := mustCreate(t, svc, "EUR")

    _, err := svc.Adjust(context.Background(), AdjustInput{WalletID: w.ID, Amount: dec("5"), Currency: "EUR", Selector: strategy.Selector(99)})
    assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)

    fetched, err := svc.Get(context.Background(), w.ID)
    require.NoError(t, err)
    assert.True(t, fetched.Balance.IsZero())
    assert.Empty(t, n.events)
}

func TestServiceAdjustMissingRate(t *testing.T) {
    svc, _ := newTestService(t, map[string]string{"USD": "1.08"})
    w := mustCreate(t, svc, "USD")

    _, err := svc.Adjust(context.Background(), AdjustInput{WalletID: w.ID, Amount: dec("5"), Currency: "JPY", Selector: strategy.AddFunds})
    assert.ErrorIs(t, err, rates.ErrRateNotFound)
}

func TestServiceBalanceInOtherCurrency(t *testing.T) {
    svc, _ := newTestService(t, map[string]string{"USD": "1.08", "EUR": "1"})
    w := mustCreate(t, svc, "EUR")
    adjust(t, svc, w.ID, "100", "EUR", strategy.AddFunds)

    balance, err := svc.Balance(context.Background(), w.ID, "usd")
    require.NoError(t, err)
    assert.True(t, balance.Equal(dec("108")))

    base, err := svc.BaseCurrency(context.Background(), w.ID)
    require.NoError(t, err)
    assert.Equal(t, "EUR", base)
}

func TestServiceNotifierFailureDoesNotFailAdjust(t *testing.T) {
    svc, n := newTestService(t, nil)
    n.err = errors.New("broker unavailable")
    w := mustCreate(t, svc, "EUR")

    updated := adjust(t, svc, w.ID, "3", "EUR", strategy.AddFunds)
    assert.True(t, updated.Balance.Equal(dec("3")))
}

func TestServiceConcurrentAdjustmentsSerialize(t *testing.T) {
    svc, _ := newTestService(t, nil)
    w := mustCreate(t, svc, "EUR")

    var wg sync.WaitGroup
    for i := 0; i < 50; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := svc.Adjust(context.Background(), AdjustInput{WalletID: w.ID, Amount: dec("2"), Currency: "EUR", Selector: strategy.AddFunds})
            assert.NoError(t, err)
        }()
    }
    wg.Wait()

    for i := 0; i < 60; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, _ = svc.Adjust(context.Background(), AdjustInput{WalletID: w.ID, Amount: dec("2"), Currency: "EUR", Selector: strategy.SubtractFunds})
        }()
    }
    wg.Wait()

    balance, err := svc.Balance(context.Background(), w.ID, "")
    require.NoError(t, err)
    assert.True(t, balance.IsZero(), "balance %s", balance)
}
