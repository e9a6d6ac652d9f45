package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownStrategy is returned for a selector outside the supported set.
	ErrUnknownStrategy = errors.New("unknown balance strategy")
	// ErrInsufficientFunds is returned when a guarded subtraction would go negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Strategy computes a new balance from the current one and an amount already
// expressed in the wallet's currency.
type Strategy func(current, amount decimal.Decimal) (decimal.Decimal, error)

// Selector names one of the supported balance strategies.
type Selector int

const (
	AddFunds Selector = iota
	SubtractFunds
	ForceSubtractFunds
)

var selectorNames = map[Selector]string{
	AddFunds:           "AddFunds",
	SubtractFunds:      "SubtractFunds",
	ForceSubtractFunds: "ForceSubtractFunds",
}

func (s Selector) String() string {
	if name, ok := selectorNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Selector(%d)", int(s))
}

// Selectors lists the valid selector names in declaration order.
func Selectors() []string {
	return []string{AddFunds.String(), SubtractFunds.String(), ForceSubtractFunds.String()}
}

// ParseSelector maps a name such as "addfunds" to its Selector, ignoring case.
func ParseSelector(name string) (Selector, error) {
	name = strings.TrimSpace(name)
	for sel, n := range selectorNames {
		if strings.EqualFold(n, name) {
			return sel, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownStrategy, name, strings.Join(Selectors(), ", "))
}

func addFunds(current, amount decimal.Decimal) (decimal.Decimal, error) {
	return current.Add(amount), nil
}

func subtractFunds(current, amount decimal.Decimal) (decimal.Decimal, error) {
	if current.LessThan(amount) {
		return current, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, current, amount)
	}
	return current.Sub(amount), nil
}

func forceSubtractFunds(current, amount decimal.Decimal) (decimal.Decimal, error) {
	return current.Sub(amount), nil
}

// Resolver maps selectors to strategies. The mapping is fixed at construction
// and read-only afterwards, so one Resolver can be shared across goroutines.
type Resolver struct {
	strategies map[Selector]Strategy
}

func NewResolver() *Resolver {
	return &Resolver{strategies: map[Selector]Strategy{
		AddFunds:           addFunds,
		SubtractFunds:      subtractFunds,
		ForceSubtractFunds: forceSubtractFunds,
	}}
}

// Resolve returns the strategy for sel or ErrUnknownStrategy.
func (r *Resolver) Resolve(sel Selector) (Strategy, error) {
	s, ok := r.strategies[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, sel)
	}
	return s, nil
}
