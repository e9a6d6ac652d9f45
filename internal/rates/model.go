package rates

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateNotFound indicates no rate is known for the requested currency.
var ErrRateNotFound = errors.New("exchange rate not found")

// ExchangeRate is one observation of a currency against the reference currency
// of the upstream source: Rate units of Currency buy one reference unit.
type ExchangeRate struct {
	Currency string
	Rate     decimal.Decimal
	AsOf     time.Time
}

// NormalizeCode upper-cases and trims an ISO-4217 code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
