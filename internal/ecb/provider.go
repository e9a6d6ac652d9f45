package ecb

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fxwallet/fxwallet/internal/logging"
	"github.com/fxwallet/fxwallet/internal/rates"
)

// DefaultURL is the ECB daily reference rate feed.
const DefaultURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

// ReferenceCurrency is the currency every ECB rate is quoted against.
const ReferenceCurrency = "EUR"

// ErrEmptyFeed is returned when the feed parses but holds no dated rates.
var ErrEmptyFeed = errors.New("ecb feed contained no rates")

// envelope mirrors the gesmes document: Cube > Cube[time] > Cube[currency,rate].
// Tags carry no namespace so both the gesmes and eurofxref elements match.
type envelope struct {
	Cube struct {
		Days []struct {
			Time  string `xml:"time,attr"`
			Rates []struct {
				Currency string `xml:"currency,attr"`
				Rate     string `xml:"rate,attr"`
			} `xml:"Cube"`
		} `xml:"Cube"`
	} `xml:"Cube"`
}

// Provider fetches reference rates from the European Central Bank.
type Provider struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewProvider builds a provider for url. An empty url selects DefaultURL and a
// nil client gets a 30 second timeout.
func NewProvider(url string, client *http.Client, logger *slog.Logger) *Provider {
	if url == "" {
		url = DefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Provider{url: url, client: client, logger: logging.Component(logger, "ecb_provider")}
}

// Latest downloads and parses the feed. The reference currency is appended at
// rate 1 for every published day so that it can take part in conversions.
func (p *Provider) Latest(ctx context.Context) ([]rates.ExchangeRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ecb rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch ecb rates: unexpected status %d", resp.StatusCode)
	}

	out, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	p.logger.Info("fetched ecb rates", slog.Int("count", len(out)))
	return out, nil
}

// Parse decodes an eurofxref document.
func Parse(r io.Reader) ([]rates.ExchangeRate, error) {
	var doc envelope
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode ecb xml: %w", err)
	}

	var out []rates.ExchangeRate
	for _, d := range doc.Cube.Days {
		asOf, err := time.Parse("2006-01-02", d.Time)
		if err != nil {
			return nil, fmt.Errorf("parse ecb date %q: %w", d.Time, err)
		}
		for _, c := range d.Rates {
			rate, err := decimal.NewFromString(c.Rate)
			if err != nil {
				return nil, fmt.Errorf("parse ecb rate for %s: %w", c.Currency, err)
			}
			out = append(out, rates.ExchangeRate{Currency: rates.NormalizeCode(c.Currency), Rate: rate, AsOf: asOf})
		}
		out = append(out, rates.ExchangeRate{Currency: ReferenceCurrency, Rate: decimal.NewFromInt(1), AsOf: asOf})
	}
	if len(out) == 0 {
		return nil, ErrEmptyFeed
	}
	return out, nil
}
