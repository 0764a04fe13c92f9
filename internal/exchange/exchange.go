// Package exchange supplies the secondary-currency rate. A missing rate means
// "show no conversion" and is never an error for callers.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DaniDevGS/triven-shop/internal/logkey"
)

type RateProvider interface {
	Rate(ctx context.Context) (decimal.Decimal, bool)
}

// Convert multiplies amount by rate when a rate is present.
func Convert(amount decimal.Decimal, rate *decimal.Decimal) *decimal.Decimal {
	if rate == nil {
		return nil
	}
	v := amount.Mul(*rate).Round(2)
	return &v
}

// Lookup fetches the rate once and returns it as a pointer, nil when unavailable.
func Lookup(ctx context.Context, p RateProvider) *decimal.Decimal {
	if p == nil {
		return nil
	}
	rate, ok := p.Rate(ctx)
	if !ok {
		return nil
	}
	return &rate
}

type Static struct {
	Value decimal.Decimal
	Valid bool
}

func (s Static) Rate(context.Context) (decimal.Decimal, bool) {
	return s.Value, s.Valid
}

// Unavailable never returns a rate.
var Unavailable = Static{}

// HTTPProvider reads the rate from a JSON endpoint and caches it for TTL.
// A failed fetch falls back to the last good value when one exists.
type HTTPProvider struct {
	URL    string
	Field  string
	TTL    time.Duration
	Client *http.Client

	mu        sync.Mutex
	cached    decimal.Decimal
	hasCached bool
	fetchedAt time.Time
	now       func() time.Time
}

func NewHTTPProvider(url, field string, ttl time.Duration) *HTTPProvider {
	return &HTTPProvider{
		URL:    url,
		Field:  field,
		TTL:    ttl,
		Client: &http.Client{Timeout: 5 * time.Second},
		now:    time.Now,
	}
}

func (p *HTTPProvider) Rate(ctx context.Context) (decimal.Decimal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasCached && p.now().Sub(p.fetchedAt) < p.TTL {
		return p.cached, true
	}

	rate, err := p.fetch(ctx)
	if err != nil {
		slog.Warn("exchange rate unavailable", slog.String(logkey.ERROR, err.Error()))
		return p.cached, p.hasCached
	}

	p.cached = rate
	p.hasCached = true
	p.fetchedAt = p.now()
	return rate, true
}

func (p *HTTPProvider) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate endpoint returned status %d", resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rate response: %w", err)
	}

	raw, ok := body[p.Field]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate field %q missing", p.Field)
	}

	var rate decimal.Decimal
	if err := rate.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate value: %w", err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive rate %s", rate)
	}
	return rate, nil
}
