package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// CurrencyConverter fetches exchange rates and caches them. Rates move
// slowly enough that a multi-hour cache is fine for chat conversions.
type CurrencyConverter struct {
	client   *http.Client
	ratesURL string
	cacheFor time.Duration
	now      func() time.Time

	mu        sync.Mutex
	rates     map[string]float64
	fetchedAt time.Time
}

func NewCurrencyConverter(ratesURL string, cacheFor time.Duration) *CurrencyConverter {
	return &CurrencyConverter{
		client:   &http.Client{Timeout: 10 * time.Second},
		ratesURL: ratesURL,
		cacheFor: cacheFor,
		now:      time.Now,
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Convert changes amount from one ISO currency code to another using
// cached rates, refreshing them when stale.
func (c *CurrencyConverter) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	rates, err := c.currentRates(ctx)
	if err != nil {
		return 0, err
	}

	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	fromRate, okFrom := rates[from]
	toRate, okTo := rates[to]
	if !okFrom {
		return 0, fmt.Errorf("unknown currency %q", from)
	}
	if !okTo {
		return 0, fmt.Errorf("unknown currency %q", to)
	}
	return amount / fromRate * toRate, nil
}

func (c *CurrencyConverter) currentRates(ctx context.Context) (map[string]float64, error) {
	c.mu.Lock()
	if c.rates != nil && c.now().Sub(c.fetchedAt) < c.cacheFor {
		rates := c.rates
		c.mu.Unlock()
		return rates, nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ratesURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		// A stale cache beats no answer.
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.rates != nil {
			return c.rates, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates fetch returned status %d", resp.StatusCode)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rates response missing rates")
	}
	if payload.Base != "" {
		payload.Rates[strings.ToUpper(payload.Base)] = 1
	}

	c.mu.Lock()
	c.rates = payload.Rates
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return payload.Rates, nil
}
