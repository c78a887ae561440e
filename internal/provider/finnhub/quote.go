package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/caner-kocamaz/next-wp/internal/httpx"
	"github.com/caner-kocamaz/next-wp/internal/provider"
)

// QuoteResponse is the /quote payload. Fields are pointers because Finnhub
// sends null for symbols it does not know.
type QuoteResponse struct {
	Current       *float64 `json:"c"`
	Change        *float64 `json:"d"`
	PercentChange *float64 `json:"dp"`
	High          *float64 `json:"h"`
	Low           *float64 `json:"l"`
	Open          *float64 `json:"o"`
	PreviousClose *float64 `json:"pc"`
	Timestamp     int64    `json:"t"`
}

// Quote fetches a real-time quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	if !c.query.Has("token") {
		return provider.Quote{}, fmt.Errorf("finnhub: %w", provider.ErrMissingCredentials)
	}

	query := maps.Clone(c.query)
	query.Set("symbol", symbol)
	url := fmt.Sprintf("%s/quote?%s", c.baseURL, query.Encode())

	body, _, err := httpx.Get(ctx, c.httpClient, url, nil)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("finnhub %s: %w: %w", symbol, provider.ErrUpstreamUnavailable, err)
	}

	var res QuoteResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return provider.Quote{}, fmt.Errorf("finnhub %s: %w: %w", symbol, provider.ErrUpstreamMalformed, err)
	}
	return Normalize(symbol, res), nil
}

// Normalize maps a quote payload onto provider.Quote. Missing numbers become 0.
func Normalize(symbol string, res QuoteResponse) provider.Quote {
	return provider.Quote{
		Symbol:        symbol,
		Name:          symbol,
		Price:         deref(res.Current),
		Change:        deref(res.Change),
		ChangePercent: deref(res.PercentChange),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
