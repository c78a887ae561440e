package provider

import (
	"context"
	"errors"
)

// Quote is the normalized shape returned by all quote sources.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// QuoteSource fetches a single symbol from one upstream endpoint.
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
}

var (
	// ErrMissingCredentials means no API key is configured for the upstream.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrUpstreamUnavailable covers transport failures and non-2xx statuses.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamMalformed means the body lacked the expected fields or did not decode.
	ErrUpstreamMalformed = errors.New("upstream malformed")
)

var displayNames = map[string]string{
	"SPY": "S&P 500",
	"QQQ": "NASDAQ",
	"VIX": "VIX",
	"BTC": "Bitcoin",
}

// DisplayName returns the label shown for a known symbol, else the symbol itself.
func DisplayName(symbol string) string {
	if n, ok := displayNames[symbol]; ok {
		return n
	}
	return symbol
}
