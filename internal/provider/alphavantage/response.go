package alphavantage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/caner-kocamaz/next-wp/internal/provider"
)

// Function is the Alpha Vantage "function" query parameter.
type Function string

const (
	FunctionGlobalQuote  Function = "GLOBAL_QUOTE"
	FunctionExchangeRate Function = "CURRENCY_EXCHANGE_RATE"
)

// Response is one decoded Alpha Vantage payload: *GlobalQuote or *ExchangeRate.
type Response interface {
	function() Function
}

// GlobalQuote is the "Global Quote" object. Every value arrives as a string.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

func (*GlobalQuote) function() Function { return FunctionGlobalQuote }

// ExchangeRate is the "Realtime Currency Exchange Rate" object.
type ExchangeRate struct {
	FromCode      string `json:"1. From_Currency Code"`
	FromName      string `json:"2. From_Currency Name"`
	ToCode        string `json:"3. To_Currency Code"`
	ToName        string `json:"4. To_Currency Name"`
	Rate          string `json:"5. Exchange Rate"`
	LastRefreshed string `json:"6. Last Refreshed"`
	TimeZone      string `json:"7. Time Zone"`
	Bid           string `json:"8. Bid Price"`
	Ask           string `json:"9. Ask Price"`
}

func (*ExchangeRate) function() Function { return FunctionExchangeRate }

type envelope struct {
	GlobalQuote  *GlobalQuote  `json:"Global Quote"`
	ExchangeRate *ExchangeRate `json:"Realtime Currency Exchange Rate"`
	Note         string        `json:"Note"`
	Information  string        `json:"Information"`
	ErrorMessage string        `json:"Error Message"`
}

// Decode parses body as the variant expected for fn.
//
// Throttling notices come back as 200 with a "Note" or "Information" field and
// are reported as ErrUpstreamUnavailable. A missing or empty variant object is
// ErrUpstreamMalformed.
func Decode(fn Function, body []byte) (Response, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrUpstreamMalformed, err)
	}
	if msg := firstNonEmpty(env.Note, env.Information); msg != "" {
		return nil, fmt.Errorf("%w: %s", provider.ErrUpstreamUnavailable, msg)
	}
	if env.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: %s", provider.ErrUpstreamMalformed, env.ErrorMessage)
	}

	switch fn {
	case FunctionGlobalQuote:
		if env.GlobalQuote == nil || *env.GlobalQuote == (GlobalQuote{}) {
			return nil, fmt.Errorf("%w: no Global Quote in response", provider.ErrUpstreamMalformed)
		}
		return env.GlobalQuote, nil
	case FunctionExchangeRate:
		if env.ExchangeRate == nil || *env.ExchangeRate == (ExchangeRate{}) {
			return nil, fmt.Errorf("%w: no Realtime Currency Exchange Rate in response", provider.ErrUpstreamMalformed)
		}
		return env.ExchangeRate, nil
	default:
		return nil, fmt.Errorf("alphavantage: unsupported function %q", fn)
	}
}

// Normalize maps a decoded variant onto provider.Quote.
func Normalize(symbol string, r Response) (provider.Quote, error) {
	switch v := r.(type) {
	case *GlobalQuote:
		return provider.Quote{
			Symbol:        symbol,
			Name:          symbol,
			Price:         ParseNumber(v.Price),
			Change:        ParseNumber(v.Change),
			ChangePercent: ParsePercent(v.ChangePercent),
		}, nil
	case *ExchangeRate:
		// The exchange endpoint carries no deltas.
		return provider.Quote{
			Symbol: symbol,
			Name:   provider.DisplayName(symbol),
			Price:  ParseNumber(v.Rate),
		}, nil
	case nil:
		return provider.Quote{}, fmt.Errorf("%w: nil response", provider.ErrUpstreamMalformed)
	default:
		return provider.Quote{}, fmt.Errorf("%w: unexpected response %T", provider.ErrUpstreamMalformed, r)
	}
}

// ParseNumber parses a numeric string, returning 0 when it does not parse.
func ParseNumber(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// ParsePercent parses strings like "-0.96%".
func ParsePercent(s string) float64 {
	return ParseNumber(strings.TrimSuffix(strings.TrimSpace(s), "%"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
