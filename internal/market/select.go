package market

import "github.com/caner-kocamaz/next-wp/internal/provider"

// Credentials records which quote providers have an API key configured.
type Credentials struct {
	Finnhub      bool
	AlphaVantage bool
}

// Route names the upstream endpoint a symbol group is fetched from.
type Route int

const (
	RouteNone Route = iota
	RouteFinnhub
	RouteGlobalQuote
	RouteExchangeRate
)

func (r Route) String() string {
	switch r {
	case RouteFinnhub:
		return "finnhub"
	case RouteGlobalQuote:
		return "alphavantage:global_quote"
	case RouteExchangeRate:
		return "alphavantage:exchange_rate"
	default:
		return "none"
	}
}

// Plan is the routing decision for one market request.
type Plan struct {
	Indices    Route
	Volatility Route
	Crypto     Route
}

// Select decides where each symbol group is fetched from. Finnhub is
// preferred for indices and volatility; crypto is only available through
// Alpha Vantage exchange rates. With no credentials at all it returns
// provider.ErrMissingCredentials and no call must be attempted.
func Select(c Credentials) (Plan, error) {
	if !c.Finnhub && !c.AlphaVantage {
		return Plan{}, provider.ErrMissingCredentials
	}
	var p Plan
	if c.Finnhub {
		p.Indices, p.Volatility = RouteFinnhub, RouteFinnhub
	} else {
		p.Indices, p.Volatility = RouteGlobalQuote, RouteGlobalQuote
	}
	if c.AlphaVantage {
		p.Crypto = RouteExchangeRate
	}
	return p, nil
}
