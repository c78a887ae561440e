// Package market aggregates index, volatility and crypto quotes from the
// configured providers and falls back to static data per group.
package market

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/caner-kocamaz/next-wp/internal/aggregate"
	"github.com/caner-kocamaz/next-wp/internal/provider"
)

// Snapshot is the /api/market payload. VIX is reported in the crypto group.
type Snapshot struct {
	Indices []provider.Quote `json:"indices"`
	Crypto  []provider.Quote `json:"crypto"`
}

// Outcome classifies how a snapshot was produced.
type Outcome string

const (
	OutcomeLive     Outcome = "live"
	OutcomePartial  Outcome = "partial"
	OutcomeFallback Outcome = "fallback"
)

// Sources are the quote endpoints available to the service. A nil source
// means its provider has no API key.
type Sources struct {
	Finnhub      provider.QuoteSource
	GlobalQuote  provider.QuoteSource
	ExchangeRate provider.QuoteSource
}

// Credentials derives the selector input from which sources are present.
func (s Sources) Credentials() Credentials {
	return Credentials{
		Finnhub:      s.Finnhub != nil,
		AlphaVantage: s.GlobalQuote != nil && s.ExchangeRate != nil,
	}
}

func (s Sources) route(r Route) provider.QuoteSource {
	switch r {
	case RouteFinnhub:
		return s.Finnhub
	case RouteGlobalQuote:
		return s.GlobalQuote
	case RouteExchangeRate:
		return s.ExchangeRate
	default:
		return nil
	}
}

// Symbols lists what is requested for each group.
type Symbols struct {
	Indices    []string
	Volatility string
	Crypto     []string
}

// DefaultSymbols are the symbols shown by the market widget.
func DefaultSymbols() Symbols {
	return Symbols{Indices: []string{"SPY", "QQQ"}, Volatility: "VIX", Crypto: []string{"BTC"}}
}

type Service struct {
	sources Sources
	symbols Symbols
	log     *zap.Logger
}

func NewService(sources Sources, symbols Symbols, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{sources: sources, symbols: symbols, log: log}
}

const (
	groupIndices    = "indices"
	groupVolatility = "volatility"
	groupCrypto     = "crypto"
)

type call struct {
	group  string
	symbol string
	source provider.QuoteSource
}

// Snapshot fetches every planned symbol concurrently and composes the
// payload. It never returns an error: failures degrade to static data.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, Outcome) {
	plan, err := Select(s.sources.Credentials())
	if err != nil {
		s.log.Info("market: no provider credentials, serving static payload")
		return Static(), OutcomeFallback
	}

	s.log.Debug("market: plan selected",
		zap.Stringer("indices", plan.Indices),
		zap.Stringer("volatility", plan.Volatility),
		zap.Stringer("crypto", plan.Crypto))

	calls := s.calls(plan)
	if len(calls) == 0 {
		s.log.Info("market: nothing to fetch, serving static payload")
		return Static(), OutcomeFallback
	}

	tasks := make([]aggregate.Task[provider.Quote], len(calls))
	for i, c := range calls {
		tasks[i] = aggregate.Task[provider.Quote]{
			Key: c.group + ":" + c.symbol,
			Run: func(ctx context.Context) (provider.Quote, error) {
				q, err := c.source.Quote(ctx, c.symbol)
				if err != nil {
					return provider.Quote{}, err
				}
				if c.group != groupCrypto {
					q.Name = provider.DisplayName(c.symbol)
				}
				return q, nil
			},
		}
	}
	results := aggregate.All(ctx, tasks)

	if pe := aggregate.FirstPanic(results); pe != nil {
		s.log.Error("market: aggregation panicked, serving static payload",
			zap.String("task", pe.Key), zap.Any("panic", pe.Value), zap.ByteString("stack", pe.Stack))
		return Static(), OutcomeFallback
	}

	var indices, crypto, volatility []provider.Quote
	failed := 0
	for i, r := range results {
		c := calls[i]
		if !r.OK() {
			failed++
			s.log.Warn("market: quote failed",
				zap.String("symbol", c.symbol),
				zap.String("source", c.source.Name()),
				zap.Bool("missing_credentials", errors.Is(r.Err, provider.ErrMissingCredentials)),
				zap.Error(r.Err))
			continue
		}
		switch c.group {
		case groupIndices:
			indices = append(indices, r.Value)
		case groupVolatility:
			volatility = append(volatility, r.Value)
		case groupCrypto:
			crypto = append(crypto, r.Value)
		}
	}

	snap, outcome := Compose(indices, append(crypto, volatility...))
	if outcome == OutcomeLive && failed > 0 {
		outcome = OutcomePartial
	}
	s.log.Debug("market: snapshot composed",
		zap.String("outcome", string(outcome)), zap.Int("calls", len(calls)), zap.Int("failed", failed))
	return snap, outcome
}

func (s *Service) calls(plan Plan) []call {
	var out []call
	if src := s.sources.route(plan.Indices); src != nil {
		for _, sym := range s.symbols.Indices {
			out = append(out, call{group: groupIndices, symbol: sym, source: src})
		}
	}
	if src := s.sources.route(plan.Volatility); src != nil && s.symbols.Volatility != "" {
		out = append(out, call{group: groupVolatility, symbol: s.symbols.Volatility, source: src})
	}
	if src := s.sources.route(plan.Crypto); src != nil {
		for _, sym := range s.symbols.Crypto {
			out = append(out, call{group: groupCrypto, symbol: sym, source: src})
		}
	}
	return out
}

// Compose applies the per-group fallback rule. crypto must already include
// the volatility quote after the crypto quotes. A group with no live quotes
// is replaced by its static list; when both are empty the whole static
// payload is returned.
func Compose(indices, crypto []provider.Quote) (Snapshot, Outcome) {
	switch {
	case len(indices) == 0 && len(crypto) == 0:
		return Static(), OutcomeFallback
	case len(indices) == 0:
		return Snapshot{Indices: StaticIndices(), Crypto: crypto}, OutcomePartial
	case len(crypto) == 0:
		return Snapshot{Indices: indices, Crypto: StaticCrypto()}, OutcomePartial
	default:
		return Snapshot{Indices: indices, Crypto: crypto}, OutcomeLive
	}
}
