package market

import (
	"context"

	"go.uber.org/zap"

	"github.com/caner-kocamaz/next-wp/internal/aggregate"
)

// TrendingItem is one row of the trending companies widget. Change is a
// percentage.
type TrendingItem struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
	Href   string  `json:"href"`
}

// DefaultTrending is the list shown when no live prices are available.
func DefaultTrending() []TrendingItem {
	return []TrendingItem{
		{ID: 1, Name: "United Therapeutics Cor...", Symbol: "UTHR", Price: 486.0, Change: -0.5, Href: "#"},
		{ID: 2, Name: "Kohl's Corporation", Symbol: "KSS", Price: 24.59, Change: 2.03, Href: "#"},
		{ID: 3, Name: "KeyCorp", Symbol: "KEY", Price: 18.39, Change: -0.05, Href: "#"},
		{ID: 4, Name: "Intel Corporation", Symbol: "INTC", Price: 40.56, Change: 10.28, Href: "#"},
		{ID: 5, Name: "Apple Inc.", Symbol: "AAPL", Price: 278.36, Change: 0.29, Href: "#"},
	}
}

// Trending returns the trending list, refreshing prices through the index
// route when a provider is configured. Items whose quote fails keep their
// static values.
func (s *Service) Trending(ctx context.Context) []TrendingItem {
	items := DefaultTrending()
	plan, err := Select(s.sources.Credentials())
	if err != nil {
		return items
	}
	src := s.sources.route(plan.Indices)
	if src == nil {
		return items
	}

	symbols := make([]string, len(items))
	for i, it := range items {
		symbols[i] = it.Symbol
	}
	results := aggregate.Map(ctx, symbols, src.Quote)
	for i, r := range results {
		if !r.OK() {
			s.log.Warn("market: trending quote failed", zap.String("symbol", r.Key), zap.Error(r.Err))
			continue
		}
		if r.Value.Price == 0 {
			continue
		}
		items[i].Price = r.Value.Price
		items[i].Change = r.Value.ChangePercent
	}
	return items
}
