package market

import "github.com/caner-kocamaz/next-wp/internal/provider"

// StaticIndices is served when no index quote could be fetched.
func StaticIndices() []provider.Quote {
	return []provider.Quote{
		{Symbol: "SPY", Name: "S&P 500", Price: 6859.5, Change: 8.45, ChangePercent: 0.12},
		{Symbol: "QQQ", Name: "NASDAQ", Price: 25482, Change: 171.75, ChangePercent: 0.68},
	}
}

// StaticCrypto is served when neither crypto nor volatility quotes could be fetched.
func StaticCrypto() []provider.Quote {
	return []provider.Quote{
		{Symbol: "BTC", Name: "Bitcoin", Price: 90505.05, Change: -880.11, ChangePercent: -0.96},
		{Symbol: "VIX", Name: "VIX", Price: 16.35, Change: -0.84, ChangePercent: -4.89},
	}
}

// Static returns the whole-payload fallback. Each call returns fresh slices.
func Static() Snapshot {
	return Snapshot{Indices: StaticIndices(), Crypto: StaticCrypto()}
}
