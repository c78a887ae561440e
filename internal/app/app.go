// Package app wires configuration into services, stores and the HTTP handler.
package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/caner-kocamaz/next-wp/internal/api"
	"github.com/caner-kocamaz/next-wp/internal/cache"
	"github.com/caner-kocamaz/next-wp/internal/config"
	"github.com/caner-kocamaz/next-wp/internal/content"
	"github.com/caner-kocamaz/next-wp/internal/httpx"
	"github.com/caner-kocamaz/next-wp/internal/market"
	"github.com/caner-kocamaz/next-wp/internal/provider/alphavantage"
	"github.com/caner-kocamaz/next-wp/internal/provider/finnhub"
	"github.com/caner-kocamaz/next-wp/internal/provider/openweather"
	"github.com/caner-kocamaz/next-wp/internal/provider/ratelimit"
	"github.com/caner-kocamaz/next-wp/internal/provider/wordpress"
	"github.com/caner-kocamaz/next-wp/internal/weather"
)

// App holds the services built from one Config.
type App struct {
	Market  *market.Service
	Weather *weather.Service
	Content *content.Service
	Store   cache.Store

	cfg    *config.Config
	log    *zap.Logger
	closer func() error
}

// New builds every service. Upstream clients share one tuned HTTP client.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) *App {
	hc := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	a := &App{cfg: cfg, log: log, closer: func() error { return nil }}
	a.Market = market.NewService(marketSources(cfg.Market, hc, log), market.Symbols{
		Indices:    cfg.Market.Indices,
		Volatility: cfg.Market.Volatility,
		Crypto:     cfg.Market.Crypto,
	}, log.Named("market"))

	ow := openweather.New(cfg.Weather.APIKey,
		openweather.WithBaseURL(cfg.Weather.Endpoint),
		openweather.WithHTTPClient(hc),
		openweather.WithUnits(cfg.Weather.Units))
	a.Weather = weather.NewService(ow, cfg.Weather.DefaultCity, cfg.Weather.Location(), log.Named("weather"))

	wp := wordpress.New(cfg.Content.WordPressURL,
		wordpress.WithHTTPClient(hc),
		wordpress.WithBasicAuth(cfg.Content.Username, cfg.Content.AppPassword))
	if !wp.Configured() {
		log.Info("WORDPRESS_URL not set; post endpoints return an empty feed")
	}
	a.Content = content.NewService(wp, cfg.Content.PerPage, log.Named("content"))

	a.Store = a.buildStore(ctx)
	return a
}

func marketSources(cfg config.Market, hc *httpx.Client, log *zap.Logger) market.Sources {
	var src market.Sources
	if key := cfg.Finnhub.APIKey; key != "" {
		fh := finnhub.New(key, finnhub.WithBaseURL(cfg.Finnhub.Endpoint), finnhub.WithHTTPClient(hc))
		src.Finnhub = ratelimit.Wrap(fh, cfg.Finnhub.MaxRequestsPerMinute, cfg.Finnhub.Burst, 0)
	}
	if key := cfg.AlphaVantage.APIKey; key != "" {
		av := alphavantage.New(key, alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint), alphavantage.WithHTTPClient(hc))
		gated := ratelimit.Share(
			cfg.AlphaVantage.MaxRequestsPerMinute,
			cfg.AlphaVantage.Burst,
			time.Duration(cfg.AlphaVantage.MinRequestIntervalSec)*time.Second,
			av.Equities(), av.Crypto("USD"),
		)
		src.GlobalQuote, src.ExchangeRate = gated[0], gated[1]
	}
	if src.Finnhub == nil && src.GlobalQuote == nil {
		log.Info("no market API keys set; /api/market serves static data")
	}
	return src
}

func (a *App) buildStore(ctx context.Context) cache.Store {
	c := a.cfg.Cache
	switch c.Backend {
	case "none":
		return cache.Nop{}
	case "redis":
		r := cache.NewRedis(cache.RedisOptions{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB, Prefix: c.KeyPrefix})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := r.Ping(pingCtx); err != nil {
			a.log.Warn("redis unavailable, using in-memory response cache", zap.String("addr", c.RedisAddr), zap.Error(err))
			_ = r.Close()
			return cache.NewMemory(c.MaxItems)
		}
		a.closer = r.Close
		return r
	default:
		return cache.NewMemory(c.MaxItems)
	}
}

// Revalidate converts the configured windows into durations.
func (a *App) Revalidate() api.Revalidate {
	rv := api.DefaultRevalidate()
	if s := a.cfg.Market.RevalidateSec; s > 0 {
		rv.Market = time.Duration(s) * time.Second
		rv.Trending = rv.Market
	}
	if s := a.cfg.Weather.RevalidateSec; s > 0 {
		rv.Weather = time.Duration(s) * time.Second
	}
	if s := a.cfg.Content.RevalidateSec; s > 0 {
		rv.Posts = time.Duration(s) * time.Second
	}
	return rv
}

// Handler returns the full HTTP handler with middleware.
func (a *App) Handler() http.Handler {
	h := api.NewHandler(a.Market, a.Weather, a.Content, a.log.Named("api"))
	return api.Wrap(api.SetupRoutes(h, a.Store, a.Revalidate()), a.log.Named("http"))
}

// Close releases the response store.
func (a *App) Close() error { return a.closer() }
