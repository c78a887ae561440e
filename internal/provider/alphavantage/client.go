package alphavantage

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"github.com/caner-kocamaz/next-wp/internal/httpx"
	"github.com/caner-kocamaz/next-wp/internal/provider"
)

const baseURL = "https://www.alphavantage.co/query"

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Alpha Vantage query API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	query      url.Values
}

// Option is a configuration option for the Alpha Vantage client.
type Option func(*Client)

// WithBaseURL sets the query endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(key string, options ...Option) *Client {
	c := &Client{baseURL: baseURL, httpClient: http.DefaultClient, query: url.Values{}}
	if key != "" {
		c.query.Set("apikey", key)
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Call performs one query and decodes the variant expected for fn.
func (c *Client) Call(ctx context.Context, fn Function, params url.Values) (Response, error) {
	if !c.query.Has("apikey") {
		return nil, fmt.Errorf("alphavantage: %w", provider.ErrMissingCredentials)
	}
	query := maps.Clone(c.query)
	query.Set("function", string(fn))
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	body, _, err := httpx.Get(ctx, c.httpClient, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s: %w: %w", fn, provider.ErrUpstreamUnavailable, err)
	}
	res, err := Decode(fn, body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s: %w", fn, err)
	}
	return res, nil
}

// GlobalQuote fetches a delayed equity quote.
func (c *Client) GlobalQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	res, err := c.Call(ctx, FunctionGlobalQuote, url.Values{"symbol": {symbol}})
	if err != nil {
		return provider.Quote{}, err
	}
	return Normalize(symbol, res)
}

// ExchangeRate fetches the from->to rate as a quote on from.
func (c *Client) ExchangeRate(ctx context.Context, from, to string) (provider.Quote, error) {
	res, err := c.Call(ctx, FunctionExchangeRate, url.Values{"from_currency": {from}, "to_currency": {to}})
	if err != nil {
		return provider.Quote{}, err
	}
	return Normalize(from, res)
}

// Equities exposes GLOBAL_QUOTE as a provider.QuoteSource.
func (c *Client) Equities() provider.QuoteSource { return equitySource{c} }

// Crypto exposes CURRENCY_EXCHANGE_RATE against market as a provider.QuoteSource.
func (c *Client) Crypto(market string) provider.QuoteSource {
	if market == "" {
		market = "USD"
	}
	return cryptoSource{c: c, market: market}
}

type equitySource struct{ c *Client }

func (s equitySource) Name() string { return "AlphaVantage:GLOBAL_QUOTE" }

func (s equitySource) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	return s.c.GlobalQuote(ctx, symbol)
}

type cryptoSource struct {
	c      *Client
	market string
}

func (s cryptoSource) Name() string { return "AlphaVantage:CURRENCY_EXCHANGE_RATE" }

func (s cryptoSource) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	return s.c.ExchangeRate(ctx, symbol, s.market)
}
