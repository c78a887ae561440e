// Package openweather is a client for the OpenWeatherMap 2.5 current weather
// and 5 day / 3 hour forecast endpoints.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"github.com/caner-kocamaz/next-wp/internal/httpx"
	"github.com/caner-kocamaz/next-wp/internal/provider"
)

const baseURL = "https://api.openweathermap.org/data/2.5"

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL    string
	httpClient HTTPClient
	query      url.Values
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUnits sets the units parameter (imperial, metric, standard).
func WithUnits(units string) Option {
	return func(c *Client) {
		if units != "" {
			c.query.Set("units", units)
		}
	}
}

func New(key string, options ...Option) *Client {
	c := &Client{baseURL: baseURL, httpClient: http.DefaultClient, query: url.Values{"units": {"imperial"}}}
	if key != "" {
		c.query.Set("appid", key)
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.query.Has("appid") }

// CurrentResponse represents the /weather response. Main and Wind are
// required; a body without them is malformed.
type CurrentResponse struct {
	Name    string      `json:"name"`
	Main    *Main       `json:"main"`
	Weather []Condition `json:"weather"`
	Wind    *Wind       `json:"wind"`
}

type Main struct {
	Temp     float64 `json:"temp"`
	Humidity int     `json:"humidity"`
}

type Wind struct {
	Speed float64 `json:"speed"`
}

// Condition is one entry of a weather array.
type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// ForecastResponse represents the /forecast response. List is required and
// every entry must carry Main.
type ForecastResponse struct {
	List []ForecastEntry `json:"list"`
}

// ForecastEntry is one 3-hour slot.
type ForecastEntry struct {
	DT      int64         `json:"dt"`
	Main    *ForecastMain `json:"main"`
	Weather []Condition   `json:"weather"`
}

type ForecastMain struct {
	TempMax float64 `json:"temp_max"`
	TempMin float64 `json:"temp_min"`
}

// Current fetches current conditions for city.
func (c *Client) Current(ctx context.Context, city string) (*CurrentResponse, error) {
	var res CurrentResponse
	if err := c.get(ctx, "weather", city, &res); err != nil {
		return nil, err
	}
	switch {
	case res.Main == nil:
		return nil, fmt.Errorf("openweather weather: %w: missing main", provider.ErrUpstreamMalformed)
	case res.Wind == nil:
		return nil, fmt.Errorf("openweather weather: %w: missing wind", provider.ErrUpstreamMalformed)
	}
	return &res, nil
}

// Forecast fetches the 3-hourly forecast for city.
func (c *Client) Forecast(ctx context.Context, city string) (*ForecastResponse, error) {
	var res ForecastResponse
	if err := c.get(ctx, "forecast", city, &res); err != nil {
		return nil, err
	}
	if res.List == nil {
		return nil, fmt.Errorf("openweather forecast: %w: missing list", provider.ErrUpstreamMalformed)
	}
	for i, e := range res.List {
		if e.Main == nil {
			return nil, fmt.Errorf("openweather forecast: %w: entry %d missing main", provider.ErrUpstreamMalformed, i)
		}
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, path, city string, v any) error {
	if !c.Configured() {
		return fmt.Errorf("openweather: %w", provider.ErrMissingCredentials)
	}
	query := maps.Clone(c.query)
	query.Set("q", city)

	body, _, err := httpx.Get(ctx, c.httpClient, fmt.Sprintf("%s/%s?%s", c.baseURL, path, query.Encode()), nil)
	if err != nil {
		return fmt.Errorf("openweather %s: %w: %w", path, provider.ErrUpstreamUnavailable, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("openweather %s: %w: %w", path, provider.ErrUpstreamMalformed, err)
	}
	return nil
}
