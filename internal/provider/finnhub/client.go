package finnhub

import (
	"net/http"
	"net/url"
)

const baseURL = "https://finnhub.io/api/v1"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=finnhub_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Finnhub API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// Option is a configuration option for the Finnhub client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a Finnhub client. An empty key is allowed so that the caller can
// decide on fallback behavior; every request then fails with ErrMissingCredentials.
func New(key string, options ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		query:      url.Values{},
	}
	if key != "" {
		// https://finnhub.io/docs/api/authentication
		c.query.Set("token", key)
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return "Finnhub" }
