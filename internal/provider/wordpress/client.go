package wordpress

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
)

// ErrNotFound is returned when no post matches a slug.
var ErrNotFound = errors.New("wordpress: not found")

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads posts from a WordPress site through the REST API, with the
// RSS feed as a fallback for listings.
type Client struct {
	// baseURL is the site root, without a trailing slash.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	parser *gofeed.Parser
}

// Option is a configuration option for the WordPress client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader adds headers sent with each REST and feed request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// New creates a client for the site at baseURL. An empty baseURL yields an
// unconfigured client whose calls fail.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		header:     http.Header{"Accept": {"application/json"}},
		parser:     gofeed.NewParser(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// WithBasicAuth authenticates with a WordPress application password.
// Empty credentials are ignored.
func WithBasicAuth(username, password string) Option {
	if username == "" || password == "" {
		return func(*Client) {}
	}
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return WithHeader(http.Header{"Authorization": {"Basic " + token}})
}

// Configured reports whether a site URL is set.
func (c *Client) Configured() bool { return c.baseURL != "" }

func (c *Client) restURL(path string) string {
	return c.baseURL + "/wp-json/wp/v2/" + path
}
