package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/caner-kocamaz/next-wp/internal/httpx"
	"github.com/caner-kocamaz/next-wp/internal/provider"
)

// dateLayout is the zone-less timestamp format of the REST API.
const dateLayout = "2006-01-02T15:04:05"

// Rendered is a REST field carrying server-rendered HTML.
type Rendered struct {
	Rendered string `json:"rendered"`
}

type Post struct {
	ID            int      `json:"id"`
	Date          string   `json:"date"`
	DateGMT       string   `json:"date_gmt"`
	Slug          string   `json:"slug"`
	Link          string   `json:"link"`
	Title         Rendered `json:"title"`
	Excerpt       Rendered `json:"excerpt"`
	Content       Rendered `json:"content"`
	Author        int      `json:"author"`
	FeaturedMedia int      `json:"featured_media"`
	Categories    []int    `json:"categories"`

	// Set only for posts read from the RSS feed, which carries names
	// instead of ids.
	FeedAuthor   string `json:"-"`
	FeedCategory string `json:"-"`
	FeedImage    string `json:"-"`
}

// Published returns the publication time, preferring the GMT field.
func (p Post) Published() time.Time {
	if t, err := time.Parse(dateLayout, p.DateGMT); err == nil {
		return t
	}
	if t, err := time.Parse(dateLayout, p.Date); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, p.Date); err == nil {
		return t
	}
	return time.Time{}
}

// FirstCategory returns the primary category id, or 0.
func (p Post) FirstCategory() int {
	if len(p.Categories) == 0 {
		return 0
	}
	return p.Categories[0]
}

// Page is one page of a post listing.
type Page struct {
	Posts      []Post
	Total      int
	TotalPages int
}

type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
	AltText   string `json:"alt_text"`
}

type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Posts fetches one page of published posts, newest first.
func (c *Client) Posts(ctx context.Context, page, perPage int) (*Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	q.Set("per_page", strconv.Itoa(max(perPage, 1)))

	var posts []Post
	header, err := c.getJSON(ctx, "posts?"+q.Encode(), &posts)
	if err != nil {
		return nil, err
	}
	res := &Page{Posts: posts, Total: len(posts), TotalPages: 1}
	if n, err := strconv.Atoi(header.Get("X-WP-Total")); err == nil {
		res.Total = n
	}
	if n, err := strconv.Atoi(header.Get("X-WP-TotalPages")); err == nil {
		res.TotalPages = n
	}
	return res, nil
}

// PostBySlug fetches a single post. It returns ErrNotFound if the slug is unknown.
func (c *Client) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	var posts []Post
	if _, err := c.getJSON(ctx, "posts?slug="+url.QueryEscape(slug), &posts); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("post %q: %w", slug, ErrNotFound)
	}
	return &posts[0], nil
}

func (c *Client) Media(ctx context.Context, id int) (*Media, error) {
	var m Media
	if _, err := c.getJSON(ctx, "media/"+strconv.Itoa(id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Author(ctx context.Context, id int) (*Author, error) {
	var a Author
	if _, err := c.getJSON(ctx, "users/"+strconv.Itoa(id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Category(ctx context.Context, id int) (*Category, error) {
	var cat Category
	if _, err := c.getJSON(ctx, "categories/"+strconv.Itoa(id), &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) (http.Header, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("wordpress: %w", provider.ErrMissingCredentials)
	}
	body, header, err := httpx.Get(ctx, c.httpClient, c.restURL(path), c.header)
	if err != nil {
		return nil, fmt.Errorf("wordpress %s: %w: %w", path, provider.ErrUpstreamUnavailable, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("wordpress %s: %w: %w", path, provider.ErrUpstreamMalformed, err)
	}
	return header, nil
}
