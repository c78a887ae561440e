package wordpress

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"

	"github.com/mmcdole/gofeed"

	"github.com/caner-kocamaz/next-wp/internal/httpx"
	"github.com/caner-kocamaz/next-wp/internal/provider"
)

// FeedPosts reads up to limit posts from the site's RSS feed. Feed posts
// carry author, category and image names directly instead of ids.
func (c *Client) FeedPosts(ctx context.Context, limit int) ([]Post, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("wordpress feed: %w", provider.ErrMissingCredentials)
	}
	header := c.header.Clone()
	header.Set("Accept", "application/rss+xml, application/xml")
	body, _, err := httpx.Get(ctx, c.httpClient, c.baseURL+"/feed", header)
	if err != nil {
		return nil, fmt.Errorf("wordpress feed: %w: %w", provider.ErrUpstreamUnavailable, err)
	}
	feed, err := c.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wordpress feed: %w: %w", provider.ErrUpstreamMalformed, err)
	}

	posts := make([]Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(posts) == limit {
			break
		}
		posts = append(posts, fromItem(item))
	}
	return posts, nil
}

func fromItem(item *gofeed.Item) Post {
	p := Post{
		ID:      guidID(item.GUID),
		Slug:    slugFromLink(item.Link),
		Link:    item.Link,
		Title:   Rendered{Rendered: item.Title},
		Excerpt: Rendered{Rendered: item.Description},
		Content: Rendered{Rendered: item.Content},
	}
	if item.PublishedParsed != nil {
		p.DateGMT = item.PublishedParsed.UTC().Format(dateLayout)
		p.Date = p.DateGMT
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		p.FeedAuthor = item.Authors[0].Name
	}
	if len(item.Categories) > 0 {
		p.FeedCategory = item.Categories[0]
	}
	if item.Image != nil {
		p.FeedImage = item.Image.URL
	}
	return p
}

// guidID extracts the numeric post id from a "?p=123" permalink guid.
func guidID(guid string) int {
	u, err := url.Parse(guid)
	if err != nil {
		return 0
	}
	id, _ := strconv.Atoi(u.Query().Get("p"))
	return id
}

func slugFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	s := path.Base(path.Clean("/" + u.Path))
	if s == "/" || s == "." {
		return ""
	}
	return s
}
