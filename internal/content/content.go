// Package content shapes WordPress posts into the Discover feed and article
// payloads.
package content

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caner-kocamaz/next-wp/internal/aggregate"
	"github.com/caner-kocamaz/next-wp/internal/provider/wordpress"
)

// ErrNotFound is returned by Article for unknown slugs.
var ErrNotFound = errors.New("post not found")

const (
	gridSize       = 3
	relatedFetch   = 6
	relatedMax     = 5
	defaultPerPage = 10
)

// Source is the subset of the WordPress client used by Service.
type Source interface {
	Configured() bool
	Posts(ctx context.Context, page, perPage int) (*wordpress.Page, error)
	PostBySlug(ctx context.Context, slug string) (*wordpress.Post, error)
	Media(ctx context.Context, id int) (*wordpress.Media, error)
	Author(ctx context.Context, id int) (*wordpress.Author, error)
	Category(ctx context.Context, id int) (*wordpress.Category, error)
	FeedPosts(ctx context.Context, limit int) ([]wordpress.Post, error)
}

// PostSummary is a post as shown on a card.
type PostSummary struct {
	ID           int       `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Excerpt      string    `json:"excerpt"`
	Date         time.Time `json:"date"`
	TimeAgo      string    `json:"timeAgo"`
	TimeAgoShort string    `json:"timeAgoShort"`
	Link         string    `json:"link,omitempty"`
	Image        string    `json:"image,omitempty"`
	Author       string    `json:"author,omitempty"`
	AuthorID     int       `json:"authorId,omitempty"`
	Category     string    `json:"category,omitempty"`
	CategoryID   int       `json:"categoryId,omitempty"`
}

// Feed is the Discover page layout: one hero, a grid of three, then the rest.
type Feed struct {
	Hero       *PostSummary  `json:"hero"`
	Grid       []PostSummary `json:"grid"`
	More       []PostSummary `json:"more"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
	Total      int           `json:"total"`
	Source     string        `json:"source"`
}

// Article is the post detail payload.
type Article struct {
	PostSummary
	Description string        `json:"description"`
	Content     string        `json:"content"`
	Headings    []Heading     `json:"headings"`
	Related     []PostSummary `json:"related"`
}

type Service struct {
	src     Source
	perPage int
	log     *zap.Logger
	now     func() time.Time
}

func NewService(src Source, perPage int, log *zap.Logger) *Service {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, perPage: perPage, log: log, now: time.Now}
}

// PerPage is the page size used when a request does not specify one.
func (s *Service) PerPage() int { return s.perPage }

// Feed returns one page of the Discover feed. REST failures fall back to
// the RSS feed for the first page; with no usable source the feed is empty.
func (s *Service) Feed(ctx context.Context, page, perPage int) Feed {
	page = max(page, 1)
	if perPage <= 0 {
		perPage = s.perPage
	}
	empty := Feed{Grid: []PostSummary{}, More: []PostSummary{}, Page: page, Source: "none"}
	if s.src == nil || !s.src.Configured() {
		return empty
	}

	res, err := s.src.Posts(ctx, page, perPage)
	if err == nil {
		feed := s.layout(s.summaries(ctx, res.Posts))
		feed.Page, feed.Total, feed.TotalPages, feed.Source = page, res.Total, res.TotalPages, "rest"
		return feed
	}
	s.log.Warn("content: REST listing failed", zap.Int("page", page), zap.Error(err))
	if page != 1 {
		return empty
	}

	posts, err := s.src.FeedPosts(ctx, perPage)
	if err != nil {
		s.log.Warn("content: RSS fallback failed", zap.Error(err))
		return empty
	}
	feed := s.layout(s.summaries(ctx, posts))
	feed.Page, feed.Total, feed.TotalPages, feed.Source = 1, len(posts), 1, "rss"
	return feed
}

func (s *Service) layout(posts []PostSummary) Feed {
	f := Feed{Grid: []PostSummary{}, More: []PostSummary{}}
	if len(posts) == 0 {
		return f
	}
	hero := posts[0]
	f.Hero = &hero
	rest := posts[1:]
	n := min(gridSize, len(rest))
	f.Grid = append(f.Grid, rest[:n]...)
	f.More = append(f.More, rest[n:]...)
	return f
}

// Article returns the detail view for slug. Media, author, category and
// related posts are fetched concurrently; each failure only blanks its part.
func (s *Service) Article(ctx context.Context, slug string) (*Article, error) {
	if s.src == nil || !s.src.Configured() {
		return nil, fmt.Errorf("%s: %w", slug, ErrNotFound)
	}
	post, err := s.src.PostBySlug(ctx, slug)
	if errors.Is(err, wordpress.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading post %s: %w", slug, err)
	}

	a := &Article{
		PostSummary: s.summary(*post),
		Description: StripTags(post.Excerpt.Rendered),
		Content:     AddHeadingIDs(post.Content.Rendered),
		Headings:    ExtractHeadings(post.Content.Rendered),
		Related:     []PostSummary{},
	}

	var g errgroup.Group
	if post.FeaturedMedia != 0 {
		g.Go(func() error {
			if m, err := s.src.Media(ctx, post.FeaturedMedia); err == nil {
				a.Image = m.SourceURL
			} else {
				s.log.Debug("content: media lookup failed", zap.Int("media", post.FeaturedMedia), zap.Error(err))
			}
			return nil
		})
	}
	if post.Author != 0 {
		g.Go(func() error {
			if au, err := s.src.Author(ctx, post.Author); err == nil {
				a.Author = au.Name
			} else {
				s.log.Debug("content: author lookup failed", zap.Int("author", post.Author), zap.Error(err))
			}
			return nil
		})
	}
	if cat := post.FirstCategory(); cat != 0 {
		g.Go(func() error {
			if c, err := s.src.Category(ctx, cat); err == nil {
				a.Category = c.Name
			} else {
				s.log.Debug("content: category lookup failed", zap.Int("category", cat), zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		res, err := s.src.Posts(ctx, 1, relatedFetch)
		if err != nil {
			s.log.Warn("content: related posts failed", zap.String("slug", slug), zap.Error(err))
			return nil
		}
		related := make([]wordpress.Post, 0, relatedMax)
		for _, p := range res.Posts {
			if p.ID == post.ID {
				continue
			}
			if len(related) == relatedMax {
				break
			}
			related = append(related, p)
		}
		a.Related = s.summaries(ctx, related)
		return nil
	})
	_ = g.Wait()
	return a, nil
}

func (s *Service) summary(p wordpress.Post) PostSummary {
	published := p.Published()
	now := s.now()
	return PostSummary{
		ID:           p.ID,
		Slug:         p.Slug,
		Title:        StripTags(p.Title.Rendered),
		Excerpt:      StripTags(p.Excerpt.Rendered),
		Date:         published,
		TimeAgo:      TimeAgo(published, now),
		TimeAgoShort: TimeAgoShort(published, now),
		Link:         p.Link,
		Image:        p.FeedImage,
		Author:       p.FeedAuthor,
		AuthorID:     p.Author,
		Category:     p.FeedCategory,
		CategoryID:   p.FirstCategory(),
	}
}

// summaries converts posts and resolves media, author and category names
// with one concurrent lookup per distinct id.
func (s *Service) summaries(ctx context.Context, posts []wordpress.Post) []PostSummary {
	out := make([]PostSummary, len(posts))
	var tasks []aggregate.Task[string]
	seen := make(map[string]bool)
	add := func(key string, run func(ctx context.Context) (string, error)) {
		if seen[key] {
			return
		}
		seen[key] = true
		tasks = append(tasks, aggregate.Task[string]{Key: key, Run: run})
	}
	for i, p := range posts {
		out[i] = s.summary(p)
		if id := p.FeaturedMedia; id != 0 {
			add(lookupKey("media", id), func(ctx context.Context) (string, error) {
				m, err := s.src.Media(ctx, id)
				if err != nil {
					return "", err
				}
				return m.SourceURL, nil
			})
		}
		if id := p.Author; id != 0 {
			add(lookupKey("author", id), func(ctx context.Context) (string, error) {
				a, err := s.src.Author(ctx, id)
				if err != nil {
					return "", err
				}
				return a.Name, nil
			})
		}
		if id := p.FirstCategory(); id != 0 {
			add(lookupKey("category", id), func(ctx context.Context) (string, error) {
				c, err := s.src.Category(ctx, id)
				if err != nil {
					return "", err
				}
				return c.Name, nil
			})
		}
	}
	if len(tasks) == 0 {
		return out
	}

	names := make(map[string]string, len(tasks))
	for _, r := range aggregate.All(ctx, tasks) {
		if !r.OK() {
			s.log.Debug("content: lookup failed", zap.String("key", r.Key), zap.Error(r.Err))
			continue
		}
		names[r.Key] = r.Value
	}
	for i, p := range posts {
		if v, ok := names[lookupKey("media", p.FeaturedMedia)]; ok {
			out[i].Image = v
		}
		if v, ok := names[lookupKey("author", p.Author)]; ok {
			out[i].Author = v
		}
		if v, ok := names[lookupKey("category", p.FirstCategory())]; ok {
			out[i].Category = v
		}
	}
	return out
}

func lookupKey(kind string, id int) string {
	return kind + ":" + strconv.Itoa(id)
}
