package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caner-kocamaz/next-wp/internal/cache"
	"github.com/caner-kocamaz/next-wp/internal/content"
	"github.com/caner-kocamaz/next-wp/internal/market"
	"github.com/caner-kocamaz/next-wp/internal/weather"
)

const staticMarketJSON = `{"indices":[{"symbol":"SPY","name":"S&P 500","price":6859.5,"change":8.45,"changePercent":0.12},{"symbol":"QQQ","name":"NASDAQ","price":25482,"change":171.75,"changePercent":0.68}],"crypto":[{"symbol":"BTC","name":"Bitcoin","price":90505.05,"change":-880.11,"changePercent":-0.96},{"symbol":"VIX","name":"VIX","price":16.35,"change":-0.84,"changePercent":-4.89}]}`

type countingMarket struct {
	*market.Service
	calls atomic.Int32
}

func (c *countingMarket) Snapshot(ctx context.Context) (market.Snapshot, market.Outcome) {
	c.calls.Add(1)
	return c.Service.Snapshot(ctx)
}

type stubContent struct {
	feed    content.Feed
	article *content.Article
	err     error
	page    int
	perPage int
	panic   bool
}

func (s *stubContent) Feed(_ context.Context, page, perPage int) content.Feed {
	s.page, s.perPage = page, perPage
	return s.feed
}

func (s *stubContent) Article(context.Context, string) (*content.Article, error) {
	if s.panic {
		panic("template exploded")
	}
	return s.article, s.err
}

func (s *stubContent) PerPage() int { return 10 }

type fixture struct {
	market  *countingMarket
	content *stubContent
	store   *cache.Memory
	server  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		market:  &countingMarket{Service: market.NewService(market.Sources{}, market.DefaultSymbols(), nil)},
		content: &stubContent{feed: content.Feed{Grid: []content.PostSummary{}, More: []content.PostSummary{}, Page: 1, Source: "none"}},
		store:   cache.NewMemory(100),
	}
	w := weather.NewService(nil, "San Francisco", time.UTC, nil)
	h := NewHandler(f.market, w, f.content, nil)
	f.server = Wrap(SetupRoutes(h, f.store, DefaultRevalidate()), h.log)
	return f
}

func (f *fixture) get(t *testing.T, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	f.server.ServeHTTP(rr, req)
	return rr
}

func TestMarket_StaticPayloadIsByteExact(t *testing.T) {
	f := newFixture()
	rr := f.get(t, "/api/market")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, staticMarketJSON, strings.TrimSpace(rr.Body.String()))
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "public, s-maxage=300, stale-while-revalidate", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "fallback", rr.Header().Get("X-Data-Outcome"))
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestMarket_ServedFromCacheWithinWindow(t *testing.T) {
	f := newFixture()
	first := f.get(t, "/api/market")
	second := f.get(t, "/api/market")

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "fallback", second.Header().Get("X-Data-Outcome"))
	assert.Equal(t, "public, s-maxage=300, stale-while-revalidate", second.Header().Get("Cache-Control"))
	assert.Equal(t, int32(1), f.market.calls.Load())
}

func TestCached_UnreadableEntryIsAMiss(t *testing.T) {
	store := cache.NewMemory(10)
	require.NoError(t, store.Set(t.Context(), "/x", []byte("not json"), time.Minute))

	var calls int
	h := Cached(store, time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("X-Data-Outcome", "live")
		respondJSON(w, http.StatusOK, map[string]int{"n": calls})
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "HIT", rr.Header().Get("X-Cache"))
	assert.Equal(t, "live", rr.Header().Get("X-Data-Outcome"))
	assert.JSONEq(t, `{"n":1}`, rr.Body.String())
}

func TestWeather_DefaultCityAndCityParam(t *testing.T) {
	f := newFixture()

	var snap weather.Snapshot
	rr := f.get(t, "/api/weather")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, "San Francisco", snap.Location)
	assert.Len(t, snap.Forecast, 5)
	assert.Equal(t, "public, s-maxage=1800, stale-while-revalidate", rr.Header().Get("Cache-Control"))

	rr = f.get(t, "/api/weather?city=New+York")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, "New York", snap.Location)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"), "cache key must include the city")
}

func TestTrending(t *testing.T) {
	f := newFixture()
	rr := f.get(t, "/api/trending")

	var items []market.TrendingItem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	assert.Equal(t, market.DefaultTrending(), items)
}

func TestPosts_QueryDefaults(t *testing.T) {
	f := newFixture()

	rr := f.get(t, "/api/posts?page=abc&per_page=500")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, f.content.page)
	assert.Equal(t, maxPerPage, f.content.perPage)

	f.get(t, "/api/posts?page=3")
	assert.Equal(t, 3, f.content.page)
	assert.Equal(t, 10, f.content.perPage)

	var feed content.Feed
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &feed))
	assert.Nil(t, feed.Hero)
	assert.Contains(t, rr.Body.String(), `"grid":[]`)
}

func TestPost_Statuses(t *testing.T) {
	f := newFixture()

	f.content.err = content.ErrNotFound
	rr := f.get(t, "/api/posts/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"post not found"}`, rr.Body.String())
	assert.Empty(t, rr.Header().Get("Cache-Control"))

	f.content.err = errors.New("dial tcp: refused")
	rr = f.get(t, "/api/posts/other")
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	f.content.err = nil
	f.content.article = &content.Article{PostSummary: content.PostSummary{ID: 1, Slug: "hello"}, Headings: []content.Heading{}}
	rr = f.get(t, "/api/posts/hello")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"slug":"hello"`)
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture()
	f.content.panic = true

	rr := f.get(t, "/api/posts/boom")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal server error")
}

func TestNotFoundAndPreflight(t *testing.T) {
	f := newFixture()

	rr := f.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/market", nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagated(t *testing.T) {
	f := newFixture()
	rr := f.get(t, "/healthz", "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestGzip(t *testing.T) {
	f := newFixture()
	rr := f.get(t, "/api/market", "Accept-Encoding", "gzip")

	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rr.Body)
	require.NoError(t, err)
	b, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, staticMarketJSON, strings.TrimSpace(string(b)))
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis down")
}

func TestCached_StoreFailureDegrades(t *testing.T) {
	var calls int
	h := Cached(failingStore{}, time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		respondJSON(w, http.StatusOK, map[string]int{"n": calls})
	}))

	for range 2 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestCacheKey_SortsQuery(t *testing.T) {
	a := httptest.NewRequest(http.MethodGet, "/api/posts?per_page=5&page=2", nil)
	b := httptest.NewRequest(http.MethodGet, "/api/posts?page=2&per_page=5", nil)
	assert.Equal(t, cacheKey(a), cacheKey(b))
	assert.Equal(t, "/api/market", cacheKey(httptest.NewRequest(http.MethodGet, "/api/market", nil)))
}
