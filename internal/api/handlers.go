package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/caner-kocamaz/next-wp/internal/content"
	"github.com/caner-kocamaz/next-wp/internal/market"
	"github.com/caner-kocamaz/next-wp/internal/weather"
)

// maxPerPage is the largest page size the WordPress REST API accepts.
const maxPerPage = 100

type MarketService interface {
	Snapshot(ctx context.Context) (market.Snapshot, market.Outcome)
	Trending(ctx context.Context) []market.TrendingItem
}

type WeatherService interface {
	Snapshot(ctx context.Context, city string) (weather.Snapshot, weather.Outcome)
	DefaultCity() string
}

type ContentService interface {
	Feed(ctx context.Context, page, perPage int) content.Feed
	Article(ctx context.Context, slug string) (*content.Article, error)
	PerPage() int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	market  MarketService
	weather WeatherService
	content ContentService
	log     *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(m MarketService, w WeatherService, c ContentService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{market: m, weather: w, content: c, log: log}
}

// HealthCheck handles GET /healthz
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetMarket handles GET /api/market. It always answers 200.
func (h *Handler) GetMarket(w http.ResponseWriter, r *http.Request) {
	snap, outcome := h.market.Snapshot(r.Context())
	w.Header().Set("X-Data-Outcome", string(outcome))
	respondJSON(w, http.StatusOK, snap)
}

// GetWeather handles GET /api/weather?city=. It always answers 200.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		city = h.weather.DefaultCity()
	}
	snap, outcome := h.weather.Snapshot(r.Context(), city)
	w.Header().Set("X-Data-Outcome", string(outcome))
	respondJSON(w, http.StatusOK, snap)
}

// GetTrending handles GET /api/trending
func (h *Handler) GetTrending(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.market.Trending(r.Context()))
}

// GetPosts handles GET /api/posts?page=&per_page=
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	perPage := min(queryInt(q.Get("per_page"), h.content.PerPage()), maxPerPage)
	respondJSON(w, http.StatusOK, h.content.Feed(r.Context(), page, perPage))
}

// GetPost handles GET /api/posts/{slug}
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	article, err := h.content.Article(r.Context(), slug)
	switch {
	case errors.Is(err, content.ErrNotFound):
		respondError(w, http.StatusNotFound, "post not found")
		return
	case err != nil:
		h.log.Error("loading post", zap.String("slug", slug), zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		respondError(w, http.StatusBadGateway, "content source unavailable")
		return
	}
	respondJSON(w, http.StatusOK, article)
}

func queryInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
