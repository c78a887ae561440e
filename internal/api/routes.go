package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/caner-kocamaz/next-wp/internal/cache"
)

// Revalidate holds the response cache window per endpoint.
type Revalidate struct {
	Market   time.Duration
	Weather  time.Duration
	Posts    time.Duration
	Trending time.Duration
}

// DefaultRevalidate returns the standard cache windows.
func DefaultRevalidate() Revalidate {
	return Revalidate{
		Market:   300 * time.Second,
		Weather:  1800 * time.Second,
		Posts:    600 * time.Second,
		Trending: 300 * time.Second,
	}
}

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, store cache.Store, rv Revalidate) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check
	r.HandleFunc("/healthz", handler.HealthCheck).Methods(http.MethodGet)

	cached := func(ttl time.Duration, fn http.HandlerFunc) http.Handler {
		return Cached(store, ttl, handler.log)(fn)
	}
	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/market", cached(rv.Market, handler.GetMarket)).Methods(http.MethodGet)
	api.Handle("/weather", cached(rv.Weather, handler.GetWeather)).Methods(http.MethodGet)
	api.Handle("/trending", cached(rv.Trending, handler.GetTrending)).Methods(http.MethodGet)
	api.Handle("/posts", cached(rv.Posts, handler.GetPosts)).Methods(http.MethodGet)
	api.Handle("/posts/{slug}", cached(rv.Posts, handler.GetPost)).Methods(http.MethodGet)

	return r
}

// Wrap applies the server-wide middleware chain around h.
func Wrap(h http.Handler, log *zap.Logger) http.Handler {
	return withJSONHeaders(withGzip(withRequestID(logRequests(log, recoverPanic(log, h)))))
}
