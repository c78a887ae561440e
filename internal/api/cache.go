package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/caner-kocamaz/next-wp/internal/cache"
)

// replayedHeaders are stored with a cached body and restored on a hit.
var replayedHeaders = []string{"X-Data-Outcome"}

// cachedResponse is the stored form of a response.
type cachedResponse struct {
	Header map[string]string `json:"header,omitempty"`
	Body   []byte            `json:"body"`
}

// Cached serves successful GET responses from store for ttl. Concurrent
// misses each run the handler. Store errors degrade to an uncached response.
func Cached(store cache.Store, ttl time.Duration, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	cacheControl := fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate", int(ttl.Seconds()))
	return func(next http.Handler) http.Handler {
		if store == nil || ttl <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cacheKey(r)
			raw, ok, err := store.Get(r.Context(), key)
			if err != nil {
				log.Warn("response cache read failed", zap.String("key", key), zap.Error(err))
			}
			var hit cachedResponse
			if ok {
				if err := json.Unmarshal(raw, &hit); err != nil {
					log.Warn("response cache entry unreadable", zap.String("key", key), zap.Error(err))
					ok = false
				}
			}
			if ok {
				for k, v := range hit.Header {
					w.Header().Set(k, v)
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Cache-Control", cacheControl)
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(hit.Body)
				return
			}

			cw := &captureWriter{ResponseWriter: w, cacheControl: cacheControl}
			next.ServeHTTP(cw, r)
			if cw.status != http.StatusOK {
				return
			}
			entry := cachedResponse{Body: cw.buf.Bytes()}
			for _, h := range replayedHeaders {
				if v := w.Header().Get(h); v != "" {
					if entry.Header == nil {
						entry.Header = make(map[string]string)
					}
					entry.Header[h] = v
				}
			}
			b, err := json.Marshal(entry)
			if err != nil {
				log.Warn("response cache encode failed", zap.String("key", key), zap.Error(err))
				return
			}
			if err := store.Set(r.Context(), key, b, ttl); err != nil {
				log.Warn("response cache write failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

// cacheKey is the path plus the sorted query string.
func cacheKey(r *http.Request) string {
	q := r.URL.Query().Encode()
	if q == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + q
}

// captureWriter copies a response body while passing it through.
type captureWriter struct {
	http.ResponseWriter
	cacheControl string
	status       int
	buf          bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status != 0 {
		return
	}
	c.status = code
	if code == http.StatusOK {
		c.Header().Set("Cache-Control", c.cacheControl)
		c.Header().Set("X-Cache", "MISS")
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.WriteHeader(http.StatusOK)
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}
