package openweather

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caner-kocamaz/next-wp/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper serves requests from an http.Handler without a listener.
type mockRoundTripper struct {
	handler http.Handler
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	m.handler.ServeHTTP(rec, req)
	return rec.Result(), nil
}

func newTestClient(key string, handler http.Handler) *Client {
	return New(key, WithHTTPClient(&http.Client{Transport: &mockRoundTripper{handler: handler}}))
}

func TestCurrent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "San Francisco" {
			t.Errorf("expected q=San Francisco, got %s", r.URL.Query().Get("q"))
		}
		if r.URL.Query().Get("units") != "imperial" {
			t.Errorf("expected units=imperial, got %s", r.URL.Query().Get("units"))
		}
		if r.URL.Query().Get("appid") != "k" {
			t.Errorf("expected appid=k, got %s", r.URL.Query().Get("appid"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"name":    "San Francisco",
			"main":    map[string]any{"temp": 61.6, "humidity": 70},
			"weather": []map[string]any{{"main": "Clouds", "description": "broken clouds"}},
			"wind":    map[string]any{"speed": 9.4},
		})
	})

	res, err := newTestClient("k", handler).Current(t.Context(), "San Francisco")
	require.NoError(t, err)
	assert.Equal(t, "San Francisco", res.Name)
	assert.Equal(t, 61.6, res.Main.Temp)
	assert.Equal(t, 70, res.Main.Humidity)
	assert.Equal(t, "broken clouds", res.Weather[0].Description)
	assert.Equal(t, 9.4, res.Wind.Speed)
}

func TestForecast(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list":[{"dt":1700000000,"main":{"temp_max":60.4,"temp_min":50.6},"weather":[{"main":"Rain"}]}]}`))
	})

	res, err := newTestClient("k", handler).Forecast(t.Context(), "Paris")
	require.NoError(t, err)
	require.Len(t, res.List, 1)
	assert.Equal(t, int64(1700000000), res.List[0].DT)
	assert.Equal(t, "Rain", res.List[0].Weather[0].Main)
}

func TestErrors(t *testing.T) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})
	_, err := newTestClient("k", notFound).Current(t.Context(), "Atlantis")
	require.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
	assert.NotContains(t, err.Error(), "appid")

	garbage := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid json {"))
	})
	_, err = newTestClient("k", garbage).Forecast(t.Context(), "Paris")
	require.ErrorIs(t, err, provider.ErrUpstreamMalformed)

	c := newTestClient("", notFound)
	assert.False(t, c.Configured())
	_, err = c.Current(t.Context(), "Paris")
	require.ErrorIs(t, err, provider.ErrMissingCredentials)
}

func TestMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		forecast bool
	}{
		{"current without main or wind", `{"cod":200}`, false},
		{"current without wind", `{"name":"Paris","main":{"temp":50,"humidity":60}}`, false},
		{"current with null main", `{"main":null,"wind":{"speed":3}}`, false},
		{"forecast without list", `{"cod":"200"}`, true},
		{"forecast entry without main", `{"list":[{"dt":1735862400}]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient("k", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			var err error
			if tt.forecast {
				_, err = c.Forecast(t.Context(), "Paris")
			} else {
				_, err = c.Current(t.Context(), "Paris")
			}
			require.ErrorIs(t, err, provider.ErrUpstreamMalformed)
		})
	}

	empty := newTestClient("k", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list":[]}`))
	}))
	res, err := empty.Forecast(t.Context(), "Paris")
	require.NoError(t, err)
	assert.Empty(t, res.List)
}
