package main

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caner-kocamaz/next-wp/internal/market"
	"github.com/caner-kocamaz/next-wp/internal/weather"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"FINNHUB_API_KEY", "ALPHA_VANTAGE_API_KEY", "OPENWEATHERMAP_API_KEY", "WORDPRESS_URL", "CONFIG_FILE"} {
		t.Setenv(k, "")
	}
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestMarket_PrintsStaticWithoutKeys(t *testing.T) {
	out, err := run(t, "market")
	require.NoError(t, err)

	var snap market.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, market.Static(), snap)
	assert.Contains(t, out, `"name": "S&P 500"`)
}

func TestWeather_CityFlag(t *testing.T) {
	out, err := run(t, "weather", "--city", "Oslo")
	require.NoError(t, err)

	var snap weather.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "Oslo", snap.Location)
	assert.Len(t, snap.Forecast, 5)
}

func TestPosts_EmptyWithoutWordPress(t *testing.T) {
	out, err := run(t, "posts", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"source": "none"`)
	assert.Contains(t, out, `"page": 2`)
}

func TestPost_RequiresSlug(t *testing.T) {
	_, err := run(t, "post")
	require.Error(t, err)

	_, err = run(t, "post", "missing")
	require.Error(t, err)
}
