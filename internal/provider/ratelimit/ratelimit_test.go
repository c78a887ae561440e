package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caner-kocamaz/next-wp/internal/provider"
)

type countingSource struct{ calls atomic.Int32 }

func (c *countingSource) Name() string { return "counting" }
func (c *countingSource) Quote(_ context.Context, symbol string) (provider.Quote, error) {
	c.calls.Add(1)
	return provider.Quote{Symbol: symbol}, nil
}

func TestTokenBucket_BurstThenWait(t *testing.T) {
	tb := NewTokenBucket(20, 2) // one token every 50ms

	start := time.Now()
	require.NoError(t, tb.Wait(t.Context()))
	require.NoError(t, tb.Wait(t.Context()))
	assert.Less(t, time.Since(start), 20*time.Millisecond, "burst should not block")

	require.NoError(t, tb.Wait(t.Context()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestTokenBucket_ContextCanceled(t *testing.T) {
	tb := NewTokenBucket(0.001, 1)
	require.NoError(t, tb.Wait(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, tb.Wait(ctx), context.DeadlineExceeded)
}

func TestMinInterval_SpacesCalls(t *testing.T) {
	src := &countingSource{}
	m := &MinInterval{S: src, Interval: 30 * time.Millisecond}

	start := time.Now()
	for _, s := range []string{"SPY", "QQQ", "VIX"} {
		q, err := m.Quote(t.Context(), s)
		require.NoError(t, err)
		assert.Equal(t, s, q.Symbol)
	}
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestWrap(t *testing.T) {
	src := &countingSource{}

	assert.Same(t, provider.QuoteSource(src), Wrap(src, 0, 0, 0))
	assert.IsType(t, &TokenBucketSource{}, Wrap(src, 5, 1, time.Second))
	assert.IsType(t, &MinInterval{}, Wrap(src, 0, 0, time.Second))
	assert.Equal(t, "counting", Wrap(src, 5, 1, 0).Name())
}

func TestShare_OneBudgetAcrossSources(t *testing.T) {
	a, b := &countingSource{}, &countingSource{}
	gated := Share(0, 0, 40*time.Millisecond, a, b)
	require.Len(t, gated, 2)

	start := time.Now()
	_, err := gated[0].Quote(t.Context(), "SPY")
	require.NoError(t, err)
	_, err = gated[1].Quote(t.Context(), "BTC")
	require.NoError(t, err)
	_, err = gated[0].Quote(t.Context(), "QQQ")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, int32(2), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())

	plain := Share(0, 0, 0, a, b)
	assert.Same(t, provider.QuoteSource(a), plain[0])
}
