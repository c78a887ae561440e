package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/caner-kocamaz/next-wp/internal/provider"
)

// MinInterval wraps a source and enforces a minimum time between call starts.
// Concurrent callers reserve consecutive slots, or return early if the
// context is canceled.
type MinInterval struct {
	S        provider.QuoteSource
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Name() string { return m.S.Name() }

func (m *MinInterval) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	if err := m.Wait(ctx); err != nil {
		return provider.Quote{}, err
	}
	return m.S.Quote(ctx, symbol)
}

// Wait reserves the next slot and sleeps until it starts.
func (m *MinInterval) Wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	now := time.Now()
	slot := m.next
	if slot.Before(now) {
		slot = now
	}
	m.next = slot.Add(m.Interval)
	m.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Limiter blocks until a call may proceed.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Gated wraps a source with a limiter that may be shared with other sources.
type Gated struct {
	S provider.QuoteSource
	L Limiter
}

func (g *Gated) Name() string { return g.S.Name() }

func (g *Gated) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	if err := g.L.Wait(ctx); err != nil {
		return provider.Quote{}, err
	}
	return g.S.Quote(ctx, symbol)
}

// Share gates all sources with a single limiter, for upstreams whose quota
// is counted per API key rather than per endpoint. Without limits the
// sources are returned unchanged.
func Share(rpm, burst int, interval time.Duration, sources ...provider.QuoteSource) []provider.QuoteSource {
	var l Limiter
	switch {
	case rpm > 0:
		l = PerMinute(rpm, burst)
	case interval > 0:
		l = &MinInterval{Interval: interval}
	default:
		return sources
	}
	out := make([]provider.QuoteSource, len(sources))
	for i, s := range sources {
		out[i] = &Gated{S: s, L: l}
	}
	return out
}

// Wrap applies the configured gate to s: a token bucket when rpm > 0,
// else a minimum interval when interval > 0, else s unchanged.
func Wrap(s provider.QuoteSource, rpm, burst int, interval time.Duration) provider.QuoteSource {
	switch {
	case rpm > 0:
		return &TokenBucketSource{S: s, TB: PerMinute(rpm, burst)}
	case interval > 0:
		return &MinInterval{S: s, Interval: interval}
	default:
		return s
	}
}
