package aggregate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAll_PreservesTaskOrder(t *testing.T) {
	tasks := []Task[int]{
		{Key: "slow", Run: func(context.Context) (int, error) { time.Sleep(20 * time.Millisecond); return 1, nil }},
		{Key: "fast", Run: func(context.Context) (int, error) { return 2, nil }},
		{Key: "mid", Run: func(context.Context) (int, error) { time.Sleep(5 * time.Millisecond); return 3, nil }},
	}

	out := All(t.Context(), tasks)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"slow", "fast", "mid"}, []string{out[0].Key, out[1].Key, out[2].Key})
	assert.Equal(t, []int{1, 2, 3}, Values(out))
}

func TestAll_FailureIsIsolated(t *testing.T) {
	boom := errors.New("boom")
	var siblingDone atomic.Bool
	tasks := []Task[string]{
		{Key: "SPY", Run: func(context.Context) (string, error) { return "", boom }},
		{Key: "QQQ", Run: func(ctx context.Context) (string, error) {
			time.Sleep(10 * time.Millisecond)
			// The failing sibling must not cancel this call.
			if err := ctx.Err(); err != nil {
				return "", err
			}
			siblingDone.Store(true)
			return "ok", nil
		}},
	}

	out := All(t.Context(), tasks)
	assert.ErrorIs(t, out[0].Err, boom)
	assert.False(t, out[0].OK())
	require.NoError(t, out[1].Err)
	assert.Equal(t, "ok", out[1].Value)
	assert.True(t, siblingDone.Load())
	assert.Equal(t, []string{"ok"}, Values(out))
}

func TestAll_RunsConcurrently(t *testing.T) {
	const n = 5
	start := time.Now()
	keys := []string{"a", "b", "c", "d", "e"}
	out := Map(t.Context(), keys, func(_ context.Context, key string) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return key, nil
	})
	require.Len(t, out, n)
	assert.Less(t, time.Since(start), n*50*time.Millisecond)
	assert.Equal(t, keys, Values(out))
}

func TestAll_RecoversPanics(t *testing.T) {
	tasks := []Task[int]{
		{Key: "ok", Run: func(context.Context) (int, error) { return 7, nil }},
		{Key: "bad", Run: func(context.Context) (int, error) { panic("nil map write") }},
	}

	out := All(t.Context(), tasks)
	assert.Equal(t, 7, out[0].Value)

	var pe *PanicError
	require.ErrorAs(t, out[1].Err, &pe)
	assert.Equal(t, "bad", pe.Key)
	assert.NotEmpty(t, pe.Stack)
	assert.Same(t, pe, FirstPanic(out))
}

func TestFirstPanic_NoneWhenPlainErrors(t *testing.T) {
	out := []Result[int]{{Key: "a", Err: errors.New("x")}, {Key: "b", Value: 1}}
	assert.Nil(t, FirstPanic(out))
}

func TestAll_Empty(t *testing.T) {
	out := All[int](t.Context(), nil)
	assert.Empty(t, out)
	assert.Empty(t, Values(out))
}
