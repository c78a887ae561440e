// Package aggregate runs independent upstream calls concurrently and joins
// their outcomes without letting one failure affect the others.
package aggregate

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one task. Exactly one of Value/Err is meaningful.
type Result[T any] struct {
	Key   string
	Value T
	Err   error
}

// OK reports whether the task produced a value.
func (r Result[T]) OK() bool { return r.Err == nil }

// PanicError wraps a panic recovered from a task.
type PanicError struct {
	Key   string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %q panicked: %v", e.Key, e.Value)
}

// Task is one keyed unit of work.
type Task[T any] struct {
	Key string
	Run func(ctx context.Context) (T, error)
}

// All runs every task in its own goroutine and waits for all of them.
// Results are returned in task order. Errors never cancel siblings: the
// group context is not used and every goroutine returns nil to errgroup.
func All[T any](ctx context.Context, tasks []Task[T]) []Result[T] {
	out := make([]Result[T], len(tasks))
	var g errgroup.Group
	for i, t := range tasks {
		g.Go(func() error {
			out[i] = run(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Map is All for the common case of one call per key.
func Map[T any](ctx context.Context, keys []string, fn func(ctx context.Context, key string) (T, error)) []Result[T] {
	tasks := make([]Task[T], len(keys))
	for i, k := range keys {
		tasks[i] = Task[T]{Key: k, Run: func(ctx context.Context) (T, error) { return fn(ctx, k) }}
	}
	return All(ctx, tasks)
}

func run[T any](ctx context.Context, t Task[T]) (res Result[T]) {
	res.Key = t.Key
	defer func() {
		if rec := recover(); rec != nil {
			res.Err = &PanicError{Key: t.Key, Value: rec, Stack: debug.Stack()}
		}
	}()
	res.Value, res.Err = t.Run(ctx)
	return res
}

// Values returns the values of successful results, preserving order.
func Values[T any](results []Result[T]) []T {
	out := make([]T, 0, len(results))
	for _, r := range results {
		if r.OK() {
			out = append(out, r.Value)
		}
	}
	return out
}

// FirstPanic returns the first recovered panic among results, if any.
func FirstPanic[T any](results []Result[T]) *PanicError {
	for _, r := range results {
		if pe, ok := r.Err.(*PanicError); ok {
			return pe
		}
	}
	return nil
}
