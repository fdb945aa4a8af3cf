// Package stream implements live result sequences over the change feed.
//
// A stream is a receive-only channel of Snapshot values. It is lazy (nothing
// runs until the producing function is called), restartable (call it again)
// and ends when its context is cancelled. A snapshot carrying an error is the
// last one a stream emits.
package stream

import (
	"context"
	"errors"

	"github.com/noah-isme/somashare-api/pkg/changefeed"
)

// Snapshot is one emission of a live query.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Loader runs the query behind a stream.
type Loader[T any] func(ctx context.Context) (T, error)

// ErrClosed is returned by First when a stream ends without emitting.
var ErrClosed = errors.New("stream closed")

// Watch emits load's result now and again after every invalidation of topics.
// The subscription is taken before the first load so no write between the two is missed.
// Invalidations that arrive while a load is running collapse into a single re-query.
func Watch[T any](ctx context.Context, feed changefeed.Feed, load Loader[T], topics ...string) <-chan Snapshot[T] {
	out := make(chan Snapshot[T], 1)
	go func() {
		defer close(out)

		sub, err := feed.Subscribe(ctx, topics...)
		if err != nil {
			Send(ctx, out, Snapshot[T]{Err: err})
			return
		}
		defer sub.Close() //nolint:errcheck

		for {
			value, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			if !Send(ctx, out, Snapshot[T]{Value: value, Err: err}) || err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.Events():
				if !ok {
					return
				}
				drain(sub.Events())
			}
		}
	}()
	return out
}

// Just emits a single snapshot and closes.
func Just[T any](value T, err error) <-chan Snapshot[T] {
	out := make(chan Snapshot[T], 1)
	out <- Snapshot[T]{Value: value, Err: err}
	close(out)
	return out
}

// Map transforms every value of in. Errors pass through unchanged.
func Map[T, U any](ctx context.Context, in <-chan Snapshot[T], fn func(T) U) <-chan Snapshot[U] {
	out := make(chan Snapshot[U], 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-in:
				if !ok {
					return
				}
				next := Snapshot[U]{Err: snap.Err}
				if snap.Err == nil {
					next.Value = fn(snap.Value)
				}
				if !Send(ctx, out, next) || snap.Err != nil {
					return
				}
			}
		}
	}()
	return out
}

// First returns the first snapshot of in.
func First[T any](ctx context.Context, in <-chan Snapshot[T]) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case snap, ok := <-in:
		if !ok {
			return zero, ErrClosed
		}
		return snap.Value, snap.Err
	}
}

// Send delivers snap unless ctx ends first.
func Send[T any](ctx context.Context, out chan<- Snapshot[T], snap Snapshot[T]) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- snap:
		return true
	}
}

func drain(events <-chan string) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
