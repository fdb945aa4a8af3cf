package stream

import "context"

// Pair holds the latest values of two streams.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Join combines a primary stream with a side stream, emitting whenever either emits.
//
// Nothing is emitted before the primary's first value. Until the side stream emits,
// fallback stands in for it, so a silent side never blocks the primary. A side
// error or close freezes the side at its last known value. A primary error is
// forwarded and ends the joined stream.
func Join[P, S, R any](ctx context.Context, primary <-chan Snapshot[P], side <-chan Snapshot[S], fallback S, combine func(P, S) R) <-chan Snapshot[R] {
	out := make(chan Snapshot[R], 1)
	go func() {
		defer close(out)
		var (
			current P
			ready   bool
			latest  = fallback
		)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-primary:
				if !ok {
					return
				}
				if snap.Err != nil {
					Send(ctx, out, Snapshot[R]{Err: snap.Err})
					return
				}
				current, ready = snap.Value, true
			case snap, ok := <-side:
				if !ok || snap.Err != nil {
					side = nil
					continue
				}
				latest = snap.Value
				if !ready {
					continue
				}
			}
			if !Send(ctx, out, Snapshot[R]{Value: combine(current, latest)}) {
				return
			}
		}
	}()
	return out
}

// Join3 combines a primary stream with two side streams under Join's rules.
func Join3[P, A, B, R any](ctx context.Context, primary <-chan Snapshot[P], a <-chan Snapshot[A], b <-chan Snapshot[B], fallbackA A, fallbackB B, combine func(P, A, B) R) <-chan Snapshot[R] {
	inner := Join(ctx, primary, a, fallbackA, func(p P, av A) Pair[P, A] {
		return Pair[P, A]{First: p, Second: av}
	})
	return Join(ctx, inner, b, fallbackB, func(pa Pair[P, A], bv B) R {
		return combine(pa.First, pa.Second, bv)
	})
}
