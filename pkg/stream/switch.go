package stream

import "context"

// Switch follows the inner stream built for the latest outer value. A new inner
// stream replaces the running one only when key changes; the replaced stream's
// context is cancelled. An outer error is forwarded and ends the result.
func Switch[T any, K comparable, U any](ctx context.Context, outer <-chan Snapshot[T], key func(T) K, inner func(ctx context.Context, value T) <-chan Snapshot[U]) <-chan Snapshot[U] {
	out := make(chan Snapshot[U], 1)
	go func() {
		defer close(out)
		var (
			current <-chan Snapshot[U]
			cancel  = context.CancelFunc(func() {})
			last    K
			started bool
		)
		defer func() { cancel() }()

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-outer:
				if !ok {
					outer = nil
					if current == nil {
						return
					}
					continue
				}
				if snap.Err != nil {
					Send(ctx, out, Snapshot[U]{Err: snap.Err})
					return
				}
				k := key(snap.Value)
				if started && k == last {
					continue
				}
				cancel()
				var innerCtx context.Context
				innerCtx, cancel = context.WithCancel(ctx)
				current, last, started = inner(innerCtx, snap.Value), k, true
			case snap, ok := <-current:
				if !ok {
					current = nil
					if outer == nil {
						return
					}
					continue
				}
				if !Send(ctx, out, snap) || snap.Err != nil {
					return
				}
			}
		}
	}()
	return out
}
