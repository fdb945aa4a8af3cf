package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

// ErrUnknownIntent is returned by Handle for an intent the screen does not support.
var ErrUnknownIntent = errors.New("unknown intent")

type feedRole int

const (
	// primaryFeed failures drive the phase.
	primaryFeed feedRole = iota
	// secondaryFeed failures become the transient message.
	secondaryFeed
	// quietFeed failures are logged only.
	quietFeed
)

// base carries the state, the update channel and the goroutine lifecycle shared by all screens.
type base[S any] struct {
	name   string
	logger *zap.Logger
	status func(*S) *Status

	mu      sync.Mutex
	state   S
	updates chan any
	closed  bool

	ctxMu       sync.Mutex
	root        context.Context
	cancel      context.CancelFunc
	streams     context.Context
	stopStreams context.CancelFunc
	stopped     bool
	wg          sync.WaitGroup
}

func newBase[S any](name string, initial S, status func(*S) *Status, logger *zap.Logger) *base[S] {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := status(&initial)
	st.Phase = PhaseIdle
	return &base[S]{
		name:    name,
		logger:  logger.With(zap.String("screen", name)),
		status:  status,
		state:   initial,
		updates: make(chan any, 1),
	}
}

// Name returns the screen name.
func (b *base[S]) Name() string { return b.name }

// Updates emits state snapshots.
func (b *base[S]) Updates() <-chan any { return b.updates }

// State returns the current state.
func (b *base[S]) State() S {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// start binds the screen to parent and moves it to loading. It returns the
// context for the first set of streams.
func (b *base[S]) start(parent context.Context) (context.Context, error) {
	b.ctxMu.Lock()
	if b.root != nil || b.stopped {
		b.ctxMu.Unlock()
		return nil, errors.New("screen already mounted")
	}
	b.root, b.cancel = context.WithCancel(parent)
	b.ctxMu.Unlock()

	b.update(func(s *S) { b.status(s).apply(EventMount, "") })
	return b.restart(), nil
}

// restart cancels the running streams and returns a fresh context for new ones.
func (b *base[S]) restart() context.Context {
	b.ctxMu.Lock()
	defer b.ctxMu.Unlock()
	if b.stopStreams != nil {
		b.stopStreams()
	}
	b.streams, b.stopStreams = context.WithCancel(b.root)
	return b.streams
}

// refresh moves to loading and returns the context for re-subscribed streams.
func (b *base[S]) refresh() context.Context {
	ctx := b.restart()
	b.update(func(s *S) { b.status(s).apply(EventRefresh, "") })
	return ctx
}

// spawn runs fn on a goroutine that Unmount waits for. It is a no-op after Unmount.
func (b *base[S]) spawn(fn func()) {
	b.ctxMu.Lock()
	if b.stopped {
		b.ctxMu.Unlock()
		return
	}
	b.wg.Add(1)
	b.ctxMu.Unlock()
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// async runs fn bound to the screen's lifetime.
func (b *base[S]) async(fn func(ctx context.Context)) {
	b.ctxMu.Lock()
	ctx := b.root
	b.ctxMu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	b.spawn(func() { fn(ctx) })
}

// Unmount cancels every stream and pending intent, waits for them and closes Updates.
func (b *base[S]) Unmount() {
	b.ctxMu.Lock()
	if b.stopped {
		b.ctxMu.Unlock()
		return
	}
	b.stopped = true
	if b.cancel != nil {
		b.cancel()
	}
	b.ctxMu.Unlock()

	b.wg.Wait()

	b.mu.Lock()
	b.closed = true
	close(b.updates)
	b.mu.Unlock()
}

// update mutates the state and publishes the result.
func (b *base[S]) update(fn func(s *S)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	fn(&b.state)
	snapshot := b.state
	select {
	case b.updates <- snapshot:
	default:
		select {
		case <-b.updates:
		default:
		}
		b.updates <- snapshot
	}
}

// message sets the transient message.
func (b *base[S]) message(msg string) {
	b.update(func(s *S) { b.status(s).Message = msg })
}

func (b *base[S]) fail(role feedRole, err error) {
	if role == quietFeed {
		b.logger.Warn("secondary feed failed", zap.Error(err))
		return
	}
	msg := errorMessage(err)
	b.update(func(s *S) {
		st := b.status(s)
		if role == primaryFeed {
			st.apply(EventFailure, msg)
			return
		}
		st.Message = msg
	})
}

// follow applies every value of in to the state until in ends, errors or ctx is cancelled.
func follow[S, T any](b *base[S], ctx context.Context, in <-chan stream.Snapshot[T], role feedRole, apply func(s *S, value T)) {
	b.spawn(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-in:
				if !ok || ctx.Err() != nil {
					return
				}
				if snap.Err != nil {
					b.fail(role, snap.Err)
					return
				}
				b.update(func(s *S) {
					apply(s, snap.Value)
					if role == primaryFeed {
						st := b.status(s)
						st.hasData = true
						st.apply(EventData, "")
					}
				})
			}
		}
	})
}

// toggleFavorite flips a favorite flag optimistically and writes it in the
// background. On failure the flag is flipped back unless a newer value replaced
// it in the meantime.
func toggleFavorite[S any](b *base[S], svc FavoriteSetter, userID, unitID int64, get func(s *S) (bool, bool), set func(s *S, favorite bool)) error {
	var (
		want  bool
		found bool
	)
	b.update(func(s *S) {
		var current bool
		current, found = get(s)
		if !found {
			return
		}
		want = !current
		set(s, want)
	})
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "unit not found")
	}
	b.async(func(ctx context.Context) {
		if _, err := svc.SetFavorite(ctx, userID, unitID, want); err != nil {
			b.logger.Warn("favorite update failed", zap.Int64("unit_id", unitID), zap.Error(err))
			b.update(func(s *S) {
				if current, ok := get(s); ok && current == want {
					set(s, !want)
				}
				b.status(s).Message = "Could not update favorite. Please try again."
			})
		}
	})
	return nil
}

func decode(intent Intent, dest interface{}) error {
	if len(intent.Payload) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "payload is required")
	}
	if err := json.Unmarshal(intent.Payload, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return nil
}

func errorMessage(err error) string {
	return appErrors.FromError(err).Message
}
