package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJoinDoesNotWaitForSilentSide(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary := make(chan Snapshot[[]string], 1)
	favorites := make(chan Snapshot[map[string]bool])

	joined := Join(ctx, primary, favorites, map[string]bool{}, func(units []string, fav map[string]bool) []bool {
		flags := make([]bool, len(units))
		for i, u := range units {
			flags[i] = fav[u]
		}
		return flags
	})

	primary <- Snapshot[[]string]{Value: []string{"U1", "U2"}}
	assert.Equal(t, []bool{false, false}, receive(t, joined).Value)

	favorites <- Snapshot[map[string]bool]{Value: map[string]bool{"U2": true}}
	assert.Equal(t, []bool{false, true}, receive(t, joined).Value)
}

func TestJoinHoldsSideUntilPrimaryArrives(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary := make(chan Snapshot[int])
	side := make(chan Snapshot[int], 1)
	joined := Join(ctx, primary, side, 0, func(p, s int) int { return p + s })

	side <- Snapshot[int]{Value: 10}
	select {
	case snap := <-joined:
		t.Fatalf("emitted before primary: %+v", snap)
	case <-time.After(20 * time.Millisecond):
	}

	primary <- Snapshot[int]{Value: 1}
	assert.Equal(t, 11, receive(t, joined).Value)
}

func TestJoinSideErrorKeepsLastValue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary := make(chan Snapshot[int])
	side := make(chan Snapshot[int])
	joined := Join(ctx, primary, side, 0, func(p, s int) int { return p*100 + s })

	primary <- Snapshot[int]{Value: 1}
	assert.Equal(t, 100, receive(t, joined).Value)
	side <- Snapshot[int]{Value: 7}
	assert.Equal(t, 107, receive(t, joined).Value)
	side <- Snapshot[int]{Err: errors.New("listener dropped")}
	primary <- Snapshot[int]{Value: 2}
	assert.Equal(t, 207, receive(t, joined).Value)
}

func TestJoinPrimaryErrorEndsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	boom := errors.New("query failed")
	joined := Join(ctx, Just(0, boom), make(chan Snapshot[int]), 0, func(p, s int) int { return p })

	assert.ErrorIs(t, receive(t, joined).Err, boom)
	_, open := <-joined
	assert.False(t, open)
}

func TestJoin3(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary := make(chan Snapshot[string], 1)
	lecturers := make(chan Snapshot[[]string], 1)
	favorite := make(chan Snapshot[bool], 1)

	joined := Join3(ctx, primary, lecturers, favorite, nil, false, func(u string, l []string, f bool) string {
		if f {
			return u + "*" + string(rune('0'+len(l)))
		}
		return u + string(rune('0'+len(l)))
	})

	primary <- Snapshot[string]{Value: "CSC201"}
	assert.Equal(t, "CSC2010", receive(t, joined).Value)
	lecturers <- Snapshot[[]string]{Value: []string{"Dr. Otieno"}}
	assert.Equal(t, "CSC2011", receive(t, joined).Value)
	favorite <- Snapshot[bool]{Value: true}
	assert.Equal(t, "CSC201*1", receive(t, joined).Value)
}
