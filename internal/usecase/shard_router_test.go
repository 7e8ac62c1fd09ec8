package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderRecorder struct {
	mu   sync.Mutex
	seen map[string][]int
}

func (o *orderRecorder) HandleReport(_ context.Context, report matchevent.RawReport) (EventOutcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen[report.MatchID] = append(o.seen[report.MatchID], report.Minute)
	return EventOutcome{MatchID: report.MatchID}, nil
}

func TestShardRouter_KeepsPerMatchOrder(t *testing.T) {
	t.Parallel()

	handler := &orderRecorder{seen: map[string][]int{}}
	router := NewShardRouter(handler, 4, 8, logging.NewNop())
	ctx := context.Background()

	var done sync.WaitGroup
	matches := []string{"m1", "m2", "m3", "m4", "m5"}
	for minute := 0; minute < 20; minute++ {
		for _, id := range matches {
			done.Add(1)
			require.NoError(t, router.Submit(ctx, matchevent.RawReport{MatchID: id, Minute: minute}, func(EventOutcome, error) { done.Done() }))
		}
	}
	done.Wait()
	router.Close()

	for _, id := range matches {
		got := handler.seen[id]
		require.Len(t, got, 20)
		for i := range got {
			assert.Equal(t, i, got[i], "match %s out of order", id)
		}
	}
}

func TestShardRouter_SubmitAfterClose(t *testing.T) {
	t.Parallel()

	router := NewShardRouter(&orderRecorder{seen: map[string][]int{}}, 2, 0, logging.NewNop())
	router.Close()
	router.Close()

	err := router.Submit(context.Background(), matchevent.RawReport{MatchID: "m"}, nil)
	assert.ErrorIs(t, err, ErrRouterClosed)
}

func TestShardFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ShardFor("anything", 1))
	assert.Equal(t, ShardFor("m-42", 8), ShardFor(" m-42 ", 8))
	for _, id := range []string{"a", "b", "c", "d"} {
		s := ShardFor(id, 3)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 3)
	}
}
