package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/dispatchaudit"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/domain/summary"
	"github.com/riskibarqy/matchday-relay/internal/infrastructure/repository/memory"
	recordmock "github.com/riskibarqy/matchday-relay/internal/mocks/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// captureDispatcher reports every payload as sent without touching a relay.
type captureDispatcher struct {
	payloads []Payload
}

func (c *captureDispatcher) Dispatch(_ context.Context, payloads []Payload) DispatchResult {
	c.payloads = append(c.payloads, payloads...)
	out := DispatchResult{}
	for _, p := range payloads {
		out.Results = append(out.Results, ChunkResult{Key: p.Key, Operation: p.Operation, ItemCount: p.ItemCount, Status: DispatchStatusSent, Attempts: 1})
	}
	return out
}

func TestPostingService_PostResultsChunksUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := recordmock.NewRepository(t)
	dispatcher := &captureDispatcher{}
	period := summary.MonthPeriod(2025, time.January)

	rows := make([]record.Record, 0, 7)
	for i := 1; i <= 7; i++ {
		rows = append(rows, record.Record{
			ID: fmt.Sprintf("r%d", i), Kind: record.KindResults, Date: day(2025, time.January, i*3),
			Club: "Riverside", Opponent: "Opp", OwnScore: intPtr(i % 3), OpponentScore: intPtr(1),
		})
	}

	repo.
		On("ListRecords", mock.Anything, record.KindResults, mock.MatchedBy(func(f record.Filter) bool {
			return f.From.Equal(period.Start) && f.To.Equal(period.End) && f.Club == "Riverside" && !f.OnlyUnposted
		})).
		Return(rows, nil).
		Once()

	svc := NewPostingService(repo, dispatcher, nil, nil, PostingConfig{Club: "Riverside", MaxBatch: 5, TTL: time.Hour}, logging.NewNop())
	got, err := svc.PostResults(ctx, period)
	require.NoError(t, err)

	assert.Equal(t, "post_results_Riverside_2025-01", got.BaseKey)
	assert.Equal(t, 7, got.Count)
	assert.False(t, got.NothingToReport)
	require.Len(t, dispatcher.payloads, 2)
	assert.Equal(t, "post_results_Riverside_2025-01_part1", dispatcher.payloads[0].Key)
	assert.Equal(t, "post_results_Riverside_2025-01_part2", dispatcher.payloads[1].Key)
	assert.Len(t, dispatcher.payloads[1].SourceRefs, 2)
	assert.Equal(t, time.Hour, dispatcher.payloads[0].TTL)
	assert.Equal(t, 7, dispatcher.payloads[0].Body["total_items"])
	assert.Equal(t, 2, got.Dispatch.Sent())
}

func TestPostingService_NothingToReportUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := recordmock.NewRepository(t)
	audit := memory.NewDispatchAuditRepository()
	dispatcher := &captureDispatcher{}

	repo.On("ListRecords", mock.Anything, record.KindFixtures, mock.Anything).Return([]record.Record{}, nil).Once()

	svc := NewPostingService(repo, dispatcher, audit, nil, PostingConfig{Club: "Riverside"}, logging.NewNop())
	got, err := svc.PostFixtures(ctx, summary.MonthPeriod(2025, time.February))
	require.NoError(t, err)

	assert.True(t, got.NothingToReport)
	assert.Empty(t, dispatcher.payloads)
	entries := audit.All()
	require.Len(t, entries, 1)
	assert.Equal(t, dispatchaudit.StatusNothingToReport, entries[0].Status)
	assert.Equal(t, "post_fixtures_Riverside_2025-02", entries[0].OperationKey)
}

func TestPostingService_SourceFailureUsingMockery(t *testing.T) {
	t.Parallel()

	repo := recordmock.NewRepository(t)
	repo.On("ListRecords", mock.Anything, record.KindResults, mock.Anything).Return(nil, crerr.New("sheet locked")).Once()

	svc := NewPostingService(repo, &captureDispatcher{}, nil, nil, PostingConfig{Club: "Riverside"}, logging.NewNop())
	_, err := svc.PostResults(context.Background(), summary.MonthPeriod(2025, time.March))
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestPostingService_InvalidPeriod(t *testing.T) {
	t.Parallel()

	repo := recordmock.NewRepository(t)
	svc := NewPostingService(repo, &captureDispatcher{}, nil, nil, PostingConfig{}, logging.NewNop())

	_, err := svc.PostResults(context.Background(), summary.Period{Start: day(2025, time.March, 10), End: day(2025, time.March, 1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPostingService_RerunMarksAndSkipsDeliveredChunks(t *testing.T) {
	t.Parallel()

	seed := []record.Record{
		{ID: "f1", Kind: record.KindFixtures, Date: day(2025, time.April, 5), Club: "Riverside", Opponent: "A"},
		{ID: "f2", Kind: record.KindFixtures, Date: day(2025, time.April, 12), Club: "Riverside", Opponent: "B"},
		{ID: "f3", Kind: record.KindFixtures, Date: day(2025, time.April, 19), Club: "Other", Opponent: "C"},
	}
	f := newPipelineFixture(fastDispatchConfig(), seed...)
	svc := NewPostingService(f.records, f.pipeline, f.audit, nil, PostingConfig{Club: "Riverside", MaxBatch: 5}, logging.NewNop())
	ctx := context.Background()
	period := summary.MonthPeriod(2025, time.April)

	first, err := svc.PostFixtures(ctx, period)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, 1, first.Dispatch.Sent())

	second, err := svc.PostFixtures(ctx, period)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Dispatch.Duplicates())
	assert.Len(t, f.relay.Calls(), 1)

	for _, id := range []string{"f1", "f2"} {
		rec, _ := f.records.Get(record.Ref{Kind: record.KindFixtures, ID: id})
		assert.True(t, rec.Posted)
	}
	other, _ := f.records.Get(record.Ref{Kind: record.KindFixtures, ID: "f3"})
	assert.False(t, other.Posted)
}
