package usecase

import (
	"context"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/dispatchaudit"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/domain/summary"
	recordmock "github.com/riskibarqy/matchday-relay/internal/mocks/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resultRow(id string, d time.Time, opponent, competition string, own, opp int) record.Record {
	return record.Record{
		ID: id, Kind: record.KindResults, Date: d, Club: "Riverside",
		Opponent: opponent, Competition: competition,
		OwnScore: intPtr(own), OpponentScore: intPtr(opp), Status: record.StatusFinished,
	}
}

func newAggregatorFixture(cfg AggregatorConfig, seed ...record.Record) (*AggregatorService, *pipelineFixture) {
	f := newPipelineFixture(fastDispatchConfig(), seed...)
	svc := NewAggregatorService(f.records, f.pipeline, f.audit, nil, cfg, logging.NewNop())
	return svc, f
}

func TestAggregatorService_SummarizeMonth(t *testing.T) {
	t.Parallel()

	svc, _ := newAggregatorFixture(
		AggregatorConfig{Club: "Riverside", KeyMatchKeywords: []string{"derby", "cup"}},
		resultRow("r1", day(2025, time.January, 4), "Town", "League", 3, 0),
		resultRow("r2", day(2025, time.January, 11), "City Derby", "League", 1, 1),
		resultRow("r3", day(2025, time.January, 18), "United", "FA Cup", 0, 2),
		resultRow("r4", day(2025, time.January, 25), "Rovers", "League", 2, 0),
		resultRow("r5", day(2025, time.February, 1), "Athletic", "League", 5, 0),
	)

	got, err := svc.Summarize(context.Background(), record.KindResults, summary.MonthPeriod(2025, time.January))
	require.NoError(t, err)

	assert.Equal(t, 4, got.Count)
	assert.Equal(t, [3]int{2, 1, 1}, [3]int{got.Wins, got.Draws, got.Losses})
	assert.Equal(t, 6, got.GoalsFor)
	assert.Equal(t, 3, got.GoalsAgainst)
	assert.Equal(t, 3, got.GoalDifference)
	assert.Equal(t, 2, got.CleanSheets)
	assert.Equal(t, 2, got.KeyMatchCount)
	require.NotNil(t, got.Best)
	require.NotNil(t, got.Worst)
	assert.Equal(t, "r1", got.Best.RecordID)
	assert.Equal(t, "r3", got.Worst.RecordID)
	assert.Equal(t, "monthly_results_Riverside_2025-01", got.OperationKey)
}

func TestAggregatorService_EmptyMonthSendsNothing(t *testing.T) {
	t.Parallel()

	svc, f := newAggregatorFixture(
		AggregatorConfig{Club: "Riverside"},
		resultRow("r1", day(2025, time.January, 4), "Town", "League", 3, 0),
	)
	ctx := context.Background()

	got, err := svc.PublishSummary(ctx, record.KindResults, summary.MonthPeriod(2025, time.June))
	require.NoError(t, err)

	assert.True(t, got.Summary.NothingToReport)
	assert.Zero(t, got.Summary.Count)
	assert.Empty(t, got.Dispatch.Results)
	assert.Empty(t, f.relay.Calls())

	entries, err := f.audit.ListByKey(ctx, "monthly_results_Riverside_2025-06")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dispatchaudit.StatusNothingToReport, entries[0].Status)
}

func TestAggregatorService_PublishSummaryChunksAndIsIdempotent(t *testing.T) {
	t.Parallel()

	seed := make([]record.Record, 0, 12)
	for i := 1; i <= 12; i++ {
		seed = append(seed, resultRow("r"+string(rune('a'+i)), day(2025, time.March, i*2), "Opp", "League", i%4, 1))
	}
	svc, f := newAggregatorFixture(AggregatorConfig{Club: "Riverside", MaxBatch: 5}, seed...)
	ctx := context.Background()
	period := summary.MonthPeriod(2025, time.March)

	first, err := svc.PublishSummary(ctx, record.KindResults, period)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Dispatch.Sent())
	assert.Equal(t, []string{
		"monthly_results_Riverside_2025-03_part1",
		"monthly_results_Riverside_2025-03_part2",
		"monthly_results_Riverside_2025-03_part3",
	}, f.relay.Keys())

	body := f.relay.Calls()[0].Body
	assert.Equal(t, "monthly_results", body["event_type"])
	assert.Equal(t, 12, body["count"])
	assert.Contains(t, body, "best_result")

	second, err := svc.PublishSummary(ctx, record.KindResults, period)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Dispatch.Duplicates())
	assert.Len(t, f.relay.Calls(), 3)

	// Summaries never flip the posted flag.
	for _, rec := range seed {
		stored, _ := f.records.Get(rec.Ref())
		assert.False(t, stored.Posted)
	}
}

func TestAggregatorService_SourceUnavailableUsingMockery(t *testing.T) {
	t.Parallel()

	repo := recordmock.NewRepository(t)
	dispatcher := &captureDispatcher{}
	repo.On("ListRecords", mock.Anything, record.KindFixtures, mock.Anything).Return(nil, crerr.New("sheet missing")).Once()

	svc := NewAggregatorService(repo, dispatcher, nil, nil, AggregatorConfig{Club: "Riverside"}, logging.NewNop())
	got, err := svc.PublishSummary(context.Background(), record.KindFixtures, summary.MonthPeriod(2025, time.May))
	require.NoError(t, err)

	assert.True(t, got.Summary.SourceUnavailable)
	assert.Contains(t, got.Summary.Error, "sheet missing")
	assert.Empty(t, dispatcher.payloads)
}

func TestAggregatorService_RejectsUnknownKind(t *testing.T) {
	t.Parallel()

	svc, _ := newAggregatorFixture(AggregatorConfig{})
	_, err := svc.Summarize(context.Background(), record.Kind("tables"), summary.MonthPeriod(2025, time.May))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
