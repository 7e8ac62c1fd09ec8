package usecase

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/dispatchaudit"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/domain/summary"
	"github.com/riskibarqy/matchday-relay/internal/platform/id"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type AggregatorConfig struct {
	Club             string
	KeyMatchKeywords []string
	MaxBatch         int
	TTL              time.Duration
}

type SummaryPublication struct {
	Summary  summary.PeriodSummary `json:"summary"`
	Dispatch DispatchResult        `json:"dispatch"`
}

// AggregatorService summarizes a period of records and publishes the summary.
// It is period-agnostic; callers pick the bounds.
type AggregatorService struct {
	records    record.Repository
	dispatcher Dispatcher
	audit      dispatchaudit.Repository
	ids        id.Generator
	keyMatch   summary.KeyMatchPredicate
	cfg        AggregatorConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewAggregatorService(
	records record.Repository,
	dispatcher Dispatcher,
	audit dispatchaudit.Repository,
	ids id.Generator,
	cfg AggregatorConfig,
	logger *logging.Logger,
) *AggregatorService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if cfg.MaxBatch < 1 {
		cfg.MaxBatch = MaxChunkSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 6 * time.Hour
	}
	return &AggregatorService{
		records:    records,
		dispatcher: dispatcher,
		audit:      audit,
		ids:        ids,
		keyMatch:   summary.NewKeyMatchPredicate(cfg.KeyMatchKeywords),
		cfg:        cfg,
		logger:     logger.Named("aggregator"),
		now:        time.Now,
	}
}

// Summarize never fails on a store outage: the summary comes back empty with
// SourceUnavailable set. Only invalid input is returned as an error.
func (s *AggregatorService) Summarize(ctx context.Context, kind record.Kind, period summary.Period) (summary.PeriodSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.Summarize")
	defer span.End()

	if kind != record.KindFixtures && kind != record.KindResults {
		return summary.PeriodSummary{}, crerr.Wrapf(ErrInvalidInput, "unknown record kind %q", kind)
	}
	if err := period.Validate(); err != nil {
		return summary.PeriodSummary{}, crerr.Wrapf(ErrInvalidInput, "%v", err)
	}

	key := MonthlyKey(kind, s.cfg.Club, period)
	span.SetAttributes(attribute.String("summary.key", key))

	records, err := s.records.ListRecords(ctx, kind, record.Filter{From: period.Start, To: period.End, Club: s.cfg.Club})
	if err != nil {
		cause := crerr.Mark(crerr.Wrapf(err, "list %s", kind), ErrAggregationSourceUnavailable)
		s.logger.ErrorContext(ctx, "aggregation source unavailable", "operation_key", key, "error", cause)
		return summary.PeriodSummary{
			Kind:              kind,
			PeriodStart:       period.Start,
			PeriodEnd:         period.End,
			Matches:           []summary.MatchLine{},
			SourceUnavailable: true,
			Error:             cause.Error(),
			OperationKey:      key,
		}, nil
	}

	out := summary.Compute(summary.Input{
		Kind:     kind,
		Period:   period,
		Club:     s.cfg.Club,
		Records:  records,
		KeyMatch: s.keyMatch,
	})
	out.OperationKey = key

	s.logger.InfoContext(ctx, "aggregation snapshot",
		"operation_key", key,
		"item_count", out.Count,
		"wins", out.Wins,
		"draws", out.Draws,
		"losses", out.Losses,
		"goal_difference", out.GoalDifference,
		"clean_sheets", out.CleanSheets,
		"key_matches", out.KeyMatchCount,
	)
	return out, nil
}

// PublishSummary summarizes and, when there is something to report, sends the
// summary split into chunks of at most MaxBatch matches.
func (s *AggregatorService) PublishSummary(ctx context.Context, kind record.Kind, period summary.Period) (SummaryPublication, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregatorService.PublishSummary")
	defer span.End()

	sum, err := s.Summarize(ctx, kind, period)
	if err != nil {
		return SummaryPublication{}, err
	}
	out := SummaryPublication{Summary: sum}

	if sum.SourceUnavailable {
		return out, nil
	}
	if sum.NothingToReport {
		recordAudit(ctx, s.audit, s.ids, s.now, s.logger, dispatchaudit.Entry{
			OperationKey: sum.OperationKey,
			Operation:    OperationMonthlySummary,
			Status:       dispatchaudit.StatusNothingToReport,
			Metadata:     map[string]any{"kind": string(kind)},
		})
		return out, nil
	}

	items := make([]BatchItem, 0, len(sum.Matches))
	for _, line := range sum.Matches {
		items = append(items, BatchItem{Body: matchLineBody(line)})
	}

	payloads := ChunkPayloads(BatchRequest{
		BaseKey:   sum.OperationKey,
		Operation: OperationMonthlySummary,
		TTL:       s.cfg.TTL,
		MaxBatch:  s.cfg.MaxBatch,
		Envelope:  summaryEnvelope(s.cfg.Club, sum),
		Items:     items,
	})
	out.Dispatch = s.dispatcher.Dispatch(ctx, payloads)
	return out, nil
}

func summaryEnvelope(club string, sum summary.PeriodSummary) map[string]any {
	env := map[string]any{
		"event_type":      "monthly_" + string(sum.Kind),
		"club":            club,
		"period_start":    sum.PeriodStart.Format(time.DateOnly),
		"period_end":      sum.PeriodEnd.Format(time.DateOnly),
		"count":           sum.Count,
		"key_match_count": sum.KeyMatchCount,
	}
	if sum.Kind == record.KindResults {
		env["wins"] = sum.Wins
		env["draws"] = sum.Draws
		env["losses"] = sum.Losses
		env["goals_for"] = sum.GoalsFor
		env["goals_against"] = sum.GoalsAgainst
		env["goal_difference"] = sum.GoalDifference
		env["clean_sheets"] = sum.CleanSheets
		if sum.Best != nil {
			env["best_result"] = matchLineBody(*sum.Best)
		}
		if sum.Worst != nil {
			env["worst_result"] = matchLineBody(*sum.Worst)
		}
	}
	return env
}

func matchLineBody(line summary.MatchLine) map[string]any {
	body := map[string]any{
		"record_id": line.RecordID,
		"date":      line.Date.Format(time.DateOnly),
		"opponent":  line.Opponent,
		"key_match": line.KeyMatch,
	}
	if line.Competition != "" {
		body["competition"] = line.Competition
	}
	if line.Venue != "" {
		body["venue"] = line.Venue
	}
	if line.OwnScore != nil && line.OpponentScore != nil {
		body["own_score"] = *line.OwnScore
		body["opponent_score"] = *line.OpponentScore
		body["outcome"] = string(line.Outcome)
	}
	return body
}
