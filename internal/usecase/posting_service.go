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

type PostingConfig struct {
	Club     string
	MaxBatch int
	TTL      time.Duration
}

type PostingResult struct {
	Kind            record.Kind    `json:"kind"`
	BaseKey         string         `json:"base_key"`
	Count           int            `json:"count"`
	NothingToReport bool           `json:"nothing_to_report"`
	Dispatch        DispatchResult `json:"dispatch"`
}

// PostingService publishes fixture lists and result recaps for a period in
// chunks, marking each record posted once its chunk is delivered.
type PostingService struct {
	records    record.Repository
	dispatcher Dispatcher
	audit      dispatchaudit.Repository
	ids        id.Generator
	cfg        PostingConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewPostingService(
	records record.Repository,
	dispatcher Dispatcher,
	audit dispatchaudit.Repository,
	ids id.Generator,
	cfg PostingConfig,
	logger *logging.Logger,
) *PostingService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if cfg.MaxBatch < 1 {
		cfg.MaxBatch = 5
	}
	return &PostingService{
		records:    records,
		dispatcher: dispatcher,
		audit:      audit,
		ids:        ids,
		cfg:        cfg,
		logger:     logger.Named("posting"),
		now:        time.Now,
	}
}

func (s *PostingService) PostFixtures(ctx context.Context, period summary.Period) (PostingResult, error) {
	return s.post(ctx, record.KindFixtures, period)
}

func (s *PostingService) PostResults(ctx context.Context, period summary.Period) (PostingResult, error) {
	return s.post(ctx, record.KindResults, period)
}

func (s *PostingService) post(ctx context.Context, kind record.Kind, period summary.Period) (PostingResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PostingService.post")
	defer span.End()

	if err := period.Validate(); err != nil {
		return PostingResult{}, crerr.Wrapf(ErrInvalidInput, "%v", err)
	}

	operation := PostingOperation(kind)
	baseKey := BatchKey(operation, s.cfg.Club, period)
	result := PostingResult{Kind: kind, BaseKey: baseKey}
	span.SetAttributes(attribute.String("posting.base_key", baseKey))

	// Posted rows stay in the set so chunk composition, and therefore chunk
	// keys, are stable across reruns.
	records, err := s.records.ListRecords(ctx, kind, record.Filter{From: period.Start, To: period.End, Club: s.cfg.Club})
	if err != nil {
		s.logger.ErrorContext(ctx, "list records failed", "operation_key", baseKey, "error", err)
		return result, crerr.Wrapf(ErrDependencyUnavailable, "list %s: %v", kind, err)
	}
	result.Count = len(records)

	if len(records) == 0 {
		result.NothingToReport = true
		s.logger.InfoContext(ctx, "nothing to report", "operation_key", baseKey, "item_count", 0)
		recordAudit(ctx, s.audit, s.ids, s.now, s.logger, dispatchaudit.Entry{
			OperationKey: baseKey,
			Operation:    operation,
			Status:       dispatchaudit.StatusNothingToReport,
		})
		return result, nil
	}

	items := make([]BatchItem, 0, len(records))
	for _, rec := range records {
		ref := rec.Ref()
		items = append(items, BatchItem{Ref: &ref, Body: recordBody(rec)})
	}

	payloads := ChunkPayloads(BatchRequest{
		BaseKey:   baseKey,
		Operation: operation,
		TTL:       s.cfg.TTL,
		MaxBatch:  s.cfg.MaxBatch,
		Envelope: map[string]any{
			"event_type":   operation,
			"club":         s.cfg.Club,
			"period_start": period.Start.Format(time.DateOnly),
			"period_end":   period.End.Format(time.DateOnly),
			"total_items":  len(records),
		},
		Items: items,
	})
	result.Dispatch = s.dispatcher.Dispatch(ctx, payloads)

	s.logger.InfoContext(ctx, "posting finished",
		"operation_key", baseKey,
		"item_count", len(records),
		"chunks", len(payloads),
		"sent", result.Dispatch.Sent(),
		"duplicates", result.Dispatch.Duplicates(),
		"failed", result.Dispatch.Failed(),
	)
	return result, nil
}

func recordBody(rec record.Record) map[string]any {
	body := map[string]any{
		"id":       rec.ID,
		"date":     rec.Date.Format(time.DateOnly),
		"opponent": rec.Opponent,
		"status":   string(rec.Status),
	}
	if rec.Competition != "" {
		body["competition"] = rec.Competition
	}
	if rec.Venue != "" {
		body["venue"] = rec.Venue
	}
	if rec.HasScore() {
		body["own_score"] = *rec.OwnScore
		body["opponent_score"] = *rec.OpponentScore
	}
	return body
}
