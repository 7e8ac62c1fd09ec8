package usecase

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/dispatchaudit"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/platform/id"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/riskibarqy/matchday-relay/internal/platform/resilience"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

type RelayResponse struct {
	StatusCode int
	Diagnostic string
}

// Relay delivers one JSON body. Any error, including a non-2xx status, is a
// failed attempt.
type Relay interface {
	Publish(ctx context.Context, key string, body map[string]any) (RelayResponse, error)
}

// Payload is one outbound unit carrying its own idempotency key.
type Payload struct {
	Key        string
	Operation  string
	Body       map[string]any
	ItemCount  int
	TTL        time.Duration
	SourceRefs []record.Ref
}

type DispatchStatus string

const (
	DispatchStatusSent      DispatchStatus = "sent"
	DispatchStatusDuplicate DispatchStatus = "duplicate"
	DispatchStatusFailed    DispatchStatus = "failed"
)

type ChunkResult struct {
	Key         string         `json:"key"`
	Operation   string         `json:"operation"`
	ItemCount   int            `json:"item_count"`
	Status      DispatchStatus `json:"status"`
	Attempts    int            `json:"attempts"`
	RelayStatus int            `json:"relay_status,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type DispatchResult struct {
	Results []ChunkResult `json:"results"`
}

func (r DispatchResult) count(status DispatchStatus) int {
	n := 0
	for _, item := range r.Results {
		if item.Status == status {
			n++
		}
	}
	return n
}

func (r DispatchResult) Sent() int       { return r.count(DispatchStatusSent) }
func (r DispatchResult) Duplicates() int { return r.count(DispatchStatusDuplicate) }
func (r DispatchResult) Failed() int     { return r.count(DispatchStatusFailed) }

// Dispatcher is what the services need from the pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, payloads []Payload) DispatchResult
}

type DispatchConfig struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	RateLimitDelay time.Duration
}

func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		MaxAttempts:    3,
		BackoffBase:    time.Second,
		RateLimitDelay: time.Second,
	}
}

type DispatchPipeline struct {
	relay   Relay
	ledger  *Ledger
	records record.Repository
	audit   dispatchaudit.Repository
	ids     id.Generator
	limiter *rate.Limiter
	flights resilience.SingleFlight[ChunkResult]
	cfg     DispatchConfig
	logger  *logging.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewDispatchPipeline(
	relay Relay,
	ledger *Ledger,
	records record.Repository,
	audit dispatchaudit.Repository,
	ids id.Generator,
	cfg DispatchConfig,
	logger *logging.Logger,
) *DispatchPipeline {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffBase < 0 {
		cfg.BackoffBase = 0
	}

	limit := rate.Inf
	if cfg.RateLimitDelay > 0 {
		limit = rate.Every(cfg.RateLimitDelay)
	}

	return &DispatchPipeline{
		relay:   relay,
		ledger:  ledger,
		records: records,
		audit:   audit,
		ids:     ids,
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		logger:  logger.Named("dispatch"),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Dispatch sends payloads in order. Each payload is ledgered independently,
// so one failed chunk never blocks its siblings.
func (p *DispatchPipeline) Dispatch(ctx context.Context, payloads []Payload) DispatchResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.DispatchPipeline.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.Int("dispatch.payloads", len(payloads)))

	out := DispatchResult{Results: make([]ChunkResult, 0, len(payloads))}
	for _, payload := range payloads {
		payload := payload
		result, _, shared := p.flights.Do(payload.Key, func() (ChunkResult, error) {
			return p.dispatchOne(ctx, payload), nil
		})
		if shared && result.Status == DispatchStatusSent {
			// Another caller delivered this key concurrently.
			result.Status = DispatchStatusDuplicate
			result.Attempts = 0
		}
		out.Results = append(out.Results, result)
	}
	return out
}

func (p *DispatchPipeline) dispatchOne(ctx context.Context, payload Payload) ChunkResult {
	result := ChunkResult{
		Key:       payload.Key,
		Operation: payload.Operation,
		ItemCount: payload.ItemCount,
	}
	logger := p.logger.With("operation_key", payload.Key, "operation", payload.Operation, "item_count", payload.ItemCount)

	if !p.ledger.ShouldDispatch(ctx, payload.Key) {
		result.Status = DispatchStatusDuplicate
		logger.InfoContext(ctx, "duplicate suppressed")
		p.writeAudit(ctx, result, nil)
		return result
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := p.cfg.BackoffBase << (attempt - 2)
			if err := p.sleep(ctx, backoff); err != nil {
				lastErr = crerr.Wrap(err, "abandoned during backoff")
				break
			}
		}
		if err := p.limiter.Wait(ctx); err != nil {
			lastErr = crerr.Wrap(err, "abandoned while rate limited")
			break
		}

		result.Attempts = attempt
		resp, err := p.relay.Publish(ctx, payload.Key, payload.Body)
		result.RelayStatus = resp.StatusCode
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = crerr.Mark(err, ErrDispatchTransport)
		logger.WarnContext(ctx, "relay call failed", "attempt", attempt, "relay_status", resp.StatusCode, "error", err)
	}

	if lastErr != nil {
		result.Status = DispatchStatusFailed
		result.Error = lastErr.Error()
		logger.ErrorContext(ctx, "dispatch failed", "attempt", result.Attempts, "error", lastErr)
		p.writeAudit(ctx, result, lastErr)
		return result
	}

	result.Status = DispatchStatusSent
	if err := p.ledger.MarkDispatched(ctx, payload.Key, payload.TTL); err != nil {
		logger.ErrorContext(ctx, "mark dispatched failed", "error", err)
	}
	p.markPosted(ctx, logger, payload.SourceRefs)
	logger.InfoContext(ctx, "dispatched", "attempt", result.Attempts, "relay_status", result.RelayStatus)
	p.writeAudit(ctx, result, nil)
	return result
}

func (p *DispatchPipeline) markPosted(ctx context.Context, logger *logging.Logger, refs []record.Ref) {
	if p.records == nil {
		return
	}
	for _, ref := range refs {
		changed, err := p.records.MarkPosted(ctx, ref)
		if err != nil {
			logger.WarnContext(ctx, "mark posted failed", "record_id", ref.ID, "record_kind", ref.Kind, "error", err)
			continue
		}
		if !changed {
			logger.DebugContext(ctx, "record already posted", "record_id", ref.ID)
		}
	}
}

func (p *DispatchPipeline) writeAudit(ctx context.Context, result ChunkResult, cause error) {
	status := dispatchaudit.StatusDispatched
	switch result.Status {
	case DispatchStatusDuplicate:
		status = dispatchaudit.StatusDuplicate
	case DispatchStatusFailed:
		status = dispatchaudit.StatusFailed
	}
	entry := dispatchaudit.Entry{
		OperationKey: result.Key,
		Operation:    result.Operation,
		ItemCount:    result.ItemCount,
		Status:       status,
		RelayStatus:  result.RelayStatus,
		Attempts:     result.Attempts,
	}
	if cause != nil {
		entry.ErrorMessage = cause.Error()
	}
	recordAudit(ctx, p.audit, p.ids, p.now, p.logger, entry)
}

// recordAudit fills identity and trace fields and never fails the caller.
func recordAudit(
	ctx context.Context,
	repo dispatchaudit.Repository,
	ids id.Generator,
	now func() time.Time,
	logger *logging.Logger,
	entry dispatchaudit.Entry,
) {
	if repo == nil {
		return
	}
	if entry.ID == "" {
		generated, err := ids.NewID()
		if err != nil {
			logger.WarnContext(ctx, "generate audit id failed", "operation_key", entry.OperationKey, "error", err)
			return
		}
		entry.ID = generated
	}
	entry.OccurredAt = now().UTC()
	entry.TraceID, entry.SpanID = traceIDs(ctx)

	if err := repo.Append(ctx, entry); err != nil {
		logger.WarnContext(ctx, "append dispatch audit failed", "operation_key", entry.OperationKey, "status", entry.Status, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
