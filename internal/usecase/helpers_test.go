package usecase

import (
	"context"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/matchday-relay/internal/platform/cache"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
)

type relayCall struct {
	Key  string
	Body map[string]any
	At   time.Time
}

// fakeRelay answers from a scripted list of errors; once the script runs out
// every call succeeds.
type fakeRelay struct {
	mu     sync.Mutex
	calls  []relayCall
	script []error
	onCall func(n int)
}

func (f *fakeRelay) Publish(_ context.Context, key string, body map[string]any) (RelayResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, relayCall{Key: key, Body: body, At: time.Now()})
	n := len(f.calls)
	var err error
	if len(f.script) > 0 {
		err = f.script[0]
		f.script = f.script[1:]
	}
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return RelayResponse{StatusCode: 503, Diagnostic: "unavailable"}, err
	}
	return RelayResponse{StatusCode: 200}, nil
}

func (f *fakeRelay) Calls() []relayCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]relayCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeRelay) Keys() []string {
	calls := f.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Key)
	}
	return out
}

var errRelayDown = crerr.New("relay down")

type pipelineFixture struct {
	relay    *fakeRelay
	ledger   *Ledger
	durable  *memory.IdempotencyRepository
	records  *memory.RecordRepository
	audit    *memory.DispatchAuditRepository
	pipeline *DispatchPipeline
	sleeps   []time.Duration
}

func newPipelineFixture(cfg DispatchConfig, seed ...record.Record) *pipelineFixture {
	f := &pipelineFixture{
		relay:   &fakeRelay{},
		durable: memory.NewIdempotencyRepository(),
		records: memory.NewRecordRepository(seed...),
		audit:   memory.NewDispatchAuditRepository(),
	}
	logger := logging.NewNop()
	f.ledger = NewLedger(cache.NewStore(0), f.durable, logger)
	f.pipeline = NewDispatchPipeline(f.relay, f.ledger, f.records, f.audit, nil, cfg, logger)
	f.pipeline.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return ctx.Err()
	}
	return f
}

func fastDispatchConfig() DispatchConfig {
	return DispatchConfig{MaxAttempts: 3, BackoffBase: time.Second, RateLimitDelay: 0}
}

func intPtr(v int) *int {
	return &v
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 0, 0, 0, time.UTC)
}
