package usecase

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/sourcegraph/conc"
)

var ErrRouterClosed = crerr.New("shard router closed")

type ReportHandler interface {
	HandleReport(ctx context.Context, report matchevent.RawReport) (EventOutcome, error)
}

type shardJob struct {
	ctx    context.Context
	report matchevent.RawReport
	done   func(EventOutcome, error)
}

// ShardRouter pins every match to one goroutine chosen by hashing the match
// id, so a session only ever sees its reports in submission order.
type ShardRouter struct {
	handler ReportHandler
	shards  []chan shardJob
	workers conc.WaitGroup
	logger  *logging.Logger

	mu     sync.RWMutex
	closed bool
}

func NewShardRouter(handler ReportHandler, shardCount, buffer int, logger *logging.Logger) *ShardRouter {
	if logger == nil {
		logger = logging.Default()
	}
	if shardCount < 1 {
		shardCount = 1
	}
	if buffer < 0 {
		buffer = 0
	}

	r := &ShardRouter{
		handler: handler,
		shards:  make([]chan shardJob, shardCount),
		logger:  logger.Named("shard-router"),
	}
	for i := range r.shards {
		ch := make(chan shardJob, buffer)
		r.shards[i] = ch
		shard := i
		r.workers.Go(func() {
			r.run(shard, ch)
		})
	}
	return r
}

func ShardFor(matchID string, shardCount int) int {
	if shardCount <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.TrimSpace(matchID)))
	return int(h.Sum32() % uint32(shardCount))
}

// Submit queues a report on its match's shard. done may be nil and runs on
// the shard goroutine.
func (r *ShardRouter) Submit(ctx context.Context, report matchevent.RawReport, done func(EventOutcome, error)) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRouterClosed
	}

	ch := r.shards[ShardFor(report.MatchID, len(r.shards))]
	select {
	case ch <- shardJob{ctx: ctx, report: report, done: done}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting reports, drains queued ones and waits for the shards.
func (r *ShardRouter) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, ch := range r.shards {
		close(ch)
	}
	r.mu.Unlock()

	r.workers.Wait()
}

func (r *ShardRouter) run(shard int, jobs <-chan shardJob) {
	for job := range jobs {
		outcome, err := r.handler.HandleReport(job.ctx, job.report)
		if err != nil {
			r.logger.DebugContext(job.ctx, "report handled with error", "shard", shard, "match_id", job.report.MatchID, "error", err)
		}
		if job.done != nil {
			job.done(outcome, err)
		}
	}
}
