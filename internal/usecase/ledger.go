package usecase

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/idempotency"
	"github.com/riskibarqy/matchday-relay/internal/platform/cache"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
)

const ledgerMemoryPrefix = "idem:"

// Ledger answers whether a key may be dispatched. The memory layer is a fast
// path lost on restart; the durable repository is the source of truth.
type Ledger struct {
	memory  *cache.Store
	durable idempotency.Repository
	logger  *logging.Logger
	now     func() time.Time
}

func NewLedger(memory *cache.Store, durable idempotency.Repository, logger *logging.Logger) *Ledger {
	if memory == nil {
		memory = cache.NewStore(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ledger{
		memory:  memory,
		durable: durable,
		logger:  logger.Named("ledger"),
		now:     time.Now,
	}
}

// ShouldDispatch is false while an unexpired record exists for key. A durable
// lookup failure is logged and treated as absent so delivery is not blocked.
func (l *Ledger) ShouldDispatch(ctx context.Context, key string) bool {
	if _, ok := l.memory.Get(ctx, ledgerMemoryPrefix+key); ok {
		return false
	}
	if l.durable == nil {
		return true
	}

	rec, found, err := l.durable.Get(ctx, key)
	if err != nil {
		l.logger.WarnContext(ctx, "durable ledger lookup failed", "operation_key", key, "error", err)
		return true
	}
	now := l.now()
	if !found || rec.Expired(now) {
		return true
	}

	l.memory.SetWithTTL(ctx, ledgerMemoryPrefix+key, rec, rec.Remaining(now))
	return false
}

// MarkDispatched records key after a confirmed relay success. A zero ttl keeps
// the mark until the backend evicts it.
func (l *Ledger) MarkDispatched(ctx context.Context, key string, ttl time.Duration) error {
	rec := idempotency.Record{Key: key, CreatedAt: l.now().UTC(), TTL: ttl}
	l.memory.SetWithTTL(ctx, ledgerMemoryPrefix+key, rec, ttl)

	if l.durable == nil {
		return nil
	}
	inserted, err := l.durable.PutIfAbsent(ctx, rec)
	if err != nil {
		return crerr.Wrapf(ErrDependencyUnavailable, "mark %s in durable ledger: %v", key, err)
	}
	if !inserted {
		l.logger.WarnContext(ctx, "key already present in durable ledger", "operation_key", key)
	}
	return nil
}
