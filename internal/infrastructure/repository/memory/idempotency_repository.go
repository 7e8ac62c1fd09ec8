package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/matchday-relay/internal/domain/idempotency"
)

// IdempotencyRepository is a process-local durable ledger for dev and tests.
type IdempotencyRepository struct {
	mu   sync.Mutex
	rows map[string]idempotency.Record
	now  func() time.Time
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{
		rows: make(map[string]idempotency.Record),
		now:  time.Now,
	}
}

func (r *IdempotencyRepository) Get(_ context.Context, key string) (idempotency.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[key]
	if !ok || rec.Expired(r.now()) {
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

// PutIfAbsent stores rec unless an unexpired record already holds the key.
func (r *IdempotencyRepository) PutIfAbsent(_ context.Context, rec idempotency.Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rows[rec.Key]; ok && !existing.Expired(r.now()) {
		return false, nil
	}
	r.rows[rec.Key] = rec
	return true, nil
}

func (r *IdempotencyRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
