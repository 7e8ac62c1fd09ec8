package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/matchday-relay/internal/domain/dispatchaudit"
)

type DispatchAuditRepository struct {
	mu      sync.RWMutex
	entries []dispatchaudit.Entry
}

func NewDispatchAuditRepository() *DispatchAuditRepository {
	return &DispatchAuditRepository{}
}

func (r *DispatchAuditRepository) Append(_ context.Context, entry dispatchaudit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *DispatchAuditRepository) ListByKey(_ context.Context, operationKey string) ([]dispatchaudit.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]dispatchaudit.Entry, 0)
	for _, e := range r.entries {
		if e.OperationKey == operationKey {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *DispatchAuditRepository) All() []dispatchaudit.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]dispatchaudit.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
