package idempotency

import "context"

// Repository is the durable ledger. PutIfAbsent must be write-if-absent: it
// reports false when an unexpired record for the key already exists.
type Repository interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	PutIfAbsent(ctx context.Context, rec Record) (bool, error)
}
