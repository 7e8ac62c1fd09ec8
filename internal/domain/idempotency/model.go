package idempotency

import "time"

// Record marks a key as dispatched. A zero TTL never expires.
type Record struct {
	Key       string
	CreatedAt time.Time
	TTL       time.Duration
}

func (r Record) ExpiresAt() time.Time {
	if r.TTL <= 0 {
		return time.Time{}
	}
	return r.CreatedAt.Add(r.TTL)
}

func (r Record) Expired(now time.Time) bool {
	expiresAt := r.ExpiresAt()
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}

// Remaining is the TTL left at now; zero for records that never expire.
func (r Record) Remaining(now time.Time) time.Duration {
	expiresAt := r.ExpiresAt()
	if expiresAt.IsZero() {
		return 0
	}
	return expiresAt.Sub(now)
}
