package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	basecache "github.com/riskibarqy/matchday-relay/internal/platform/cache"
	"github.com/riskibarqy/matchday-relay/internal/platform/resilience"
)

// RecordRepository memoizes ListRecords in front of a slow store. Any write
// that can change a listing drops every cached listing of that kind.
type RecordRepository struct {
	next    record.Repository
	cache   *basecache.Store
	ttl     time.Duration
	flights resilience.SingleFlight[[]record.Record]
}

func NewRecordRepository(next record.Repository, cache *basecache.Store, ttl time.Duration) *RecordRepository {
	return &RecordRepository{next: next, cache: cache, ttl: ttl}
}

func (r *RecordRepository) ListRecords(ctx context.Context, kind record.Kind, filter record.Filter) ([]record.Record, error) {
	key := listKey(kind, filter)
	if v, ok := r.cache.Get(ctx, key); ok {
		items, _ := v.([]record.Record)
		return append([]record.Record(nil), items...), nil
	}

	items, err, _ := r.flights.Do(key, func() ([]record.Record, error) {
		items, err := r.next.ListRecords(ctx, kind, filter)
		if err != nil {
			return nil, err
		}
		r.cache.SetWithTTL(ctx, key, append([]record.Record(nil), items...), r.ttl)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]record.Record(nil), items...), nil
}

func (r *RecordRepository) MarkPosted(ctx context.Context, ref record.Ref) (bool, error) {
	changed, err := r.next.MarkPosted(ctx, ref)
	if changed {
		r.invalidate(ctx, ref.Kind)
	}
	return changed, err
}

func (r *RecordRepository) UpdateStatus(ctx context.Context, ref record.Ref, status record.Status) (bool, error) {
	found, err := r.next.UpdateStatus(ctx, ref, status)
	if found {
		r.invalidate(ctx, ref.Kind)
	}
	return found, err
}

func (r *RecordRepository) SaveMatchMinutes(ctx context.Context, report record.MinutesReport) error {
	return r.next.SaveMatchMinutes(ctx, report)
}

func (r *RecordRepository) invalidate(ctx context.Context, kind record.Kind) {
	r.cache.DeletePrefix(ctx, "records:"+string(kind)+":")
}

func listKey(kind record.Kind, f record.Filter) string {
	var b strings.Builder
	b.WriteString("records:")
	b.WriteString(string(kind))
	b.WriteByte(':')
	b.WriteString(dayKey(f.From))
	b.WriteByte(':')
	b.WriteString(dayKey(f.To))
	b.WriteByte(':')
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Club)))
	b.WriteByte(':')
	b.WriteString(strconv.FormatBool(f.OnlyUnposted))
	return b.String()
}

func dayKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}
