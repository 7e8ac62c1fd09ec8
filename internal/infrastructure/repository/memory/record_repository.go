package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/matchday-relay/internal/domain/record"
)

type RecordRepository struct {
	mu      sync.RWMutex
	rows    map[record.Kind]map[string]record.Record
	minutes map[string]record.MinutesReport
}

func NewRecordRepository(seed ...record.Record) *RecordRepository {
	repo := &RecordRepository{
		rows:    make(map[record.Kind]map[string]record.Record),
		minutes: make(map[string]record.MinutesReport),
	}
	for _, r := range seed {
		repo.Upsert(r)
	}
	return repo
}

func (r *RecordRepository) Upsert(rec record.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, ok := r.rows[rec.Kind]
	if !ok {
		rows = make(map[string]record.Record)
		r.rows[rec.Kind] = rows
	}
	rows[rec.ID] = rec
}

func (r *RecordRepository) ListRecords(_ context.Context, kind record.Kind, filter record.Filter) ([]record.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]record.Record, 0, len(r.rows[kind]))
	for _, rec := range r.rows[kind] {
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *RecordRepository) MarkPosted(_ context.Context, ref record.Ref) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[ref.Kind][ref.ID]
	if !ok || rec.Posted {
		return false, nil
	}
	rec.Posted = true
	r.rows[ref.Kind][ref.ID] = rec
	return true, nil
}

func (r *RecordRepository) UpdateStatus(_ context.Context, ref record.Ref, status record.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[ref.Kind][ref.ID]
	if !ok {
		return false, nil
	}
	rec.Status = status
	r.rows[ref.Kind][ref.ID] = rec
	return true, nil
}

func (r *RecordRepository) SaveMatchMinutes(_ context.Context, report record.MinutesReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minutes[report.MatchID] = report
	return nil
}

func (r *RecordRepository) Get(ref record.Ref) (record.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rows[ref.Kind][ref.ID]
	return rec, ok
}

func (r *RecordRepository) MatchMinutes(matchID string) (record.MinutesReport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.minutes[matchID]
	return report, ok
}
