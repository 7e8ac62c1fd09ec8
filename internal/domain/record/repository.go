package record

import "context"

// Repository is the row-oriented record store. Missing tables or sheets read
// as empty rather than failing.
type Repository interface {
	ListRecords(ctx context.Context, kind Kind, filter Filter) ([]Record, error)
	// MarkPosted reports whether the row changed; re-marking is a no-op.
	MarkPosted(ctx context.Context, ref Ref) (bool, error)
	// UpdateStatus reports whether the row exists.
	UpdateStatus(ctx context.Context, ref Ref, status Status) (bool, error)
	SaveMatchMinutes(ctx context.Context, report MinutesReport) error
}
