package postgres

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/matchday-relay/internal/domain/idempotency"
	qb "github.com/riskibarqy/matchday-relay/internal/platform/querybuilder"
)

const idempotencyTable = "idempotency_keys"

type idempotencyTableModel struct {
	Key        string     `db:"key"`
	CreatedAt  time.Time  `db:"created_at"`
	TTLSeconds int64      `db:"ttl_seconds"`
	ExpiresAt  *time.Time `db:"expires_at"`
	Metadata   string     `db:"metadata"`
}

func idempotencyModelFromDomain(rec idempotency.Record) (idempotencyTableModel, error) {
	model := idempotencyTableModel{
		Key:        rec.Key,
		CreatedAt:  rec.CreatedAt.UTC(),
		TTLSeconds: int64(rec.TTL / time.Second),
	}
	if expiresAt := rec.ExpiresAt(); !expiresAt.IsZero() {
		utc := expiresAt.UTC()
		model.ExpiresAt = &utc
	}
	meta, err := jsoniter.MarshalToString(map[string]any{"ttl": rec.TTL.String()})
	if err != nil {
		return idempotencyTableModel{}, err
	}
	model.Metadata = meta
	return model, nil
}

func (m idempotencyTableModel) toDomain() idempotency.Record {
	return idempotency.Record{
		Key:       m.Key,
		CreatedAt: m.CreatedAt.UTC(),
		TTL:       time.Duration(m.TTLSeconds) * time.Second,
	}
}

type IdempotencyRepository struct {
	db *sqlx.DB
}

func NewIdempotencyRepository(db *sqlx.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (idempotency.Record, bool, error) {
	query, args, err := qb.Select(qb.Columns(idempotencyTableModel{})...).
		From(idempotencyTable).
		Where(qb.Eq("key", key), qb.Expr("(expires_at IS NULL OR expires_at > NOW())")).
		Limit(1).
		ToSQL()
	if err != nil {
		return idempotency.Record{}, false, crerr.Wrap(err, "build select idempotency key query")
	}

	var row idempotencyTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, crerr.Wrapf(err, "select idempotency key=%s", key)
	}
	return row.toDomain(), true, nil
}

// PutIfAbsent inserts the key, or takes over a row whose TTL has lapsed. An
// unexpired row is left untouched and reported as not inserted.
func (r *IdempotencyRepository) PutIfAbsent(ctx context.Context, rec idempotency.Record) (bool, error) {
	model, err := idempotencyModelFromDomain(rec)
	if err != nil {
		return false, crerr.Wrap(err, "marshal idempotency metadata")
	}

	query, args, err := qb.InsertModel(idempotencyTable, model, `ON CONFLICT (key) DO UPDATE SET
    created_at = EXCLUDED.created_at,
    ttl_seconds = EXCLUDED.ttl_seconds,
    expires_at = EXCLUDED.expires_at,
    metadata = EXCLUDED.metadata
WHERE idempotency_keys.expires_at IS NOT NULL AND idempotency_keys.expires_at <= NOW()`)
	if err != nil {
		return false, crerr.Wrap(err, "build insert idempotency key query")
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, crerr.Wrapf(err, "insert idempotency key=%s", rec.Key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, crerr.Wrap(err, "idempotency rows affected")
	}
	return n > 0, nil
}
