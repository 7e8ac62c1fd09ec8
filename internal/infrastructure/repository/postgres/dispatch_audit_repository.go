package postgres

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/matchday-relay/internal/domain/dispatchaudit"
	qb "github.com/riskibarqy/matchday-relay/internal/platform/querybuilder"
)

const dispatchAuditTable = "dispatch_audit"

type dispatchAuditTableModel struct {
	ID           string    `db:"id"`
	OperationKey string    `db:"operation_key"`
	Operation    string    `db:"operation"`
	ItemCount    int       `db:"item_count"`
	Status       string    `db:"status"`
	RelayStatus  int       `db:"relay_status"`
	Attempts     int       `db:"attempts"`
	ErrorMessage *string   `db:"error_message"`
	Metadata     string    `db:"metadata"`
	OccurredAt   time.Time `db:"occurred_at"`
	TraceID      *string   `db:"trace_id"`
	SpanID       *string   `db:"span_id"`
}

func (m dispatchAuditTableModel) toDomain() (dispatchaudit.Entry, error) {
	entry := dispatchaudit.Entry{
		ID:           m.ID,
		OperationKey: m.OperationKey,
		Operation:    m.Operation,
		ItemCount:    m.ItemCount,
		Status:       dispatchaudit.Status(m.Status),
		RelayStatus:  m.RelayStatus,
		Attempts:     m.Attempts,
		OccurredAt:   m.OccurredAt.UTC(),
	}
	if m.ErrorMessage != nil {
		entry.ErrorMessage = *m.ErrorMessage
	}
	if m.TraceID != nil {
		entry.TraceID = *m.TraceID
	}
	if m.SpanID != nil {
		entry.SpanID = *m.SpanID
	}
	if strings.TrimSpace(m.Metadata) != "" && m.Metadata != "{}" {
		if err := jsoniter.UnmarshalFromString(m.Metadata, &entry.Metadata); err != nil {
			return dispatchaudit.Entry{}, crerr.Wrapf(err, "decode audit metadata id=%s", m.ID)
		}
	}
	return entry, nil
}

type DispatchAuditRepository struct {
	db *sqlx.DB
}

func NewDispatchAuditRepository(db *sqlx.DB) *DispatchAuditRepository {
	return &DispatchAuditRepository{db: db}
}

func (r *DispatchAuditRepository) Append(ctx context.Context, entry dispatchaudit.Entry) error {
	if strings.TrimSpace(entry.ID) == "" {
		return crerr.New("audit entry id is required")
	}
	occurredAt := entry.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	meta, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return crerr.Wrap(err, "marshal audit metadata")
	}

	model := dispatchAuditTableModel{
		ID:           entry.ID,
		OperationKey: entry.OperationKey,
		Operation:    entry.Operation,
		ItemCount:    entry.ItemCount,
		Status:       string(entry.Status),
		RelayStatus:  entry.RelayStatus,
		Attempts:     entry.Attempts,
		ErrorMessage: optionalString(entry.ErrorMessage),
		Metadata:     meta,
		OccurredAt:   occurredAt,
		TraceID:      optionalString(entry.TraceID),
		SpanID:       optionalString(entry.SpanID),
	}

	query, args, err := qb.InsertModel(dispatchAuditTable, model, `ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    relay_status = EXCLUDED.relay_status,
    attempts = EXCLUDED.attempts,
    error_message = EXCLUDED.error_message,
    metadata = EXCLUDED.metadata,
    occurred_at = EXCLUDED.occurred_at`)
	if err != nil {
		return crerr.Wrap(err, "build insert dispatch audit query")
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "insert dispatch audit key=%s status=%s", entry.OperationKey, entry.Status)
	}
	return nil
}

func (r *DispatchAuditRepository) ListByKey(ctx context.Context, operationKey string) ([]dispatchaudit.Entry, error) {
	query, args, err := qb.Select(qb.Columns(dispatchAuditTableModel{})...).
		From(dispatchAuditTable).
		Where(qb.Eq("operation_key", operationKey)).
		OrderBy("occurred_at", "id").
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build select dispatch audit query")
	}

	var rows []dispatchAuditTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isUndefinedTable(err) {
			return []dispatchaudit.Entry{}, nil
		}
		return nil, crerr.Wrapf(err, "select dispatch audit key=%s", operationKey)
	}

	out := make([]dispatchaudit.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func marshalMetadata(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	return jsoniter.MarshalToString(meta)
}
