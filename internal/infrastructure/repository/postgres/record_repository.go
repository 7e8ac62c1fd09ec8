package postgres

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	qb "github.com/riskibarqy/matchday-relay/internal/platform/querybuilder"
)

const (
	matchRecordsTable  = "match_records"
	playerMinutesTable = "player_match_minutes"
)

type RecordRepository struct {
	db *sqlx.DB
}

func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) ListRecords(ctx context.Context, kind record.Kind, filter record.Filter) ([]record.Record, error) {
	query, args, err := listRecordsQuery(kind, filter)
	if err != nil {
		return nil, crerr.Wrap(err, "build select match records query")
	}

	var rows []matchRecordTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isUndefinedTable(err) {
			return []record.Record{}, nil
		}
		return nil, crerr.Wrapf(err, "select %s records", kind)
	}

	out := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func listRecordsQuery(kind record.Kind, filter record.Filter) (string, []any, error) {
	var from, to, club, unposted qb.Condition
	if !filter.From.IsZero() {
		from = qb.Expr("match_date >= ?", filter.From.UTC().Format(time.DateOnly))
	}
	if !filter.To.IsZero() {
		to = qb.Expr("match_date <= ?", filter.To.UTC().Format(time.DateOnly))
	}
	if c := strings.TrimSpace(filter.Club); c != "" {
		club = qb.Expr("lower(club) = lower(?)", c)
	}
	if filter.OnlyUnposted {
		unposted = qb.Eq("posted", false)
	}

	return qb.Select(qb.Columns(matchRecordTableModel{})...).
		From(matchRecordsTable).
		Where(qb.Eq("kind", string(kind)), from, to, club, unposted).
		OrderBy("match_date", "id").
		ToSQL()
}

// Upsert is used by seeding and the sheet importer.
func (r *RecordRepository) Upsert(ctx context.Context, rec record.Record) error {
	query, args, err := qb.InsertModel(matchRecordsTable, matchRecordModelFromDomain(rec), `ON CONFLICT (kind, id) DO UPDATE SET
    match_date = EXCLUDED.match_date,
    club = EXCLUDED.club,
    opponent = EXCLUDED.opponent,
    competition = EXCLUDED.competition,
    venue = EXCLUDED.venue,
    own_score = EXCLUDED.own_score,
    opponent_score = EXCLUDED.opponent_score,
    status = EXCLUDED.status,
    updated_at = NOW()`)
	if err != nil {
		return crerr.Wrap(err, "build upsert match record query")
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "upsert match record kind=%s id=%s", rec.Kind, rec.ID)
	}
	return nil
}

func (r *RecordRepository) MarkPosted(ctx context.Context, ref record.Ref) (bool, error) {
	query, args, err := qb.Update(matchRecordsTable).
		Set("posted", true).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("kind", string(ref.Kind)), qb.Eq("id", ref.ID), qb.Eq("posted", false)).
		ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build mark posted query")
	}
	return r.execAffected(ctx, query, args, "mark posted", ref)
}

func (r *RecordRepository) UpdateStatus(ctx context.Context, ref record.Ref, status record.Status) (bool, error) {
	query, args, err := qb.Update(matchRecordsTable).
		Set("status", string(status)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("kind", string(ref.Kind)), qb.Eq("id", ref.ID)).
		ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build update status query")
	}
	return r.execAffected(ctx, query, args, "update status", ref)
}

func (r *RecordRepository) execAffected(ctx context.Context, query string, args []any, action string, ref record.Ref) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return false, nil
		}
		return false, crerr.Wrapf(err, "%s kind=%s id=%s", action, ref.Kind, ref.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, crerr.Wrapf(err, "%s rows affected", action)
	}
	return n > 0, nil
}

// SaveMatchMinutes replaces the stored report for the match in one
// transaction.
func (r *RecordRepository) SaveMatchMinutes(ctx context.Context, report record.MinutesReport) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return crerr.Wrap(err, "begin save minutes tx")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+playerMinutesTable+" WHERE match_id = $1", report.MatchID); err != nil {
		return crerr.Wrapf(err, "clear minutes match_id=%s", report.MatchID)
	}

	if len(report.Players) > 0 {
		insert := qb.InsertInto(playerMinutesTable).Columns(qb.Columns(playerMinutesInsertModel{})...)
		recordedAt := report.RecordedAt.UTC()
		if recordedAt.IsZero() {
			recordedAt = time.Now().UTC()
		}
		for _, p := range report.Players {
			insert.Values(report.MatchID, p.PlayerID, p.Minutes, report.State, recordedAt)
		}
		query, args, err := insert.ToSQL()
		if err != nil {
			return crerr.Wrap(err, "build insert minutes query")
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return crerr.Wrapf(err, "insert minutes match_id=%s", report.MatchID)
		}
	}

	if err := tx.Commit(); err != nil {
		return crerr.Wrap(err, "commit save minutes tx")
	}
	return nil
}
