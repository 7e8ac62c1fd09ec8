package postgres

import (
	"database/sql"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"github.com/riskibarqy/matchday-relay/internal/domain/dispatchaudit"
	"github.com/riskibarqy/matchday-relay/internal/domain/idempotency"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUndefinedTable(t *testing.T) {
	t.Run("matches relation missing", func(t *testing.T) {
		err := crerr.Wrap(&pq.Error{Code: "42P01", Message: `relation "match_records" does not exist`}, "select")
		assert.True(t, isUndefinedTable(err))
	})

	t.Run("ignores other codes", func(t *testing.T) {
		assert.False(t, isUndefinedTable(&pq.Error{Code: "23505"}))
		assert.False(t, isUndefinedTable(crerr.New("boom")))
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(crerr.Wrap(sql.ErrNoRows, "get")))
	assert.False(t, isNotFound(crerr.New("other")))
}

func TestListRecordsQuery(t *testing.T) {
	filter := record.Filter{
		From:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:           time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		Club:         "Riverside",
		OnlyUnposted: true,
	}
	query, args, err := listRecordsQuery(record.KindResults, filter)
	require.NoError(t, err)

	assert.Contains(t, query, "FROM match_records WHERE kind = $1 AND match_date >= $2 AND match_date <= $3 AND lower(club) = lower($4) AND posted = $5 ORDER BY match_date, id")
	assert.Equal(t, []any{"results", "2025-01-01", "2025-01-31", "Riverside", false}, args)

	open, openArgs, err := listRecordsQuery(record.KindFixtures, record.Filter{})
	require.NoError(t, err)
	assert.Contains(t, open, "WHERE kind = $1 ORDER BY")
	assert.Equal(t, []any{"fixtures"}, openArgs)
}

func TestMatchRecordModelRoundTrip(t *testing.T) {
	own, opp := 2, 1
	rec := record.Record{
		ID: "r1", Kind: record.KindResults, Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
		Club: "Riverside", Opponent: "Town", OwnScore: &own, OpponentScore: &opp,
		Status: record.StatusFinished, Posted: true,
	}
	assert.Equal(t, rec, matchRecordModelFromDomain(rec).toDomain())

	fixture := record.Record{ID: "f1", Kind: record.KindFixtures, Status: record.StatusScheduled}
	model := matchRecordModelFromDomain(fixture)
	assert.False(t, model.OwnScore.Valid)
	assert.Nil(t, model.toDomain().OwnScore)
}

func TestIdempotencyModel(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	model, err := idempotencyModelFromDomain(idempotency.Record{Key: "k", CreatedAt: created, TTL: 6 * time.Hour})
	require.NoError(t, err)
	require.NotNil(t, model.ExpiresAt)
	assert.Equal(t, created.Add(6*time.Hour), *model.ExpiresAt)
	assert.Equal(t, int64(21600), model.TTLSeconds)
	assert.JSONEq(t, `{"ttl":"6h0m0s"}`, model.Metadata)

	forever, err := idempotencyModelFromDomain(idempotency.Record{Key: "k", CreatedAt: created})
	require.NoError(t, err)
	assert.Nil(t, forever.ExpiresAt)
	assert.Equal(t, time.Duration(0), forever.toDomain().TTL)
}

func TestDispatchAuditModelMetadata(t *testing.T) {
	row := dispatchAuditTableModel{
		ID: "a1", OperationKey: "k", Status: "failed",
		Metadata: `{"kind":"results"}`, ErrorMessage: optionalString("relay down"),
	}
	entry, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, dispatchaudit.StatusFailed, entry.Status)
	assert.Equal(t, "relay down", entry.ErrorMessage)
	assert.Equal(t, map[string]any{"kind": "results"}, entry.Metadata)

	meta, err := marshalMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", meta)
	assert.Nil(t, optionalString("  "))
}
