package querybuilder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBuilder(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := Select("id", "opponent").
		From("match_records").
		Where(Eq("kind", "results"), Expr("match_date >= ?", from), nil, Expr("lower(club) = lower(?)", "Riverside")).
		OrderBy("match_date", "id").
		Limit(10).
		ToSQL()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, opponent FROM match_records WHERE kind = $1 AND match_date >= $2 AND lower(club) = lower($3) ORDER BY match_date, id LIMIT 10", query)
	assert.Equal(t, []any{"results", from, "Riverside"}, args)
}

func TestInsertModel(t *testing.T) {
	type row struct {
		Key     string `db:"key"`
		TTL     int64  `db:"ttl_seconds"`
		Skipped string `db:"-"`
		hidden  string
	}

	query, args, err := InsertModel("idempotency_keys", row{Key: "k", TTL: 60, hidden: "x"}, "ON CONFLICT (key) DO NOTHING")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO idempotency_keys (key, ttl_seconds) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING", query)
	assert.Equal(t, []any{"k", int64(60)}, args)

	assert.Equal(t, []string{"key", "ttl_seconds"}, Columns(row{}))

	_, _, err = InsertModel("t", 42, "")
	assert.Error(t, err)
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("match_records").
		Set("posted", true).
		SetExpr("updated_at", "NOW()").
		Where(Eq("kind", "fixtures"), Eq("id", "m1"), Expr("posted = ?", false)).
		ToSQL()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE match_records SET posted = $1, updated_at = NOW() WHERE kind = $2 AND id = $3 AND posted = $4", query)
	assert.Equal(t, []any{true, "fixtures", "m1", false}, args)
}

func TestBuildersRejectIncompleteInput(t *testing.T) {
	_, _, err := Select().From("t").ToSQL()
	assert.Error(t, err)
	_, _, err = InsertInto("t").Columns("a").ToSQL()
	assert.Error(t, err)
	_, _, err = InsertInto("t").Columns("a", "b").Values(1).ToSQL()
	assert.Error(t, err)
	_, _, err = Update("t").ToSQL()
	assert.Error(t, err)
}
