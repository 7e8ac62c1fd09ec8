package postgres

import (
	"database/sql"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

const pqUndefinedTable = "42P01"

func isNotFound(err error) bool {
	return crerr.Is(err, sql.ErrNoRows)
}

// isUndefinedTable lets a store that was never migrated read as empty.
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if crerr.As(err, &pqErr) {
		return string(pqErr.Code) == pqUndefinedTable
	}
	return false
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func optionalInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func intFromNull(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}
