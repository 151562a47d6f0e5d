package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// ErrTableMissing is returned by readers of optional sources whose table does not exist.
var ErrTableMissing = errors.New("table does not exist")

const undefinedTable = "42P01"

// IsUndefinedTable reports whether err is Postgres undefined_table.
func IsUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
}

// IsNoRows reports whether err is sql.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
