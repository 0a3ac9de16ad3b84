package db

import (
	"database/sql"

	libdb "envmonitor/backend/libs/db"
)

// NewPostgres connects to Postgres using the shared library helper.
func NewPostgres(dsn string, maxOpenConns int) (*sql.DB, error) {
	return libdb.NewPostgresDB(dsn, libdb.PoolOptions{MaxOpenConns: maxOpenConns})
}
