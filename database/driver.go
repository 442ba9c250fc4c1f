package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Driver is the connection source every statement is bound to. The engine
// acquires one Session per executing unit so that session variables and
// transactions stay on a single connection.
type Driver interface {
	// Session pins a pooled connection until the session is closed
	Session(ctx context.Context) (*Session, error)

	// Exec runs a standalone statement on any pooled connection (DDL, maintenance)
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Connection management
	Ping(ctx context.Context) error
	Close() error

	// Driver metadata
	DriverName() string
	Pool() *sqlx.DB
}

// ErrorNumber extracts the server error number from a MySQL error.
func ErrorNumber(err error) (uint16, bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number, true
	}
	return 0, false
}
