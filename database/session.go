package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sqlq/shared/logger"
)

// ErrNoTransaction is returned by Commit and Rollback outside a transaction.
var ErrNoTransaction = errors.New("no transaction in progress")

// Session is a single pinned connection. While a transaction is open every
// statement is routed through it; otherwise the connection autocommits.
type Session struct {
	conn *sqlx.Conn
	tx   *sqlx.Tx
}

// NewSession wraps a pinned connection.
func NewSession(conn *sqlx.Conn) *Session {
	return &Session{conn: conn}
}

// AutoCommit reports whether no transaction is open.
func (s *Session) AutoCommit() bool {
	return s.tx == nil
}

// Begin opens a transaction. Beginning twice is a no-op.
func (s *Session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit commits and returns the session to autocommit.
func (s *Session) Commit() error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	return tx.Commit()
}

// Rollback discards the open transaction and returns the session to autocommit.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	return tx.Rollback()
}

// Query runs a row-returning statement.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	if s.tx != nil {
		return s.tx.QueryxContext(ctx, query, args...)
	}
	return s.conn.QueryxContext(ctx, query, args...)
}

// Exec runs a statement without rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.tx != nil {
		return s.tx.ExecContext(ctx, query, args...)
	}
	return s.conn.ExecContext(ctx, query, args...)
}

// Close rolls back anything still open and releases the connection to the
// pool. Failures are logged, never returned.
func (s *Session) Close() {
	if s.tx != nil {
		if err := s.Rollback(); err != nil {
			logger.Log.Warn("Failed to roll back abandoned transaction", logger.Err(err))
		}
	}
	if err := s.conn.Close(); err != nil {
		logger.Log.Warn("Failed to release connection", logger.Err(err))
	}
}
