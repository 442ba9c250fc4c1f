package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"sqlq/config"
	"sqlq/shared/logger"
)

// MySQLDriver implements Driver for MySQL
type MySQLDriver struct {
	*sqlx.DB
	name string
}

// NewMySQLDriver opens and pings a MySQL pool
func NewMySQLDriver(cfg config.DatabaseConfig) (*MySQLDriver, error) {
	logger.Log.Debug("Initializing MySQL driver",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Name))

	db, err := sqlx.Connect("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL at %s: %w", cfg.Host, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Log.Info("MySQL driver initialized",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Name),
		logger.Int("max_open", cfg.MaxOpen))
	return NewMySQLDriverFromDB(db, cfg.Name), nil
}

// NewMySQLDriverFromDB wraps an existing pool.
func NewMySQLDriverFromDB(db *sqlx.DB, name string) *MySQLDriver {
	return &MySQLDriver{DB: db, name: name}
}

// Session pins one pooled connection
func (m *MySQLDriver) Session(ctx context.Context) (*Session, error) {
	conn, err := m.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return NewSession(conn), nil
}

// Exec executes a statement without returning rows
func (m *MySQLDriver) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	logger.Log.Debug("Executing MySQL statement", logger.String("sql", query))
	return m.ExecContext(ctx, query, args...)
}

// Ping tests the database connection
func (m *MySQLDriver) Ping(ctx context.Context) error {
	return m.PingContext(ctx)
}

// Close closes the pool
func (m *MySQLDriver) Close() error {
	return m.DB.Close()
}

// DriverName returns the driver name
func (m *MySQLDriver) DriverName() string {
	return "mysql"
}

// Pool exposes the underlying pool (migrations)
func (m *MySQLDriver) Pool() *sqlx.DB {
	return m.DB
}

// Name is the schema the pool is connected to
func (m *MySQLDriver) Name() string {
	return m.name
}

// Version queries the server version
func (m *MySQLDriver) Version(ctx context.Context) (string, error) {
	var version string
	if err := m.GetContext(ctx, &version, "SELECT VERSION()"); err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	return version, nil
}
