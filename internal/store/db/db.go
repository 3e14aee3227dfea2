// Package db opens and bootstraps the contest database.
//
// Two backends are supported: sqlite (default, single-file deployment the
// contest is normally run with) and mysql for shared installs. Both are
// plain database/sql handles; repositories in internal/store are written
// against the Querier interface so transactions thread through unchanged.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Driver names accepted in Config.Driver.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config holds the configuration for the database connection pool.
type Config struct {
	// Driver selects the backend: "sqlite" or "mysql".
	Driver string `yaml:"driver"`

	// DSN is the data source name. For sqlite this is a file path;
	// for mysql: "user:password@tcp(host:port)/dbname?parseTime=true".
	DSN string `yaml:"dsn"`

	// MaxOpenConnections is the maximum number of open connections.
	// Default: 25 (mysql), 1 writer semantics are handled by sqlite itself.
	MaxOpenConnections int `yaml:"maxOpenConnections"`

	// MaxIdleConnections is the maximum number of idle pooled connections.
	// Default: 5.
	MaxIdleConnections int `yaml:"maxIdleConnections"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	// Default: 5 minutes.
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	// Default: 10 minutes.
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
}

// DefaultConfig returns the default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:             DriverSQLite,
		DSN:                "data/contest.db",
		MaxOpenConnections: 25,
		MaxIdleConnections: 5,
		ConnMaxLifetime:    5 * time.Minute,
		ConnMaxIdleTime:    10 * time.Minute,
	}
}

// Querier abstracts query execution for both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Open creates a database connection pool, verifies it and installs the schema.
func Open(cfg *Config) (*sql.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("DSN cannot be empty")
	}
	if cfg.MaxOpenConnections == 0 {
		cfg.MaxOpenConnections = 25
	}
	if cfg.MaxIdleConnections == 0 {
		cfg.MaxIdleConnections = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = 10 * time.Minute
	}

	var (
		handle *sql.DB
		err    error
	)
	switch cfg.Driver {
	case "", DriverSQLite:
		handle, err = openSQLite(cfg.DSN)
	case DriverMySQL:
		handle, err = sql.Open("mysql", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	handle.SetMaxOpenConns(cfg.MaxOpenConnections)
	handle.SetMaxIdleConns(cfg.MaxIdleConnections)
	handle.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	handle.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := CreateSchema(handle, driverOf(cfg.Driver)); err != nil {
		_ = handle.Close()
		return nil, err
	}
	return handle, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	return sql.Open("sqlite", dsn)
}

func driverOf(name string) string {
	if name == "" {
		return DriverSQLite
	}
	return name
}
