package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunotel"
	"go.uber.org/zap"
)

// Options configures the process-wide connection pool
type Options struct {
	DSN             string
	Database        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Tracing         bool
	PingTimeout     time.Duration
}

// Open creates the shared *bun.DB, applies pool sizing, registers query
// hooks and verifies connectivity. The caller owns Close.
func Open(opts Options, logger *zap.Logger) (*bun.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if opts.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be a positive integer")
	}

	connectorOpts := []pgdriver.Option{pgdriver.WithDSN(opts.DSN)}
	if opts.ReadTimeout > 0 {
		connectorOpts = append(connectorOpts, pgdriver.WithReadTimeout(opts.ReadTimeout))
	}
	if opts.WriteTimeout > 0 {
		connectorOpts = append(connectorOpts, pgdriver.WithWriteTimeout(opts.WriteTimeout))
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(connectorOpts...))
	db := bun.NewDB(sqldb, pgdialect.New())

	Configure(db, opts, logger)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Configure applies pool limits and hooks to an already opened database.
// Split from Open so tests can reuse it with other dialects.
func Configure(db *bun.DB, opts Options, logger *zap.Logger) {
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	db.SetMaxIdleConns(opts.MaxIdleConns)
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	db.AddQueryHook(NewQueryLogger(logger))
	if opts.Tracing {
		db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(opts.Database)))
	}
}
