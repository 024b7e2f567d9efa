package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SlowQueryThreshold is the duration above which successful queries are
// logged at warn level
const SlowQueryThreshold = 500 * time.Millisecond

// QueryLogger is a bun.QueryHook writing every statement to zap
type QueryLogger struct {
	logger *zap.Logger
}

var _ bun.QueryHook = (*QueryLogger)(nil)

// NewQueryLogger creates a query hook; a nil logger disables output
func NewQueryLogger(logger *zap.Logger) *QueryLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryLogger{logger: logger.Named("sql")}
}

func (h *QueryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)
	fields := []zap.Field{
		zap.String("operation", event.Operation()),
		zap.Duration("duration", duration),
	}

	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		h.logger.Warn("Query failed", append(fields, zap.String("query", event.Query), zap.Error(event.Err))...)
	case duration > SlowQueryThreshold:
		h.logger.Warn("Slow query", append(fields, zap.String("query", event.Query))...)
	default:
		h.logger.Debug("Query executed", append(fields, zap.String("query", event.Query))...)
	}
}
