package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Indexes backing the list filters. Email is covered by its UNIQUE constraint.
var userIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_users_name ON users (name)",
	"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users (created_at)",
}

// CreateTables creates the given models' tables when they do not exist yet
func CreateTables(ctx context.Context, db bun.IDB, models ...interface{}) error {
	for _, model := range models {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table for model %T: %w", model, err)
		}
	}

	return nil
}

// EnsureSchema bootstraps the tables and indexes the service needs
func EnsureSchema(ctx context.Context, db bun.IDB, models ...interface{}) error {
	if err := CreateTables(ctx, db, models...); err != nil {
		return err
	}

	for _, indexSQL := range userIndexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index with SQL %q: %w", indexSQL, err)
		}
	}

	return nil
}
