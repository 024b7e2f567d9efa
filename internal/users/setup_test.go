package users

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	"github.com/eion/usuarios/internal/database"
)

// newTestDB opens an in-memory sqlite database with the users table. A
// single pooled connection keeps every query on the same in-memory file.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	database.Configure(db, database.Options{MaxOpenConns: 1, MaxIdleConns: 1}, zap.NewNop())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.EnsureSchema(context.Background(), db, (*UserSchema)(nil)))
	return db
}

func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	return NewPostgresStore(newTestDB(t))
}

func mustCreate(t *testing.T, store UserStore, email, name string, age Age) *User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), &CreateUserRequest{Email: email, Name: name, Age: age})
	require.NoError(t, err)
	return user
}

func strPtr(s string) *string { return &s }

func agePtr(a Age) *Age { return &a }
