package users

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// UserSchema represents the users table schema. The UNIQUE constraint on
// email is what serializes concurrent registrations of the same address.
type UserSchema struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk,type:uuid" json:"id"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	Name      string    `bun:"name,notnull" json:"name"`
	Age       string    `bun:"age,notnull" json:"age"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// PostgresStore implements UserStore on top of bun
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new user store instance
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateUser inserts a new user with a freshly generated id
func (s *PostgresStore) CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error) {
	now := time.Now().UTC()
	schema := &UserSchema{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      req.Name,
		Age:       canonicalAge(req.Age),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.db.NewInsert().Model(schema).Exec(ctx); err != nil {
		return nil, classifyError("create user", err)
	}

	return UserSchemaToUser(schema), nil
}

// GetUser retrieves a user by id
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*User, error) {
	userID, ok := canonicalUserID(userID)
	if !ok {
		return nil, ErrNotFound
	}

	schema := new(UserSchema)
	err := s.db.NewSelect().Model(schema).Where("u.id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, classifyError("get user", err)
	}

	return UserSchemaToUser(schema), nil
}

// ListUsers returns users matching every non-blank filter; with no filters
// it returns the whole collection
func (s *PostgresStore) ListUsers(ctx context.Context, req *ListUsersRequest) ([]*User, error) {
	var schemas []UserSchema
	query := s.db.NewSelect().Model(&schemas)

	if req != nil {
		if req.Name != "" {
			query = query.Where("u.name = ?", req.Name)
		}
		if req.Email != "" {
			query = query.Where("u.email = ?", req.Email)
		}
		if req.Age != "" {
			query = query.Where("u.age = ?", req.Age)
		}
	}

	err := query.Order("u.created_at ASC", "u.id ASC").Scan(ctx)
	if err != nil {
		return nil, classifyError("list users", err)
	}

	users := make([]*User, 0, len(schemas))
	for i := range schemas {
		users = append(users, UserSchemaToUser(&schemas[i]))
	}
	return users, nil
}

// UpdateUser applies only the supplied fields
func (s *PostgresStore) UpdateUser(ctx context.Context, userID string, req *UpdateUserRequest) (*User, error) {
	userID, ok := canonicalUserID(userID)
	if !ok {
		return nil, ErrNotFound
	}

	schema := &UserSchema{ID: userID, UpdatedAt: time.Now().UTC()}
	columns := []string{"updated_at"}
	if req.Email != nil {
		schema.Email = *req.Email
		columns = append(columns, "email")
	}
	if req.Name != nil {
		schema.Name = *req.Name
		columns = append(columns, "name")
	}
	if req.Age != nil {
		schema.Age = canonicalAge(*req.Age)
		columns = append(columns, "age")
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model(schema).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return sql.ErrNoRows
		}

		return tx.NewSelect().Model(schema).WherePK().Scan(ctx)
	})
	if err != nil {
		return nil, classifyError("update user", err)
	}

	return UserSchemaToUser(schema), nil
}

// DeleteUser removes a user permanently
func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	userID, ok := canonicalUserID(userID)
	if !ok {
		return ErrNotFound
	}

	result, err := s.db.NewDelete().
		Model((*UserSchema)(nil)).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return classifyError("delete user", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// canonicalUserID returns the id in the dashed lower-case form it is stored
// in. Ids that cannot exist read as not found instead of failing the uuid
// cast in Postgres.
func canonicalUserID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// classifyError maps driver failures onto the package sentinels, keeping
// the driver error in the chain for logging
func classifyError(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("failed to %s: %w: %w", op, ErrDuplicateEmail, err)
	case isTransient(err):
		return fmt.Errorf("failed to %s: %w: %w", op, ErrUnavailable, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	// sqlite does not export typed constraint errors
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		// connection_exception class, query_canceled, admin_shutdown, cannot_connect_now
		return strings.HasPrefix(code, "08") || code == "57014" || code == "57P01" || code == "57P03"
	}
	return false
}

// UserSchemaToUser converts a table row into its API representation
func UserSchemaToUser(schema *UserSchema) *User {
	return &User{
		ID:    schema.ID,
		Email: schema.Email,
		Name:  schema.Name,
		Age:   schema.Age,
	}
}
