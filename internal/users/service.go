package users

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultOperationTimeout bounds a store call when none is configured
const DefaultOperationTimeout = 5 * time.Second

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	store   UserStore
	timeout time.Duration
}

// NewUserService creates a new user service instance. A non-positive
// timeout falls back to DefaultOperationTimeout.
func NewUserService(store UserStore, timeout time.Duration) *UserServiceImpl {
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return &UserServiceImpl{
		store:   store,
		timeout: timeout,
	}
}

// CreateUser validates and registers a new user
func (s *UserServiceImpl) CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error) {
	if err := ValidateCreate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.store.CreateUser(ctx, req)
	return user, s.timeoutAware(ctx, err)
}

// GetUser retrieves a user by id
func (s *UserServiceImpl) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, NewValidationError("id", "id é obrigatório")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.store.GetUser(ctx, userID)
	return user, s.timeoutAware(ctx, err)
}

// ListUsers lists users with optional exact-match filters
func (s *UserServiceImpl) ListUsers(ctx context.Context, req *ListUsersRequest) ([]*User, error) {
	if req == nil {
		req = &ListUsersRequest{}
	}
	normalizeList(req)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.store.ListUsers(ctx, req)
	return users, s.timeoutAware(ctx, err)
}

// UpdateUser validates and applies a partial update
func (s *UserServiceImpl) UpdateUser(ctx context.Context, userID string, req *UpdateUserRequest) (*User, error) {
	if userID == "" {
		return nil, NewValidationError("id", "id é obrigatório")
	}
	if err := ValidateUpdate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.store.UpdateUser(ctx, userID, req)
	return user, s.timeoutAware(ctx, err)
}

// DeleteUser deletes a user
func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return NewValidationError("id", "id é obrigatório")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.timeoutAware(ctx, s.store.DeleteUser(ctx, userID))
}

// timeoutAware reports an expired operation deadline as ErrUnavailable even
// when the driver surfaced it as something else
func (s *UserServiceImpl) timeoutAware(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("operation exceeded %s: %w: %w", s.timeout, ErrUnavailable, err)
	}
	return err
}
