package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore counts calls and delegates to optional funcs
type recordingStore struct {
	calls int

	create func(ctx context.Context, req *CreateUserRequest) (*User, error)
	list   func(ctx context.Context, req *ListUsersRequest) ([]*User, error)
	update func(ctx context.Context, id string, req *UpdateUserRequest) (*User, error)
	del    func(ctx context.Context, id string) error
}

func (s *recordingStore) CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error) {
	s.calls++
	if s.create != nil {
		return s.create(ctx, req)
	}
	return &User{ID: "id", Email: req.Email, Name: req.Name, Age: canonicalAge(req.Age)}, nil
}

func (s *recordingStore) GetUser(ctx context.Context, userID string) (*User, error) {
	s.calls++
	return nil, ErrNotFound
}

func (s *recordingStore) ListUsers(ctx context.Context, req *ListUsersRequest) ([]*User, error) {
	s.calls++
	if s.list != nil {
		return s.list(ctx, req)
	}
	return []*User{}, nil
}

func (s *recordingStore) UpdateUser(ctx context.Context, userID string, req *UpdateUserRequest) (*User, error) {
	s.calls++
	if s.update != nil {
		return s.update(ctx, userID, req)
	}
	return &User{ID: userID}, nil
}

func (s *recordingStore) DeleteUser(ctx context.Context, userID string) error {
	s.calls++
	if s.del != nil {
		return s.del(ctx, userID)
	}
	return nil
}

// blockUntilDone simulates a store that never answers in time
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestUserService_CreateUserValidation(t *testing.T) {
	tests := []struct {
		name   string
		req    *CreateUserRequest
		fields map[string]string
	}{
		{
			name:   "missing name",
			req:    &CreateUserRequest{Email: "a@x.com", Age: "30"},
			fields: map[string]string{"name": msgNameRequired},
		},
		{
			name:   "blank email",
			req:    &CreateUserRequest{Email: "   ", Name: "Ana", Age: "30"},
			fields: map[string]string{"email": msgEmailRequired},
		},
		{
			name:   "age zero",
			req:    &CreateUserRequest{Email: "a@x.com", Name: "Ana", Age: "0"},
			fields: map[string]string{"age": msgAgeInvalid},
		},
		{
			name:   "age negative",
			req:    &CreateUserRequest{Email: "a@x.com", Name: "Ana", Age: "-3"},
			fields: map[string]string{"age": msgAgeInvalid},
		},
		{
			name:   "age not a number",
			req:    &CreateUserRequest{Email: "a@x.com", Name: "Ana", Age: "trinta"},
			fields: map[string]string{"age": msgAgeInvalid},
		},
		{
			name:   "age fractional",
			req:    &CreateUserRequest{Email: "a@x.com", Name: "Ana", Age: "30.5"},
			fields: map[string]string{"age": msgAgeInvalid},
		},
		{
			name: "everything missing",
			req:  &CreateUserRequest{},
			fields: map[string]string{
				"email": msgEmailRequired,
				"name":  msgNameRequired,
				"age":   msgAgeRequired,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			svc := NewUserService(store, time.Second)

			_, err := svc.CreateUser(context.Background(), tt.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.fields, verr.Fields)
			assert.Zero(t, store.calls, "store must not be called on invalid input")
		})
	}
}

func TestUserService_CreateUserNormalizes(t *testing.T) {
	var got *CreateUserRequest
	store := &recordingStore{create: func(ctx context.Context, req *CreateUserRequest) (*User, error) {
		got = req
		return &User{ID: "id", Email: req.Email, Name: req.Name, Age: canonicalAge(req.Age)}, nil
	}}
	svc := NewUserService(store, time.Second)

	user, err := svc.CreateUser(context.Background(), &CreateUserRequest{Email: " a@x.com ", Name: " Ana ", Age: " 30 "})
	require.NoError(t, err)

	assert.Equal(t, &CreateUserRequest{Email: "a@x.com", Name: "Ana", Age: "30"}, got)
	assert.Equal(t, "30", user.Age)
}

func TestUserService_UpdateUserValidation(t *testing.T) {
	tests := []struct {
		name   string
		req    *UpdateUserRequest
		fields map[string]string
	}{
		{"nothing supplied", &UpdateUserRequest{}, map[string]string{"body": msgNoFields}},
		{"blank name", &UpdateUserRequest{Name: strPtr(" ")}, map[string]string{"name": msgNameRequired}},
		{"empty email", &UpdateUserRequest{Email: strPtr("")}, map[string]string{"email": msgEmailRequired}},
		{"age zero", &UpdateUserRequest{Age: agePtr("0")}, map[string]string{"age": msgAgeInvalid}},
		{"empty age", &UpdateUserRequest{Age: agePtr("")}, map[string]string{"age": msgAgeInvalid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			svc := NewUserService(store, time.Second)

			_, err := svc.UpdateUser(context.Background(), "some-id", tt.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.fields, verr.Fields)
			assert.Zero(t, store.calls)
		})
	}
}

func TestUserService_UpdateUserPassesOnlySuppliedFields(t *testing.T) {
	var got *UpdateUserRequest
	store := &recordingStore{update: func(ctx context.Context, id string, req *UpdateUserRequest) (*User, error) {
		got = req
		return &User{ID: id}, nil
	}}
	svc := NewUserService(store, time.Second)

	_, err := svc.UpdateUser(context.Background(), "some-id", &UpdateUserRequest{Age: agePtr(" 40 ")})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Nil(t, got.Email)
	assert.Nil(t, got.Name)
	require.NotNil(t, got.Age)
	assert.Equal(t, Age("40"), *got.Age)
}

func TestUserService_ListUsersTrimsFilters(t *testing.T) {
	var got *ListUsersRequest
	store := &recordingStore{list: func(ctx context.Context, req *ListUsersRequest) ([]*User, error) {
		got = req
		return []*User{}, nil
	}}
	svc := NewUserService(store, time.Second)

	_, err := svc.ListUsers(context.Background(), &ListUsersRequest{Email: " foo@bar.com ", Name: "  "})
	require.NoError(t, err)
	assert.Equal(t, &ListUsersRequest{Email: "foo@bar.com"}, got)

	_, err = svc.ListUsers(context.Background(), &ListUsersRequest{Age: " 030"})
	require.NoError(t, err)
	assert.Equal(t, &ListUsersRequest{Age: "30"}, got)

	_, err = svc.ListUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, &ListUsersRequest{}, got)
}

func TestUserService_MissingID(t *testing.T) {
	store := &recordingStore{}
	svc := NewUserService(store, time.Second)
	ctx := context.Background()

	var verr *ValidationError
	_, err := svc.GetUser(ctx, "")
	assert.ErrorAs(t, err, &verr)
	_, err = svc.UpdateUser(ctx, "", &UpdateUserRequest{Name: strPtr("Ana")})
	assert.ErrorAs(t, err, &verr)
	assert.ErrorAs(t, svc.DeleteUser(ctx, ""), &verr)
	assert.Zero(t, store.calls)
}

func TestUserService_TimeoutIsTransient(t *testing.T) {
	ctx := context.Background()

	t.Run("store returns the context error", func(t *testing.T) {
		store := &recordingStore{del: func(ctx context.Context, id string) error {
			return blockUntilDone(ctx)
		}}
		svc := NewUserService(store, 20*time.Millisecond)

		err := svc.DeleteUser(ctx, "some-id")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("store hides the deadline behind its own error", func(t *testing.T) {
		store := &recordingStore{list: func(ctx context.Context, req *ListUsersRequest) ([]*User, error) {
			<-ctx.Done()
			return nil, errors.New("driver: bad connection state")
		}}
		svc := NewUserService(store, 20*time.Millisecond)

		_, err := svc.ListUsers(ctx, nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("domain errors are kept", func(t *testing.T) {
		store := &recordingStore{del: func(ctx context.Context, id string) error {
			<-ctx.Done()
			return ErrNotFound
		}}
		svc := NewUserService(store, 20*time.Millisecond)

		err := svc.DeleteUser(ctx, "some-id")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrUnavailable)
	})
}

func TestNewUserServiceDefaultsTimeout(t *testing.T) {
	svc := NewUserService(&recordingStore{}, 0)
	assert.Equal(t, DefaultOperationTimeout, svc.timeout)
}
