// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/8srael/alx-backend-user-data/internal/auth"
	"github.com/8srael/alx-backend-user-data/pkg/errutil"
)

const testHash = "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) FindUserBy(ctx context.Context, filter auth.Filter) (*auth.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *mockUserStore) AddUser(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	args := m.Called(ctx, email, hashedPassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

// UpdateUser flattens changes so expectations list them as trailing arguments.
func (m *mockUserStore) UpdateUser(ctx context.Context, id ulid.ULID, changes ...auth.Change) error {
	callArgs := []any{ctx, id}
	for _, c := range changes {
		callArgs = append(callArgs, c)
	}
	args := m.Called(callArgs...)
	return args.Error(0)
}

type mockPasswordHasher struct {
	mock.Mock
}

func (m *mockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func (m *mockPasswordHasher) NeedsUpgrade(hash string) bool {
	args := m.Called(hash)
	return args.Bool(0)
}

func newMockUserStore(t *testing.T) *mockUserStore {
	t.Helper()
	m := &mockUserStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func newMockPasswordHasher(t *testing.T) *mockPasswordHasher {
	t.Helper()
	m := &mockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func newMockService(t *testing.T) (*auth.Service, *mockUserStore, *mockPasswordHasher) {
	t.Helper()
	users := newMockUserStore(t)
	hasher := newMockPasswordHasher(t)
	svc, err := auth.NewService(users, hasher)
	require.NoError(t, err)
	return svc, users, hasher
}

func sessionChange(c auth.Change) bool {
	return c.Field == auth.FieldSessionID && c.Value != nil && len(*c.Value) == 64 && !c.IsGuard()
}

func resetChange(c auth.Change) bool {
	return c.Field == auth.FieldResetToken && c.Value != nil && len(*c.Value) == 64 && !c.IsGuard()
}

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserStore
		hasher      auth.PasswordHasher
		logger      *slog.Logger
		expectError string
	}{
		{
			name:        "nil user store",
			users:       nil,
			hasher:      newMockPasswordHasher(t),
			logger:      slog.Default(),
			expectError: "user store is required",
		},
		{
			name:        "nil password hasher",
			users:       newMockUserStore(t),
			hasher:      nil,
			logger:      slog.Default(),
			expectError: "password hasher is required",
		},
		{
			name:        "nil logger",
			users:       newMockUserStore(t),
			hasher:      newMockPasswordHasher(t),
			logger:      nil,
			expectError: "logger is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewServiceWithLogger(tt.users, tt.hasher, tt.logger)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_CONFIG")
		})
	}
}

func TestService_RegisterUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		created := &auth.User{ID: ulid.Make(), Email: "bob@example.com", HashedPassword: testHash}

		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "hunter2").Return(testHash, nil)
		users.On("AddUser", ctx, "bob@example.com", testHash).Return(created, nil)

		user, err := svc.RegisterUser(ctx, "  Bob@Example.COM ", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, created, user)
	})

	t.Run("existing email", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).
			Return(&auth.User{ID: ulid.Make(), Email: "bob@example.com"}, nil)

		user, err := svc.RegisterUser(ctx, "bob@example.com", "hunter2")
		require.Error(t, err)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, auth.ErrAlreadyExists)
		assert.Contains(t, err.Error(), "user already exists")
		assert.NotContains(t, err.Error(), "bob@example.com")
		errutil.AssertErrorCode(t, err, "AUTH_USER_EXISTS")
		errutil.AssertErrorContext(t, err, "email", "bob@example.com")
	})

	t.Run("lost insert race", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "hunter2").Return(testHash, nil)
		storeErr := oops.Code("USER_STORE_DUPLICATE_EMAIL").Wrap(auth.ErrAlreadyExists)
		users.On("AddUser", ctx, "bob@example.com", testHash).Return(nil, storeErr)

		_, err := svc.RegisterUser(ctx, "bob@example.com", "hunter2")
		errutil.AssertCodedError(t, err, auth.ErrAlreadyExists, "AUTH_USER_EXISTS")
		errutil.AssertErrorContext(t, err, "cause", storeErr.Error())
	})

	t.Run("empty email", func(t *testing.T) {
		svc, _, _ := newMockService(t)

		_, err := svc.RegisterUser(ctx, "   ", "hunter2")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_EMAIL")
	})

	t.Run("store failure on lookup", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(nil, errors.New("db down"))

		_, err := svc.RegisterUser(ctx, "bob@example.com", "hunter2")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrAlreadyExists)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
	})

	t.Run("hash failure", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "").Return("", errors.New("password cannot be empty"))

		_, err := svc.RegisterUser(ctx, "bob@example.com", "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "hash password")
	})

	t.Run("store failure on insert", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "hunter2").Return(testHash, nil)
		users.On("AddUser", ctx, "bob@example.com", testHash).Return(nil, errors.New("disk full"))

		_, err := svc.RegisterUser(ctx, "bob@example.com", "hunter2")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "add user")
	})
}

func TestService_ValidLogin(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: ulid.Make(), Email: "bob@example.com", HashedPassword: testHash}

	t.Run("correct password", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(user, nil)
		hasher.On("Verify", "hunter2", testHash).Return(true, nil)
		hasher.On("NeedsUpgrade", testHash).Return(false)

		ok, err := svc.ValidLogin(ctx, "Bob@example.com", "hunter2")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(user, nil)
		hasher.On("Verify", "wrong", testHash).Return(false, nil)

		ok, err := svc.ValidLogin(ctx, "bob@example.com", "wrong")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown email still verifies against a dummy hash", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("nobody@example.com")).Return(nil, auth.ErrNotFound)
		hasher.On("Verify", "hunter2", mock.MatchedBy(func(h string) bool {
			return h != "" && h != testHash
		})).Return(false, nil)

		ok, err := svc.ValidLogin(ctx, "nobody@example.com", "hunter2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt stored hash", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(user, nil)
		hasher.On("Verify", "hunter2", testHash).Return(false, errors.New("invalid hash format"))

		ok, err := svc.ValidLogin(ctx, "bob@example.com", "hunter2")
		require.Error(t, err)
		assert.False(t, ok)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("store failure", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(nil, errors.New("db down"))

		ok, err := svc.ValidLogin(ctx, "bob@example.com", "hunter2")
		require.Error(t, err)
		assert.False(t, ok)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("upgrades outdated hash", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		legacy := &auth.User{ID: ulid.Make(), Email: "bob@example.com", HashedPassword: "$2a$10$legacy"}
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(legacy, nil)
		hasher.On("Verify", "hunter2", "$2a$10$legacy").Return(true, nil)
		hasher.On("NeedsUpgrade", "$2a$10$legacy").Return(true)
		hasher.On("Hash", "hunter2").Return(testHash, nil)
		users.On("UpdateUser", ctx, legacy.ID, auth.SetHashedPassword(testHash)).Return(nil)

		ok, err := svc.ValidLogin(ctx, "bob@example.com", "hunter2")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("failed upgrade still logs in and warns", func(t *testing.T) {
		users := newMockUserStore(t)
		hasher := newMockPasswordHasher(t)
		var logs bytes.Buffer
		svc, err := auth.NewServiceWithLogger(users, hasher, slog.New(slog.NewJSONHandler(&logs, nil)))
		require.NoError(t, err)

		legacy := &auth.User{ID: ulid.Make(), Email: "bob@example.com", HashedPassword: "$2a$10$legacy"}
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(legacy, nil)
		hasher.On("Verify", "hunter2", "$2a$10$legacy").Return(true, nil)
		hasher.On("NeedsUpgrade", "$2a$10$legacy").Return(true)
		hasher.On("Hash", "hunter2").Return(testHash, nil)
		users.On("UpdateUser", ctx, legacy.ID, auth.SetHashedPassword(testHash)).Return(errors.New("db down"))

		ok, err := svc.ValidLogin(ctx, "bob@example.com", "hunter2")
		require.NoError(t, err)
		assert.True(t, ok)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "upgrade_hash", entry["operation"])
		assert.Equal(t, legacy.ID.String(), entry["user_id"])
		assert.Contains(t, entry["error"], "db down")
	})
}

func TestService_CreateSession(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: ulid.Make(), Email: "bob@example.com"}

	t.Run("stores digest and returns token", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		var stored string
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(user, nil)
		users.On("UpdateUser", ctx, user.ID, mock.MatchedBy(sessionChange)).
			Run(func(args mock.Arguments) {
				stored = *args.Get(2).(auth.Change).Value
			}).
			Return(nil)

		token, err := svc.CreateSession(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.Equal(t, auth.DigestToken(token), stored)
		assert.NotEqual(t, token, stored, "plaintext token must not be stored")
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("nobody@example.com")).Return(nil, auth.ErrNotFound)

		token, err := svc.CreateSession(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("lookup failure", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(nil, errors.New("db down"))

		_, err := svc.CreateSession(ctx, "bob@example.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
	})

	t.Run("persist failure", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(user, nil)
		users.On("UpdateUser", ctx, user.ID, mock.MatchedBy(sessionChange)).Return(errors.New("db down"))

		token, err := svc.CreateSession(ctx, "bob@example.com")
		require.Error(t, err)
		assert.Empty(t, token)
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "persist session")
	})
}

func TestService_GetUserFromSessionID(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: ulid.Make(), Email: "bob@example.com"}

	t.Run("empty token skips the store", func(t *testing.T) {
		svc, _, _ := newMockService(t)

		got, err := svc.GetUserFromSessionID(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("looks up by digest", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.BySessionID(auth.DigestToken("tok"))).Return(user, nil)

		got, err := svc.GetUserFromSessionID(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("unknown token", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.BySessionID(auth.DigestToken("tok"))).Return(nil, auth.ErrNotFound)

		got, err := svc.GetUserFromSessionID(ctx, "tok")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.BySessionID(auth.DigestToken("tok"))).Return(nil, errors.New("db down"))

		got, err := svc.GetUserFromSessionID(ctx, "tok")
		require.Error(t, err)
		assert.Nil(t, got)
		errutil.AssertErrorCode(t, err, "SESSION_VALIDATE_FAILED")
	})
}

func TestService_DestroySession(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("clears session", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("UpdateUser", ctx, id, auth.ClearSessionID()).Return(nil)

		require.NoError(t, svc.DestroySession(ctx, id))
	})

	t.Run("missing user", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("UpdateUser", ctx, id, auth.ClearSessionID()).Return(auth.ErrNotFound)

		err := svc.DestroySession(ctx, id)
		require.Error(t, err)
		errutil.AssertCodedError(t, err, auth.ErrNotFound, "SESSION_USER_NOT_FOUND")
	})

	t.Run("store failure", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("UpdateUser", ctx, id, auth.ClearSessionID()).Return(errors.New("db down"))

		err := svc.DestroySession(ctx, id)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_DESTROY_FAILED")
	})
}

func TestService_GetResetPasswordToken(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: ulid.Make(), Email: "bob@example.com"}

	t.Run("stores digest and returns token", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		var stored string
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(user, nil)
		users.On("UpdateUser", ctx, user.ID, mock.MatchedBy(resetChange)).
			Run(func(args mock.Arguments) {
				stored = *args.Get(2).(auth.Change).Value
			}).
			Return(nil)

		token, err := svc.GetResetPasswordToken(ctx, "BOB@example.com")
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.Equal(t, auth.DigestToken(token), stored)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("nobody@example.com")).Return(nil, auth.ErrNotFound)

		token, err := svc.GetResetPasswordToken(ctx, "nobody@example.com")
		require.Error(t, err)
		assert.Empty(t, token)
		errutil.AssertCodedError(t, err, auth.ErrNotFound, "RESET_USER_NOT_FOUND")
	})

	t.Run("persist failure", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByEmail("bob@example.com")).Return(user, nil)
		users.On("UpdateUser", ctx, user.ID, mock.MatchedBy(resetChange)).Return(errors.New("db down"))

		_, err := svc.GetResetPasswordToken(ctx, "bob@example.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_REQUEST_FAILED")
	})
}

func TestService_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	digest := auth.DigestToken("reset-tok")
	user := &auth.User{ID: ulid.Make(), Email: "bob@example.com", ResetToken: &digest}

	t.Run("sets password and consumes token under a guard", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByResetToken(digest)).Return(user, nil)
		hasher.On("Hash", "newpass").Return(testHash, nil)
		users.On("UpdateUser", ctx, user.ID,
			auth.RequireResetToken(digest),
			auth.SetHashedPassword(testHash),
			auth.ClearResetToken(),
		).Return(nil)

		require.NoError(t, svc.UpdatePassword(ctx, "reset-tok", "newpass"))
	})

	t.Run("empty token", func(t *testing.T) {
		svc, _, _ := newMockService(t)

		err := svc.UpdatePassword(ctx, "", "newpass")
		require.Error(t, err)
		errutil.AssertCodedError(t, err, auth.ErrInvalidToken, "RESET_TOKEN_INVALID")
	})

	t.Run("unknown token", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByResetToken(digest)).Return(nil, auth.ErrNotFound)

		err := svc.UpdatePassword(ctx, "reset-tok", "newpass")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
		assert.Contains(t, err.Error(), "reset token not found")
	})

	t.Run("token consumed concurrently", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByResetToken(digest)).Return(user, nil)
		hasher.On("Hash", "newpass").Return(testHash, nil)
		users.On("UpdateUser", ctx, user.ID,
			auth.RequireResetToken(digest),
			auth.SetHashedPassword(testHash),
			auth.ClearResetToken(),
		).Return(oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound))

		err := svc.UpdatePassword(ctx, "reset-tok", "newpass")
		errutil.AssertCodedError(t, err, auth.ErrInvalidToken, "RESET_TOKEN_INVALID")
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("hash failure", func(t *testing.T) {
		svc, users, hasher := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByResetToken(digest)).Return(user, nil)
		hasher.On("Hash", "").Return("", errors.New("password cannot be empty"))

		err := svc.UpdatePassword(ctx, "reset-tok", "")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidToken)
		errutil.AssertErrorCode(t, err, "RESET_PASSWORD_FAILED")
	})

	t.Run("store failure", func(t *testing.T) {
		svc, users, _ := newMockService(t)
		users.On("FindUserBy", ctx, auth.ByResetToken(digest)).Return(nil, errors.New("db down"))

		err := svc.UpdatePassword(ctx, "reset-tok", "newpass")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_PASSWORD_FAILED")
	})
}
