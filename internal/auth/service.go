// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service provides registration, login and session operations.
type Service struct {
	users  UserStore
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates a new Service that logs to slog.Default().
func NewService(users UserStore, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserStore, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
	}
	return &Service{
		users:  users,
		hasher: hasher,
		logger: logger,
	}, nil
}

// dummyPasswordHash is verified when the email is unknown so that a missing
// account costs the same as a wrong password.
// It is not a credential and never matches any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// RegisterUser creates an account for email. Returns an error wrapping
// ErrAlreadyExists if the email is already registered.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		recordOperation(OpRegister, StatusInvalid)
		return nil, oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}

	_, err := s.users.FindUserBy(ctx, ByEmail(email))
	switch {
	case err == nil:
		recordOperation(OpRegister, StatusExists)
		return nil, userExists(email, nil)
	case !errors.Is(err, ErrNotFound):
		recordOperation(OpRegister, StatusError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "find user by email").
			With("email", email).
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		recordOperation(OpRegister, StatusInvalid)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := s.users.AddUser(ctx, email, hash)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Lost a race with a concurrent registration.
			recordOperation(OpRegister, StatusExists)
			return nil, userExists(email, err)
		}
		recordOperation(OpRegister, StatusError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "add user").
			With("email", email).
			Wrap(err)
	}

	recordOperation(OpRegister, StatusSuccess)
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

func userExists(email string, cause error) error {
	return domainError("AUTH_USER_EXISTS", cause).
		With("email", email).
		Wrapf(ErrAlreadyExists, "user already exists")
}

// domainError starts an error whose chain holds only a sentinel. oops
// reports the innermost code, so a coded store error that triggered it is
// kept as context instead of being wrapped.
func domainError(code string, cause error) oops.OopsErrorBuilder {
	b := oops.Code(code)
	if cause != nil {
		b = b.With("cause", cause.Error())
	}
	return b
}

// ValidLogin reports whether password is correct for email. An unknown
// email is not an error; it returns false after the same amount of hashing
// work as a wrong password.
func (s *Service) ValidLogin(ctx context.Context, email, password string) (bool, error) {
	email = NormalizeEmail(email)

	user, lookupErr := s.users.FindUserBy(ctx, ByEmail(email))
	found := lookupErr == nil
	targetHash := dummyPasswordHash
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			recordOperation(OpLogin, StatusError)
			return false, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "find user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.HashedPassword
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if !found {
		recordOperation(OpLogin, StatusNotFound)
		return false, nil
	}
	if verifyErr != nil {
		recordOperation(OpLogin, StatusError)
		return false, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}
	if !valid {
		recordOperation(OpLogin, StatusInvalid)
		return false, nil
	}

	if s.hasher.NeedsUpgrade(user.HashedPassword) {
		s.upgradeHash(ctx, user, password)
	}

	recordOperation(OpLogin, StatusSuccess)
	return true, nil
}

// upgradeHash rehashes a password stored with an outdated algorithm.
// Login succeeds regardless of the outcome.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdateUser(ctx, user.ID, SetHashedPassword(newHash))
	}
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "upgrade_hash",
			"user_id", user.ID.String(),
			"error", err.Error())
	}
}

// CreateSession issues a new session token for email and returns it.
// Returns "" with no error if the email is unknown. Any previous session
// of the user is replaced.
func (s *Service) CreateSession(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindUserBy(ctx, ByEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOperation(OpCreateSession, StatusNotFound)
			return "", nil
		}
		recordOperation(OpCreateSession, StatusError)
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, digest, err := GenerateToken()
	if err != nil {
		recordOperation(OpCreateSession, StatusError)
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	if err := s.users.UpdateUser(ctx, user.ID, SetSessionID(digest)); err != nil {
		recordOperation(OpCreateSession, StatusError)
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	recordOperation(OpCreateSession, StatusSuccess)
	s.logger.InfoContext(ctx, "session created", "user_id", user.ID.String())
	return token, nil
}

// GetUserFromSessionID returns the user owning the session token, or nil if
// the token is empty or unknown. Only store failures produce an error.
func (s *Service) GetUserFromSessionID(ctx context.Context, token string) (*User, error) {
	if token == "" {
		recordOperation(OpGetSession, StatusInvalid)
		return nil, nil
	}

	user, err := s.users.FindUserBy(ctx, BySessionID(DigestToken(token)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOperation(OpGetSession, StatusNotFound)
			return nil, nil
		}
		recordOperation(OpGetSession, StatusError)
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "find user by session").
			Wrap(err)
	}

	recordOperation(OpGetSession, StatusSuccess)
	return user, nil
}

// DestroySession clears the session of the given user. A missing user is
// reported as an error wrapping ErrNotFound and changes nothing.
func (s *Service) DestroySession(ctx context.Context, userID ulid.ULID) error {
	err := s.users.UpdateUser(ctx, userID, ClearSessionID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOperation(OpDestroySession, StatusNotFound)
			return domainError("SESSION_USER_NOT_FOUND", err).
				With("user_id", userID.String()).
				Wrap(ErrNotFound)
		}
		recordOperation(OpDestroySession, StatusError)
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "clear session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	recordOperation(OpDestroySession, StatusSuccess)
	s.logger.InfoContext(ctx, "session destroyed", "user_id", userID.String())
	return nil
}
