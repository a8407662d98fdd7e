// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// GetResetPasswordToken issues a reset token for email and returns it.
// Returns an error wrapping ErrNotFound if the email is not registered.
// Delivering the token to the user is the caller's job.
func (s *Service) GetResetPasswordToken(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindUserBy(ctx, ByEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOperation(OpResetToken, StatusNotFound)
			return "", domainError("RESET_USER_NOT_FOUND", err).
				With("email", email).
				Wrap(ErrNotFound)
		}
		recordOperation(OpResetToken, StatusError)
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, digest, err := GenerateToken()
	if err != nil {
		recordOperation(OpResetToken, StatusError)
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	if err := s.users.UpdateUser(ctx, user.ID, SetResetToken(digest)); err != nil {
		recordOperation(OpResetToken, StatusError)
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "persist reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	recordOperation(OpResetToken, StatusSuccess)
	s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID.String())
	return token, nil
}

// UpdatePassword sets a new password for the user holding the reset token
// and consumes the token. Returns an error wrapping ErrInvalidToken if the
// token is unknown or was already used.
func (s *Service) UpdatePassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		recordOperation(OpUpdatePassword, StatusInvalid)
		return invalidResetToken(nil)
	}
	digest := DigestToken(token)

	user, err := s.users.FindUserBy(ctx, ByResetToken(digest))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOperation(OpUpdatePassword, StatusInvalid)
			return invalidResetToken(err)
		}
		recordOperation(OpUpdatePassword, StatusError)
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "find user by reset token").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		recordOperation(OpUpdatePassword, StatusInvalid)
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	// The guard makes the token single-use even if two resets race.
	err = s.users.UpdateUser(ctx, user.ID,
		RequireResetToken(digest),
		SetHashedPassword(hash),
		ClearResetToken(),
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordOperation(OpUpdatePassword, StatusInvalid)
			return invalidResetToken(err)
		}
		recordOperation(OpUpdatePassword, StatusError)
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	recordOperation(OpUpdatePassword, StatusSuccess)
	s.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID.String())
	return nil
}

// invalidResetToken wraps only ErrInvalidToken. A guard miss surfaces from
// the store as ErrNotFound, which must not leak to callers here.
func invalidResetToken(cause error) error {
	return domainError("RESET_TOKEN_INVALID", cause).Wrapf(ErrInvalidToken, "reset token not found")
}
