// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// Sentinel errors. Store implementations and the service wrap these with
// oops codes and context; callers match them with errors.Is.
var (
	// ErrNotFound is returned when a lookup matches no user.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when registering an email that is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidToken is returned when a reset token is not recognised.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidFilter is returned when a store operation names a field
	// the user record does not have (or may not change). It signals a
	// programming error and must not be retried.
	ErrInvalidFilter = errors.New("invalid filter")
)
