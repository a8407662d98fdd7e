// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"

	"github.com/8srael/alx-backend-user-data/internal/access"
	"github.com/8srael/alx-backend-user-data/internal/auth"
	"github.com/8srael/alx-backend-user-data/pkg/errutil"
)

// Outcomes reported to the user. They mirror the responses of an HTTP
// front end: 400 for a duplicate email, 401 for bad credentials and 403 for
// an unknown session or reset token.
var (
	errEmailRegistered = errors.New("email already registered")
	errUnauthorized    = errors.New("unauthorized")
	errForbidden       = errors.New("forbidden")
)

// outcome maps a service error to the message shown to the user. Errors
// without a user-facing meaning are logged and returned unchanged.
func (a *app) outcome(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errEmailRegistered), errors.Is(err, errUnauthorized), errors.Is(err, errForbidden):
		return err
	case errors.Is(err, auth.ErrAlreadyExists):
		return errEmailRegistered
	case errors.Is(err, access.ErrUnauthorized):
		return errUnauthorized
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, access.ErrForbidden):
		return errForbidden
	}
	errutil.LogError(ctx, a.logger, "command failed", err)
	return err
}
