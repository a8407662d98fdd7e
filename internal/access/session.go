// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/8srael/alx-backend-user-data/internal/auth"
)

// Sentinel errors returned by Authorizer.Authorize.
var (
	// ErrUnauthorized means the request carried no credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the credentials did not resolve to a user.
	ErrForbidden = errors.New("forbidden")
)

// SessionResolver resolves a session token to its user.
// *auth.Service implements it.
type SessionResolver interface {
	GetUserFromSessionID(ctx context.Context, token string) (*auth.User, error)
}

// AuthorizationHeader returns the raw Authorization header value, or "" if
// h is nil or the header is absent.
func AuthorizationHeader(h http.Header) string {
	if h == nil {
		return ""
	}
	return h.Get("Authorization")
}

// SessionToken extracts the session token from the Authorization header.
// Both "Bearer <token>" and a bare token are accepted.
func SessionToken(h http.Header) string {
	v := strings.TrimSpace(AuthorizationHeader(h))
	if strings.EqualFold(v, "Bearer") {
		return ""
	}
	if scheme, token, ok := strings.Cut(v, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return v
}

// SessionAuth resolves callers through their session token.
type SessionAuth struct {
	Resolver SessionResolver
}

// CurrentUser returns the user owning token, or nil if there is none.
func (a SessionAuth) CurrentUser(ctx context.Context, token string) (*auth.User, error) {
	if token == "" {
		return nil, nil
	}
	//nolint:wrapcheck // resolver errors already carry codes
	return a.Resolver.GetUserFromSessionID(ctx, token)
}

// Authorizer combines a Guard with SessionAuth.
type Authorizer struct {
	Guard   *Guard
	Session SessionAuth
}

// Authorize checks a request for path with headers h. It returns a nil
// user and nil error for excluded paths, ErrUnauthorized when no token is
// present and ErrForbidden when the token resolves to no user.
func (a Authorizer) Authorize(ctx context.Context, path string, h http.Header) (*auth.User, error) {
	if a.Guard != nil && !a.Guard.RequireAuth(path) {
		return nil, nil
	}

	token := SessionToken(h)
	if token == "" {
		return nil, oops.Code("ACCESS_UNAUTHORIZED").With("path", path).Wrap(ErrUnauthorized)
	}

	user, err := a.Session.CurrentUser(ctx, token)
	if err != nil {
		return nil, oops.Code("ACCESS_CHECK_FAILED").With("path", path).Wrap(err)
	}
	if user == nil {
		return nil, oops.Code("ACCESS_FORBIDDEN").With("path", path).Wrap(ErrForbidden)
	}
	return user, nil
}
