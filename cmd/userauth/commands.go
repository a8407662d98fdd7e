// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/8srael/alx-backend-user-data/internal/access"
	"github.com/8srael/alx-backend-user-data/internal/auth"
)

// Paths the session-protected commands are checked against. They match the
// routes of the HTTP front end so access.excluded_paths applies unchanged.
const (
	pathSessions = "/api/v1/sessions"
	pathProfile  = "/api/v1/profile"
)

func newRegisterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register EMAIL PASSWORD",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(2),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc *auth.Service, args []string) error {
			user, err := svc.RegisterUser(ctx, args[0], args[1])
			if err != nil {
				return err //nolint:wrapcheck // mapped by outcome
			}
			return writeJSON(cmd, map[string]string{"email": user.Email, "message": "user created"})
		}),
	}
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login EMAIL PASSWORD",
		Short: "Check credentials and start a session",
		Args:  cobra.ExactArgs(2),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc *auth.Service, args []string) error {
			email, password := args[0], args[1]
			ok, err := svc.ValidLogin(ctx, email, password)
			if err != nil {
				return err //nolint:wrapcheck // mapped by outcome
			}
			if !ok {
				return errUnauthorized
			}
			token, err := svc.CreateSession(ctx, email)
			if err != nil {
				return err //nolint:wrapcheck // mapped by outcome
			}
			if token == "" {
				return errUnauthorized
			}
			return writeJSON(cmd, map[string]string{
				"email":      auth.NormalizeEmail(email),
				"message":    "logged in",
				"session_id": token,
			})
		}),
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout SESSION_ID",
		Short: "End a session",
		Args:  cobra.ExactArgs(1),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc *auth.Service, args []string) error {
			user, err := a.authorize(ctx, svc, pathSessions, args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return errForbidden
			}
			if err := svc.DestroySession(ctx, user.ID); err != nil {
				return err //nolint:wrapcheck // mapped by outcome
			}
			return writeJSON(cmd, map[string]string{"message": "logged out"})
		}),
	}
}

func newProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile SESSION_ID",
		Short: "Show the user owning a session",
		Args:  cobra.ExactArgs(1),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc *auth.Service, args []string) error {
			user, err := a.authorize(ctx, svc, pathProfile, args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return errForbidden
			}
			return writeJSON(cmd, map[string]string{"email": user.Email})
		}),
	}
}

func newResetTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-token EMAIL",
		Short: "Issue a password reset token",
		Args:  cobra.ExactArgs(1),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc *auth.Service, args []string) error {
			token, err := svc.GetResetPasswordToken(ctx, args[0])
			if err != nil {
				return err //nolint:wrapcheck // mapped by outcome
			}
			return writeJSON(cmd, map[string]string{
				"email":       auth.NormalizeEmail(args[0]),
				"reset_token": token,
			})
		}),
	}
}

func newResetPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password RESET_TOKEN NEW_PASSWORD",
		Short: "Set a new password with a reset token",
		Args:  cobra.ExactArgs(2),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc *auth.Service, args []string) error {
			if err := svc.UpdatePassword(ctx, args[0], args[1]); err != nil {
				return err //nolint:wrapcheck // mapped by outcome
			}
			return writeJSON(cmd, map[string]string{"message": "password updated"})
		}),
	}
}

// authorize resolves token for path the way the HTTP front end would,
// honouring access.excluded_paths. A nil user with nil error means the path
// is excluded from authentication.
func (a *app) authorize(ctx context.Context, svc *auth.Service, path, token string) (*auth.User, error) {
	guard, err := access.NewGuard(a.cfg.Access.ExcludedPaths)
	if err != nil {
		return nil, err //nolint:wrapcheck // guard errors carry codes
	}

	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}

	authorizer := access.Authorizer{
		Guard:   guard,
		Session: access.SessionAuth{Resolver: svc},
	}
	//nolint:wrapcheck // mapped by outcome
	return authorizer.Authorize(ctx, path, h)
}
