// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/8srael/alx-backend-user-data/internal/auth"
	"github.com/8srael/alx-backend-user-data/internal/config"
	"github.com/8srael/alx-backend-user-data/internal/logging"
	"github.com/8srael/alx-backend-user-data/internal/xdg"
	"github.com/8srael/alx-backend-user-data/pkg/errutil"
)

// app carries state shared by subcommands of one root command.
type app struct {
	deps       *Deps
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the userauth CLI.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(nil)
}

// NewRootCmdWithDeps creates the root command with injected dependencies.
func NewRootCmdWithDeps(deps *Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults()}
	auth.RegisterMetrics(a.deps.Registry)

	cmd := &cobra.Command{
		Use:   "userauth",
		Short: "userauth - user registration, sessions and password resets",
		Long: `userauth manages user accounts: registration, credential checks,
session tokens and single-use password reset tokens.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", xdg.ConfigFile(), "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newRegisterCmd(a))
	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newProfileCmd(a))
	cmd.AddCommand(newResetTokenCmd(a))
	cmd.AddCommand(newResetPasswordCmd(a))
	cmd.AddCommand(newMigrateCmd(a))

	return cmd
}

// loadConfig reads configuration and sets up logging for cmd.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err //nolint:wrapcheck // config errors carry codes
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return oops.Code("CONFIG_INVALID").With("log.level", cfg.Log.Level).Wrap(err)
	}

	a.cfg = cfg
	a.logger = logging.SetDefault("userauth", version, cfg.Log.Format, cmd.ErrOrStderr(),
		logging.WithLevel(level),
		logging.WithRedactedFields(cfg.Log.Redact...),
	)
	return nil
}

// withService wraps a subcommand body that needs the auth service. It owns
// the store lifecycle, maps failures to outcomes and exports metrics.
func (a *app) withService(fn func(ctx context.Context, cmd *cobra.Command, svc *auth.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		users, closeStore, err := a.deps.StoreFactory(ctx, a.cfg)
		if err != nil {
			errutil.LogError(ctx, a.logger, "failed to open user store", err)
			return err
		}
		defer closeStore()

		hasher, err := auth.NewArgon2idHasherWithParams(a.cfg.Argon2Params())
		if err != nil {
			return err //nolint:wrapcheck // hasher errors carry codes
		}
		svc, err := auth.NewServiceWithLogger(users, hasher, a.logger)
		if err != nil {
			return err //nolint:wrapcheck // service errors carry codes
		}

		runErr := fn(ctx, cmd, svc, args)
		a.writeMetrics(ctx)
		return a.outcome(ctx, runErr)
	}
}

// writeMetrics exports the registry in text format if metrics.textfile is set.
func (a *app) writeMetrics(ctx context.Context) {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, a.deps.Registry); err != nil {
		a.logger.WarnContext(ctx, "failed to write metrics textfile",
			"path", a.cfg.Metrics.Textfile,
			"error", err)
	}
}

// writeJSON prints v as a single JSON line on the command's output.
func writeJSON(cmd *cobra.Command, v any) error {
	if err := json.NewEncoder(cmd.OutOrStdout()).Encode(v); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}
