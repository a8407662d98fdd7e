// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/8srael/alx-backend-user-data/internal/auth"
	"github.com/8srael/alx-backend-user-data/internal/auth/memory"
	"github.com/8srael/alx-backend-user-data/internal/auth/postgres"
	"github.com/8srael/alx-backend-user-data/internal/auth/sqlite"
	"github.com/8srael/alx-backend-user-data/internal/config"
	"github.com/8srael/alx-backend-user-data/internal/store"
)

// openStore opens the user store selected by cfg.Store.Driver.
func openStore(ctx context.Context, cfg *config.Config) (auth.UserStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.NewUserStore(), func() {}, nil

	case config.DriverPostgres:
		pool, err := store.Connect(ctx, cfg.Store.DSN, store.DefaultConnectOptions())
		if err != nil {
			return nil, nil, oops.With("operation", "open postgres store").Wrap(err)
		}
		return postgres.NewUserStore(pool), pool.Close, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Store.DSN, cfg.Log.Level == "debug")
		if err != nil {
			return nil, nil, oops.With("operation", "open sqlite store").Wrap(err)
		}
		closeDB := func() {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.Close()
			}
			if err != nil {
				slog.Warn("failed to close sqlite store", "error", err)
			}
		}
		return sqlite.NewUserStore(db), closeDB, nil
	}

	return nil, nil, oops.Code("CONFIG_INVALID").
		With("store.driver", cfg.Store.Driver).
		Errorf("unknown store driver %q", cfg.Store.Driver)
}
