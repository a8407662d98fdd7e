// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/8srael/alx-backend-user-data/internal/auth"
	"github.com/8srael/alx-backend-user-data/internal/config"
	"github.com/8srael/alx-backend-user-data/internal/store"
)

// Deps contains injectable dependencies for the CLI.
// All fields with nil values will use their default implementations.
type Deps struct {
	// StoreFactory opens the user store selected by cfg and returns a
	// function that releases it.
	// Default: openStore
	StoreFactory func(ctx context.Context, cfg *config.Config) (auth.UserStore, func(), error)

	// MigratorFactory creates a schema migrator for a PostgreSQL URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// Registry receives the auth metrics.
	// Default: a new prometheus.Registry
	Registry *prometheus.Registry
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	PendingMigrations() ([]uint, error)
	Close() error
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.StoreFactory == nil {
		out.StoreFactory = openStore
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.Registry == nil {
		out.Registry = prometheus.NewRegistry()
	}
	return &out
}
