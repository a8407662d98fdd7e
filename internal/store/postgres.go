// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store provides database connection and schema management.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions controls how Connect retries the first ping.
type ConnectOptions struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultConnectOptions returns the retry policy used by the CLI.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		MaxRetries: 5,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// Connect opens a pgx pool and waits until the database answers a ping,
// retrying with capped exponential backoff.
func Connect(ctx context.Context, dsn string, opts ConnectOptions) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.NewExponential(opts.BaseDelay)
	backoff = retry.WithCappedDuration(opts.MaxDelay, backoff)
	backoff = retry.WithMaxRetries(opts.MaxRetries, backoff)

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			slog.WarnContext(ctx, "database not ready", "attempt", attempt, "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
