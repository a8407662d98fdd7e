// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/8srael/alx-backend-user-data/internal/auth"
	"github.com/8srael/alx-backend-user-data/internal/auth/memory"
)

// newTestHasher returns an argon2id hasher cheap enough for unit tests.
func newTestHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1})
	require.NoError(t, err)
	return h
}

// newMemoryService wires a Service to a fresh memory store and returns the
// store and a buffer receiving JSON logs.
func newMemoryService(t *testing.T) (*auth.Service, *memory.UserStore, *bytes.Buffer) {
	t.Helper()
	users := memory.NewUserStore()
	logs := new(bytes.Buffer)
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc, err := auth.NewServiceWithLogger(users, newTestHasher(t), logger)
	require.NoError(t, err)
	return svc, users, logs
}

// newBcryptHash produces a legacy hash like those imported from older deployments.
func newBcryptHash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(h), err
}
