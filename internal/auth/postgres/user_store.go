// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements auth.UserStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/8srael/alx-backend-user-data/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool the store uses. pgxmock pools
// satisfy it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectUser = `
		SELECT id, email, hashed_password, session_id, reset_token, created_at, updated_at
		FROM users
		WHERE `

// UserStore implements auth.UserStore using PostgreSQL.
type UserStore struct {
	pool poolIface
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool poolIface) *UserStore {
	return &UserStore{pool: pool}
}

// FindUserBy retrieves the user matching filter.
func (s *UserStore) FindUserBy(ctx context.Context, filter auth.Filter) (*auth.User, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	// The column name comes from a validated auth.Field, never from input.
	row := s.pool.QueryRow(ctx, selectUser+string(filter.Field)+" = $1", filter.Value)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With(string(filter.Field), filter.Value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_STORE_FIND_FAILED").
			With("operation", "find user").
			With("field", string(filter.Field)).
			Wrap(err)
	}
	return user, nil
}

// AddUser inserts a new user. The unique index on email makes the insert
// atomic with respect to concurrent registrations.
func (s *UserStore) AddUser(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &auth.User{
		ID:             ulid.Make(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.Email,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.Code("USER_STORE_DUPLICATE_EMAIL").
				With("email", email).
				Wrap(errors.Join(auth.ErrAlreadyExists, err))
		}
		return nil, oops.Code("USER_STORE_ADD_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// UpdateUser applies changes to the user in a single UPDATE statement.
func (s *UserStore) UpdateUser(ctx context.Context, id ulid.ULID, changes ...auth.Change) error {
	if err := auth.ValidateChanges(changes); err != nil {
		return err
	}

	query, args := buildUpdate(id, changes, time.Now().UTC())
	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return oops.Code("USER_STORE_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// buildUpdate renders changes as
// UPDATE users SET f1 = $2, ..., updated_at = $n WHERE id = $1 [AND g = $m ...].
func buildUpdate(id ulid.ULID, changes []auth.Change, now time.Time) (string, []any) {
	args := []any{id.String()}
	var sets, guards []string
	for _, c := range changes {
		args = append(args, c.Value)
		clause := fmt.Sprintf("%s = $%d", c.Field, len(args))
		if c.IsGuard() {
			guards = append(guards, clause)
		} else {
			sets = append(sets, clause)
		}
	}
	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	for _, g := range guards {
		query += " AND " + g
	}
	return query, args
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows and coding driver errors.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr      string
		user       auth.User
		sessionID  *string
		resetToken *string
	)

	err := row.Scan(
		&idStr,
		&user.Email,
		&user.HashedPassword,
		&sessionID,
		&resetToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		// Driver errors, pgx.ErrNoRows included, go back uncoded so the
		// caller's code is the one reported.
		return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}
	user.ID = id
	user.SessionID = sessionID
	user.ResetToken = resetToken

	return &user, nil
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
