// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process auth.UserStore.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/8srael/alx-backend-user-data/internal/auth"
)

// UserStore implements auth.UserStore with a map guarded by a RWMutex.
// Returned users are copies; mutating them does not affect the store.
type UserStore struct {
	mu      sync.RWMutex
	users   map[ulid.ULID]*auth.User
	byEmail map[string]ulid.ULID
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[ulid.ULID]*auth.User),
		byEmail: make(map[string]ulid.ULID),
	}
}

// FindUserBy returns the user matching filter.
func (s *UserStore) FindUserBy(_ context.Context, filter auth.Filter) (*auth.User, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	switch filter.Field {
	case auth.FieldID:
		id, err := ulid.Parse(filter.Value)
		if err != nil {
			return nil, notFound(filter)
		}
		if u, ok := s.users[id]; ok {
			return clone(u), nil
		}
		return nil, notFound(filter)
	case auth.FieldEmail:
		if id, ok := s.byEmail[filter.Value]; ok {
			return clone(s.users[id]), nil
		}
		return nil, notFound(filter)
	}

	for _, u := range s.users {
		if u.MatchesFilter(filter) {
			return clone(u), nil
		}
	}
	return nil, notFound(filter)
}

// AddUser inserts a user unless the email is already taken. The check and
// the insert happen under one write lock.
func (s *UserStore) AddUser(_ context.Context, email, hashedPassword string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return nil, oops.Code("USER_STORE_DUPLICATE_EMAIL").
			With("email", email).
			Wrap(auth.ErrAlreadyExists)
	}

	now := time.Now().UTC()
	u := &auth.User{
		ID:             ulid.Make(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID

	return clone(u), nil
}

// UpdateUser applies changes to one user under the write lock.
func (s *UserStore) UpdateUser(_ context.Context, id ulid.ULID, changes ...auth.Change) error {
	if err := auth.ValidateChanges(changes); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || !auth.Matches(u, changes) {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	u.Apply(changes, time.Now().UTC())
	return nil
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func notFound(filter auth.Filter) error {
	return oops.Code("USER_NOT_FOUND").
		With(string(filter.Field), filter.Value).
		Wrap(auth.ErrNotFound)
}

func clone(u *auth.User) *auth.User {
	c := *u
	if u.SessionID != nil {
		v := *u.SessionID
		c.SessionID = &v
	}
	if u.ResetToken != nil {
		v := *u.ResetToken
		c.ResetToken = &v
	}
	return &c
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
