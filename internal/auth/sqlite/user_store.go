// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sqlite implements auth.UserStore on SQLite through gorm.
package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/8srael/alx-backend-user-data/internal/auth"
	"github.com/8srael/alx-backend-user-data/internal/xdg"
)

// userRecord is the gorm model for the users table.
type userRecord struct {
	ID             string    `gorm:"primaryKey;size:26"`
	Email          string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	SessionID      *string   `gorm:"uniqueIndex"`
	ResetToken     *string   `gorm:"uniqueIndex"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

func (r *userRecord) toUser() (*auth.User, error) {
	id, err := ulid.Parse(r.ID)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", r.ID).
			Wrap(err)
	}
	return &auth.User{
		ID:             id,
		Email:          r.Email,
		HashedPassword: r.HashedPassword,
		SessionID:      r.SessionID,
		ResetToken:     r.ResetToken,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the users table. Use ":memory:" or a file: URI for a transient database;
// for plain paths the parent directory is created first.
func Open(path string, debug bool) (*gorm.DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") && filepath.Dir(path) != "." {
		if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, err //nolint:wrapcheck // carries XDG_MKDIR_FAILED
		}
	}

	gormLogger := logger.Discard
	if debug {
		gormLogger = logger.Default
	}

	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, oops.Code("DB_OPEN_FAILED").With("path", path).Wrap(err)
	}

	if err := db.AutoMigrate(&userRecord{}); err != nil {
		return nil, oops.Code("DB_MIGRATE_FAILED").With("path", path).Wrap(err)
	}
	return db, nil
}

// UserStore implements auth.UserStore using gorm.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore over an opened database.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindUserBy retrieves the user matching filter.
func (s *UserStore) FindUserBy(ctx context.Context, filter auth.Filter) (*auth.User, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var rec userRecord
	err := s.db.WithContext(ctx).
		Where(string(filter.Field)+" = ?", filter.Value).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
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
	return rec.toUser()
}

// AddUser inserts a new user; the unique email index rejects duplicates.
func (s *UserStore) AddUser(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	now := time.Now().UTC()
	rec := userRecord{
		ID:             ulid.Make().String(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, oops.Code("USER_STORE_DUPLICATE_EMAIL").
				With("email", email).
				Wrap(errors.Join(auth.ErrAlreadyExists, err))
		}
		return nil, oops.Code("USER_STORE_ADD_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return rec.toUser()
}

// UpdateUser applies changes to the user in a single UPDATE statement.
func (s *UserStore) UpdateUser(ctx context.Context, id ulid.ULID, changes ...auth.Change) error {
	if err := auth.ValidateChanges(changes); err != nil {
		return err
	}

	q := s.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id.String())
	values := map[string]any{"updated_at": time.Now().UTC()}
	for _, c := range changes {
		if c.IsGuard() {
			q = q.Where(string(c.Field)+" = ?", *c.Value)
			continue
		}
		values[string(c.Field)] = c.Value
	}

	result := q.Updates(values)
	if result.Error != nil {
		return oops.Code("USER_STORE_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id.String()).
			Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
