// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is an account record.
type User struct {
	ID             ulid.ULID
	Email          string
	HashedPassword string
	SessionID      *string // digest of the active session token, nil if logged out
	ResetToken     *string // digest of the pending reset token, nil if none
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSession reports whether the user has an active session.
func (u *User) HasSession() bool {
	return u.SessionID != nil
}

// HasPendingReset reports whether a password reset was requested and not yet used.
func (u *User) HasPendingReset() bool {
	return u.ResetToken != nil
}

// Field names a column of the user record.
type Field string

// User record fields.
const (
	FieldID             Field = "id"
	FieldEmail          Field = "email"
	FieldHashedPassword Field = "hashed_password"
	FieldSessionID      Field = "session_id"
	FieldResetToken     Field = "reset_token"
)

// Valid reports whether f is a field of the user record.
func (f Field) Valid() bool {
	switch f {
	case FieldID, FieldEmail, FieldHashedPassword, FieldSessionID, FieldResetToken:
		return true
	}
	return false
}

// Mutable reports whether f may be changed through UpdateUser.
func (f Field) Mutable() bool {
	switch f {
	case FieldHashedPassword, FieldSessionID, FieldResetToken:
		return true
	}
	return false
}

// Filter selects a single user by an exact field match.
type Filter struct {
	Field Field
	Value string
}

// ByID matches the user with the given ID.
func ByID(id ulid.ULID) Filter { return Filter{Field: FieldID, Value: id.String()} }

// ByEmail matches the user with the given (already normalized) email.
func ByEmail(email string) Filter { return Filter{Field: FieldEmail, Value: email} }

// BySessionID matches the user whose session digest equals digest.
func BySessionID(digest string) Filter { return Filter{Field: FieldSessionID, Value: digest} }

// ByResetToken matches the user whose reset digest equals digest.
func ByResetToken(digest string) Filter { return Filter{Field: FieldResetToken, Value: digest} }

// Validate returns an error wrapping ErrInvalidFilter if the filter names
// an unknown field.
func (f Filter) Validate() error {
	if !f.Field.Valid() {
		return oops.Code("USER_STORE_INVALID_FILTER").
			With("field", string(f.Field)).
			Wrapf(ErrInvalidFilter, "unknown field %q", f.Field)
	}
	return nil
}

// Change is one element of a partial update. A Change with guard set does
// not write anything; it restricts the update to rows whose field currently
// equals Value.
type Change struct {
	Field Field
	Value *string // nil clears the field
	guard bool
}

// IsGuard reports whether the change is a precondition rather than a write.
func (c Change) IsGuard() bool { return c.guard }

// SetHashedPassword replaces the stored password hash.
func SetHashedPassword(hash string) Change {
	return Change{Field: FieldHashedPassword, Value: &hash}
}

// SetSessionID stores a session token digest.
func SetSessionID(digest string) Change {
	return Change{Field: FieldSessionID, Value: &digest}
}

// ClearSessionID removes the session token digest.
func ClearSessionID() Change { return Change{Field: FieldSessionID} }

// SetResetToken stores a reset token digest.
func SetResetToken(digest string) Change {
	return Change{Field: FieldResetToken, Value: &digest}
}

// ClearResetToken removes the reset token digest.
func ClearResetToken() Change { return Change{Field: FieldResetToken} }

// RequireResetToken makes the update apply only while the stored reset
// digest still equals digest.
func RequireResetToken(digest string) Change {
	return Change{Field: FieldResetToken, Value: &digest, guard: true}
}

// ValidateChanges checks a change list before a store applies it. Unknown
// or immutable fields, a cleared password and empty lists all wrap
// ErrInvalidFilter.
func ValidateChanges(changes []Change) error {
	writes := 0
	for _, c := range changes {
		if !c.Field.Valid() {
			return oops.Code("USER_STORE_INVALID_FILTER").
				With("field", string(c.Field)).
				Wrapf(ErrInvalidFilter, "unknown field %q", c.Field)
		}
		if c.guard {
			if c.Value == nil {
				return oops.Code("USER_STORE_INVALID_FILTER").
					With("field", string(c.Field)).
					Wrapf(ErrInvalidFilter, "guard on %q needs a value", c.Field)
			}
			continue
		}
		if !c.Field.Mutable() {
			return oops.Code("USER_STORE_INVALID_FILTER").
				With("field", string(c.Field)).
				Wrapf(ErrInvalidFilter, "field %q cannot be updated", c.Field)
		}
		if c.Field == FieldHashedPassword && c.Value == nil {
			return oops.Code("USER_STORE_INVALID_FILTER").
				With("field", string(c.Field)).
				Wrapf(ErrInvalidFilter, "hashed password cannot be cleared")
		}
		writes++
	}
	if writes == 0 {
		return oops.Code("USER_STORE_INVALID_FILTER").Wrapf(ErrInvalidFilter, "no fields to update")
	}
	return nil
}

// Matches reports whether u satisfies every guard in changes.
func Matches(u *User, changes []Change) bool {
	for _, c := range changes {
		if !c.guard {
			continue
		}
		current, ok := u.fieldValue(c.Field)
		if !ok || current == nil || *current != *c.Value {
			return false
		}
	}
	return true
}

// Apply writes the non-guard changes to u and bumps UpdatedAt. Changes must
// have passed ValidateChanges.
func (u *User) Apply(changes []Change, now time.Time) {
	for _, c := range changes {
		if c.guard {
			continue
		}
		var v *string
		if c.Value != nil {
			s := *c.Value
			v = &s
		}
		switch c.Field {
		case FieldHashedPassword:
			u.HashedPassword = *v
		case FieldSessionID:
			u.SessionID = v
		case FieldResetToken:
			u.ResetToken = v
		}
	}
	u.UpdatedAt = now
}

// MatchesFilter reports whether u satisfies f. The filter must be valid.
func (u *User) MatchesFilter(f Filter) bool {
	v, ok := u.fieldValue(f.Field)
	return ok && v != nil && *v == f.Value
}

func (u *User) fieldValue(f Field) (*string, bool) {
	switch f {
	case FieldID:
		s := u.ID.String()
		return &s, true
	case FieldEmail:
		return &u.Email, true
	case FieldHashedPassword:
		return &u.HashedPassword, true
	case FieldSessionID:
		return u.SessionID, true
	case FieldResetToken:
		return u.ResetToken, true
	}
	return nil, false
}

// NormalizeEmail trims and lower-cases an email address. Every lookup and
// insert goes through it, so stores can compare emails exactly.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserStore persists users.
type UserStore interface {
	// FindUserBy returns the single user matching filter.
	// Returns ErrNotFound if none matches and ErrInvalidFilter for an unknown field.
	FindUserBy(ctx context.Context, filter Filter) (*User, error)

	// AddUser inserts a user with a fresh ID and no session or reset token.
	// Returns ErrAlreadyExists if the email is taken.
	AddUser(ctx context.Context, email, hashedPassword string) (*User, error)

	// UpdateUser applies changes to the user with the given ID in one step.
	// Returns ErrNotFound if no such user exists (or a guard does not hold)
	// and ErrInvalidFilter for unknown or immutable fields.
	UpdateUser(ctx context.Context, id ulid.ULID, changes ...Change) error
}
