// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2Params holds argon2id cost parameters.
type Argon2Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params returns the OWASP-recommended argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password. Two calls with the same
	// password return different strings.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash should be recomputed with the
	// current algorithm and parameters.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id. It also verifies
// bcrypt hashes so accounts imported from older deployments can log in and
// be upgraded.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates a hasher with DefaultArgon2Params.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params()}
}

// NewArgon2idHasherWithParams creates a hasher with explicit parameters.
func NewArgon2idHasherWithParams(p Argon2Params) (*Argon2idHasher, error) {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return nil, oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("time", p.Time).
			With("memory", p.Memory).
			With("threads", p.Threads).
			Errorf("argon2 time, memory and threads must be positive")
	}
	if p.SaltLen == 0 {
		p.SaltLen = DefaultArgon2Params().SaltLen
	}
	if p.KeyLen == 0 {
		p.KeyLen = DefaultArgon2Params().KeyLen
	}
	return &Argon2idHasher{params: p}, nil
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks if the password matches an argon2id or bcrypt hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return verifyBcrypt(password, encodedHash)
	}

	p, salt, expectedHash, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computedHash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

// NeedsUpgrade returns true for non-argon2id hashes and for argon2id hashes
// produced with different parameters.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	if !strings.HasPrefix(hash, "$argon2id$") {
		return true
	}
	p, _, _, err := decodeArgon2id(hash)
	if err != nil {
		return true
	}
	return p.Time != h.params.Time || p.Memory != h.params.Memory || p.Threads != h.params.Threads
}

func decodeArgon2id(encodedHash string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return p, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return p, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &threads); err != nil {
		return p, nil, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if threads == 0 || threads > 255 {
		return p, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}
	p.Threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(key) == 0 || len(key) > 1<<30 {
		return p, nil, nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(key))
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))

	return p, salt, key, nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func verifyBcrypt(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, oops.Code("AUTH_INVALID_HASH").With("algorithm", "bcrypt").Wrap(err)
}
