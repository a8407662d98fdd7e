// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the amount of randomness in session and reset tokens.
const TokenBytes = 32 // 32 bytes = 64 hex chars

// GenerateToken creates a secure random token and its digest.
// Returns (plaintext_token, sha256_digest, error).
// The plaintext token goes to the caller; only the digest is stored.
func GenerateToken() (token, digest string, err error) {
	tokenBytes := make([]byte, TokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, DigestToken(token), nil
}

// DigestToken computes the hex SHA-256 digest of a token.
func DigestToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
