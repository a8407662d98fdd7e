// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides user registration, credential checks, session
// tokens and password reset tokens on top of a UserStore.
//
// # Store
//
// UserStore is the only persistence boundary. Lookups use the typed filter
// constructors (ByID, ByEmail, BySessionID, ByResetToken); updates are a
// list of Change values (SetSessionID, ClearResetToken, ...) applied to one
// row atomically. Implementations live in the memory, postgres and sqlite
// subpackages.
//
// # Service
//
// Service owns hashing and token policy:
//   - RegisterUser / ValidLogin - account creation and credential checks
//   - CreateSession / GetUserFromSessionID / DestroySession - session lifecycle
//   - GetResetPasswordToken / UpdatePassword - single-use reset tokens
//
// Tokens handed to callers are never stored; only their SHA-256 digest is.
package auth
