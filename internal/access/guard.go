// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package access decides which request paths need a session and resolves
// the caller's session token to a user.
package access

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Guard reports whether a request path requires authentication.
// It is immutable after construction and safe for concurrent use.
type Guard struct {
	excluded []glob.Glob
}

// NewGuard compiles the excluded path patterns. Patterns use '/' as the
// separator, so "*" matches within one segment and "**" across segments.
// A trailing slash is optional on both patterns and paths.
//
// Returns error if any pattern fails to compile (invalid glob syntax).
func NewGuard(excludedPaths []string) (*Guard, error) {
	compiled := make([]glob.Glob, 0, len(excludedPaths))
	for _, p := range excludedPaths {
		g, err := glob.Compile(normalizePath(p), '/')
		if err != nil {
			return nil, oops.In("access").
				Code("INVALID_PATH_PATTERN").
				With("pattern", p).
				Wrap(err)
		}
		compiled = append(compiled, g)
	}
	return &Guard{excluded: compiled}, nil
}

// RequireAuth returns true unless path matches an excluded pattern.
// An empty path always requires authentication.
func (g *Guard) RequireAuth(path string) bool {
	if path == "" {
		return true
	}
	path = normalizePath(path)
	for _, e := range g.excluded {
		if e.Match(path) {
			return false
		}
	}
	return true
}

func normalizePath(p string) string {
	if p == "/" {
		return p
	}
	return strings.TrimSuffix(p, "/")
}
