// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil provides helpers for logging and inspecting oops errors.
package errutil

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code, and context.
// The context is a group with one attribute per key, so handler-level
// ReplaceAttr functions see every key. For standard errors, it logs the
// error string.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.ErrorContext(ctx, msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := Code(err); code != "" {
		attrs = append(attrs, "code", code)
	}
	if c := oopsErr.Context(); len(c) > 0 {
		group := make([]any, 0, len(c))
		for _, k := range slices.Sorted(maps.Keys(c)) {
			group = append(group, slog.Any(k, c[k]))
		}
		attrs = append(attrs, slog.Group("context", group...))
	}
	logger.ErrorContext(ctx, msg, attrs...)
}

// Code returns the oops code of err as a string, or "" if err carries none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}
