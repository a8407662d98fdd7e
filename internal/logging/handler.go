// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package logging provides structured logging with OpenTelemetry trace
// context and PII redaction.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// traceHandler wraps a slog.Handler to add service metadata and trace context.
type traceHandler struct {
	handler slog.Handler
	service string
	version string
}

// Handle adds trace context to the log record.
func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, r)
}

// Enabled returns true if the level is enabled.
func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes.
func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{
		handler: h.handler.WithAttrs(attrs),
		service: h.service,
		version: h.version,
	}
}

// WithGroup returns a new handler with the given group.
func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{
		handler: h.handler.WithGroup(name),
		service: h.service,
		version: h.version,
	}
}

// Option customises Setup.
type Option func(*options)

type options struct {
	level  slog.Level
	redact []string
}

// WithLevel sets the minimum level. Defaults to debug.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithRedactedFields replaces the value of any attribute whose key is in
// fields with RedactedValue.
func WithRedactedFields(fields ...string) Option {
	return func(o *options) { o.redact = append(o.redact, fields...) }
}

// Setup creates a configured slog.Logger.
// format: "json" or "text" (defaults to "json" if empty)
// If w is nil, writes to os.Stderr.
func Setup(service, version, format string, w io.Writer, opts ...Option) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	o := options{level: slog.LevelDebug}
	for _, opt := range opts {
		opt(&o)
	}

	handlerOpts := &slog.HandlerOptions{
		Level: o.level,
	}
	if len(o.redact) > 0 {
		handlerOpts.ReplaceAttr = RedactAttr(o.redact...)
	}

	var baseHandler slog.Handler
	if format == "text" {
		baseHandler = slog.NewTextHandler(w, handlerOpts)
	} else {
		baseHandler = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(&traceHandler{
		handler: baseHandler,
		service: service,
		version: version,
	})
}

// SetDefault sets up a logger with Setup, installs it as the slog default
// and returns it. Packages logging through slog's top-level functions then
// share its handler, redaction included.
func SetDefault(service, version, format string, w io.Writer, opts ...Option) *slog.Logger {
	logger := Setup(service, version, format, w, opts...)
	slog.SetDefault(logger)
	return logger
}
