// Package observability provides the worker's structured logging, metrics,
// and tracing surfaces: slog with JSON output for logs, a Prometheus
// registry for metrics, and an OpenTelemetry tracer for spans.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// redactedContextKeys lists BlockContext-adjacent log fields that must never
// be emitted verbatim: they carry scopes/tenant detail that downstream log
// sinks treat as PII. The rule only ever applies to the request context,
// never to outputs or error messages.
var redactedContextKeys = map[string]bool{
	"rbac_scopes": true,
}

// NewLogger builds the process-wide structured logger, writing JSON to w.
// Timestamps are RFC 3339 with microsecond precision so log lines interleave
// correctly with trace spans.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch {
			case a.Key == slog.TimeKey && len(groups) == 0:
				a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000000Z07:00"))
			case redactedContextKeys[a.Key]:
				a.Value = slog.StringValue("[redacted]")
			}

			return a
		},
	})

	return slog.New(handler)
}

// NewStdoutLogger builds the process-wide logger writing to stdout, the
// normal entry point for cmd/beamline-worker.
func NewStdoutLogger(level slog.Level) *slog.Logger {
	return NewLogger(level, os.Stdout)
}

// WithFields returns a child logger carrying the given step/run identifiers,
// matching the attribute set every beamline log line carries.
func WithFields(logger *slog.Logger, tenantID, runID, stepID, traceID string) *slog.Logger {
	return logger.With(
		"tenant_id", tenantID,
		"run_id", runID,
		"step_id", stepID,
		"trace_id", traceID,
	)
}

// LogAttemptStart emits a debug line at the start of an executor attempt.
func LogAttemptStart(ctx context.Context, logger *slog.Logger, blockType string, attempt int) {
	logger.DebugContext(ctx, "executor attempt starting", "block_type", blockType, "attempt", attempt, "started_at", time.Now().UTC())
}
