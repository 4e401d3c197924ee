package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one stage invocation.
	FieldRunID = "run_id"
	// FieldStage is the standardized structured logging key for stage names.
	FieldStage = "stage"
	// FieldUnit names the image, archive, or label a line is about.
	FieldUnit = "unit"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	stageKey
)

// WithRunID attaches a run identifier to ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// WithStage attaches a stage name to ctx.
func WithStage(ctx context.Context, stage string) context.Context {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// ContextFields returns the run_id and stage attributes carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	for _, f := range []struct {
		key   ctxKey
		field string
	}{{runIDKey, FieldRunID}, {stageKey, FieldStage}} {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			fields = append(fields, slog.String(f.field, v))
		}
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(withDefaults(fields)...)
}
