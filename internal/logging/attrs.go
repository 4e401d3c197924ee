package logging

import (
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// NewComponentLogger tags logger with the stage component. A nil logger
// yields a no-op one.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// fieldDefault is a key that a warning or error record must carry.
type fieldDefault struct {
	key, value string
}

// withDefaults returns attrs in the variadic form slog takes, appending each
// default whose key attrs does not already set.
func withDefaults(attrs []Attr, defaults ...fieldDefault) []any {
	present := make(map[string]bool, len(attrs))
	args := make([]any, 0, len(attrs)+len(defaults))
	for _, attr := range attrs {
		present[attr.Key] = true
		args = append(args, attr)
	}
	for _, d := range defaults {
		if !present[d.key] {
			args = append(args, String(d.key, d.value))
		}
	}
	return args
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact, so an operator can tell which unit suffered and what to do.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Warn(msg, withDefaults(attrs,
		fieldDefault{FieldEventType, eventType},
		fieldDefault{FieldErrorHint, "check logs for details"},
		fieldDefault{FieldImpact, "unit skipped; the stage continues"})...)
}

// ErrorWithContext logs an error that always carries event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Error(msg, withDefaults(attrs,
		fieldDefault{FieldEventType, eventType},
		fieldDefault{FieldErrorHint, "check logs for details"})...)
}
