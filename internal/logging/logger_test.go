package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yoloprep/internal/config"
	"yoloprep/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerHeaderAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithStage(logging.WithRunID(context.Background(), "0123456789abcdef"), "place")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "placement"))
	logger.Info("image placed", logging.String(logging.FieldUnit, "d/img 1.jpeg"), logging.Int("count", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, want := range []string{
		"INFO [placement] place (run 01234567) – image placed",
		`    - unit: "d/img 1.jpeg"`,
		"    - count: 3",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
	if strings.Contains(text, "- component:") || strings.Contains(text, "- run_id:") {
		t.Fatalf("header fields should not repeat as attributes:\n%s", text)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	base, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logging.NewComponentLogger(base, "select"), "archive skipped", "archive_skipped",
		logging.Error(errors.New("not a zip")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v (%s)", err, content)
	}
	checks := map[string]string{
		"level":                "warn",
		"msg":                  "archive skipped",
		logging.FieldComponent: "select",
		logging.FieldEventType: "archive_skipped",
		logging.FieldErrorHint: "check logs for details",
		logging.FieldImpact:    "unit skipped; the stage continues",
		"error":                "not a zip",
	}
	for key, want := range checks {
		if got, _ := entry[key].(string); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestWarnWithContextKeepsExplicitFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	base, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(base, "mapping not saved", "mapping_save_failed",
		logging.String(logging.FieldImpact, "organize cannot find these images"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Count(string(content), `"impact"`) != 1 {
		t.Fatalf("expected a single impact field, got %s", content)
	}
	if !strings.Contains(string(content), "organize cannot find these images") {
		t.Fatalf("expected explicit impact preserved, got %s", content)
	}
}

func TestNopLoggerAndNilHelpers(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("discarded")
	logging.WarnWithContext(nil, "ignored", "noop")
	logging.ErrorWithContext(nil, "ignored", "noop")
	if got := logging.ContextFields(context.Background()); len(got) != 0 {
		t.Fatalf("expected no fields from empty context, got %v", got)
	}
}
