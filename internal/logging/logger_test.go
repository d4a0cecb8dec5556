package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"acmsync/internal/config"
	"acmsync/internal/logging"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, "acm")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("checkout opened", logging.String(logging.FieldACM, "ACM-TEST"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "acm.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("expected json log line, got %q: %v", content, err)
	}
	if record["msg"] != "checkout opened" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["acm"] != "ACM-TEST" {
		t.Fatalf("unexpected acm field: %v", record["acm"])
	}
	if record["level"] != "info" {
		t.Fatalf("expected lower-case level, got %v", record["level"])
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "access")
	component.Info("status resolved", logging.String("status", "available"), logging.String("holder", "a b"))
	component.Debug("hidden")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO access: status resolved") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "status=available") || !strings.Contains(line, `holder="a b"`) {
		t.Fatalf("expected key=value fields, got %q", line)
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithRequestID(logging.WithACM(context.Background(), "ACM-CBCC"), "req-1")
	logging.WithContext(ctx, logger).Info("hello")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "acm=ACM-CBCC") || !strings.Contains(string(content), "correlation_id=req-1") {
		t.Fatalf("expected context fields, got %q", content)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextFillsMissingFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "server unreachable", "server_unreachable",
		logging.String(logging.FieldImpact, "working offline"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("expected json log line, got %q: %v", content, err)
	}
	if record[logging.FieldEventType] != "server_unreachable" {
		t.Fatalf("event_type not injected: %v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("error_hint not injected: %v", record)
	}
	if record[logging.FieldImpact] != "working offline" {
		t.Fatalf("caller impact overwritten: %v", record[logging.FieldImpact])
	}
}
