package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meow-stack/factory-sim/internal/config"
)

func TestNewFromConfig_DefaultsToStderr(t *testing.T) {
	cfg := &config.Config{
		Logging: config.LoggingConfig{
			Level:  config.LogLevelInfo,
			Format: config.LogFormatJSON,
		},
	}

	logger, closer, err := NewFromConfig(cfg, "/tmp")
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if closer != nil {
		t.Error("Expected no closer when no file configured")
	}
	if logger == nil {
		t.Fatal("Expected logger to be non-nil")
	}
}

func TestNewFromConfig_FanOutToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Paths: config.PathsConfig{LogsDir: "logs"},
		Logging: config.LoggingConfig{
			Level:  config.LogLevelDebug,
			Format: config.LogFormatText,
			File:   "sim.log",
		},
	}

	logger, closer, err := NewFromConfig(cfg, dir)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if closer == nil {
		t.Fatal("Expected closer for log file")
	}

	logger.Debug("day started", "day", 3)
	closer.Close()

	data, err := os.ReadFile(filepath.Join(dir, "logs", "sim.log"))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("log file line is not JSON: %v (%s)", err, data)
	}
	if record["msg"] != "day started" {
		t.Errorf("msg = %v, want day started", record["msg"])
	}
	if record["day"] != float64(3) {
		t.Errorf("day = %v, want 3", record["day"])
	}
}

func TestNewForRun(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Paths: config.PathsConfig{
			LogsDir: filepath.Join(dir, "nested", "logs"),
		},
		Logging: config.LoggingConfig{
			Level:  config.LogLevelInfo,
			Format: config.LogFormatJSON,
		},
	}

	logger, closer, err := NewForRun(cfg, dir, "run-123")
	if err != nil {
		t.Fatalf("NewForRun failed: %v", err)
	}
	if closer == nil {
		t.Fatal("Expected closer for run log")
	}
	defer closer.Close()

	logger.Info("test message", "key", "value")

	data, err := os.ReadFile(filepath.Join(dir, "nested", "logs", "run-123.log"))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "test message") {
		t.Errorf("Log file does not contain expected message: %s", data)
	}
	if !strings.Contains(string(data), `"run_id":"run-123"`) {
		t.Errorf("Log file does not carry run_id: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input config.LogLevel
		want  slog.Level
	}{
		{config.LogLevelDebug, slog.LevelDebug},
		{config.LogLevelInfo, slog.LevelInfo},
		{config.LogLevelWarn, slog.LevelWarn},
		{config.LogLevelError, slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(config.LogFormatJSON, &buf, slog.LevelInfo))

	logger.Info("test", "key", "value")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v (output: %s)", err, buf.String())
	}
	if result["msg"] != "test" {
		t.Errorf("msg = %v, want test", result["msg"])
	}
	if result["key"] != "value" {
		t.Errorf("key = %v, want value", result["key"])
	}
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(config.LogFormatText, &buf, slog.LevelInfo))

	logger.Info("test", "key", "value")

	if !strings.Contains(buf.String(), "key=value") {
		t.Errorf("output should contain 'key=value': %s", buf.String())
	}
}

func TestNewForTest(t *testing.T) {
	logger := NewForTest()
	if logger == nil {
		t.Fatal("Expected logger to be non-nil")
	}
	logger.Info("test message")
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithOperation(WithDay(logger, 4, "2024-01-04"), "restock").Info("test")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v", err)
	}
	if result["day"] != float64(4) {
		t.Errorf("day = %v, want 4", result["day"])
	}
	if result["date"] != "2024-01-04" {
		t.Errorf("date = %v, want 2024-01-04", result["date"])
	}
	if result["operation"] != "restock" {
		t.Errorf("operation = %v, want restock", result["operation"])
	}
}
