package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipshift/internal/logging"
)

func TestNewConsoleWritesComponentPrefix(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	component := logging.NewComponentLogger(logger, "uploader")
	component.Info("chunk sent", logging.Int("attempt", 2), logging.String("note", "has space"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "uploader: chunk sent") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "attempt=2") {
		t.Fatalf("expected attrs rendered, got %q", line)
	}
	if !strings.Contains(line, `note="has space"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
}

func TestNewJSONLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.json")

	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatalf("info line should be filtered: %s", data)
	}
	if !strings.Contains(string(data), "visible") {
		t.Fatalf("warn line missing: %s", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("dropped", logging.Error(os.ErrNotExist))
}
