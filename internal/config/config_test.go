package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipshift/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Upload.ChunkSizeMB != 8 {
		t.Fatalf("chunk size default = %d, want 8", cfg.Upload.ChunkSizeMB)
	}
	if cfg.Upload.MaxRetries != 8 {
		t.Fatalf("max retries default = %d, want 8", cfg.Upload.MaxRetries)
	}
	if cfg.Paths.SocketPath == "" {
		t.Fatal("socket path should derive from data dir")
	}
}

func TestLoadNormalizesLanguageTag(t *testing.T) {
	path := writeConfig(t, `
[upload]
default_language = "EN-us"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Upload.DefaultLanguage != "en-US" {
		t.Fatalf("language = %q, want en-US", cfg.Upload.DefaultLanguage)
	}
}

func TestLoadRejectsBadLanguageTag(t *testing.T) {
	path := writeConfig(t, `
[upload]
default_language = "not a language"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for invalid language tag")
	}
}

func TestLoadRejectsBadPrivacy(t *testing.T) {
	path := writeConfig(t, `
[upload]
default_privacy = "secret"
`)
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "default_privacy") {
		t.Fatalf("expected privacy validation error, got %v", err)
	}
}

func TestLoadRequiresHandleWhenWatchEnabled(t *testing.T) {
	path := writeConfig(t, `
[watch]
enabled = true
`)
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "watch.handle") {
		t.Fatalf("expected watch.handle error, got %v", err)
	}
}

func TestLoadCleansWatchKeywords(t *testing.T) {
	path := writeConfig(t, `
[watch]
include_keywords = ["Dance", " dance ", "", "MUSIC"]
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.Watch.IncludeKeywords
	if len(got) != 2 || got[0] != "dance" || got[1] != "music" {
		t.Fatalf("keywords = %v, want [dance music]", got)
	}
}

func TestLoadRejectsInvertedDurationBounds(t *testing.T) {
	path := writeConfig(t, `
[watch]
min_duration = 90
max_duration = 30
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected duration bounds error")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly, exists=%v err=%v", exists, err)
	}
}
