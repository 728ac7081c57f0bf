package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cadence/internal/platform/config"
	apperrors "cadence/internal/platform/errors"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	if _, err := config.New(""); err == nil {
		t.Fatalf("empty data path should fail")
	}
	cfg, err := config.New("/tmp/cadence")
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.DBPath != filepath.Join("/tmp/cadence", "cadence.db") {
		t.Fatalf("unexpected db path %s", cfg.DBPath)
	}
	if cfg.Timer.TickInterval.Duration != 16*time.Millisecond || cfg.Timer.WindowSize != 10 {
		t.Fatalf("unexpected timer defaults %+v", cfg.Timer)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	payload := "storage:\n  backend: sqlite\ntimer:\n  tick_interval: 50ms\nscoring:\n  leniency: 0.5\n"
	if err := os.WriteFile(filepath.Join(dir, "cadence.yaml"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != config.BackendSQLite {
		t.Fatalf("expected sqlite backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Timer.TickInterval.Duration != 50*time.Millisecond {
		t.Fatalf("expected 50ms tick, got %s", cfg.Timer.TickInterval)
	}
	if cfg.Scoring.Leniency != 0.5 || cfg.Scoring.FlowThreshold != 80 {
		t.Fatalf("expected overridden leniency and default threshold, got %+v", cfg.Scoring)
	}
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	payload := "[timer]\nwindow_size = 6\n\n[log]\nlevel = \"debug\"\n"
	if err := os.WriteFile(filepath.Join(dir, "cadence.toml"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Timer.WindowSize != 6 || cfg.Log.Level != "debug" {
		t.Fatalf("toml overrides not applied: %+v %+v", cfg.Timer, cfg.Log)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cadence.yaml"), []byte("timer:\n  window_size: 1\n"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if _, err := config.Load(dir); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	cfg, _ := config.New(dir)
	cfg.Storage.Backend = "s3"
	if err := cfg.Validate(); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid backend error, got %v", err)
	}
}
