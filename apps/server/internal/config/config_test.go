package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Store.Mode != StoreModeSQLite || cfg.Prefs.Mode != PrefsModeMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Road.MinColumns <= 0 {
		t.Fatalf("expected positive min columns")
	}
}

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: ":9090"
store:
  mode: memory
road:
  min_columns: 12
  min_track_columns: 8
timer:
  reminder: 30s
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ROAD_MIN_COLUMNS", "16")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if cfg.Store.Mode != StoreModeMemory {
		t.Fatalf("unexpected store mode %s", cfg.Store.Mode)
	}
	if cfg.Road.MinColumns != 16 || cfg.Road.MinTrackColumns != 8 {
		t.Fatalf("unexpected road config %+v", cfg.Road)
	}
	if cfg.Timer.Reminder != 30*time.Second {
		t.Fatalf("unexpected reminder %v", cfg.Timer.Reminder)
	}
}

func TestLoad_RejectsUnknownStoreMode(t *testing.T) {
	t.Setenv("STORE_MODE", "cassandra")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "invalid store mode") {
		t.Fatalf("expected invalid store mode error, got %v", err)
	}
}

func TestValidate_RejectsZeroColumns(t *testing.T) {
	cfg := Default()
	cfg.Road.MinColumns = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero columns")
	}
}
