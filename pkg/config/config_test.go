package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.RetryIntervalMS != def.RetryIntervalMS {
		t.Errorf("RetryIntervalMS = %d, want default %d", cfg.RetryIntervalMS, def.RetryIntervalMS)
	}
	if cfg.ControllerID != def.ControllerID {
		t.Errorf("ControllerID = %q, want default %q", cfg.ControllerID, def.ControllerID)
	}
}

func TestLoad_OverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "controller_id: edge-controller-7\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ControllerID != "edge-controller-7" {
		t.Errorf("ControllerID = %q, want edge-controller-7", cfg.ControllerID)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Fields absent from the file keep their Default() values.
	if cfg.RetryIntervalMS != Default().RetryIntervalMS {
		t.Errorf("RetryIntervalMS = %d, want untouched default", cfg.RetryIntervalMS)
	}
}

func TestLoad_InvalidYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
