package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithNoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := DefaultConfig()
	if cfg.BatchSize != want.BatchSize || cfg.FlushTimeoutSeconds != want.FlushTimeoutSeconds {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadReadsTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	contents := "batch_size = 200\n\n[relational]\nhost = \"db1\"\nport = 5433\n"
	if err := os.WriteFile(path, []byte(contents), 0640); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchSize != 200 {
		t.Errorf("batch size = %d, want 200", cfg.BatchSize)
	}
	if cfg.Relational.Host != "db1" || cfg.Relational.Port != 5433 {
		t.Errorf("relational = %+v", cfg.Relational)
	}
	if cfg.Document.Port != DefaultConfig().Document.Port {
		t.Errorf("document config should still fall back to defaults: %+v", cfg.Document)
	}
}

func TestEnvOverridesFileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	if err := os.WriteFile(path, []byte("batch_size = 200\n"), 0640); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("AIDB_BATCH_SIZE", "999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchSize != 999 {
		t.Errorf("batch size = %d, want env override 999", cfg.BatchSize)
	}
}

func TestWriteDefaultDoesNotOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	if err := os.WriteFile(path, []byte("batch_size = 7\n"), 0640); err != nil {
		t.Fatalf("seed existing config: %v", err)
	}

	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("write default: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchSize != 7 {
		t.Errorf("existing config should survive WriteDefault without force: got batch size %d", cfg.BatchSize)
	}
}
