package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.AI.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.AI.Provider)
	}
	if cfg.Ingest.MaxWorkers != 4 {
		t.Errorf("max workers = %d, want 4", cfg.Ingest.MaxWorkers)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scholia.yaml")
	content := "server:\n  port: 9090\nai:\n  provider: ollama\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.AI.Provider != "ollama" {
		t.Errorf("provider = %q, want ollama", cfg.AI.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCHOLIA_SERVER_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070 from environment", cfg.Server.Port)
	}
}

func TestLoadInvalidProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scholia.yaml")
	if err := os.WriteFile(path, []byte("ai:\n  provider: anthropic\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown provider")
	}
}
