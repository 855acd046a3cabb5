package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Auth.DirectLogin {
		t.Error("direct login should default on for the pilot")
	}
}

func TestLoadParsesAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  addr: ":9999"
llm:
  model: gemini-2.5-pro
  timeout: 30s
storage:
  database_path: /tmp/x.db
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GALVANIY_ADDR", ":7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != "gemini-2.5-pro" || cfg.Storage.DatabasePath != "/tmp/x.db" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Error("GEMINI_API_KEY override not applied")
	}
	if cfg.Server.Addr != ":7777" {
		t.Error("GALVANIY_ADDR must override the file value")
	}
	if cfg.GetLLMTimeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.GetLLMTimeout())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Addr = ":4242"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Addr != ":4242" {
		t.Errorf("addr = %q", loaded.Server.Addr)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	cfg.Server.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty addr must fail validation")
	}
}
