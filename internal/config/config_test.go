package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.LLM.Primary != "openai" {
		t.Errorf("LLM.Primary = %q, want openai", cfg.LLM.Primary)
	}
	if cfg.Editorial.Attribution != "Benzinga Pro data" {
		t.Errorf("Editorial.Attribution = %q", cfg.Editorial.Attribution)
	}
	if cfg.Editorial.MaxLinkRetries != 2 {
		t.Errorf("Editorial.MaxLinkRetries = %d, want 2", cfg.Editorial.MaxLinkRetries)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
llm:
  primary: gemini
  model: gemini-2.0-flash
editorial:
  attribution: delayed exchange data
  max_link_retries: 3
api:
  port: 9090
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	if cfg.LLM.Primary != "gemini" {
		t.Errorf("LLM.Primary = %q, want gemini", cfg.LLM.Primary)
	}
	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.Editorial.Attribution != "delayed exchange data" {
		t.Errorf("Editorial.Attribution = %q", cfg.Editorial.Attribution)
	}
	if cfg.Editorial.MaxLinkRetries != 3 {
		t.Errorf("Editorial.MaxLinkRetries = %d, want 3", cfg.Editorial.MaxLinkRetries)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	// Unset sections keep their defaults.
	if cfg.Data.QuoteBaseURL == "" {
		t.Error("Data.QuoteBaseURL default missing")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MARKETPROSE_LLM_OPENAI_KEY", "sk-test-123")
	t.Setenv("MARKETPROSE_DATA_BENZINGA_KEY", "bz-test-456")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.LLM.OpenAIKey != "sk-test-123" {
		t.Errorf("LLM.OpenAIKey = %q, want env value", cfg.LLM.OpenAIKey)
	}
	if cfg.Data.BenzingaKey != "bz-test-456" {
		t.Errorf("Data.BenzingaKey = %q, want env value", cfg.Data.BenzingaKey)
	}
}
