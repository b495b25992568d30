package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LookupWindow != 1000 || cfg.ChunkBudget != 6000 || cfg.Mode != "smooth" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Timeout() != 2*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
	if cfg.GlossaryPath != filepath.Join(dir, "glossary.json") {
		t.Errorf("glossary path not resolved: %q", cfg.GlossaryPath)
	}
}

func TestLoad_PartialOverrideKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := "chunk_budget: 3000\nmodel: gpt-4o-mini\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkBudget != 3000 {
		t.Errorf("chunk_budget = %d", cfg.ChunkBudget)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.LookupWindow != 1000 || cfg.ExtractModel != "gpt-4o" {
		t.Errorf("unrelated defaults lost: %+v", cfg)
	}
}

func TestLoad_InvalidMode(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("mode: poetic\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "mode") {
		t.Errorf("expected mode validation error, got %v", err)
	}
}

func TestAPIKey_FlagWins(t *testing.T) {
	t.Setenv("HVKIT_API_KEY", "from-env")
	got, err := APIKey(t.TempDir(), "from-flag")
	if err != nil || got != "from-flag" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestAPIKey_EnvOrder(t *testing.T) {
	t.Setenv("HVKIT_API_KEY", "primary")
	t.Setenv("OPENAI_API_KEY", "secondary")
	got, err := APIKey(t.TempDir(), "")
	if err != nil || got != "primary" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestAPIKey_DotEnvFile(t *testing.T) {
	t.Setenv("HVKIT_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("HVKIT_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-test\n"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := APIKey(dir, "")
	if err != nil || got != "sk-test" {
		t.Errorf("got %q, %v", got, err)
	}
	os.Unsetenv("OPENAI_API_KEY")
}

func TestAPIKey_MissingIsError(t *testing.T) {
	t.Setenv("HVKIT_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("HVKIT_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")

	if _, err := APIKey(t.TempDir(), ""); err == nil {
		t.Fatal("expected error when no credential is available")
	}
}
