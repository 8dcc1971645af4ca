package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"parafile/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndExpandsPaths(t *testing.T) {
	t.Setenv("PARAFILE_API_KEY", "env-key")
	base := t.TempDir()
	path := writeConfigFile(t, `
[paths]
watched_folder = "`+filepath.Join(base, "inbox")+`"
log_dir = "`+filepath.Join(base, "logs")+`"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("api key not taken from environment: %q", cfg.LLM.APIKey)
	}
	if cfg.Workflow.DebounceMS != 750 || cfg.Workflow.Workers != 2 {
		t.Fatalf("workflow defaults not applied: %+v", cfg.Workflow)
	}
	if !cfg.EnableOrganization {
		t.Fatal("organization should default to enabled")
	}
	if !filepath.IsAbs(cfg.Paths.WatchedFolder) {
		t.Fatalf("watched folder not absolute: %q", cfg.Paths.WatchedFolder)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PARAFILE_API_KEY", "env-key")

	path := writeConfigFile(t, `
[paths]
watched_folder = "~/inbox"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.WatchedFolder != filepath.Join(home, "inbox") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.WatchedFolder)
	}
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	t.Setenv("PARAFILE_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	path := writeConfigFile(t, "")
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api_key error, got %v", err)
	}
}

func TestLoadRejectsBadCategoryPattern(t *testing.T) {
	t.Setenv("PARAFILE_API_KEY", "env-key")
	path := writeConfigFile(t, `
[[categories]]
name = "Invoices"
naming_pattern = "{vendor}"
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "undeclared variable") {
		t.Fatalf("expected undeclared variable error, got %v", err)
	}
}

func TestLoadRejectsNonPositiveTiming(t *testing.T) {
	t.Setenv("PARAFILE_API_KEY", "env-key")
	path := writeConfigFile(t, `
[workflow]
debounce_ms = -5
`)

	// Non-positive values fall back to defaults during normalization rather
	// than failing the session.
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Workflow.DebounceMS != 750 {
		t.Fatalf("expected default debounce, got %d", cfg.Workflow.DebounceMS)
	}
}

func TestCatalogAutoRepair(t *testing.T) {
	t.Setenv("PARAFILE_API_KEY", "env-key")
	path := writeConfigFile(t, `
[[categories]]
name = "Invoices"
naming_pattern = "{vendor} - {original_name}"

[[variables]]
name = "vendor"
description = "Vendor name"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cat, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog returned error: %v", err)
	}
	if _, ok := cat.Lookup("General"); !ok {
		t.Fatal("General category missing from catalog")
	}
	if cat.Fallback().NamingPattern != "{original_name}" {
		t.Fatalf("unexpected fallback pattern %q", cat.Fallback().NamingPattern)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("PARAFILE_API_KEY", "env-key")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("sample config not detected")
	}
	if len(cfg.Categories) == 0 {
		t.Fatal("sample config should declare example categories")
	}
	if _, err := cfg.Catalog(); err != nil {
		t.Fatalf("sample catalog invalid: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WatchedFolder = filepath.Join(base, "watched")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WatchedFolder, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q missing: %v", dir, err)
		}
	}
}
