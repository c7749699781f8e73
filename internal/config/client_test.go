package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadClient_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Fatalf("server url = %q", cfg.ServerURL)
	}
	if cfg.Temperature != 0.7 || !cfg.EnableSearch {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.APIKeys == nil {
		t.Fatal("APIKeys map not initialized")
	}
}

func TestSaveClient_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")

	cfg := DefaultClientConfig()
	cfg.Provider = "openai"
	cfg.Model = "gpt-4"
	cfg.APIKeys["openai"] = "sk-test"
	cfg.Temperature = 0.2

	if err := SaveClient(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("perm = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadClient(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Provider != "openai" || got.Model != "gpt-4" || got.Temperature != 0.2 {
		t.Fatalf("got = %+v", got)
	}
	if got.APIKey("openai") != "sk-test" {
		t.Fatalf("key = %q", got.APIKey("openai"))
	}
}
