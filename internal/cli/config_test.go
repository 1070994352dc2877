package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("default addr = %q", cfg.Serve.Addr)
	}
	if len(cfg.RootAliases) == 0 || cfg.RootAliases[0] != "sourcebus" {
		t.Errorf("default root aliases = %v", cfg.RootAliases)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distflow.toml")
	content := `
root_aliases = ["650"]

[bases]
v_base_kv_ll = 12.47
s_base_mva = 5.0

[cache]
dir = "/tmp/dfcache"
model_ttl = "720h"

[serve]
addr = ":9999"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Bases.VBaseKVLL != 12.47 || cfg.Bases.SBaseMVA != 5.0 {
		t.Errorf("bases = %+v", cfg.Bases)
	}
	if cfg.Cache.Dir != "/tmp/dfcache" {
		t.Errorf("cache dir = %q", cfg.Cache.Dir)
	}
	if cfg.Cache.ModelTTL != "720h" {
		t.Errorf("model ttl = %q", cfg.Cache.ModelTTL)
	}
	if cfg.Serve.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Serve.Addr)
	}
	if len(cfg.RootAliases) != 1 || cfg.RootAliases[0] != "650" {
		t.Errorf("root aliases = %v", cfg.RootAliases)
	}
	// Unset sections keep their defaults.
	if cfg.Serve.MongoDB != "distflow" {
		t.Errorf("mongo db = %q", cfg.Serve.MongoDB)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("explicitly named missing config must error")
	}
}
