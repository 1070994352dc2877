package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/voltlab/distflow/pkg/network"
)

// Config is the optional distflow.toml configuration. Flags override
// config values; config values override built-in defaults.
type Config struct {
	// RootAliases are tried in order when locating the feeder source.
	RootAliases []string `toml:"root_aliases"`

	Bases BasesConfig `toml:"bases"`
	Cache CacheConfig `toml:"cache"`
	Serve ServeConfig `toml:"serve"`
}

// BasesConfig overrides the extraction bases. Zero means derive from
// the circuit.
type BasesConfig struct {
	VBaseKVLL float64 `toml:"v_base_kv_ll"`
	SBaseMVA  float64 `toml:"s_base_mva"`
}

// CacheConfig controls the result cache location and lifetimes.
// TTLs use Go duration syntax, e.g. "720h" or "30m".
type CacheConfig struct {
	Dir      string `toml:"dir"`
	ModelTTL string `toml:"model_ttl"`
	SolveTTL string `toml:"solve_ttl"`
}

// ServeConfig holds defaults for the serve command.
type ServeConfig struct {
	Addr     string `toml:"addr"`
	RedisURL string `toml:"redis_url"`
	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		RootAliases: network.DefaultRootAliases,
		Serve: ServeConfig{
			Addr:    ":8080",
			MongoDB: appName,
		},
	}
}

// LoadConfig reads the TOML config at path. An empty path searches
// ./distflow.toml, then $XDG_CONFIG_HOME/distflow/distflow.toml; a
// missing file in the search path is not an error.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = findConfig()
		if path == "" {
			return DefaultConfig(), nil
		}
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !explicit && os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if len(cfg.RootAliases) == 0 {
		cfg.RootAliases = network.DefaultRootAliases
	}
	return cfg, nil
}

func findConfig() string {
	name := appName + ".toml"
	if _, err := os.Stat(name); err == nil {
		return name
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	candidate := filepath.Join(configHome, appName, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
