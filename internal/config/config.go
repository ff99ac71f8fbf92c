// Package config loads filmscatalog settings from YAML or TOML files with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAPIToken = "FILMS_API_TOKEN"
	EnvAPIURL   = "FILMS_API_URL"
	EnvDB       = "FILMS_DB"
)

// Config holds application configuration.
type Config struct {
	// DataDir holds the database when DBPath is not set.
	DataDir string `yaml:"data_dir" toml:"data_dir"`

	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path" toml:"db_path"`

	API    APIConfig    `yaml:"api" toml:"api"`
	Cache  CacheConfig  `yaml:"cache" toml:"cache"`
	Server ServerConfig `yaml:"server" toml:"server"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// APIConfig configures the remote catalog provider.
type APIConfig struct {
	BaseURL string   `yaml:"base_url" toml:"base_url"`
	Token   string   `yaml:"token" toml:"token"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// CacheConfig configures refresh behaviour.
type CacheConfig struct {
	// TTL is the maximum age of a cached list. Zero refreshes only when the
	// cache is empty.
	TTL            Duration `yaml:"ttl" toml:"ttl"`
	NetworkWorkers int      `yaml:"network_workers" toml:"network_workers"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	MaxConns int    `yaml:"max_conns" toml:"max_conns"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	// File receives log output instead of stderr. The TUI needs this since
	// it owns the terminal.
	File string `yaml:"file" toml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DataDir: "~/.filmscatalog",
		API: APIConfig{
			BaseURL: "https://api.themoviedb.org/3",
			Timeout: Duration(30 * time.Second),
		},
		Cache: CacheConfig{
			NetworkWorkers: 3,
		},
		Server: ServerConfig{
			Addr:     "127.0.0.1:8080",
			MaxConns: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file at path over the defaults, then applies
// environment overrides. An empty path or a missing file yields defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(ExpandHome(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.DataDir = ExpandHome(cfg.DataDir)
	cfg.DBPath = ExpandHome(cfg.DBPath)
	cfg.Log.File = ExpandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIToken); ok && v != "" {
		c.API.Token = v
	}
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.DBPath = v
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if c.Cache.NetworkWorkers < 0 {
		return fmt.Errorf("cache.network_workers must not be negative")
	}
	if c.Server.MaxConns < 0 {
		return fmt.Errorf("server.max_conns must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Database returns the database path, defaulting to catalog.db in DataDir.
func (c Config) Database() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "catalog.db")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
