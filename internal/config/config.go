// Package config loads configuration from environment variables with an
// optional YAML overlay file for values users edit by hand (search
// engine, data directory).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Browse  BrowseConfig
	Logging LogConfig
}

// ServerConfig holds the command-surface HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"LUMEN_PORT" default:"7560" yaml:"port"`
	Host string `envconfig:"LUMEN_HOST" default:"127.0.0.1" yaml:"host"`
}

// EngineConfig holds the content engine configuration. An empty
// CDPAddress launches an embedded engine process; a non-empty one
// attaches to an already-running browser's DevTools endpoint instead.
type EngineConfig struct {
	CDPAddress   string `envconfig:"LUMEN_CDP_ADDR" default:"" yaml:"cdp_address"`
	CDPPort      int    `envconfig:"LUMEN_CDP_PORT" default:"9222" yaml:"cdp_port"`
	WindowSize   string `envconfig:"LUMEN_WINDOW_SIZE" default:"1280,800" yaml:"window_size"`
	ChromeBinary string `envconfig:"LUMEN_CHROME_BIN" default:"" yaml:"chrome_binary"`
}

// BrowseConfig holds browsing behavior configuration.
type BrowseConfig struct {
	DataDir      string `envconfig:"LUMEN_DATA_DIR" default:"" yaml:"data_dir"`
	AssetRoot    string `envconfig:"LUMEN_ASSET_ROOT" default:"./assets" yaml:"asset_root"`
	SearchEngine string `envconfig:"LUMEN_SEARCH_ENGINE" default:"https://duckduckgo.com/?q=%s" yaml:"search_engine"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LUMEN_LOG_LEVEL" default:"info" yaml:"log_level"`
	Development bool   `envconfig:"LUMEN_LOG_DEV" default:"false" yaml:"log_dev"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Browse.DataDir == "" {
		cfg.Browse.DataDir = defaultDataDir()
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "7560", Host: "127.0.0.1"},
		Engine: EngineConfig{
			CDPPort:    9222,
			WindowSize: "1280,800",
		},
		Browse: BrowseConfig{
			DataDir:      defaultDataDir(),
			AssetRoot:    "./assets",
			SearchEngine: "https://duckduckgo.com/?q=%s",
		},
		Logging: LogConfig{Level: "info"},
	}
}

// ApplyFile overlays values from a YAML config file on top of cfg.
// A missing file is not an error; a malformed one is.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var overlay struct {
		Server  ServerConfig `yaml:"server"`
		Engine  EngineConfig `yaml:"engine"`
		Browse  BrowseConfig `yaml:"browse"`
		Logging LogConfig    `yaml:"logging"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if overlay.Server.Port != "" {
		c.Server.Port = overlay.Server.Port
	}
	if overlay.Server.Host != "" {
		c.Server.Host = overlay.Server.Host
	}
	if overlay.Engine.CDPAddress != "" {
		c.Engine.CDPAddress = overlay.Engine.CDPAddress
	}
	if overlay.Engine.CDPPort != 0 {
		c.Engine.CDPPort = overlay.Engine.CDPPort
	}
	if overlay.Engine.WindowSize != "" {
		c.Engine.WindowSize = overlay.Engine.WindowSize
	}
	if overlay.Engine.ChromeBinary != "" {
		c.Engine.ChromeBinary = overlay.Engine.ChromeBinary
	}
	if overlay.Browse.DataDir != "" {
		c.Browse.DataDir = overlay.Browse.DataDir
	}
	if overlay.Browse.AssetRoot != "" {
		c.Browse.AssetRoot = overlay.Browse.AssetRoot
	}
	if overlay.Browse.SearchEngine != "" {
		c.Browse.SearchEngine = overlay.Browse.SearchEngine
	}
	if overlay.Logging.Level != "" {
		c.Logging.Level = overlay.Logging.Level
	}
	return nil
}

// RemoteDebugURL returns the DevTools endpoint to attach to, or empty
// when the engine should be launched embedded.
func (c *Config) RemoteDebugURL() string {
	if c.Engine.CDPAddress == "" {
		return ""
	}
	return fmt.Sprintf("http://%s:%d", c.Engine.CDPAddress, c.Engine.CDPPort)
}

// DatabasePath returns the path of the embedded database file under the
// application's private data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Browse.DataDir, "lumen.db")
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".lumen"
	}
	return filepath.Join(base, "lumen")
}
