// Package config loads the CaseSpine YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that points at the config file.
const EnvPath = "CASESPINE_CONFIG"

// Config holds application configuration
type Config struct {
	DataDir        string `yaml:"data_dir"`
	LegacySnapshot string `yaml:"legacy_snapshot"`
	LogLevel       string `yaml:"log_level"`

	Import struct {
		YieldEvery int    `yaml:"yield_every"`
		Parser     string `yaml:"parser"` // "best-effort" or "strict"
	} `yaml:"import"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Export struct {
		IncludePrivate bool `yaml:"include_private"`
	} `yaml:"export"`

	Search struct {
		MaxResults int `yaml:"max_results"`
	} `yaml:"search"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Path returns the config path from CASESPINE_CONFIG, or
// <home>/.casespine/config.yml.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".casespine", "config.yml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	file, err := os.Open(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.DataDir = os.ExpandEnv(cfg.DataDir)
	cfg.LegacySnapshot = os.ExpandEnv(cfg.LegacySnapshot)
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		home, _ := os.UserHomeDir()
		c.DataDir = filepath.Join(home, ".casespine")
	} else if strings.HasPrefix(c.DataDir, "~/") {
		home, _ := os.UserHomeDir()
		c.DataDir = filepath.Join(home, c.DataDir[2:])
	}
	if c.LegacySnapshot == "" {
		c.LegacySnapshot = filepath.Join(c.DataDir, "legacy-storage.json")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Import.YieldEvery == 0 {
		c.Import.YieldEvery = 200
	}
	if c.Import.Parser == "" {
		c.Import.Parser = "best-effort"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8765"
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 50
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Import.Parser) {
	case "best-effort", "strict":
	default:
		return fmt.Errorf("import.parser must be best-effort or strict, got %q", c.Import.Parser)
	}
	if c.Import.YieldEvery < 0 {
		return fmt.Errorf("import.yield_every must be positive, got %d", c.Import.YieldEvery)
	}
	return nil
}
