package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how CLI commands render their results.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

// Config holds all configuration for go-bytecode-lift.
type Config struct {
	// Output selects the default rendering of command results.
	Output OutputFormat `yaml:"output" env:"GBL_OUTPUT"`

	// CacheDir is where lift results are persisted between runs.
	CacheDir string `yaml:"cache_dir" env:"GBL_CACHE_DIR"`

	// CacheEnabled toggles the lift result cache.
	CacheEnabled bool `yaml:"cache_enabled" env:"GBL_CACHE_ENABLED"`

	// CacheMaxEntries bounds the in-memory result cache.
	CacheMaxEntries int `yaml:"cache_max_entries" env:"GBL_CACHE_MAX_ENTRIES"`

	// Logging
	Verbose  bool `yaml:"verbose" env:"GBL_VERBOSE"`
	JSONLogs bool `yaml:"json_logs" env:"GBL_JSON_LOGS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	cacheDir := ".gbl/cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".gbl", "cache")
	}
	return &Config{
		Output:          FormatJSON,
		CacheDir:        cacheDir,
		CacheEnabled:    true,
		CacheMaxEntries: 256,
		Verbose:         false,
		JSONLogs:        false,
	}
}

// globalConfigFilePath returns the global config file path (~/.gbl/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gbl/config.yaml"
	}
	return filepath.Join(home, ".gbl", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.gbl/config.yaml)
func projectConfigFilePath() string {
	return ".gbl/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.gbl/config.yaml)
// 3. Global config (~/.gbl/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GBL_OUTPUT"); v != "" {
		cfg.Output = OutputFormat(v)
	}
	if v := os.Getenv("GBL_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("GBL_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("GBL_CACHE_MAX_ENTRIES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheMaxEntries = i
		}
	}
	if v := os.Getenv("GBL_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("GBL_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
}

// Validate checks that the configuration has valid required fields.
func (c *Config) Validate() error {
	switch c.Output {
	case FormatJSON, FormatText:
		// Valid
	default:
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'text')", c.Output)
	}
	if c.CacheMaxEntries < 0 {
		return fmt.Errorf("cache_max_entries must be non-negative")
	}
	if c.CacheEnabled && c.CacheDir == "" {
		return fmt.Errorf("cache_dir is required when the cache is enabled")
	}
	return nil
}

// CacheFilePath returns the path of the persisted result cache.
func (c *Config) CacheFilePath() string {
	return filepath.Join(c.CacheDir, "results.msgpack")
}

func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}

func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
