// Package config holds the application configuration, stored as a YAML file
// in the user config directory.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// DataDir is where the event database lives.
	DataDir string `yaml:"data_dir"`

	// CalType is the default calendar system for new groups and events
	// ("gregorian", "julian", "iso", "jalali").
	CalType string `yaml:"cal_type"`

	// Timezone is the IANA timezone used when an event carries no override.
	// Empty means the system local zone.
	Timezone string `yaml:"timezone"`

	// WeekStartsOn is the first day of the week for views, 0=Sunday 1=Monday.
	WeekStartsOn int `yaml:"week_starts_on"`

	// YearsBefore / YearsAfter control the default occurrence-index bound of
	// new groups, measured from today.
	YearsBefore int `yaml:"years_before"`
	YearsAfter  int `yaml:"years_after"`

	// LogLevel is the minimum log level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir:      defaultDataDir(),
		CalType:      "gregorian",
		WeekStartsOn: 1,
		YearsBefore:  2,
		YearsAfter:   3,
		LogLevel:     "info",
	}
}

// Load loads the config from disk, creating it with defaults on first run.
func Load() (*Config, error) {
	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DatabasePath returns the path to the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "eventcal.db")
}

func configPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "eventcal", "config.yaml")
}

// defaultDataDir is the XDG data dir; config and data live apart.
func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "eventcal")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "eventcal")
}
