// Package config provides configuration loading for ocrbatch.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound indicates the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Duration is a time.Duration that unmarshals from YAML strings like "30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all configuration for an ocrbatch run.
type Config struct {
	Logging  LoggingConfig        `yaml:"logging"`
	InputDir string               `yaml:"input_dir"`
	Docker   DockerConfig         `yaml:"docker"`
	Workers  int                  `yaml:"workers"`
	History  HistoryConfig        `yaml:"history"`
	Profiles map[string]OptionSet `yaml:"profiles"`
}

// LoggingConfig holds the two independently-leveled log sinks.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // file sink level
	LogFile    string `yaml:"log_file"`    // empty disables the file sink
	PrintLevel string `yaml:"print_level"` // console sink level
}

// DockerConfig holds settings for the OCRmyPDF container invocation.
type DockerConfig struct {
	Image   string        `yaml:"image"`
	User    string        `yaml:"user"`
	Workdir string        `yaml:"workdir"`
	Timeout Duration `yaml:"timeout"` // per-file, zero means none
}

// HistoryConfig holds run-history database settings.
type HistoryConfig struct {
	Path string `yaml:"path"` // empty disables run history
}

// OptionSet maps OCRmyPDF option keys to their loosely-typed YAML values.
// The profile resolver validates keys and value types against its
// descriptor table.
type OptionSet map[string]any

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// Paths in the config file are relative to the file itself.
	cfg.InputDir = ResolveRelativePath(path, cfg.InputDir)
	if cfg.Logging.LogFile != "" {
		cfg.Logging.LogFile = ResolveRelativePath(path, cfg.Logging.LogFile)
	}
	if cfg.History.Path != "" {
		cfg.History.Path = ResolveRelativePath(path, cfg.History.Path)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "debug",
			PrintLevel: "info",
		},
		Docker: DockerConfig{
			Image:   "jbarlow83/ocrmypdf-alpine",
			User:    "1000:1000",
			Workdir: "/data",
			Timeout: Duration(30 * time.Minute),
		},
		Workers: 1,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir is required")
	}

	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.Docker.Image == "" {
		return fmt.Errorf("docker image is required")
	}

	for _, level := range []string{c.Logging.Level, c.Logging.PrintLevel} {
		switch level {
		case "trace", "debug", "info", "warn", "warning", "error", "fatal", "":
		default:
			return fmt.Errorf("invalid log level: %s", level)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OCRBATCH_INPUT_DIR"); v != "" {
		cfg.InputDir = v
	}

	if v := os.Getenv("OCRBATCH_IMAGE"); v != "" {
		cfg.Docker.Image = v
	}

	if v := os.Getenv("OCRBATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("OCRBATCH_LOG_FILE"); v != "" {
		cfg.Logging.LogFile = v
	}

	if v := os.Getenv("OCRBATCH_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			cfg.Workers = workers
		}
	}

	if v := os.Getenv("OCRBATCH_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
