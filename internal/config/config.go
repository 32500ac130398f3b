// Package config loads GoMatch server settings from an optional YAML file
// with GOMATCH_* environment overrides.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DictionaryConfig preloads a dictionary at startup.
type DictionaryConfig struct {
	Name string `yaml:"name"`
	Rule string `yaml:"rule"`

	// PatternsFile holds one pattern per line; blank lines and lines
	// starting with '#' are skipped.
	PatternsFile string `yaml:"patterns_file"`
}

// RateLimit configures the HTTP token bucket. Zero RPS disables it.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Config configures the server.
type Config struct {
	Port     string `yaml:"port"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`

	// MaxBodyBytes bounds request bodies, including scanned text.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// SaveInterval periodically saves every dictionary. Zero saves only on
	// request and at shutdown.
	SaveInterval time.Duration `yaml:"save_interval"`

	RateLimit    RateLimit          `yaml:"rate_limit"`
	Dictionaries []DictionaryConfig `yaml:"dictionaries"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Port:            "8080",
		DataDir:         "data",
		LogLevel:        "info",
		MaxBodyBytes:    8 << 20,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimit:       RateLimit{RPS: 0, Burst: 50},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("GOMATCH_PORT", c.Port)
	c.DataDir = getEnv("GOMATCH_DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("GOMATCH_LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("GOMATCH_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "GOMATCH_RATE_LIMIT_RPS=%q", v)
		}
		c.RateLimit.RPS = rps
	}
	if v := os.Getenv("GOMATCH_SAVE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "GOMATCH_SAVE_INTERVAL=%q", v)
		}
		c.SaveInterval = d
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return errors.Errorf("port %q is not a number", c.Port)
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max_body_bytes must be positive")
	}
	if c.RateLimit.RPS < 0 || (c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0) {
		return errors.New("rate_limit needs rps >= 0 and a positive burst")
	}
	seen := make(map[string]bool)
	for i, d := range c.Dictionaries {
		if d.Name == "" {
			return errors.Errorf("dictionaries[%d]: name is required", i)
		}
		if seen[d.Name] {
			return errors.Errorf("dictionaries[%d]: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
