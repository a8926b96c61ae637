// Package config holds runtime configuration for the zkpath client.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/zkpath/internal/util"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultEndpoint = "127.0.0.1:2181"

	// DefaultSessionTimeoutMS is the session timeout negotiated with the
	// ensemble, in milliseconds
	DefaultSessionTimeoutMS = 10_000

	// DefaultConnectTimeoutMS bounds the blocking wait for the initial
	// connection and the base-path bootstrap, in milliseconds
	DefaultConnectTimeoutMS = 6_000

	// DefaultBasePath is prepended to every relative path
	DefaultBasePath = "/"

	// DefaultWorkers is the size of the task-execution pool when the caller
	// supplies none
	DefaultWorkers = 8
)

// Config contains runtime configuration values for the zkpath client.
type Config struct {
	Endpoints      []string      // Ensemble endpoints as host:port (Default ["127.0.0.1:2181"])
	SessionTimeout time.Duration // Session timeout (Default 10s)
	ConnectTimeout time.Duration // Bound on the initial-connect and bootstrap waits (Default 6s)
	BasePath       string        // Prefix for relative paths (Default "/")
	Workers        int           // Task-execution pool size (Default 8)
	LogLvl         util.LogLevel // Log verbosity (Default info)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero
// values when loading partial configuration. See [Config] for field
// descriptions. Timeouts are expressed in milliseconds.
type ConfigOverride struct {
	Endpoints        []string       `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`
	SessionTimeoutMS *int           `yaml:"session_timeout_ms,omitempty" json:"session_timeout_ms,omitempty"`
	ConnectTimeoutMS *int           `yaml:"connect_timeout_ms,omitempty" json:"connect_timeout_ms,omitempty"`
	BasePath         *string        `yaml:"base_path,omitempty" json:"base_path,omitempty"`
	Workers          *int           `yaml:"workers,omitempty" json:"workers,omitempty"`
	LogLvl           *util.LogLevel `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		Endpoints:      []string{DefaultEndpoint},
		SessionTimeout: DefaultSessionTimeoutMS * time.Millisecond,
		ConnectTimeout: DefaultConnectTimeoutMS * time.Millisecond,
		BasePath:       DefaultBasePath,
		Workers:        DefaultWorkers,
		LogLvl:         util.InfoLevel,
	}
}

// NewConfig creates a Config from the defaults with override applied on
// top. A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if len(override.Endpoints) > 0 {
		c.Endpoints = override.Endpoints
	}
	if override.SessionTimeoutMS != nil {
		c.SessionTimeout = time.Duration(*override.SessionTimeoutMS) * time.Millisecond
	}
	if override.ConnectTimeoutMS != nil {
		c.ConnectTimeout = time.Duration(*override.ConnectTimeoutMS) * time.Millisecond
	}
	if override.BasePath != nil {
		c.BasePath = *override.BasePath
	}
	if override.Workers != nil {
		c.Workers = *override.Workers
	}
	if override.LogLvl != nil {
		c.LogLvl = *override.LogLvl
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
