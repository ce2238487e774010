// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for ajail.
type Config struct {
	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Jail configures jail composition defaults.
	Jail JailConfig `yaml:"jail"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Store is the root filesystem store: a directory tree keyed by
	// name, populated by the per-distribution bootstrap scripts.
	// Selecting --fs=NAME resolves to <store>/NAME.
	Store string `yaml:"store"`
}

// JailConfig configures jail composition defaults.
type JailConfig struct {
	// DefaultFS is the root filesystem name used when --fs is absent.
	DefaultFS string `yaml:"default_fs"`

	// Shell is the program run when no command vector is given. It is
	// started as a login shell.
	Shell string `yaml:"shell"`

	// Quiet suppresses status output, as if --quiet were always given.
	Quiet bool `yaml:"quiet"`
}

// Default returns the default configuration. These defaults make ajail
// usable with no config file at all.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Paths: PathsConfig{
			Store: filepath.Join(homeDir, ".local", "share", "ajail"),
		},
		Jail: JailConfig{
			DefaultFS: "default",
			Shell:     "/bin/bash",
		},
	}
}

// Load loads configuration from AJAIL_CONFIG, falling back to the
// per-user default path. A missing file yields the defaults.
func Load() (*Config, error) {
	path := os.Getenv("AJAIL_CONFIG")
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return Default(), nil
		}
		path = filepath.Join(configDir, "ajail", "config.yaml")
		if _, err := os.Stat(path); err != nil {
			return Default(), nil
		}
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. The file is
// merged over the defaults, ${VAR} patterns in paths are expanded, and
// the result is validated.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Store = expandVars(c.Paths.Store, vars)
	c.Jail.Shell = expandVars(c.Jail.Shell, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Store == "" {
		errs = append(errs, fmt.Errorf("paths.store is required"))
	}
	if c.Jail.DefaultFS == "" {
		errs = append(errs, fmt.Errorf("jail.default_fs is required"))
	}
	if c.Jail.Shell == "" {
		errs = append(errs, fmt.Errorf("jail.shell is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
