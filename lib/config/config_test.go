// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ajail-project/ajail/lib/testutil"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Jail.DefaultFS != "default" {
		t.Errorf("default_fs = %q, want default", cfg.Jail.DefaultFS)
	}
	if cfg.Jail.Shell != "/bin/bash" {
		t.Errorf("shell = %q, want /bin/bash", cfg.Jail.Shell)
	}
	if cfg.Jail.Quiet {
		t.Error("quiet defaults to true, want false")
	}
	if !strings.HasSuffix(cfg.Paths.Store, filepath.Join(".local", "share", "ajail")) {
		t.Errorf("store = %q, want the per-user data directory", cfg.Paths.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFile_MergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	testutil.WriteFile(t, path, `
jail:
  default_fs: devel
  quiet: true
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Jail.DefaultFS != "devel" {
		t.Errorf("default_fs = %q, want devel", cfg.Jail.DefaultFS)
	}
	if !cfg.Jail.Quiet {
		t.Error("quiet = false, want true")
	}
	// Untouched fields keep their defaults.
	if cfg.Jail.Shell != "/bin/bash" {
		t.Errorf("shell = %q, want the default /bin/bash", cfg.Jail.Shell)
	}
	if cfg.Paths.Store == "" {
		t.Error("store lost its default")
	}
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	testutil.WriteFile(t, path, `
paths:
  store: ${HOME}/jails
jail:
  shell: ${AJAIL_TEST_SHELL:-/bin/zsh}
`)

	t.Setenv("HOME", "/home/tester")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.Store != "/home/tester/jails" {
		t.Errorf("store = %q, want /home/tester/jails", cfg.Paths.Store)
	}
	if cfg.Jail.Shell != "/bin/zsh" {
		t.Errorf("shell = %q, want the ${VAR:-default} fallback /bin/zsh", cfg.Jail.Shell)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"empty default_fs", "jail:\n  default_fs: \"\"\n"},
		{"empty shell", "jail:\n  shell: \"\"\n"},
		{"malformed yaml", "jail: [\n"},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config.yaml")
			testutil.WriteFile(t, path, test.content)
			if _, err := LoadFile(path); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("AJAIL_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Jail.DefaultFS != "default" {
		t.Errorf("default_fs = %q, want default", cfg.Jail.DefaultFS)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	testutil.WriteFile(t, path, "jail:\n  default_fs: custom\n")
	t.Setenv("AJAIL_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Jail.DefaultFS != "custom" {
		t.Errorf("default_fs = %q, want custom", cfg.Jail.DefaultFS)
	}
}
