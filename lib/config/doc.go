// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for ajail.
//
// Configuration is loaded from a single YAML file specified by the
// AJAIL_CONFIG environment variable, falling back to
// ~/.config/ajail/config.yaml. A missing file is not an error: ajail
// is a single-user CLI and runs fine on defaults. Environment
// variables never override file values; the only expansion performed
// is ${VAR} and ${VAR:-default} in paths for portability.
package config
