// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import "strings"

// EnvPrefix is the passthrough convention: any host variable whose
// name begins with this prefix is passed into the jail with the prefix
// stripped. This is the only way host variables reach the jail, and it
// doubles as the override mechanism for the baseline (AJAIL_ENV_PATH
// replaces the default PATH).
const EnvPrefix = "AJAIL_ENV_"

// defaultPath is the minimal search path of the jail baseline.
const defaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// FilterEnviron builds the variable set passed to the jailed process
// from the host environment in "KEY=VALUE" form. The result contains a
// small fixed baseline (enough to run a shell as root) plus every
// prefixed host variable, stripped of the prefix. All other host
// variables are dropped. The transform is pure and order-independent
// apart from duplicate keys in the input, where the last wins.
func FilterEnviron(host []string) map[string]string {
	env := map[string]string{
		"PATH":    defaultPath,
		"HOME":    "/root",
		"USER":    "root",
		"LOGNAME": "root",
		"SHELL":   "/bin/bash",
		"TERM":    "xterm",
	}

	// TERM is the one baseline value taken from the host, so the
	// jailed shell renders correctly on the invoking terminal.
	for _, kv := range host {
		if value, ok := strings.CutPrefix(kv, "TERM="); ok {
			env["TERM"] = value
		}
	}

	for _, kv := range host {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(key, EnvPrefix)
		if !ok || name == "" {
			continue
		}
		env[name] = value
	}

	return env
}
