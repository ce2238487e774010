// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"os"
	"os/exec"
	"strings"
)

// Capabilities describes what jail features are available on this
// host.
type Capabilities struct {
	// BwrapAvailable is true if bubblewrap is installed.
	BwrapAvailable bool

	// BwrapPath is the path to bwrap if available.
	BwrapPath string

	// BwrapVersion is the bwrap version string.
	BwrapVersion string

	// UserNamespacesEnabled is true if unprivileged user namespaces
	// work.
	UserNamespacesEnabled bool
}

// DetectCapabilities checks what jail features are available.
func DetectCapabilities() *Capabilities {
	caps := &Capabilities{}

	if path, err := BwrapPath(); err == nil {
		caps.BwrapAvailable = true
		caps.BwrapPath = path

		if out, err := exec.Command(path, "--version").Output(); err == nil {
			caps.BwrapVersion = strings.TrimSpace(string(out))
		}
	}

	caps.UserNamespacesEnabled = checkUserNamespaces()
	return caps
}

// CanRun returns true if jail execution is possible at all.
func (c *Capabilities) CanRun() bool {
	return c.BwrapAvailable && c.UserNamespacesEnabled
}

// SkipReason returns a human-readable reason why jails are
// unavailable, or the empty string if they are available.
func (c *Capabilities) SkipReason() string {
	if !c.BwrapAvailable {
		return "bubblewrap not installed"
	}
	if !c.UserNamespacesEnabled {
		return "unprivileged user namespaces not enabled (set kernel.unprivileged_userns_clone=1)"
	}
	return ""
}

// BwrapPath returns the path to the bwrap executable, checking PATH
// first and then the standard locations.
func BwrapPath() (string, error) {
	if path, err := exec.LookPath("bwrap"); err == nil {
		return path, nil
	}

	for _, path := range []string{"/usr/bin/bwrap", "/usr/local/bin/bwrap", "/bin/bwrap"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", &StartError{Err: errNoBwrap}
}

// checkUserNamespaces tests if unprivileged user namespaces work.
func checkUserNamespaces() bool {
	// The sysctl, where present, is authoritative when disabled.
	data, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone")
	if err == nil && strings.TrimSpace(string(data)) == "0" {
		return false
	}

	bwrapPath, err := BwrapPath()
	if err != nil {
		return false
	}

	command := exec.Command(bwrapPath,
		"--unshare-user",
		"--ro-bind", "/", "/",
		"--",
		"true",
	)
	return command.Run() == nil
}
