// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// Exit codes for engine failures. The jailed command's own exit code is
// propagated as-is, so these sit in the high range that real commands
// rarely occupy.
const (
	// ExitConfigError is returned for configuration and validation
	// errors detected before the sandbox is ever invoked: malformed
	// directives, an unknown root filesystem, --clone outside a
	// repository.
	ExitConfigError = 125

	// ExitSandboxUnavailable is returned when bwrap itself cannot be
	// found or started.
	ExitSandboxUnavailable = 126
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	FatalCode(err, 1)
}

// FatalCode writes "error: err" to stderr and exits with the given
// code.
func FatalCode(err error, code int) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(code)
}
