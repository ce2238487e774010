// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

// Ajail runs commands inside unprivileged bubblewrap (bwrap) jails: a
// read-only base root filesystem overlaid with per-invocation
// ephemeral or persistent writable regions, with the invoking user
// appearing as root inside. Directives may come from the command line
// or from the semicolon-delimited AJAIL_ARGS environment variable;
// explicit arguments override environment defaults.
package main
