// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for ajail. It
// centralizes the raw stderr reporting that happens before the
// structured logger is initialized or after the jail has already
// exited, and it defines the exit codes that distinguish engine
// failures from the jailed command's own status.
package process
