// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for ajail packages.
package testutil
