// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of ajail binaries.
package version

import "runtime/debug"

// Version is overridden at link time for release builds:
//
//	go build -ldflags "-X github.com/ajail-project/ajail/lib/version.Version=v1.2.3"
var Version = ""

// Info returns a human-readable version string. Release builds report
// the linked version; development builds fall back to the VCS revision
// from the Go build info, or "devel" when neither is available.
func Info() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "devel"
	}
	var revision, modified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}
	if revision == "" {
		return "devel"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified == "true" {
		return "devel+" + revision + "-dirty"
	}
	return "devel+" + revision
}
