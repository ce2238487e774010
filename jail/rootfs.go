// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RootFS is the resolved base root filesystem for a run. It is
// resolved once at startup and mounted read-only for the duration of
// the run unless a fs-rw or home-rw directive marks all or part of it
// persistent.
type RootFS struct {
	// Name is the store key, or the literal selector when the root
	// filesystem was selected by path.
	Name string

	// Path is the absolute directory holding the filesystem tree.
	Path string
}

// ResolveRootFS resolves a --fs selector against the per-user store.
// A selector containing a path separator (or "." / "..") is used as a
// filesystem path directly; anything else is a name keyed under the
// store directory. The selected directory must exist — populating the
// store is the bootstrap scripts' job, not the engine's.
func ResolveRootFS(selector, store string) (RootFS, error) {
	if selector == "" {
		return RootFS{}, configErrorf("root filesystem name is required")
	}

	var path string
	name := selector
	if strings.ContainsRune(selector, os.PathSeparator) || selector == "." || selector == ".." {
		absolute, err := filepath.Abs(selector)
		if err != nil {
			return RootFS{}, configErrorf("resolving root filesystem path %q: %v", selector, err)
		}
		path = absolute
		name = filepath.Base(absolute)
	} else {
		path = filepath.Join(store, selector)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RootFS{}, configErrorf("root filesystem %q not found at %s "+
				"(bootstrap it first, or pick another with --fs)", selector, path)
		}
		return RootFS{}, fmt.Errorf("checking root filesystem %s: %w", path, err)
	}
	if !info.IsDir() {
		return RootFS{}, configErrorf("root filesystem %s is not a directory", path)
	}

	return RootFS{Name: name, Path: path}, nil
}

// HomePath returns the path inside the root filesystem tree that backs
// /root in the jail. The identity mapping makes the invoking user root
// inside, so /root is the only home directory that exists there.
func (r RootFS) HomePath() string {
	return filepath.Join(r.Path, "root")
}
