// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ajail-project/ajail/lib/git"
)

// Clone is the transient working copy substituted for the working
// directory when the clone directive is present. Its lifetime matches
// the invocation: Release removes it unconditionally afterwards.
//
// The clone's origin remote is the original directory, so a push from
// inside the jail updates the original repository's state. That is a
// deliberate side channel, not a filesystem binding — the mount the
// jail sees is the clone, while the push lands somewhere else.
type Clone struct {
	// Path is the clone's working tree, used as the mount source in
	// place of the original working directory.
	Path string

	root        string
	releaseOnce sync.Once
}

// ResolveClone creates the local clone for workDir. The working
// directory must be the root of a git repository; asking to clone
// anything else is a configuration error, reported before any scratch
// area or child process exists. Clone failures (tool errors, space,
// permissions) are fatal and abort before the sandbox is invoked.
func ResolveClone(ctx context.Context, workDir string) (*Clone, error) {
	if !git.IsRepositoryRoot(workDir) {
		return nil, configErrorf("--clone requires the working directory to be the root of a git repository: %s", workDir)
	}

	root, err := os.MkdirTemp("", "ajail-clone-*")
	if err != nil {
		return nil, fmt.Errorf("creating clone directory: %w", err)
	}

	path := filepath.Join(root, filepath.Base(workDir))
	if err := git.NewRepository(workDir).CloneLocal(ctx, path); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("cloning working directory: %w", err)
	}

	return &Clone{Path: path, root: root}, nil
}

// Release removes the clone, exactly once.
func (c *Clone) Release() error {
	var err error
	c.releaseOnce.Do(func() {
		if removeErr := os.RemoveAll(c.root); removeErr != nil {
			err = fmt.Errorf("removing clone %s: %w", c.root, removeErr)
		}
	})
	return err
}
