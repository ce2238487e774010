// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for repository
// operations. Ajail uses git for the --clone directive: detecting that
// the working directory is a repository root and creating the full
// local clone that is substituted as the mount source. All commands
// target a specific repository directory via the -C flag, which is
// automatically injected by all Repository methods.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repository represents a git repository at a specific directory. All
// operations target this directory via "git -C <dir>". There is no
// default directory — callers must always specify which repository
// they mean.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// IsRepositoryRoot reports whether dir is the root of a git working
// tree, i.e. whether dir/.git exists. Nested subdirectories of a
// repository are deliberately not recognized: the clone directive
// guarantees an independent copy of the whole repository, which only
// makes sense from its root.
func IsRepositoryRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// CloneLocal creates a full local clone of this repository at dest.
// The clone duplicates history and objects (--no-hardlinks) so that it
// is an independent copy rather than sharing object files with the
// original, and git registers the original directory as the clone's
// origin remote. A push from the clone therefore lands in the original
// repository's state, not on the filesystem path the clone occupies.
func (r *Repository) CloneLocal(ctx context.Context, dest string) error {
	var stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", "clone", "--no-hardlinks", r.dir, dest)
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return fmt.Errorf("git clone %s -> %s: %w (stderr: %s)",
			r.dir, dest, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// RemoteURL returns the URL of the named remote.
func (r *Repository) RemoteURL(ctx context.Context, name string) (string, error) {
	out, err := r.Run(ctx, "remote", "get-url", name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
