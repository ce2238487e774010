// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
)

// ScratchArea is the pair of directories backing one ephemeral or
// hidden binding: the upper layer receives writes, the work directory
// is required by overlayfs.
type ScratchArea struct {
	Upper string
	Work  string
}

// ScratchSet owns every scratch area of one invocation. All areas live
// under a single uniquely-named root directory, so concurrent
// invocations against the same root filesystem never collide, and
// release is one RemoveAll.
//
// Release runs exactly once regardless of how the invocation ends;
// the invoker defers it around the child process so cleanup happens on
// normal exit, error, and signal-terminated commands alike.
type ScratchSet struct {
	root        string
	areas       map[string]ScratchArea
	releaseOnce sync.Once
}

// NewScratchSet creates the invocation's scratch root on a temporary
// filesystem. XDG_RUNTIME_DIR is preferred when it is tmpfs-backed so
// upper layers never touch persistent storage; otherwise the system
// temp directory is used.
func NewScratchSet() (*ScratchSet, error) {
	parent := os.TempDir()
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" && onTmpfs(runtimeDir) {
		parent = runtimeDir
	}

	root, err := os.MkdirTemp(parent, "ajail-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch root: %w", err)
	}

	return &ScratchSet{
		root:  root,
		areas: make(map[string]ScratchArea),
	}, nil
}

// Root returns the invocation's scratch root directory.
func (s *ScratchSet) Root() string {
	return s.root
}

// Materialize allocates a scratch area for every overlay binding.
// Persistent bindings pass their source straight through, and hidden
// bindings are backed by a tmpfs inside the sandbox; neither needs
// host-side scratch.
func (s *ScratchSet) Materialize(bindings []Binding) error {
	for _, b := range bindings {
		if b.Mode != ModeOverlay {
			continue
		}
		if _, err := s.allocate(b.Dest); err != nil {
			return err
		}
	}
	return nil
}

// Area returns the scratch area allocated for the given destination.
func (s *ScratchSet) Area(dest string) (ScratchArea, bool) {
	area, ok := s.areas[dest]
	return area, ok
}

// allocate creates the upper/work pair for one destination. The name
// is derived from the destination path so it is filesystem-safe and
// unique within the invocation; cross-invocation uniqueness comes from
// the MkdirTemp root.
func (s *ScratchSet) allocate(dest string) (ScratchArea, error) {
	if area, ok := s.areas[dest]; ok {
		return area, nil
	}

	name := scratchName(dest)
	area := ScratchArea{
		Upper: filepath.Join(s.root, name+"-upper"),
		Work:  filepath.Join(s.root, name+"-work"),
	}
	for _, dir := range []string{area.Upper, area.Work} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return ScratchArea{}, fmt.Errorf("creating scratch directory %s: %w", dir, err)
		}
	}

	s.areas[dest] = area
	return area, nil
}

// Release removes the scratch root and everything under it, exactly
// once. Later calls are no-ops, so the invoker can release both on its
// error paths and in its deferred cleanup without double-reporting.
func (s *ScratchSet) Release() error {
	var err error
	s.releaseOnce.Do(func() {
		if removeErr := os.RemoveAll(s.root); removeErr != nil {
			err = fmt.Errorf("removing scratch root %s: %w", s.root, removeErr)
		}
		s.areas = nil
	})
	return err
}

// scratchName maps an arbitrary destination path to a short
// filesystem-safe directory name. Distinct destinations yield distinct
// names.
func scratchName(dest string) string {
	sum := blake3.Sum256([]byte(dest))
	return hex.EncodeToString(sum[:8])
}

// onTmpfs reports whether path lives on a tmpfs filesystem.
func onTmpfs(path string) bool {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return false
	}
	return stat.Type == unix.TMPFS_MAGIC
}
