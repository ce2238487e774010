// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"path/filepath"
	"sort"
	"strings"
)

// Mode is the persistence mode of a binding.
type Mode int

const (
	// ModeOverlay is an ephemeral overlay: reads fall through to the
	// source, writes land in a scratch area discarded at exit.
	ModeOverlay Mode = iota

	// ModePersistent is direct read/write passthrough to the source.
	ModePersistent

	// ModeHidden is an empty view backed by a tmpfs; the path's real
	// content is never visible and writes are discarded at exit.
	ModeHidden
)

// String returns a short human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeOverlay:
		return "overlay"
	case ModePersistent:
		return "persistent"
	case ModeHidden:
		return "hidden"
	}
	return "unknown"
}

// Binding is a resolved filesystem mapping: an absolute host source
// mounted at an absolute destination inside the jail view with a
// persistence mode. Hidden bindings have no source.
type Binding struct {
	Source string
	Dest   string
	Mode   Mode
}

// Plan is the compiled jail composition: the root filesystem binding,
// the ordered binding list (shallowest destination first, so nested
// bindings mount on top of their parents), and the network toggle.
type Plan struct {
	RootFS RootFS

	// RootPersistent mounts the root filesystem read/write instead of
	// read-only (the fs-rw directive).
	RootPersistent bool

	// Bindings have unique destinations and are ordered shallowest
	// first. Destination "/" never appears here; the root filesystem
	// is its own mount.
	Bindings []Binding

	// Network is false when a no-net directive is present.
	Network bool

	// WorkDir is the absolute working directory the jail starts in.
	WorkDir string
}

// BuildPlan folds the ordered directive sequence into a plan. The fold
// maintains a destination-indexed last-write-wins table: inserting a
// destination removes every earlier entry at or beneath it, so a later
// directive always wins for the subtree it targets, while a later
// directive nested under an earlier one coexists with it and mounts on
// top. The working directory is seeded as an ephemeral overlay before
// any directive, so every directive can override it.
func BuildPlan(directives []Directive, root RootFS, workDir string) (*Plan, error) {
	workDir = filepath.Clean(workDir)
	if !filepath.IsAbs(workDir) {
		return nil, configErrorf("working directory %q is not absolute", workDir)
	}

	plan := &Plan{
		RootFS:  root,
		Network: true,
		WorkDir: workDir,
	}

	table := map[string]Binding{}
	insert := func(b Binding) {
		prefix := b.Dest + "/"
		for dest := range table {
			if dest == b.Dest || strings.HasPrefix(dest, prefix) {
				delete(table, dest)
			}
		}
		table[b.Dest] = b
	}

	if workDir != "/" {
		insert(Binding{Source: workDir, Dest: workDir, Mode: ModeOverlay})
	}

	for _, d := range directives {
		switch d.Kind {
		case KindOverlay, KindPersist, KindHide:
			dest, err := resolvePath(d.Path, workDir)
			if err != nil {
				return nil, err
			}
			if dest == "/" {
				return nil, configErrorf("--%s cannot target the jail root; use --fs-rw to edit the root filesystem", d.Kind)
			}
			binding := Binding{Dest: dest}
			switch d.Kind {
			case KindOverlay:
				binding.Source = dest
				binding.Mode = ModeOverlay
			case KindPersist:
				binding.Source = dest
				binding.Mode = ModePersistent
			case KindHide:
				binding.Mode = ModeHidden
			}
			insert(binding)

		case KindMount:
			source, err := resolvePath(d.Source, workDir)
			if err != nil {
				return nil, err
			}
			// The destination resolves against the jail root, not the
			// working directory.
			dest, err := resolvePath(d.Dest, "/")
			if err != nil {
				return nil, err
			}
			if dest == "/" {
				return nil, configErrorf("mount destination %q collides with the root filesystem mount", d.Dest)
			}
			mode := ModeOverlay
			if d.Persistent {
				mode = ModePersistent
			}
			insert(Binding{Source: source, Dest: dest, Mode: mode})

		case KindFSEdit:
			plan.RootPersistent = true

		case KindHomeEdit:
			insert(Binding{Source: root.HomePath(), Dest: "/root", Mode: ModePersistent})

		case KindNoNet:
			plan.Network = false

		case KindSelectFS, KindClone, KindQuiet:
			// Resolved by the caller before and after plan building;
			// they contribute no bindings.
		}
	}

	plan.Bindings = flatten(table)
	return plan, nil
}

// SubstituteClone rewrites the binding at dest to read and write the
// transient clone directly. The binding becomes persistent: commits
// made inside the jail must reach the real clone (its lifetime already
// bounds their effect), and a push to its upstream remote is the
// documented side channel into the original repository's state.
func (p *Plan) SubstituteClone(dest, source string) {
	for i := range p.Bindings {
		if p.Bindings[i].Dest == dest {
			p.Bindings[i].Source = source
			p.Bindings[i].Mode = ModePersistent
			return
		}
	}
}

// NeedsScratch reports whether any binding requires a scratch area.
// Only overlay bindings do: persistent bindings bind their source
// directly and hidden bindings are tmpfs-backed inside the sandbox.
func (p *Plan) NeedsScratch() bool {
	for _, b := range p.Bindings {
		if b.Mode == ModeOverlay {
			return true
		}
	}
	return false
}

// resolvePath normalizes a directive path to an absolute destination.
// Relative paths (and the empty path, meaning the working directory
// itself) resolve against base.
func resolvePath(path, base string) (string, error) {
	if path == "" {
		path = "."
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	cleaned := filepath.Clean(path)
	if !filepath.IsAbs(cleaned) {
		return "", configErrorf("path %q does not resolve to an absolute destination", path)
	}
	return cleaned, nil
}

// flatten orders the binding table shallowest destination first so
// that nested bindings mount after their parents, breaking depth ties
// lexically for deterministic output.
func flatten(table map[string]Binding) []Binding {
	bindings := make([]Binding, 0, len(table))
	for _, b := range table {
		bindings = append(bindings, b)
	}
	sort.Slice(bindings, func(i, j int) bool {
		di, dj := pathDepth(bindings[i].Dest), pathDepth(bindings[j].Dest)
		if di != dj {
			return di < dj
		}
		return bindings[i].Dest < bindings[j].Dest
	})
	return bindings
}

func pathDepth(path string) int {
	if path == "/" {
		return 0
	}
	return strings.Count(path, "/")
}
