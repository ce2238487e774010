// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"testing"
)

var testRoot = RootFS{Name: "default", Path: "/var/lib/ajail/default"}

const testWorkDir = "/home/user/project"

func buildPlan(t *testing.T, directives ...Directive) *Plan {
	t.Helper()
	plan, err := BuildPlan(directives, testRoot, testWorkDir)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	return plan
}

func findBinding(t *testing.T, plan *Plan, dest string) Binding {
	t.Helper()
	for _, b := range plan.Bindings {
		if b.Dest == dest {
			return b
		}
	}
	t.Fatalf("no binding for %s in %v", dest, plan.Bindings)
	return Binding{}
}

func TestBuildPlan_DefaultWorkDirBinding(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t)

	if len(plan.Bindings) != 1 {
		t.Fatalf("bindings = %v, want only the working directory", plan.Bindings)
	}
	b := plan.Bindings[0]
	if b.Dest != testWorkDir || b.Source != testWorkDir || b.Mode != ModeOverlay {
		t.Errorf("working directory binding = %+v, want ephemeral overlay of %s", b, testWorkDir)
	}
	if !plan.Network {
		t.Error("network disabled without a no-net directive")
	}
	if plan.RootPersistent {
		t.Error("root persistent without a fs-rw directive")
	}
}

func TestBuildPlan_LaterDirectiveWinsForSamePath(t *testing.T) {
	t.Parallel()

	// Ephemeral then persistent: persistent wins.
	plan := buildPlan(t,
		Directive{Kind: KindOverlay, Path: "/srv/data"},
		Directive{Kind: KindPersist, Path: "/srv/data"},
	)
	if got := findBinding(t, plan, "/srv/data").Mode; got != ModePersistent {
		t.Errorf("mode = %v, want persistent (later directive wins)", got)
	}

	// Reversed: ephemeral wins.
	plan = buildPlan(t,
		Directive{Kind: KindPersist, Path: "/srv/data"},
		Directive{Kind: KindOverlay, Path: "/srv/data"},
	)
	if got := findBinding(t, plan, "/srv/data").Mode; got != ModeOverlay {
		t.Errorf("mode = %v, want overlay (later directive wins)", got)
	}
}

func TestBuildPlan_NestedPersistPunchesHoleThroughHide(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t,
		Directive{Kind: KindHide, Path: "/srv/data"},
		Directive{Kind: KindPersist, Path: "/srv/data/keep"},
	)

	hidden := findBinding(t, plan, "/srv/data")
	if hidden.Mode != ModeHidden {
		t.Errorf("/srv/data mode = %v, want hidden", hidden.Mode)
	}
	if hidden.Source != "" {
		t.Errorf("hidden binding has source %q, want none", hidden.Source)
	}
	keep := findBinding(t, plan, "/srv/data/keep")
	if keep.Mode != ModePersistent {
		t.Errorf("/srv/data/keep mode = %v, want persistent", keep.Mode)
	}

	// The hidden ancestor must mount before the nested hole.
	var hiddenIndex, keepIndex int
	for i, b := range plan.Bindings {
		switch b.Dest {
		case "/srv/data":
			hiddenIndex = i
		case "/srv/data/keep":
			keepIndex = i
		}
	}
	if hiddenIndex > keepIndex {
		t.Errorf("hidden ancestor at %d mounts after nested binding at %d", hiddenIndex, keepIndex)
	}
}

func TestBuildPlan_LaterAncestorReplacesSubtree(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t,
		Directive{Kind: KindPersist, Path: "/srv/data/keep"},
		Directive{Kind: KindHide, Path: "/srv/data"},
	)

	if got := findBinding(t, plan, "/srv/data").Mode; got != ModeHidden {
		t.Errorf("/srv/data mode = %v, want hidden", got)
	}
	for _, b := range plan.Bindings {
		if b.Dest == "/srv/data/keep" {
			t.Errorf("nested binding %v survived a later ancestor directive", b)
		}
	}
}

func TestBuildPlan_DirectivesOverrideWorkDirDefault(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, Directive{Kind: KindHide})

	b := findBinding(t, plan, testWorkDir)
	if b.Mode != ModeHidden {
		t.Errorf("working directory mode = %v, want hidden", b.Mode)
	}
	if len(plan.Bindings) != 1 {
		t.Errorf("bindings = %v, want the overridden working directory only", plan.Bindings)
	}
}

func TestBuildPlan_RelativePathsResolveAgainstWorkDir(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, Directive{Kind: KindPersist, Path: "build"})

	b := findBinding(t, plan, testWorkDir+"/build")
	if b.Source != testWorkDir+"/build" || b.Mode != ModePersistent {
		t.Errorf("binding = %+v, want persistent %s/build", b, testWorkDir)
	}
}

func TestBuildPlan_CustomMount(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t,
		Directive{Kind: KindMount, Source: "assets", Dest: "srv/assets"},
		Directive{Kind: KindMount, Source: "/var/cache", Dest: "/var/cache", Persistent: true},
	)

	// Relative source resolves on the host against the working
	// directory; relative destination resolves against the jail root.
	assets := findBinding(t, plan, "/srv/assets")
	if assets.Source != testWorkDir+"/assets" {
		t.Errorf("mount source = %q, want %s/assets", assets.Source, testWorkDir)
	}
	if assets.Mode != ModeOverlay {
		t.Errorf("mount without rw flag mode = %v, want overlay", assets.Mode)
	}

	if got := findBinding(t, plan, "/var/cache").Mode; got != ModePersistent {
		t.Errorf("rw mount mode = %v, want persistent", got)
	}
}

func TestBuildPlan_MountDestRootRejected(t *testing.T) {
	t.Parallel()

	_, err := BuildPlan([]Directive{
		{Kind: KindMount, Source: "/src", Dest: "/"},
	}, testRoot, testWorkDir)
	if err == nil {
		t.Fatal("mount onto / accepted, want configuration error")
	}
	if !IsConfigError(err) {
		t.Errorf("error %v is not a ConfigError", err)
	}
}

func TestBuildPlan_DirectiveTargetingRootRejected(t *testing.T) {
	t.Parallel()

	for _, kind := range []Kind{KindOverlay, KindPersist, KindHide} {
		_, err := BuildPlan([]Directive{{Kind: kind, Path: "/"}}, testRoot, testWorkDir)
		if err == nil {
			t.Errorf("--%s=/ accepted, want configuration error", kind)
			continue
		}
		if !IsConfigError(err) {
			t.Errorf("--%s=/ error %v is not a ConfigError", kind, err)
		}
	}
}

func TestBuildPlan_FSEditAndHomeEdit(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t,
		Directive{Kind: KindFSEdit},
		Directive{Kind: KindHomeEdit},
	)

	if !plan.RootPersistent {
		t.Error("fs-rw directive did not mark the root persistent")
	}
	home := findBinding(t, plan, "/root")
	if home.Mode != ModePersistent {
		t.Errorf("/root mode = %v, want persistent", home.Mode)
	}
	if home.Source != testRoot.Path+"/root" {
		t.Errorf("/root source = %q, want %s/root", home.Source, testRoot.Path)
	}
}

func TestBuildPlan_NoNet(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, Directive{Kind: KindNoNet})
	if plan.Network {
		t.Error("network still enabled after a no-net directive")
	}
}

func TestBuildPlan_DepthOrdering(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t,
		Directive{Kind: KindPersist, Path: "/a/b/c"},
		Directive{Kind: KindOverlay, Path: "/a"},
		Directive{Kind: KindPersist, Path: "/a/b"},
		Directive{Kind: KindHide, Path: "/z"},
	)

	// /a was inserted after /a/b/c, replacing it; /a/b and /z follow.
	var dests []string
	for _, b := range plan.Bindings {
		dests = append(dests, b.Dest)
	}
	want := []string{"/a", "/z", "/a/b", testWorkDir}
	if len(dests) != len(want) {
		t.Fatalf("dests = %v, want %v", dests, want)
	}
	for i := range want {
		if dests[i] != want[i] {
			t.Fatalf("dests = %v, want %v", dests, want)
		}
	}
}

func TestPlan_NeedsScratch(t *testing.T) {
	t.Parallel()

	// The default working-directory overlay needs scratch.
	if !buildPlan(t).NeedsScratch() {
		t.Error("overlay binding does not request scratch")
	}

	// Persistent and hidden bindings do not: persistent binds the
	// source directly, hidden becomes a tmpfs inside the sandbox.
	if buildPlan(t, Directive{Kind: KindPersist}).NeedsScratch() {
		t.Error("persistent-only plan requests scratch")
	}
	if buildPlan(t, Directive{Kind: KindHide}).NeedsScratch() {
		t.Error("hidden-only plan requests scratch")
	}
}

func TestBuildPlan_SubstituteClone(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t)
	plan.SubstituteClone(testWorkDir, "/tmp/ajail-clone-1/project")

	b := findBinding(t, plan, testWorkDir)
	if b.Source != "/tmp/ajail-clone-1/project" {
		t.Errorf("source = %q, want the clone path", b.Source)
	}
	if b.Mode != ModePersistent {
		t.Errorf("mode = %v, want persistent so in-jail commits reach the clone", b.Mode)
	}
}

func TestBuildPlan_RelativeWorkDirRejected(t *testing.T) {
	t.Parallel()

	_, err := BuildPlan(nil, testRoot, "relative/dir")
	if err == nil {
		t.Fatal("relative working directory accepted")
	}
	if !IsConfigError(err) {
		t.Errorf("error %v is not a ConfigError", err)
	}
}
