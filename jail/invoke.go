// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"golang.org/x/sys/unix"
)

// Invoker serializes a finished plan into one bwrap invocation and
// blocks on it. It is the only place the engine starts a child
// process.
type Invoker struct {
	// Plan is the compiled jail composition.
	Plan *Plan

	// Identity is the user-namespace mapping.
	Identity Identity

	// Environment is the filtered variable set for the jailed process.
	Environment map[string]string

	// Command is the command vector to execute inside the jail.
	Command []string

	// BwrapPath overrides bwrap executable resolution. Tests point it
	// at a stub; when empty the standard locations are searched.
	BwrapPath string

	// Logger for invocation events.
	Logger *slog.Logger
}

// BuildArgs serializes the plan, identity mapping, environment,
// network toggle, and command into the bwrap argument vector. Scratch
// areas for overlay bindings are looked up in scratch; passing nil
// emits placeholder layer paths, which is only useful for dry-run
// display.
func (inv *Invoker) BuildArgs(scratch *ScratchSet) ([]string, error) {
	plan := inv.Plan
	if plan == nil {
		return nil, fmt.Errorf("plan is required")
	}
	if len(inv.Command) == 0 {
		return nil, fmt.Errorf("command is required")
	}

	args := inv.Identity.Args()
	args = append(args, "--unshare-pid", "--unshare-ipc", "--unshare-uts", "--die-with-parent")
	if !plan.Network {
		args = append(args, "--unshare-net")
	}

	// The root filesystem mounts first; every binding layers on top.
	if plan.RootPersistent {
		args = append(args, "--bind", plan.RootFS.Path, "/")
	} else {
		args = append(args, "--ro-bind", plan.RootFS.Path, "/")
	}
	args = append(args, "--proc", "/proc", "--dev", "/dev", "--tmpfs", "/tmp")

	for _, b := range plan.Bindings {
		switch b.Mode {
		case ModePersistent:
			args = append(args, "--bind", b.Source, b.Dest)

		case ModeOverlay:
			area, err := lookupArea(scratch, b.Dest)
			if err != nil {
				return nil, err
			}
			// bwrap's --dir creates a single path component, and the
			// destination may not exist in the root filesystem, so the
			// full hierarchy is created first.
			for _, dir := range pathHierarchy(b.Dest) {
				args = append(args, "--dir", dir)
			}
			args = append(args, "--overlay-src", b.Source)
			args = append(args, "--overlay", area.Upper, area.Work, b.Dest)

		case ModeHidden:
			// An empty tmpfs gives the hidden view directly: nothing
			// underneath is visible and writes vanish with the mount.
			// bwrap's overlay support always requires a lower layer, so
			// hiding is not expressible as an overlay.
			for _, dir := range pathHierarchy(b.Dest) {
				args = append(args, "--dir", dir)
			}
			args = append(args, "--tmpfs", b.Dest)
		}
	}

	// Sort keys for deterministic output.
	args = append(args, "--clearenv")
	envKeys := make([]string, 0, len(inv.Environment))
	for key := range inv.Environment {
		envKeys = append(envKeys, key)
	}
	sort.Strings(envKeys)
	for _, key := range envKeys {
		args = append(args, "--setenv", key, inv.Environment[key])
	}

	args = append(args, "--chdir", plan.WorkDir)
	args = append(args, "--")
	args = append(args, inv.Command...)
	return args, nil
}

// Run materializes scratch areas, executes the jail, and propagates
// the child's exit status as an ExitError. Scratch areas are released
// on every return path; release failures are reported but never change
// the already-determined status. Signals delivered while waiting are
// forwarded to the child's process group so an interrupted session
// terminates cleanly.
func (inv *Invoker) Run(ctx context.Context) error {
	var scratch *ScratchSet
	if inv.Plan != nil && inv.Plan.NeedsScratch() {
		var err error
		scratch, err = NewScratchSet()
		if err != nil {
			return err
		}
		defer inv.release(scratch)

		if err := scratch.Materialize(inv.Plan.Bindings); err != nil {
			return err
		}
	}

	args, err := inv.BuildArgs(scratch)
	if err != nil {
		return err
	}

	bwrapPath := inv.BwrapPath
	if bwrapPath == "" {
		bwrapPath, err = BwrapPath()
		if err != nil {
			return err
		}
	}

	command := exec.Command(bwrapPath, args...)
	command.Stdin = os.Stdin
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr

	// The bwrap process itself must not inherit the full host
	// environment: even with --clearenv inside, the parent environment
	// would be visible in /proc/<pid>/environ from within the jail.
	// Everything the jail needs goes through --setenv.
	command.Env = []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"TERM=" + os.Getenv("TERM"),
	}

	// Own process group, so forwarded signals reach the whole jail.
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	inv.logger().Debug("invoking bwrap",
		"bwrap", bwrapPath,
		"bindings", len(inv.Plan.Bindings),
		"network", inv.Plan.Network,
		"uid", inv.Identity.UID,
		"gid", inv.Identity.GID,
		"command", inv.Command,
	)

	if err := command.Start(); err != nil {
		return &StartError{Err: fmt.Errorf("starting %s: %w", bwrapPath, err)}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, unix.SIGINT, unix.SIGTERM, unix.SIGHUP)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-signals:
				inv.forward(command, sig)
			case <-ctx.Done():
				inv.forward(command, unix.SIGTERM)
			case <-done:
				return
			}
		}
	}()

	waitErr := command.Wait()
	close(done)
	signal.Stop(signals)

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{Code: exitCode(exitErr)}
		}
		return fmt.Errorf("waiting for jail: %w", waitErr)
	}
	return nil
}

// release cleans up the scratch set, reporting failures without
// affecting the exit status.
func (inv *Invoker) release(scratch *ScratchSet) {
	if err := scratch.Release(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

// forward delivers a signal to the child's process group, falling back
// to the process itself if the group is gone.
func (inv *Invoker) forward(command *exec.Cmd, sig os.Signal) {
	unixSig, ok := sig.(syscall.Signal)
	if !ok || command.Process == nil {
		return
	}
	if err := unix.Kill(-command.Process.Pid, unixSig); err != nil {
		_ = command.Process.Signal(unixSig)
	}
}

func (inv *Invoker) logger() *slog.Logger {
	if inv.Logger != nil {
		return inv.Logger
	}
	return slog.Default()
}

// lookupArea resolves the scratch area for a destination, emitting
// placeholders when no scratch set exists (dry-run).
func lookupArea(scratch *ScratchSet, dest string) (ScratchArea, error) {
	if scratch == nil {
		name := scratchName(dest)
		return ScratchArea{
			Upper: "<scratch>/" + name + "-upper",
			Work:  "<scratch>/" + name + "-work",
		}, nil
	}
	area, ok := scratch.Area(dest)
	if !ok {
		return ScratchArea{}, fmt.Errorf("no scratch area materialized for %s", dest)
	}
	return area, nil
}

// exitCode maps a child exit error to the code this process should
// propagate: the child's own code, or 128+signal when the jailed
// command was signal-terminated.
func exitCode(exitErr *exec.ExitError) int {
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return exitErr.ExitCode()
}

// pathHierarchy returns all directories in a path from root to the
// full path, e.g. "/a/b/c" yields ["/a", "/a/b", "/a/b/c"].
func pathHierarchy(path string) []string {
	var components []string
	for current := filepath.Clean(path); current != "/" && current != "."; current = filepath.Dir(current) {
		components = append(components, current)
	}

	for i, j := 0, len(components)-1; i < j; i, j = i+1, j-1 {
		components[i], components[j] = components[j], components[i]
	}
	return components
}

// ExitError carries the jailed command's exit status. It is not an
// engine failure: the code is simply propagated as this process's own.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}

// IsExitError checks if an error is an ExitError and returns the code.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// StartError marks a failure to locate or start the external sandbox
// executor itself. The entrypoint maps it to a distinct exit code.
type StartError struct {
	Err error
}

func (e *StartError) Error() string { return e.Err.Error() }

func (e *StartError) Unwrap() error { return e.Err }

// IsStartError reports whether err is (or wraps) a StartError.
func IsStartError(err error) bool {
	var startErr *StartError
	return errors.As(err, &startErr)
}

var errNoBwrap = errors.New("bwrap not found in PATH or standard locations")
