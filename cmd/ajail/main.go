// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ajail-project/ajail/jail"
	"github.com/ajail-project/ajail/lib/config"
	"github.com/ajail-project/ajail/lib/process"
	"github.com/ajail-project/ajail/lib/version"
)

func main() {
	if err := run(); err != nil {
		if code, ok := jail.IsExitError(err); ok {
			os.Exit(code)
		}
		if jail.IsConfigError(err) {
			process.FatalCode(err, process.ExitConfigError)
		}
		if jail.IsStartError(err) {
			process.FatalCode(err, process.ExitSandboxUnavailable)
		}
		process.Fatal(err)
	}
}

func run() error {
	logLevel := slog.LevelInfo
	if os.Getenv("AJAIL_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg, err := config.Load()
	if err != nil {
		return &jail.ConfigError{Err: err}
	}

	list := &jail.DirectiveList{}
	flags := flag.NewFlagSet("ajail", flag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.Usage = func() { printUsage(flags) }

	addDirectiveFlags(flags, list)
	showVersion := flags.Bool("version", false, "Show version and exit")
	dryRun := flags.Bool("dry-run", false, "Print the bwrap command without executing")

	if err := parseDirectives(flags, list, os.Getenv("AJAIL_ARGS"), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Printf("ajail %s\n", version.Info())
		return nil
	}

	directives := list.Directives()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}

	selector := cfg.Jail.DefaultFS
	if d, ok := jail.Last(directives, jail.KindSelectFS); ok {
		selector = d.Path
	}
	root, err := jail.ResolveRootFS(selector, cfg.Paths.Store)
	if err != nil {
		return err
	}

	plan, err := jail.BuildPlan(directives, root, workDir)
	if err != nil {
		return err
	}

	command := flags.Args()
	if len(command) == 0 {
		command = []string{cfg.Jail.Shell, "-l"}
	}

	invoker := &jail.Invoker{
		Plan:        plan,
		Identity:    jail.CurrentIdentity(),
		Environment: jail.FilterEnviron(os.Environ()),
		Command:     command,
		Logger:      logger,
	}

	if *dryRun {
		args, err := invoker.BuildArgs(nil)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(append([]string{"bwrap"}, args...), " \\\n  "))
		return nil
	}

	caps := jail.DetectCapabilities()
	if !caps.CanRun() {
		return &jail.StartError{Err: fmt.Errorf("cannot run jail: %s", caps.SkipReason())}
	}

	ctx := context.Background()

	if jail.Has(directives, jail.KindClone) {
		clone, err := jail.ResolveClone(ctx, workDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := clone.Release(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
		}()
		plan.SubstituteClone(workDir, clone.Path)
		logger.Debug("working directory cloned", "original", workDir, "clone", clone.Path)
	}

	quiet := cfg.Jail.Quiet ||
		jail.Has(directives, jail.KindQuiet) ||
		!term.IsTerminal(int(os.Stderr.Fd()))
	if !quiet {
		printStatus(plan)
	}

	return invoker.Run(ctx)
}

// parseDirectives runs the two-stage parse over one flag set: the
// semicolon-delimited AJAIL_ARGS value first (stamped as
// environment-sourced), then the explicit argument vector. Explicit
// arguments therefore override environment defaults under the
// later-directive-wins rule, and the positional command vector is
// whatever remains after the second parse.
func parseDirectives(flags *flag.FlagSet, list *jail.DirectiveList, argsVar string, argv []string) error {
	if argsVar != "" {
		list.SetOrigin(jail.OriginEnvironment)
		if err := flags.Parse(jail.SplitArgsVar(argsVar)); err != nil {
			return &jail.ConfigError{Err: fmt.Errorf("parsing AJAIL_ARGS: %w", err)}
		}
	}
	list.SetOrigin(jail.OriginArgument)
	if err := flags.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &jail.ConfigError{Err: err}
	}
	return nil
}

// addDirectiveFlags registers one flag per directive kind. All of them
// append to the shared list, so the resolved directive sequence
// preserves left-to-right appearance order across different flags.
func addDirectiveFlags(flags *flag.FlagSet, list *jail.DirectiveList) {
	add := func(kind jail.Kind, valueType, noOptDefault, usage string) {
		name := kind.String()
		flags.Var(&directiveValue{list: list, kind: kind, valueType: valueType}, name, usage)
		if noOptDefault != "" {
			flags.Lookup(name).NoOptDefVal = noOptDefault
		}
	}

	add(jail.KindSelectFS, "name", "", "Root filesystem name or path")
	add(jail.KindOverlay, "path", ".", "Ephemeral overlay for a path (default: working directory), repeatable")
	add(jail.KindPersist, "path", ".", "Persistent read/write access to a path (default: working directory), repeatable")
	add(jail.KindHide, "path", ".", "Hide a path as an empty directory (default: working directory), repeatable")
	add(jail.KindMount, "spec", "", "Custom mount SRC,DST[,rw], repeatable")
	add(jail.KindFSEdit, "bool", "true", "Mount the whole root filesystem read/write")
	add(jail.KindHomeEdit, "bool", "true", "Mount the root filesystem's /root read/write")
	add(jail.KindNoNet, "bool", "true", "Disable networking inside the jail")
	add(jail.KindClone, "bool", "true", "Mount a git clone of the working directory instead of the directory itself")
	add(jail.KindQuiet, "bool", "true", "Suppress status output")
}

// directiveValue adapts one directive kind to the pflag.Value
// interface. Set is called in parse order, which is what makes the
// directive sequence order-preserving.
type directiveValue struct {
	list      *jail.DirectiveList
	kind      jail.Kind
	valueType string
}

func (v *directiveValue) String() string { return "" }

func (v *directiveValue) Type() string { return v.valueType }

func (v *directiveValue) Set(value string) error {
	d := jail.Directive{Kind: v.kind}
	switch v.kind {
	case jail.KindMount:
		source, dest, persistent, err := jail.ParseMountSpec(value)
		if err != nil {
			return err
		}
		d.Source, d.Dest, d.Persistent = source, dest, persistent
	case jail.KindSelectFS, jail.KindOverlay, jail.KindPersist, jail.KindHide:
		d.Path = value
	default:
		// Boolean directives carry no value.
	}
	v.list.Append(d)
	return nil
}

// printStatus writes the one-line invocation summary to stderr.
func printStatus(plan *jail.Plan) {
	rootMode := "read-only"
	if plan.RootPersistent {
		rootMode = "read-write"
	}
	network := "on"
	if !plan.Network {
		network = "off"
	}
	fmt.Fprintf(os.Stderr, "ajail: %s (%s, %d bindings, network %s)\n",
		plan.RootFS.Name, rootMode, len(plan.Bindings), network)
}

func printUsage(flags *flag.FlagSet) {
	fmt.Print(`ajail - Run commands in unprivileged filesystem jails

USAGE
    ajail [flags] [--] [command...]

Without a command, an interactive login shell is started. Directive
flags are order-sensitive: a later flag overrides earlier ones for the
subtree it targets. The AJAIL_ARGS environment variable may carry a
semicolon-delimited default directive list, evaluated before (and thus
overridable by) explicit arguments. Host variables prefixed AJAIL_ENV_
are passed into the jail with the prefix stripped.

FLAGS
`)
	fmt.Print(flags.FlagUsages())
	fmt.Print(`
EXAMPLES
    # Shell in the default jail; writes to the working directory are discarded
    ajail

    # Build with network disabled, keeping package caches writable
    ajail --no-net --rw=/var/cache/pacman -- make

    # Hide secrets but keep one subdirectory visible and writable
    ajail --hide=/home/user/.ssh --rw=/home/user/.ssh/known_hosts -- bash

    # Run against a clone so the tool can commit without touching the checkout
    ajail --clone -- sh -c 'make fix && git commit -am fixup && git push origin HEAD'

ENVIRONMENT
    AJAIL_ARGS    Default directives, semicolon-delimited
    AJAIL_ENV_*   Variables passed into the jail, prefix stripped
    AJAIL_CONFIG  Config file path (default: ~/.config/ajail/config.yaml)
    AJAIL_DEBUG   Enable debug logging
`)
}
