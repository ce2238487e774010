// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

// Package jail composes unprivileged filesystem jails and runs
// commands inside them using bubblewrap (bwrap) Linux namespaces.
//
// The engine takes an ordered sequence of [Directive] values
// (environment-sourced defaults first, then explicit arguments) and
// compiles them into a [Plan]: a conflict-resolved, order-sensitive
// set of [Binding] values over a read-only base root filesystem from
// the per-user store ([ResolveRootFS]). Position determines override
// semantics — a later directive wins for the subtree it targets, so a
// persistent binding nested under an earlier ephemeral one punches a
// writable hole into that subtree, and a later ancestor replaces
// everything beneath it.
//
// [ScratchSet] materializes the ephemeral side of the plan: each
// overlay binding gets a unique upper/work directory pair, created
// lazily and removed exactly once on every exit path of the
// invocation. Hidden bindings need no scratch; they become empty
// tmpfs mounts inside the sandbox. [ResolveClone] implements the clone directive by
// substituting a full local git clone for the working-directory
// binding. [FilterEnviron] builds the minimal allow-listed environment
// and [Identity] derives the single-entry user-namespace mapping that
// makes the invoking user appear as root inside the jail.
//
// [Invoker] serializes all of the above into one bwrap argument
// vector, blocks on the child, forwards signals to it, and propagates
// its exit status. The engine intentionally computes and emits
// configuration only: namespace creation, overlay mounting, and
// enforcement are bwrap's job, and base root filesystems come from
// external per-distribution bootstrap scripts.
package jail
