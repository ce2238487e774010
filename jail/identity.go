// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import "os"

// Identity is the invoking user's UID/GID pair. Inside the jail it is
// mapped to root; no other identities exist there. Distribution
// package tools that expect multiple system users behave oddly under
// this single-entry mapping — that is an accepted trade-off of the
// scheme, not something the engine compensates for.
type Identity struct {
	UID int
	GID int
}

// CurrentIdentity returns the effective UID/GID of this process.
func CurrentIdentity() Identity {
	return Identity{UID: os.Geteuid(), GID: os.Getegid()}
}

// Args returns the user-namespace mapping arguments for bwrap: one
// range of size 1 associating the invoking identity with UID/GID 0.
func (id Identity) Args() []string {
	return []string{"--unshare-user", "--uid", "0", "--gid", "0"}
}
