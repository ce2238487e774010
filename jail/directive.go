// Copyright 2026 The Ajail Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies what a directive instructs the engine to do.
type Kind int

const (
	// KindSelectFS selects the root filesystem by name or path.
	KindSelectFS Kind = iota

	// KindOverlay marks a path as an ephemeral overlay: reads fall
	// through to the host path, writes are discarded at exit.
	KindOverlay

	// KindPersist marks a path as persistent passthrough: direct
	// read/write access to the host path.
	KindPersist

	// KindHide hides a path as an empty directory. Nothing underneath
	// is ever visible; writes are discarded at exit.
	KindHide

	// KindMount is an arbitrary source-to-destination custom mount
	// with an explicit persistence flag.
	KindMount

	// KindFSEdit marks the whole root filesystem persistent.
	KindFSEdit

	// KindHomeEdit marks only the root filesystem's home subtree
	// (/root inside the jail) persistent.
	KindHomeEdit

	// KindNoNet disables networking inside the jail.
	KindNoNet

	// KindClone substitutes a local git clone for the working
	// directory mount.
	KindClone

	// KindQuiet suppresses status output.
	KindQuiet
)

// String returns the flag name the kind corresponds to.
func (k Kind) String() string {
	switch k {
	case KindSelectFS:
		return "fs"
	case KindOverlay:
		return "ro"
	case KindPersist:
		return "rw"
	case KindHide:
		return "hide"
	case KindMount:
		return "mount"
	case KindFSEdit:
		return "fs-rw"
	case KindHomeEdit:
		return "home-rw"
	case KindNoNet:
		return "no-net"
	case KindClone:
		return "clone"
	case KindQuiet:
		return "quiet"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Origin records where a directive came from. Environment-sourced
// directives are evaluated before explicit arguments, so arguments
// override them under the later-directive-wins rule.
type Origin int

const (
	// OriginEnvironment marks a directive parsed from AJAIL_ARGS.
	OriginEnvironment Origin = iota

	// OriginArgument marks a directive given on the command line.
	OriginArgument
)

// Directive is one parsed user instruction. Directives are immutable
// once parsed; their only identity is position in the resolved
// sequence, because position determines override semantics.
type Directive struct {
	Kind Kind

	// Path is the target for overlay, persist, hide, and select-fs
	// directives. It may be absolute or relative to the working
	// directory; empty (or ".") means the working directory itself.
	Path string

	// Source and Dest are set for custom mounts only.
	Source string
	Dest   string

	// Persistent is set for custom mounts carrying the rw flag.
	Persistent bool

	Origin Origin
}

// DirectiveList collects directives in parse order. The CLI registers
// one flag value per directive kind, all appending here, so the list
// preserves left-to-right appearance order across different flags.
type DirectiveList struct {
	directives []Directive
	origin     Origin
}

// SetOrigin sets the origin recorded on subsequently appended
// directives. The CLI parses AJAIL_ARGS under OriginEnvironment first,
// then switches to OriginArgument for os.Args.
func (l *DirectiveList) SetOrigin(origin Origin) {
	l.origin = origin
}

// Append adds a directive, stamping the current origin.
func (l *DirectiveList) Append(d Directive) {
	d.Origin = l.origin
	l.directives = append(l.directives, d)
}

// Directives returns the collected sequence in parse order.
func (l *DirectiveList) Directives() []Directive {
	return l.directives
}

// Has reports whether any directive of the given kind is present.
func Has(directives []Directive, kind Kind) bool {
	for _, d := range directives {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// Last returns the last directive of the given kind. For
// value-carrying directives like select-fs this implements
// "the argument's value wins" over environment defaults.
func Last(directives []Directive, kind Kind) (Directive, bool) {
	for i := len(directives) - 1; i >= 0; i-- {
		if directives[i].Kind == kind {
			return directives[i], true
		}
	}
	return Directive{}, false
}

// SplitArgsVar splits the semicolon-delimited AJAIL_ARGS value into
// individual arguments, dropping empty fields.
func SplitArgsVar(value string) []string {
	var args []string
	for _, field := range strings.Split(value, ";") {
		field = strings.TrimSpace(field)
		if field != "" {
			args = append(args, field)
		}
	}
	return args
}

// ParseMountSpec parses a custom mount specification in the form
// "SRC,DST[,rw]".
func ParseMountSpec(spec string) (source, dest string, persistent bool, err error) {
	parts := strings.Split(spec, ",")
	switch len(parts) {
	case 2:
	case 3:
		if parts[2] != "rw" {
			return "", "", false, configErrorf("invalid mount spec %q: trailing field must be rw", spec)
		}
		persistent = true
	default:
		return "", "", false, configErrorf("invalid mount spec %q: must be SRC,DST[,rw]", spec)
	}

	source, dest = parts[0], parts[1]
	if source == "" || dest == "" {
		return "", "", false, configErrorf("invalid mount spec %q: source and destination are required", spec)
	}
	return source, dest, persistent, nil
}

// ConfigError marks a configuration or validation problem detected
// before the sandbox is ever invoked. The entrypoint maps it to a
// distinct exit code so scripts can tell engine misconfiguration from
// the jailed command's own failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}
