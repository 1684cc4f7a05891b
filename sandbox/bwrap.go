// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// runnerMountPath is where the runner binary appears inside the jail.
const runnerMountPath = "/run/tsyne/tsyne-sandbox-runner"

// systemLibraryDirs are bound read-only when present so a dynamically
// linked runner can start.
var systemLibraryDirs = []string{"/lib", "/lib64", "/usr/lib", "/usr/lib64"}

// BwrapOptions describes one runner jail.
type BwrapOptions struct {
	// RunnerPath is the host path of the tsyne-sandbox-runner binary.
	RunnerPath string

	// ReadOnlyBinds are extra host paths visible read-only at the same
	// path inside the jail.
	ReadOnlyBinds []string

	// Args are passed to the runner.
	Args []string
}

// BwrapBuilder builds bubblewrap command-line arguments.
type BwrapBuilder struct {
	args []string

	// exists reports whether a host path exists. Tests replace it.
	exists func(string) bool
}

// NewBwrapBuilder creates a new builder.
func NewBwrapBuilder() *BwrapBuilder {
	return &BwrapBuilder{exists: pathExists}
}

// Build returns the bwrap arguments for options. Every namespace is
// unshared, including the network; the environment is cleared and the
// filesystem is a read-only view of the runner and system libraries with
// a private /tmp.
func (b *BwrapBuilder) Build(options *BwrapOptions) ([]string, error) {
	if options.RunnerPath == "" {
		return nil, errors.New("runner path is required")
	}
	if !filepath.IsAbs(options.RunnerPath) {
		return nil, fmt.Errorf("runner path %q is not absolute", options.RunnerPath)
	}

	b.args = []string{
		"--unshare-all",
		"--die-with-parent",
		"--new-session",
		"--clearenv",
		"--proc", "/proc",
		"--dev", "/dev",
		"--tmpfs", "/tmp",
	}

	for _, dir := range systemLibraryDirs {
		if b.exists(dir) {
			b.addReadOnly(dir, dir)
		}
	}
	binds := slices.Clone(options.ReadOnlyBinds)
	slices.Sort(binds)
	for _, path := range slices.Compact(binds) {
		if !filepath.IsAbs(path) {
			return nil, fmt.Errorf("bind path %q is not absolute", path)
		}
		b.addReadOnly(path, path)
	}
	b.addReadOnly(options.RunnerPath, runnerMountPath)

	b.args = append(b.args, "--", runnerMountPath)
	b.args = append(b.args, options.Args...)
	return b.args, nil
}

// addReadOnly binds source at dest, creating dest's parents first.
func (b *BwrapBuilder) addReadOnly(source, dest string) {
	for _, dir := range pathHierarchy(filepath.Dir(dest)) {
		if !slices.Contains(systemLibraryDirs, dir) {
			b.args = appendUnique(b.args, "--dir", dir)
		}
	}
	b.args = append(b.args, "--ro-bind", source, dest)
}

// appendUnique appends a flag and value pair unless args already holds
// that pair.
func appendUnique(args []string, flag, value string) []string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return args
		}
	}
	return append(args, flag, value)
}

// BwrapPath returns the path to the bwrap executable.
func BwrapPath() (string, error) {
	for _, path := range []string{"/usr/bin/bwrap", "/usr/local/bin/bwrap", "/bin/bwrap"} {
		if pathExists(path) {
			return path, nil
		}
	}
	if path, err := exec.LookPath("bwrap"); err == nil {
		return path, nil
	}
	return "", errors.New("bwrap not found in standard locations or PATH")
}

// pathHierarchy returns all directories in a path from root to the full path.
// For example, "/run/tsyne/bin" returns ["/run", "/run/tsyne", "/run/tsyne/bin"].
func pathHierarchy(path string) []string {
	path = filepath.Clean(path)
	if path == "/" || path == "." {
		return nil
	}

	var components []string
	for current := path; current != "/" && current != "."; current = filepath.Dir(current) {
		components = append(components, current)
	}
	slices.Reverse(components)
	return components
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// quoteArgs renders args for a debug log line.
func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}
