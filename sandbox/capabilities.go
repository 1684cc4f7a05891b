// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RunnerName is the isolated runner's executable name.
const RunnerName = "tsyne-sandbox-runner"

// Availability reports whether a backend can run on this system.
type Availability struct {
	Available bool

	// Reason says why the backend is unavailable. Empty when available.
	Reason string
}

func available() Availability { return Availability{Available: true} }

func unavailable(format string, args ...any) Availability {
	return Availability{Reason: fmt.Sprintf(format, args...)}
}

// checkIsolation checks everything the isolated backend needs: bwrap,
// unprivileged user namespaces, and a runner binary. The paths must
// already be resolved.
func checkIsolation(bwrapPath, runnerPath string) Availability {
	if bwrapPath == "" {
		return unavailable("bubblewrap not installed")
	}
	if runnerPath == "" {
		return unavailable("%s not found next to the executable or on PATH", RunnerName)
	}
	if info, err := os.Stat(runnerPath); err != nil || info.IsDir() {
		return unavailable("runner %s is not a file", runnerPath)
	}
	if !checkUserNamespaces(bwrapPath) {
		return unavailable("unprivileged user namespaces not enabled (set kernel.unprivileged_userns_clone=1)")
	}
	return available()
}

// resolveRunner turns a configured runner into an absolute path. Empty
// or the default name means FindRunner; another bare name is looked up
// on PATH.
func resolveRunner(configured string) (string, error) {
	switch {
	case configured == "" || configured == RunnerName:
		return FindRunner()
	case !strings.Contains(configured, "/"):
		path, err := exec.LookPath(configured)
		if err != nil {
			return "", err
		}
		return filepath.Abs(path)
	}
	return filepath.Abs(configured)
}

// FindRunner locates tsyne-sandbox-runner next to the running
// executable or on PATH.
func FindRunner() (string, error) {
	if executable, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(executable), RunnerName)
		if pathExists(sibling) {
			return sibling, nil
		}
	}
	if path, err := exec.LookPath(RunnerName); err == nil {
		return filepath.Abs(path)
	}
	return "", errors.New(RunnerName + " not found next to the executable or on PATH")
}

// checkUserNamespaces tests if unprivileged user namespaces work.
func checkUserNamespaces(bwrapPath string) bool {
	data, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone")
	if err == nil && strings.TrimSpace(string(data)) == "0" {
		return false
	}
	// A missing sysctl usually means user namespaces are allowed; only
	// running bwrap tells for sure.
	cmd := exec.Command(bwrapPath,
		"--unshare-user",
		"--ro-bind", "/", "/",
		"--",
		"true",
	)
	return cmd.Run() == nil
}
