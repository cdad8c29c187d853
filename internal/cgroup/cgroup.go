// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cgroup creates and tears down the cgroup v2 hierarchy craterun
// places each container under, and applies its resource limits.
package cgroup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/containerd/cgroups"
	"github.com/sirupsen/logrus"

	"github.com/7irelo/crate-run/internal/model"
)

// Root is the cgroup v2 unified mount point.
const Root = "/sys/fs/cgroup"

// Prefix is the sub-hierarchy craterun places all of its container cgroups
// under.
const Prefix = "craterun"

// Path returns the cgroup directory for a container.
func Path(containerID string) string {
	return filepath.Join(Root, Prefix, containerID)
}

// CheckUnified fails fast with an actionable error if the host is not
// running the cgroup v2 unified hierarchy, which every other function in
// this package assumes.
func CheckUnified() error {
	if cgroups.Mode() != cgroups.Unified {
		return fmt.Errorf("cgroup v2 unified hierarchy is required (is %s mounted as cgroup2?)", Root)
	}
	return nil
}

// Setup creates the cgroup directory for a container, enabling controllers
// on the shared parent "craterun" cgroup on first use, and applies the
// resource limits present in cfg. It returns the cgroup's path.
func Setup(containerID string, cfg *model.Config) (string, error) {
	path := Path(containerID)
	parent := filepath.Dir(path)

	if _, err := os.Stat(parent); os.IsNotExist(err) {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", fmt.Errorf("creating parent cgroup %s (is cgroup v2 mounted?): %w", parent, err)
		}
		if err := enableControllers(parent); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("creating cgroup %s: %w", path, err)
	}

	if cfg.Memory != nil {
		if err := writeFile(path, "memory.max", strconv.FormatUint(*cfg.Memory, 10)); err != nil {
			return "", fmt.Errorf("setting memory.max: %w", err)
		}
	}
	if cfg.CPU != nil {
		if err := writeFile(path, "cpu.max", *cfg.CPU); err != nil {
			return "", fmt.Errorf("setting cpu.max: %w", err)
		}
	}
	if cfg.Pids != nil {
		if err := writeFile(path, "pids.max", strconv.FormatUint(*cfg.Pids, 10)); err != nil {
			return "", fmt.Errorf("setting pids.max: %w", err)
		}
	}

	logrus.WithField("container", containerID).WithField("cgroup", path).Debug("cgroup configured")
	return path, nil
}

// AddProcess places pid into the container's cgroup.
func AddProcess(containerID string, pid int) error {
	path := Path(containerID)
	if err := writeFile(path, "cgroup.procs", strconv.Itoa(pid)); err != nil {
		return fmt.Errorf("adding pid %d to cgroup %s: %w", pid, path, err)
	}
	return nil
}

// Remove tears down a container's cgroup. It first writes to cgroup.kill
// (cgroup v2's atomic "SIGKILL everything in this cgroup" control file) so
// that any stray descendants left behind by a killed container do not keep
// the cgroup directory non-empty, then retries the directory removal with
// a short backoff: the kernel only releases a cgroup's own directory entry
// once the last exiting process in it has been reaped, which can lag the
// kill by a few scheduler ticks.
func Remove(containerID string) error {
	path := Path(containerID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	killFile := filepath.Join(path, "cgroup.kill")
	if _, err := os.Stat(killFile); err == nil {
		// Best-effort: a cgroup with no live processes has nothing to
		// kill, and that is not an error.
		_ = os.WriteFile(killFile, []byte("1"), 0o644)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second

	err := backoff.Retry(func() error {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}, b)
	if err != nil {
		return fmt.Errorf("removing cgroup %s (container may still be running): %w", path, err)
	}
	return nil
}

// enableControllers enables every controller cgroup.controllers lists as
// available in a parent cgroup's cgroup.subtree_control, so that children
// created under it may use them.
func enableControllers(path string) error {
	controllersFile := filepath.Join(path, "cgroup.controllers")
	data, err := os.ReadFile(controllersFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", controllersFile, err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil
	}
	enable := make([]string, len(fields))
	for i, c := range fields {
		enable[i] = "+" + c
	}

	if err := writeFile(path, "cgroup.subtree_control", strings.Join(enable, " ")); err != nil {
		return fmt.Errorf("enabling controllers in %s: %w", path, err)
	}
	return nil
}

func writeFile(cgroupDir, filename, value string) error {
	if _, err := os.Stat(cgroupDir); os.IsNotExist(err) {
		return fmt.Errorf("cgroup directory %s does not exist", cgroupDir)
	}
	path := filepath.Join(cgroupDir, filename)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("writing %q to %s: %w", value, path, err)
	}
	return nil
}
