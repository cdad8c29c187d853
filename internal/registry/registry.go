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

// Package registry implements craterun's on-disk container registry: one
// directory per container holding its metadata.json and log files.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/7irelo/crate-run/internal/model"
)

// MetaFile is the name of the per-container metadata file. A directory
// under the state root is only considered a container entry if this file
// exists inside it.
const MetaFile = "metadata.json"

// Log file names understood by LogPath.
const (
	StdoutLog = "stdout.log"
	StderrLog = "stderr.log"
)

// maxAmbiguousMatches bounds how many candidate IDs ResolveID lists in an
// "ambiguous prefix" error.
const maxAmbiguousMatches = 5

// StateDir returns the base directory craterun persists container state
// under: /var/lib/craterun when running as root, otherwise
// $HOME/.craterun.
func StateDir() (string, error) {
	if os.Geteuid() == 0 {
		return "/var/lib/craterun", nil
	}
	home, ok := os.LookupEnv("HOME")
	if !ok || home == "" {
		return "", fmt.Errorf("HOME environment variable not set")
	}
	return filepath.Join(home, ".craterun"), nil
}

// ContainerDir returns the directory for a specific container.
func ContainerDir(id string) (string, error) {
	root, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, id), nil
}

// EnsureStateDir idempotently creates the state root.
func EnsureStateDir() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating state directory %s: %w", dir, err)
	}
	return dir, nil
}

// lockPath returns the path of the advisory lock guarding a container's
// metadata file against interleaved writers.
func lockPath(dir string) string {
	return filepath.Join(dir, ".metadata.lock")
}

// SaveMeta writes meta as pretty-printed JSON to
// <state_root>/<id>/metadata.json. The write is a single complete write of
// the serialized form: the file is truncated and rewritten, never appended
// to. A file lock serializes concurrent writers targeting the same
// container ID.
func SaveMeta(meta *model.Meta) error {
	dir, err := ContainerDir(meta.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating container directory %s: %w", dir, err)
	}

	lock := flock.New(lockPath(dir))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking metadata for %s: %w", meta.ID, err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing metadata for %s: %w", meta.ID, err)
	}

	path := filepath.Join(dir, MetaFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata to %s: %w", path, err)
	}
	logrus.WithField("container", meta.ID).WithField("status", meta.Status).Debug("saved container metadata")
	return nil
}

// LoadMeta reads and parses a container's metadata.json.
func LoadMeta(id string) (*model.Meta, error) {
	dir, err := ContainerDir(id)
	if err != nil {
		return nil, err
	}

	lock := flock.New(lockPath(dir))
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("locking metadata for %s: %w", id, err)
	}
	defer lock.Unlock()

	path := filepath.Join(dir, MetaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata from %s: %w", path, err)
	}
	var meta model.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing container metadata from %s: %w", path, err)
	}
	return &meta, nil
}

// ListContainers returns the lexicographically sorted names of directories
// under the state root whose metadata.json exists. A missing state root
// yields an empty list, not an error.
func ListContainers() ([]string, error) {
	dir, err := StateDir()
	if err != nil {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state directory %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if _, err := os.Stat(filepath.Join(dir, entry.Name(), MetaFile)); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ResolveID resolves a possibly-abbreviated container ID prefix to the
// unique matching full ID.
func ResolveID(prefix string) (string, error) {
	all, err := ListContainers()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, id := range all {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no container found with ID prefix %q", prefix)
	case 1:
		return matches[0], nil
	default:
		preview := matches
		if len(preview) > maxAmbiguousMatches {
			preview = preview[:maxAmbiguousMatches]
		}
		return "", fmt.Errorf("ambiguous container ID prefix %q: %d matches (%s)", prefix, len(matches), strings.Join(preview, ", "))
	}
}

// RemoveContainerDir recursively removes a container's state directory. A
// missing directory is not an error.
func RemoveContainerDir(id string) error {
	dir, err := ContainerDir(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing container directory %s: %w", dir, err)
	}
	return nil
}

// LogPath returns the path of a container's stdout or stderr log file.
func LogPath(id, name string) (string, error) {
	dir, err := ContainerDir(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// PidAlive reports whether pid refers to a live process, by checking for
// the existence of /proc/<pid>.
func PidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}

// RefreshStatus downgrades a Running container to Stopped when its tracked
// PID is no longer alive, persisting the change. It reports whether a
// change was made. It never sets ExitCode: the code is only known to the
// launch orchestrator that reaped the process.
func RefreshStatus(meta *model.Meta) (bool, error) {
	if meta.Status != model.StatusRunning || PidAlive(meta.Pid) {
		return false, nil
	}
	meta.Status = model.StatusStopped
	if err := SaveMeta(meta); err != nil {
		return false, fmt.Errorf("refreshing status for %s: %w", meta.ID, err)
	}
	logrus.WithField("container", meta.ID).Info("container observed stopped on refresh")
	return true, nil
}
