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

package cgroup

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPath(t *testing.T) {
	got := Path("abc123")
	want := filepath.Join(Root, Prefix, "abc123")
	if got != want {
		t.Fatalf("Path(%q) = %q, want %q", "abc123", got, want)
	}
}

func TestEnableControllersNoFile(t *testing.T) {
	dir := t.TempDir()
	// No cgroup.controllers present: treated as a no-op, not an error,
	// so tests can exercise this package off a real cgroupfs.
	if err := enableControllers(dir); err != nil {
		t.Fatalf("enableControllers() on dir without cgroup.controllers failed: %v", err)
	}
}

func TestEnableControllersWritesSubtreeControl(t *testing.T) {
	dir := t.TempDir()
	controllers := "cpu memory pids"
	if err := os.WriteFile(filepath.Join(dir, "cgroup.controllers"), []byte(controllers), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := enableControllers(dir); err != nil {
		t.Fatalf("enableControllers() failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "cgroup.subtree_control"))
	if err != nil {
		t.Fatalf("reading cgroup.subtree_control failed: %v", err)
	}
	want := "+cpu +memory +pids"
	if string(got) != want {
		t.Fatalf("cgroup.subtree_control = %q, want %q", got, want)
	}
}

func TestWriteFileMissingCgroupDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	if err := writeFile(dir, "memory.max", "1000"); err == nil {
		t.Fatal("writeFile() on missing cgroup directory succeeded, want error")
	}
}

func TestWriteFileWritesValue(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(dir, "memory.max", "1048576"); err != nil {
		t.Fatalf("writeFile() failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "memory.max"))
	if err != nil {
		t.Fatalf("reading memory.max failed: %v", err)
	}
	if string(got) != "1048576" {
		t.Fatalf("memory.max = %q, want %q", got, "1048576")
	}
}

func TestRemoveNonexistentCgroupIsNoop(t *testing.T) {
	// Remove operates on the real cgroupfs path derived from the
	// container ID; for a container that was never set up, the cgroup
	// directory under /sys/fs/cgroup/craterun never exists, so this must
	// succeed without touching the host cgroup hierarchy.
	if err := Remove("nonexistent-test-container-id"); err != nil {
		t.Fatalf("Remove() on nonexistent cgroup failed: %v", err)
	}
}
