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

package nsmount

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func TestCloneFlagsIncludesExpectedNamespaces(t *testing.T) {
	want := []int{unix.CLONE_NEWNS, unix.CLONE_NEWPID, unix.CLONE_NEWUTS, unix.CLONE_NEWIPC, unix.CLONE_NEWNET}
	for _, flag := range want {
		if CloneFlags&flag == 0 {
			t.Fatalf("CloneFlags = %#x missing flag %#x", CloneFlags, flag)
		}
	}
}

func TestDevNodesTable(t *testing.T) {
	seen := make(map[string]bool)
	for _, n := range devNodes {
		if seen[n.path] {
			t.Fatalf("duplicate device node path %q", n.path)
		}
		seen[n.path] = true
		if n.nodeType != unix.S_IFCHR {
			t.Fatalf("device node %q has type %v, want S_IFCHR", n.path, n.nodeType)
		}
	}
	for _, want := range []string{"/dev/null", "/dev/zero", "/dev/urandom", "/dev/tty"} {
		if !seen[want] {
			t.Fatalf("devNodes missing expected entry %q", want)
		}
	}
}

// createDevNodes requires CAP_MKNOD to actually create anything; run
// unprivileged it must still return without panicking, silently skipping
// nodes it cannot create.
func TestCreateDevNodesDoesNotPanicUnprivileged(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, createDevNodes would mutate the real /dev")
	}
	createDevNodes()
}
