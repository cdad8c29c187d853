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

package launch

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func makeFakeRoot(t *testing.T, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}
	return root
}

func TestValidateRootfsEmpty(t *testing.T) {
	if _, err := validateRootfs(""); err == nil {
		t.Fatal("validateRootfs(\"\") succeeded, want error")
	}
}

func TestValidateRootfsMissing(t *testing.T) {
	if _, err := validateRootfs(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("validateRootfs() on missing path succeeded, want error")
	}
}

func TestValidateRootfsRefusesSlash(t *testing.T) {
	if _, err := validateRootfs("/"); err == nil {
		t.Fatal("validateRootfs(\"/\") succeeded, want error")
	}
}

func TestValidateRootfsRejectsNonRootLooking(t *testing.T) {
	root := makeFakeRoot(t, "some-unrelated-dir")
	if _, err := validateRootfs(root); err == nil {
		t.Fatal("validateRootfs() on dir without bin/usr/etc succeeded, want error")
	}
}

func TestValidateRootfsAcceptsBin(t *testing.T) {
	root := makeFakeRoot(t, "bin")
	got, err := validateRootfs(root)
	if err != nil {
		t.Fatalf("validateRootfs() failed: %v", err)
	}
	if got == "" {
		t.Fatal("validateRootfs() returned empty canonical path")
	}
}

func TestValidateRootfsAcceptsUsrOrEtc(t *testing.T) {
	for _, d := range []string{"usr", "etc"} {
		root := makeFakeRoot(t, d)
		if _, err := validateRootfs(root); err != nil {
			t.Fatalf("validateRootfs() with only %s/ failed: %v", d, err)
		}
	}
}

func TestResolveProgramWithSlash(t *testing.T) {
	got, err := resolveProgram("/bin/sh")
	if err != nil {
		t.Fatalf("resolveProgram() failed: %v", err)
	}
	if got != "/bin/sh" {
		t.Fatalf("resolveProgram(\"/bin/sh\") = %q, want unchanged", got)
	}
}

func TestResolveProgramNotFound(t *testing.T) {
	if _, err := resolveProgram("this-binary-should-not-exist-anywhere"); err == nil {
		t.Fatal("resolveProgram() on missing binary succeeded, want error")
	}
}

func TestWaitForExitSuccess(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot run 'true' in this environment: %v", err)
	}
	if got := waitForExit(cmd); got != 0 {
		t.Fatalf("waitForExit() = %d, want 0", got)
	}
}

func TestWaitForExitNonzero(t *testing.T) {
	cmd := exec.Command("false")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot run 'false' in this environment: %v", err)
	}
	if got := waitForExit(cmd); got != 1 {
		t.Fatalf("waitForExit() = %d, want 1", got)
	}
}

func TestKillZeroPidIsNoop(t *testing.T) {
	if err := Kill(0); err != nil {
		t.Fatalf("Kill(0) failed: %v", err)
	}
}
