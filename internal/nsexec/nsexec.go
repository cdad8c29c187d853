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

// Package nsexec runs an additional command inside the namespaces of an
// already-running container, the way `craterun exec` does.
package nsexec

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// nsOrder is the order namespace file descriptors are opened and joined
// in: mount, PID, UTS, IPC, network.
var nsOrder = []string{"mnt", "pid", "uts", "ipc", "net"}

// env is the environment an exec'd command runs with. Unlike the launch
// orchestrator's init path, craterun exec does not set HOSTNAME or HOME:
// it is joining a process tree that already has its own idea of those.
var env = []string{
	"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
	"TERM=xterm",
}

// ExecIn joins the namespaces of the process identified by pid, chroots
// into its root filesystem, and runs cmdArgs there with stdio wired to the
// current process's, returning its translated exit code.
//
// This locks the calling goroutine to its OS thread: setns(2) and chroot(2)
// are per-thread and per-process attributes respectively, and the child
// process exec.Cmd.Start spawns below must fork from this same thread to
// inherit them.
func ExecIn(pid int, cmdArgs []string) (int, error) {
	if len(cmdArgs) == 0 {
		return -1, fmt.Errorf("no command specified")
	}

	fds := make([]*os.File, 0, len(nsOrder))
	defer func() {
		for _, f := range fds {
			f.Close()
		}
	}()
	for _, ns := range nsOrder {
		path := fmt.Sprintf("/proc/%d/ns/%s", pid, ns)
		f, err := os.Open(path)
		if err != nil {
			return -1, fmt.Errorf("opening %s: %w", path, err)
		}
		fds = append(fds, f)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for i, ns := range nsOrder {
		if err := unix.Setns(int(fds[i].Fd()), 0); err != nil {
			return -1, fmt.Errorf("joining %s namespace of pid %d: %w", ns, pid, err)
		}
	}

	root := fmt.Sprintf("/proc/%d/root", pid)
	if err := unix.Chroot(root); err != nil {
		return -1, fmt.Errorf("chroot(%s): %w", root, err)
	}
	if err := unix.Chdir("/"); err != nil {
		return -1, fmt.Errorf("chdir(/): %w", err)
	}

	cmd := exec.Command(cmdArgs[0], cmdArgs[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = env

	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return -1, fmt.Errorf("running %q in container namespaces: %w", cmdArgs[0], err)
		}
		status, ok := exitErr.Sys().(syscall.WaitStatus)
		if !ok {
			return -1, nil
		}
		if status.Signaled() {
			return 128 + int(status.Signal()), nil
		}
		return status.ExitStatus(), nil
	}
	return 0, nil
}
