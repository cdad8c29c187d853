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

// Package launch implements craterun's container launch orchestrator: the
// parent-side process that creates the namespaced init process and the
// init-side entrypoint that process runs as once inside its namespaces.
//
// Go cannot safely call raw fork(2) in a multi-threaded runtime, so unlike
// the double-fork dance a single-threaded implementation needs, craterun
// re-execs itself with os/exec and asks the kernel to create the new
// process directly inside the target namespaces via
// SysProcAttr.Cloneflags. The re-exec'd process is therefore already PID 1
// of the new PID namespace from the moment it starts running Go code; no
// second fork is required to "enter" it.
package launch

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/7irelo/crate-run/internal/cgroup"
	"github.com/7irelo/crate-run/internal/id"
	"github.com/7irelo/crate-run/internal/model"
	"github.com/7irelo/crate-run/internal/nsmount"
	"github.com/7irelo/crate-run/internal/registry"
)

// InitArg is the hidden argv[1] craterun recognizes as "run the init
// entrypoint", rather than dispatching to a user-facing subcommand. It is
// deliberately unusual so it can never collide with a container ID prefix
// or subcommand name.
const InitArg = "__craterun_init__"

// Result describes the outcome of a completed Run.
type Result struct {
	ContainerID string
	ExitCode    int
}

// Run validates cfg, creates the container's registry entry, and launches
// it: spawning the init process into new namespaces, placing it in its
// cgroup, waiting for it to either report a setup failure or finish
// running the user's command, and recording the final status.
func Run(cfg *model.Config) (*Result, error) {
	rootfs, err := validateRootfs(cfg.Rootfs)
	if err != nil {
		return nil, err
	}
	if len(cfg.Cmd) == 0 {
		return nil, fmt.Errorf("no command specified")
	}
	if err := cgroup.CheckUnified(); err != nil {
		return nil, err
	}

	containerID, err := id.Generate()
	if err != nil {
		return nil, err
	}
	hostname := cfg.Hostname
	if hostname == "" {
		hostname = model.DefaultHostname
	}

	if _, err := registry.EnsureStateDir(); err != nil {
		return nil, err
	}
	containerDir, err := registry.ContainerDir(containerID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(containerDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating container directory %s: %w", containerDir, err)
	}

	stdoutPath, err := registry.LogPath(containerID, registry.StdoutLog)
	if err != nil {
		return nil, err
	}
	stderrPath, err := registry.LogPath(containerID, registry.StderrLog)
	if err != nil {
		return nil, err
	}
	stdoutFile, err := os.Create(stdoutPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", stdoutPath, err)
	}
	defer stdoutFile.Close()
	stderrFile, err := os.Create(stderrPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", stderrPath, err)
	}
	defer stderrFile.Close()

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving own executable path: %w", err)
	}

	errR, errW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating setup error pipe: %w", err)
	}
	// readyR/readyW is a second pipe used purely as a barrier: the init
	// process blocks reading readyR (fd 4) until the parent closes readyW,
	// which it only does once the init process's PID has actually been
	// written into its cgroup's cgroup.procs. Without this, the init
	// process could run its mount sequence and execve the user's command
	// — spawning descendants of its own — before cgroup placement
	// happened, giving it a window to exceed limits that should have
	// applied from birth.
	readyR, readyW, err := os.Pipe()
	if err != nil {
		errR.Close()
		errW.Close()
		return nil, fmt.Errorf("creating cgroup-ready pipe: %w", err)
	}

	args := append([]string{InitArg, rootfs, hostname, "--"}, cfg.Cmd...)
	cmd := exec.Command(self, args...)
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile
	cmd.Stdin = nil
	cmd.ExtraFiles = []*os.File{errW, readyR}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: uintptr(nsmount.CloneFlags),
		Pdeathsig:  syscall.SIGKILL,
	}

	if err := cmd.Start(); err != nil {
		errR.Close()
		errW.Close()
		readyR.Close()
		readyW.Close()
		return nil, fmt.Errorf("starting container init process: %w", err)
	}
	// Our copies of the write end of the error pipe and the read end of
	// the ready pipe must be closed: the former so EOF on errR reflects
	// the child's copy alone, the latter because only the child needs to
	// read from it.
	errW.Close()
	readyR.Close()

	nsPid := cmd.Process.Pid

	// Place the init process in its cgroup before releasing it: it is
	// blocked on readyR and cannot run its mount sequence, execve, or
	// spawn any descendant until readyW is closed below, so no process in
	// this container can ever observe a moment where it isn't yet
	// cgroup-constrained.
	if _, err := cgroup.Setup(containerID, cfg); err != nil {
		readyW.Close()
		killAndWait(cmd)
		errR.Close()
		return nil, err
	}
	if err := cgroup.AddProcess(containerID, nsPid); err != nil {
		readyW.Close()
		killAndWait(cmd)
		errR.Close()
		return nil, err
	}
	// Release the init process now that its cgroup placement is
	// confirmed; closing our end delivers EOF to its blocking read on fd 4.
	readyW.Close()

	setupErr, readErr := io.ReadAll(errR)
	errR.Close()
	if readErr != nil {
		killAndWait(cmd)
		return nil, fmt.Errorf("reading container init setup result: %w", readErr)
	}
	if len(setupErr) > 0 {
		killAndWait(cmd)
		return nil, fmt.Errorf("container init setup failed: %s", strings.TrimSpace(string(setupErr)))
	}

	meta := &model.Meta{
		ID:          containerID,
		Rootfs:      rootfs,
		Cmd:         cfg.Cmd,
		Pid:         nsPid,
		CreatedAt:   time.Now().UTC(),
		Status:      model.StatusRunning,
		Hostname:    hostname,
		MemoryLimit: cfg.Memory,
		CPULimit:    cfg.CPU,
		PidsLimit:   cfg.Pids,
	}
	if err := registry.SaveMeta(meta); err != nil {
		killAndWait(cmd)
		return nil, err
	}
	logrus.WithField("container", containerID).WithField("pid", nsPid).Info("container started")

	exitCode := waitForExit(cmd)

	meta.Status = model.StatusStopped
	meta.ExitCode = &exitCode
	meta.Pid = 0
	if err := registry.SaveMeta(meta); err != nil {
		return nil, err
	}

	if err := cgroup.Remove(containerID); err != nil {
		logrus.WithField("container", containerID).WithError(err).Warn("failed to remove cgroup after exit")
	}

	return &Result{ContainerID: containerID, ExitCode: exitCode}, nil
}

// killAndWait is used to unwind a partially-started container on setup
// failure: it forces the init process to die and reaps it so it does not
// become a zombie, ignoring errors since the process may already be gone.
func killAndWait(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
}

// waitForExit waits for cmd to finish and translates its termination into
// a POSIX-shell-style exit code: the code itself on normal exit, 128+signal
// on death by signal.
func waitForExit(cmd *exec.Cmd) int {
	err := cmd.Wait()
	if err == nil {
		return 0
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return 1
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return 1
	}
	if status.Signaled() {
		return 128 + int(status.Signal())
	}
	return status.ExitStatus()
}

// Kill sends SIGKILL to a running container's init process by PID. Killing
// PID 0 (a container already recorded as stopped) is a no-op, not an
// error.
func Kill(pid int) error {
	if pid == 0 {
		return nil
	}
	if err := unix.Kill(pid, syscall.SIGKILL); err != nil && err != unix.ESRCH {
		return fmt.Errorf("killing process %d: %w", pid, err)
	}
	return nil
}

// validateRootfs checks that rootfs is a safe, existing directory that
// looks like the root of a filesystem, and returns its canonical path.
func validateRootfs(rootfs string) (string, error) {
	if rootfs == "" {
		return "", fmt.Errorf("rootfs path must not be empty")
	}
	if _, err := os.Stat(rootfs); err != nil {
		return "", fmt.Errorf("rootfs path %q does not exist", rootfs)
	}
	canon, err := filepath.Abs(rootfs)
	if err != nil {
		return "", fmt.Errorf("resolving rootfs path %q: %w", rootfs, err)
	}
	canon, err = filepath.EvalSymlinks(canon)
	if err != nil {
		return "", fmt.Errorf("canonicalizing rootfs path %q: %w", rootfs, err)
	}

	if canon == "/" {
		return "", fmt.Errorf("refusing to use '/' as rootfs — this would destroy the host")
	}

	looksLikeRoot := isDir(filepath.Join(canon, "bin")) || isDir(filepath.Join(canon, "usr")) || isDir(filepath.Join(canon, "etc"))
	if !looksLikeRoot {
		return "", fmt.Errorf("rootfs %q does not look like a filesystem root (no bin/, usr/, or etc/ found); "+
			"provide a path to an extracted rootfs (e.g. an Alpine minirootfs)", canon)
	}
	return canon, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// RunInit is the entrypoint executed by the re-exec'd process described by
// InitArg. It blocks until the parent confirms cgroup placement, then never
// returns on success: it replaces itself with the container's command via
// execve. On failure it reports the error over fd 3 (the parent's error
// pipe, the first ExtraFiles entry) and exits with status 1.
func RunInit(args []string) {
	if err := runInit(args); err != nil {
		reportInitError(err)
		os.Exit(1)
	}
	// execve replaced this process; reaching here is a bug.
	reportInitError(fmt.Errorf("execve returned unexpectedly"))
	os.Exit(1)
}

// waitForCgroupPlacement blocks on fd 4 (the parent's ready pipe, passed as
// the second ExtraFiles entry) until the parent closes its write end,
// which it does only once this process's PID has been added to its
// cgroup. A missing fd 4 (e.g. a hand-launched init binary without a
// parent) is treated as "go immediately," since there is no placement to
// wait for.
func waitForCgroupPlacement() {
	pipe := os.NewFile(4, "ready-pipe")
	if pipe == nil {
		return
	}
	defer pipe.Close()
	var buf [1]byte
	_, _ = pipe.Read(buf[:])
}

func reportInitError(err error) {
	msg := err.Error()
	pipe := os.NewFile(3, "sync-pipe")
	if pipe == nil {
		return
	}
	_, _ = pipe.Write([]byte(msg))
	pipe.Close()
}

func runInit(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("internal error: malformed init arguments")
	}
	rootfs := args[0]
	hostname := args[1]
	if args[2] != "--" {
		return fmt.Errorf("internal error: malformed init arguments")
	}
	cmdArgs := args[3:]
	if len(cmdArgs) == 0 {
		return fmt.Errorf("no command specified")
	}

	// The sync pipe (fd 3) must not survive into the user's command: set
	// close-on-exec so a successful execve below closes it automatically,
	// without requiring an explicit close on every success path.
	_, _ = unix.FcntlInt(3, unix.F_SETFD, unix.FD_CLOEXEC)

	// Block until the parent confirms this process has been placed in its
	// cgroup: the parent closes its end of this pipe (fd 4) only after
	// cgroup.Setup and cgroup.AddProcess succeed. Nothing below this line
	// — mounts, hostname, execve — may run before that happens.
	waitForCgroupPlacement()

	if err := nsmount.SetHostname(hostname); err != nil {
		return err
	}
	if err := nsmount.MakeMountPrivate(); err != nil {
		return err
	}
	if err := nsmount.BindMountRootfs(rootfs); err != nil {
		return err
	}
	if err := nsmount.MountProcAt(rootfs); err != nil {
		return err
	}
	if err := nsmount.PivotRoot(rootfs); err != nil {
		return err
	}
	if err := nsmount.MountProcInNewRoot(); err != nil {
		return err
	}
	if err := nsmount.MountDevInNewRoot(); err != nil {
		return err
	}
	if err := nsmount.BringUpLoopback(); err != nil {
		return err
	}

	program, err := resolveProgram(cmdArgs[0])
	if err != nil {
		return err
	}

	env := []string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"HOSTNAME=" + hostname,
		"TERM=xterm",
		"HOME=/root",
	}

	if err := unix.Exec(program, cmdArgs, env); err != nil {
		return fmt.Errorf("execve %q: %w", cmdArgs[0], err)
	}
	return nil
}

// resolveProgram resolves a command name to an absolute path by searching
// PATH within the (already pivoted-into) container filesystem, mirroring
// what a shell would do, since unix.Exec does not perform PATH lookup.
func resolveProgram(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	paths := []string{"/usr/local/sbin", "/usr/local/bin", "/usr/sbin", "/usr/bin", "/sbin", "/bin"}
	for _, dir := range paths {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%q: no such file or directory in PATH", name)
}
