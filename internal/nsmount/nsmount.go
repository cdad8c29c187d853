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

// Package nsmount sets up the mount and UTS namespace state of a container
// once it is running inside its own namespaces: making the mount tree
// private, pivoting into the container's root filesystem, mounting /proc
// and /dev, and bringing up the loopback interface in the new network
// namespace.
package nsmount

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// CloneFlags is the set of namespaces craterun isolates a container into:
// mount, PID, UTS, IPC, and network. The container receives a new, empty
// network stack (loopback only); there is no bridging or host-networking
// mode.
const CloneFlags = unix.CLONE_NEWNS | unix.CLONE_NEWPID | unix.CLONE_NEWUTS | unix.CLONE_NEWIPC | unix.CLONE_NEWNET

// MakeMountPrivate recursively marks the whole mount tree private so that
// mounts performed inside the container's mount namespace never propagate
// back to the host.
func MakeMountPrivate() error {
	if err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		return fmt.Errorf("making / private recursively: %w", err)
	}
	return nil
}

// BindMountRootfs bind-mounts rootfs onto itself, which is required before
// pivot_root can treat it as a mount point.
func BindMountRootfs(rootfs string) error {
	if err := unix.Mount(rootfs, rootfs, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("bind-mounting rootfs %s: %w", rootfs, err)
	}
	return nil
}

// PivotRoot makes newRoot the process's new / via pivot_root(2), then
// unmounts and removes the old root (relocated to newRoot/.pivot_old
// during the call).
func PivotRoot(newRoot string) error {
	putOld := filepath.Join(newRoot, ".pivot_old")
	if err := os.MkdirAll(putOld, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", putOld, err)
	}

	if err := unix.PivotRoot(newRoot, putOld); err != nil {
		return fmt.Errorf("pivot_root(%s, %s): %w", newRoot, putOld, err)
	}

	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir / after pivot_root: %w", err)
	}

	return umountOldRoot("/.pivot_old")
}

func umountOldRoot(path string) error {
	if err := unix.Unmount(path, unix.MNT_DETACH); err != nil {
		return fmt.Errorf("unmounting old root at %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing old root directory %s: %w", path, err)
	}
	return nil
}

// MountProcAt mounts a fresh procfs at <rootfs>/proc, for use before
// pivot_root while the container's filesystem is still reached at rootfs.
func MountProcAt(rootfs string) error {
	return mountProc(filepath.Join(rootfs, "proc"))
}

// MountProcInNewRoot mounts a fresh procfs at /proc, for use after
// pivot_root once / is already the container's own filesystem.
func MountProcInNewRoot() error {
	return mountProc("/proc")
}

func mountProc(procDir string) error {
	if err := os.MkdirAll(procDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", procDir, err)
	}
	if err := unix.Mount("proc", procDir, "proc", unix.MS_NOSUID|unix.MS_NODEV|unix.MS_NOEXEC, ""); err != nil {
		return fmt.Errorf("mounting proc at %s: %w", procDir, err)
	}
	return nil
}

// devNode is a minimal device node to populate a container's /dev with.
type devNode struct {
	path     string
	major    uint32
	minor    uint32
	nodeType uint32
}

// devNodes are the device nodes docker and runc also seed a minimal
// container /dev with.
var devNodes = []devNode{
	{"/dev/null", 1, 3, unix.S_IFCHR},
	{"/dev/zero", 1, 5, unix.S_IFCHR},
	{"/dev/urandom", 1, 9, unix.S_IFCHR},
	{"/dev/tty", 5, 0, unix.S_IFCHR},
}

// MountDevInNewRoot mounts a tmpfs at /dev and populates it with the
// handful of device nodes a typical container command needs.
func MountDevInNewRoot() error {
	const devDir = "/dev"
	if err := os.MkdirAll(devDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", devDir, err)
	}
	if err := unix.Mount("tmpfs", devDir, "tmpfs", unix.MS_NOSUID, "mode=0755,size=65536k"); err != nil {
		return fmt.Errorf("mounting tmpfs on %s: %w", devDir, err)
	}
	createDevNodes()
	return nil
}

// createDevNodes creates the nodes in devNodes, ignoring per-node failures:
// mknod requires CAP_MKNOD and devtmpfs may already provide the node, and
// neither case should abort container startup.
func createDevNodes() {
	for _, n := range devNodes {
		dev := unix.Mkdev(n.major, n.minor)
		_ = unix.Mknod(n.path, n.nodeType|0o666, int(dev))
	}
}

// SetHostname sets the process's hostname, visible only within its own UTS
// namespace.
func SetHostname(name string) error {
	if err := unix.Sethostname([]byte(name)); err != nil {
		return fmt.Errorf("sethostname(%q): %w", name, err)
	}
	return nil
}

// BringUpLoopback brings the loopback interface up in the current network
// namespace. CLONE_NEWNET starts a container with "lo" present but down; to
// resolve localhost or use UNIX-loopback TCP, something has to bring it up.
func BringUpLoopback() error {
	link, err := netlink.LinkByName("lo")
	if err != nil {
		return fmt.Errorf("looking up loopback interface: %w", err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("bringing up loopback interface: %w", err)
	}
	return nil
}
