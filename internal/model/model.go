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

// Package model defines the data types shared across craterun's
// components: the container configuration supplied by a caller, and the
// metadata persisted to disk for each container.
package model

import "time"

// Status is the lifecycle state of a container.
type Status string

// The closed set of container statuses. Created is transitional and should
// not normally be observed persisted to disk.
const (
	StatusCreated Status = "created"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// Config is the in-memory, caller-supplied description of a container to
// launch. It is never persisted; Meta is derived from it once the launch
// has started.
type Config struct {
	// Rootfs is the path to the container's root filesystem, as supplied
	// by the caller (may be relative; the launch orchestrator
	// canonicalizes it).
	Rootfs string
	// Cmd is the program and its arguments to execute inside the
	// container. Cmd[0] is the program.
	Cmd []string
	// Hostname is set inside the container's UTS namespace.
	Hostname string
	// Memory is an optional memory.max limit, in bytes.
	Memory *uint64
	// CPU is an optional literal cpu.max value, e.g. "100000 100000".
	CPU *string
	// Pids is an optional pids.max limit.
	Pids *uint64
	// UID and GID are accepted for forward compatibility with a future
	// user-namespace implementation; the launch orchestrator does not
	// currently apply them. See DESIGN.md.
	UID *uint32
	GID *uint32
}

// DefaultHostname is used when a Config does not specify one.
const DefaultHostname = "craterun"

// Meta is the persisted, on-disk record of a container. It is always the
// authoritative description of what was requested and observed; reconciling
// it against live kernel state (see Status) never silently discards it.
type Meta struct {
	ID          string    `json:"id"`
	Rootfs      string    `json:"rootfs"`
	Cmd         []string  `json:"cmd"`
	Pid         int       `json:"pid"`
	ExitCode    *int      `json:"exit_code"`
	CreatedAt   time.Time `json:"created_at"`
	Status      Status    `json:"status"`
	Hostname    string    `json:"hostname"`
	MemoryLimit *uint64   `json:"memory_limit"`
	CPULimit    *string   `json:"cpu_limit"`
	PidsLimit   *uint64   `json:"pids_limit"`
}
