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

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/7irelo/crate-run/internal/cmdutil"
	"github.com/7irelo/crate-run/internal/launch"
	"github.com/7irelo/crate-run/internal/model"
	"github.com/7irelo/crate-run/internal/runtimeconfig"
)

// runCmd implements subcommands.Command for "run".
type runCmd struct {
	cfg *runtimeconfig.Config

	rootfs   string
	memory   uint64
	cpu      string
	pids     uint64
	uid      uint
	gid      uint
	hostname string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "create and start a new container" }
func (*runCmd) Usage() string {
	return "run --rootfs PATH [flags] -- CMD [ARGS...]\n"
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.rootfs, "rootfs", "", "path to the container's root filesystem (required)")
	f.Uint64Var(&r.memory, "memory", 0, "memory.max limit in bytes (0 means unset)")
	f.StringVar(&r.cpu, "cpu", "", "literal cpu.max value, e.g. \"100000 100000\" (empty means unset)")
	f.Uint64Var(&r.pids, "pids", 0, "pids.max limit (0 means unset)")
	f.UintVar(&r.uid, "uid", 0, "uid to run as (accepted, not yet applied; see DESIGN.md)")
	f.UintVar(&r.gid, "gid", 0, "gid to run as (accepted, not yet applied; see DESIGN.md)")
	f.StringVar(&r.hostname, "hostname", "", "hostname to set inside the container (default: config file's default_hostname, else \""+model.DefaultHostname+"\")")
}

func (r *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if r.rootfs == "" {
		cmdutil.Fatalf("--rootfs is required")
	}
	cmdArgs := f.Args()
	if len(cmdArgs) == 0 {
		cmdutil.Fatalf("no command specified; pass one after --")
	}

	hostname := r.hostname
	if hostname == "" {
		hostname = model.DefaultHostname
		if r.cfg != nil && r.cfg.DefaultHostname != "" {
			hostname = r.cfg.DefaultHostname
		}
	}

	cfg := &model.Config{
		Rootfs:   r.rootfs,
		Cmd:      cmdArgs,
		Hostname: hostname,
	}
	if r.memory != 0 {
		cfg.Memory = &r.memory
	}
	if r.cpu != "" {
		cfg.CPU = &r.cpu
	}
	if r.pids != 0 {
		cfg.Pids = &r.pids
	}
	if r.uid != 0 {
		uid := uint32(r.uid)
		cfg.UID = &uid
	}
	if r.gid != 0 {
		gid := uint32(r.gid)
		cfg.GID = &gid
	}

	result, err := launch.Run(cfg)
	if err != nil {
		cmdutil.Fatalf("%v", err)
	}

	fmt.Println(result.ContainerID)
	return subcommands.ExitStatus(result.ExitCode)
}
