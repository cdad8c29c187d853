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
	"time"

	"github.com/google/subcommands"

	"github.com/7irelo/crate-run/internal/cgroup"
	"github.com/7irelo/crate-run/internal/cmdutil"
	"github.com/7irelo/crate-run/internal/launch"
	"github.com/7irelo/crate-run/internal/model"
	"github.com/7irelo/crate-run/internal/registry"
)

// rmCmd implements subcommands.Command for "rm".
type rmCmd struct {
	force bool
}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "remove a container" }
func (*rmCmd) Usage() string    { return "rm [--force] ID_PREFIX\n" }

func (r *rmCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.force, "force", false, "kill the container first if it is still running")
}

func (r *rmCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	prefix := f.Arg(0)

	id, err := registry.ResolveID(prefix)
	if err != nil {
		cmdutil.Fatalf("%v", err)
	}
	meta, err := registry.LoadMeta(id)
	if err != nil {
		cmdutil.Fatalf("%v", err)
	}
	if _, err := registry.RefreshStatus(meta); err != nil {
		cmdutil.Fatalf("%v", err)
	}

	if meta.Status == model.StatusRunning {
		if !r.force {
			cmdutil.Fatalf("container %s is still running; pass --force to remove it", id)
		}
		if err := launch.Kill(meta.Pid); err != nil {
			cmdutil.Fatalf("%v", err)
		}
		time.Sleep(200 * time.Millisecond)
	}

	if err := cgroup.Remove(id); err != nil {
		// Best-effort: a container that leaves processes behind in its
		// cgroup should not block removal of its state directory.
		fmt.Printf("craterun: warning: %v\n", err)
	}
	if err := registry.RemoveContainerDir(id); err != nil {
		cmdutil.Fatalf("%v", err)
	}

	fmt.Printf("Removed container %s\n", id)
	return subcommands.ExitSuccess
}
