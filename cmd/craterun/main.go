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

// Command craterun is a minimal Linux container runtime: it launches a
// program inside isolated namespaces and a cgroup v2 node, tracks the
// result in an on-disk registry, and exposes lifecycle subcommands.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/7irelo/crate-run/internal/cmdutil"
	"github.com/7irelo/crate-run/internal/launch"
	"github.com/7irelo/crate-run/internal/runtimeconfig"
)

func main() {
	// Before anything else: are we the re-exec'd init process for a
	// container being launched? This must be checked ahead of normal
	// flag/subcommand parsing since its argv is not a craterun CLI
	// invocation at all.
	if len(os.Args) > 1 && os.Args[1] == launch.InitArg {
		launch.RunInit(os.Args[2:])
		// RunInit never returns on the success path (execve replaces
		// the process); reaching here means setup failed and it has
		// already reported that and called os.Exit.
		return
	}

	cfg, err := runtimeconfig.Load()
	if err != nil {
		cmdutil.Fatalf("%v", err)
	}
	cmdutil.InitLogging(cfg.LogLevel)

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{cfg: cfg}, "")
	subcommands.Register(&psCmd{}, "")
	subcommands.Register(&rmCmd{}, "")
	subcommands.Register(&logsCmd{}, "")
	subcommands.Register(&execCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
