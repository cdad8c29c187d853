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

	"github.com/google/subcommands"

	"github.com/7irelo/crate-run/internal/cmdutil"
	"github.com/7irelo/crate-run/internal/model"
	"github.com/7irelo/crate-run/internal/nsexec"
	"github.com/7irelo/crate-run/internal/registry"
)

// execCmd implements subcommands.Command for "exec".
type execCmd struct{}

func (*execCmd) Name() string           { return "exec" }
func (*execCmd) Synopsis() string       { return "run a command inside a running container" }
func (*execCmd) Usage() string          { return "exec ID_PREFIX -- CMD [ARGS...]\n" }
func (*execCmd) SetFlags(*flag.FlagSet) {}

func (*execCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	prefix := f.Arg(0)
	cmdArgs := f.Args()[1:]
	if len(cmdArgs) == 0 {
		cmdutil.Fatalf("no command specified; pass one after --")
	}

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
	if meta.Status != model.StatusRunning {
		cmdutil.Fatalf("container %s is not running", id)
	}

	code, err := nsexec.ExecIn(meta.Pid, cmdArgs)
	if err != nil {
		cmdutil.Fatalf("%v", err)
	}
	return subcommands.ExitStatus(code)
}
