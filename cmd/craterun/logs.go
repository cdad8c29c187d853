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
	"os"

	"github.com/google/subcommands"

	"github.com/7irelo/crate-run/internal/cmdutil"
	"github.com/7irelo/crate-run/internal/registry"
)

// logsCmd implements subcommands.Command for "logs".
type logsCmd struct{}

func (*logsCmd) Name() string           { return "logs" }
func (*logsCmd) Synopsis() string       { return "print a container's captured stdout and stderr" }
func (*logsCmd) Usage() string          { return "logs ID_PREFIX\n" }
func (*logsCmd) SetFlags(*flag.FlagSet) {}

func (*logsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	prefix := f.Arg(0)

	id, err := registry.ResolveID(prefix)
	if err != nil {
		cmdutil.Fatalf("%v", err)
	}

	if err := copyLogIfNonEmpty(id, registry.StdoutLog, os.Stdout); err != nil {
		cmdutil.Fatalf("%v", err)
	}
	if err := copyLogIfNonEmpty(id, registry.StderrLog, os.Stderr); err != nil {
		cmdutil.Fatalf("%v", err)
	}
	return subcommands.ExitSuccess
}

func copyLogIfNonEmpty(id, name string, dst *os.File) error {
	path, err := registry.LogPath(id, name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err = dst.Write(data)
	return err
}
