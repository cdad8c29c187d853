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
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/7irelo/crate-run/internal/cmdutil"
	"github.com/7irelo/crate-run/internal/registry"
)

// psCmd implements subcommands.Command for "ps".
type psCmd struct{}

func (*psCmd) Name() string           { return "ps" }
func (*psCmd) Synopsis() string       { return "list containers" }
func (*psCmd) Usage() string          { return "ps\n" }
func (*psCmd) SetFlags(*flag.FlagSet) {}

func (*psCmd) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	ids, err := registry.ListContainers()
	if err != nil {
		cmdutil.Fatalf("%v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONTAINER ID\tPID\tSTATUS\tCREATED\tCOMMAND")

	for _, id := range ids {
		meta, err := registry.LoadMeta(id)
		if err != nil {
			cmdutil.Fatalf("loading container %s: %v", id, err)
		}
		if _, err := registry.RefreshStatus(meta); err != nil {
			cmdutil.Fatalf("refreshing status for %s: %v", id, err)
		}

		created := meta.CreatedAt.UTC().Format("2006-01-02 15:04:05") + " UTC"
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", truncate(meta.ID, 16), meta.Pid, meta.Status, created, truncateCommand(meta.Cmd))
	}

	if err := w.Flush(); err != nil {
		cmdutil.Fatalf("writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// truncateCommand space-joins cmd and, if the result is longer than 40
// characters, keeps the first 37 and appends an ellipsis.
func truncateCommand(cmd []string) string {
	joined := strings.Join(cmd, " ")
	if len(joined) <= 40 {
		return joined
	}
	return joined[:37] + "…"
}
