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

// Package cmdutil holds small helpers shared across craterun's CLI
// subcommands.
package cmdutil

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Fatalf prints a formatted error to stderr and exits the process with
// status 1. Subcommands use it for user-facing failures that should not
// print a Go stack trace or usage text.
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "craterun: "+format+"\n", args...)
	os.Exit(1)
}

// InitLogging configures logrus's level and output for the CLI process.
// level may be empty, in which case the default (info) is used.
func InitLogging(level string) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if level == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	logrus.SetLevel(parsed)
}
