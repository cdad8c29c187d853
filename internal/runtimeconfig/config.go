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

// Package runtimeconfig loads craterun's optional ambient configuration
// file: host-wide defaults that are never required for correct operation,
// only convenience overrides of values the CLI would otherwise hardcode or
// require flags for.
package runtimeconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where craterun looks for its configuration file absent an
// override.
const DefaultPath = "/etc/craterun/config.toml"

// EnvOverride is the environment variable that overrides DefaultPath.
const EnvOverride = "CRATERUN_CONFIG"

// Config is craterun's optional host-wide configuration. Every field has a
// meaningful zero value, so a missing config file is equivalent to every
// field being unset.
type Config struct {
	// DefaultHostname overrides the hostname assigned to containers that
	// don't specify one.
	DefaultHostname string `toml:"default_hostname"`
	// LogLevel sets the logrus level craterun logs at ("debug", "info",
	// "warn", "error"). Empty means the built-in default (info).
	LogLevel string `toml:"log_level"`
}

// Load reads the configuration file at the path named by EnvOverride, or
// DefaultPath if that variable is unset. A missing file is not an error:
// Load returns the zero Config. A present-but-malformed file is.
func Load() (*Config, error) {
	path := DefaultPath
	if override, ok := os.LookupEnv(EnvOverride); ok && override != "" {
		path = override
	}

	var cfg Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration file %s: %w", path, err)
	}
	return &cfg, nil
}
