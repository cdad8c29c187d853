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
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"shorter than limit", "abc123", 16, "abc123"},
		{"exactly at limit", "0123456789abcdef", 16, "0123456789abcdef"},
		{"longer than limit", "0123456789abcdef0123", 16, "0123456789abcdef"},
		{"empty string", "", 16, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := truncate(c.s, c.n); got != c.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", c.s, c.n, got, c.want)
			}
		})
	}
}

func TestTruncateCommand(t *testing.T) {
	exactly40 := strings.Repeat("x", 40)
	exactly41 := strings.Repeat("y", 41)

	cases := []struct {
		name string
		cmd  []string
		want string
	}{
		{
			name: "short command unchanged",
			cmd:  []string{"/bin/sh", "-c", "echo hi"},
			want: "/bin/sh -c echo hi",
		},
		{
			name: "exactly 40 characters unchanged",
			cmd:  []string{exactly40},
			want: exactly40,
		},
		{
			name: "41 characters truncated to 37 plus ellipsis",
			cmd:  []string{exactly41},
			want: strings.Repeat("y", 37) + "…",
		},
		{
			name: "joined length over 40 truncated with ellipsis",
			cmd:  []string{"/bin/sh", "-c", "a very long command line that exceeds the forty character budget"},
			want: "/bin/sh -c a very long command line t" + "…",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := truncateCommand(c.cmd); got != c.want {
				t.Errorf("truncateCommand(%v) = %q, want %q", c.cmd, got, c.want)
			}
		})
	}
}
