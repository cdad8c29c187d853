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

package id

import "testing"

func TestGenerateLengthAndAlphabet(t *testing.T) {
	got, err := Generate()
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if len(got) != Length {
		t.Fatalf("Generate() = %q, want length %d", got, Length)
	}
	for _, c := range got {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Fatalf("Generate() = %q, contains non-hex or uppercase char %q", got, c)
		}
	}
}

func TestGenerateIsUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		got, err := Generate()
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		if seen[got] {
			t.Fatalf("Generate() produced duplicate ID %q after %d calls", got, i)
		}
		seen[got] = true
	}
}

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"empty", "", false},
		{"uppercase", "ABCD", false},
		{"mixed case", "aB12", false},
		{"too long", "0123456789abcdef0", false},
		{"non hex", "zzzz", false},
		{"single char", "a", true},
		{"full length", "0123456789abcdef", true},
		{"typical prefix", "ab12", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePrefix(tt.in); got != tt.want {
				t.Errorf("ValidatePrefix(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
