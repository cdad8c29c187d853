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

// Package id generates and validates craterun container identifiers.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Length is the number of hex characters in a container ID (8 random bytes).
const Length = 16

// Generate returns a fresh 16-character lowercase hex container ID drawn
// from a cryptographic random source. Two calls collide with probability
// at most 2^-64.
func Generate() (string, error) {
	buf := make([]byte, Length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating container id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidatePrefix reports whether s is a syntactically valid container ID
// prefix: 1 to Length lowercase hex characters.
func ValidatePrefix(s string) bool {
	if len(s) == 0 || len(s) > Length {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
