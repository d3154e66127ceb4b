// Copyright 2023 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package entity decodes HTML character references
// the way the CommonMark grammar requires:
// named references must be complete (ampersand through semicolon),
// numeric references are capped at the Unicode code space,
// and U+0000 decodes to the replacement character.
package entity

import (
	"strings"

	"golang.org/x/net/html"
)

// maxNamedLength bounds the scan for a named reference.
// The longest HTML5 entity name is "CounterClockwiseContourIntegral" (31).
const maxNamedLength = 32

// Named decodes a complete named character reference such as "&amp;".
// The candidate must include the leading ampersand and trailing semicolon.
func Named(candidate string) (string, bool) {
	if len(candidate) < 3 || candidate[0] != '&' || candidate[len(candidate)-1] != ';' {
		return "", false
	}
	name := candidate[1 : len(candidate)-1]
	if len(name) > maxNamedLength {
		return "", false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return "", false
		}
	}
	decoded := html.UnescapeString(candidate)
	if decoded == candidate {
		return "", false
	}
	return decoded, true
}

// Numeric decodes a numeric character reference such as "&#35;" or "&#xCAB;".
// The candidate must include the leading "&#" and trailing semicolon.
func Numeric(candidate string) (string, bool) {
	if len(candidate) < 4 || !strings.HasPrefix(candidate, "&#") || candidate[len(candidate)-1] != ';' {
		return "", false
	}
	digits := candidate[2 : len(candidate)-1]
	base := 10
	if len(digits) > 0 && (digits[0] == 'x' || digits[0] == 'X') {
		base = 16
		digits = digits[1:]
	}
	maxDigits := 7
	if base == 16 {
		maxDigits = 6
	}
	if len(digits) == 0 || len(digits) > maxDigits {
		return "", false
	}
	var n int
	for i := 0; i < len(digits); i++ {
		d := digitValue(digits[i], base)
		if d < 0 {
			return "", false
		}
		n = n*base + d
	}
	return string(sanitizeRune(n)), true
}

// Decode decodes any complete character reference, named or numeric.
func Decode(candidate string) (string, bool) {
	if strings.HasPrefix(candidate, "&#") {
		return Numeric(candidate)
	}
	return Named(candidate)
}

func digitValue(c byte, base int) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case base == 16 && 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case base == 16 && 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}

// sanitizeRune maps out-of-range and surrogate code points
// (and NUL, which Markdown forbids) to U+FFFD.
func sanitizeRune(n int) rune {
	if n <= 0 || n > 0x10FFFF || (n >= 0xD800 && n <= 0xDFFF) {
		return '�'
	}
	return rune(n)
}
