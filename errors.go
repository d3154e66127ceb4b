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

package markdown

import (
	"fmt"
	"strings"
	"unicode"
)

// A ParseError is a fatal parse error.
// It points at the first character that made the input unrecoverable
// under the active construct set.
type ParseError struct {
	Point   Point
	Message string
	// Note optionally suggests the construct the author likely intended,
	// for common confusions such as HTML comments in MDX.
	Note string
}

// Error formats the error as "line:column: message",
// optionally followed by a parenthetical note.
func (e *ParseError) Error() string {
	sb := new(strings.Builder)
	fmt.Fprintf(sb, "%d:%d: %s", e.Point.Line, e.Point.Column, e.Message)
	if e.Note != "" {
		fmt.Fprintf(sb, " (note: %s)", e.Note)
	}
	return sb.String()
}

// An OffsetError can be returned by the embedded-language parser hooks
// to report a syntax error at a byte offset relative to the fragment
// they were handed.
// The tokenizer translates the offset into document coordinates
// using the fragment's stops.
type OffsetError struct {
	Offset  int
	Message string
}

func (e *OffsetError) Error() string {
	return e.Message
}

// charName renders a character the way diagnostics expect:
// printable ASCII as "`c` (U+XXXX)", anything else as "U+XXXX".
func charName(r rune) string {
	switch {
	case r == '`':
		return "`` ` `` (U+0060)"
	case r > ' ' && r < unicode.MaxASCII:
		return fmt.Sprintf("`%c` (U+%04X)", r, r)
	default:
		return fmt.Sprintf("U+%04X", r)
	}
}
