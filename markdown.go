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

// Package markdown provides a [CommonMark] parser with the GitHub
// Flavored Markdown and MDX extensions.
// It produces an [mdast]-style syntax tree whose positions point back
// into the source, byte for byte.
//
// [CommonMark]: https://commonmark.org/
// [mdast]: https://github.com/syntax-tree/mdast
package markdown

import "bytes"

// ParseTree parses source and returns its syntax tree.
//
// Malformed markdown degrades to literal text rather than failing:
// the returned error is always a [*ParseError] and can only arise from
// the MDX constructs, whose embedded-language fragments have no
// literal-text fallback, or from a failing external parser hook.
func ParseTree(source []byte, opts *Options) (*Root, error) {
	if bytes.IndexByte(source, 0) >= 0 {
		// Contains one or more NUL bytes.
		// Replace with Unicode replacement character.
		source = bytes.ReplaceAll(source, []byte{0}, []byte("\ufffd"))
	}
	if opts == nil {
		opts = new(Options)
	}
	t := newTokenizer(source, opts)
	if err := t.run(); err != nil {
		return nil, err
	}
	return t.compile(), nil
}
