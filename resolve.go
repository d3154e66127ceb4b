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
	"strings"

	"github.com/bricef/markdown-rs/internal/entity"
	"golang.org/x/text/cases"
)

// normalizeIdentifier performs [matching] on a label:
// interior whitespace collapses to a single space, the ends are
// trimmed, and the result is Unicode case-folded.
//
// [matching]: https://spec.commonmark.org/0.30/#matches
func normalizeIdentifier(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return cases.Fold().String(strings.Join(parts, " "))
}

// decodeString resolves backslash escapes and character references in
// a raw slice of source, such as a link destination or title.
func decodeString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && isASCIIPunctuation(s[i+1]) {
				sb.WriteByte(s[i+1])
				i++
				continue
			}
			sb.WriteByte('\\')
		case '&':
			if decoded, size, ok := matchReference(s[i:]); ok {
				sb.WriteString(decoded)
				i += size - 1
				continue
			}
			sb.WriteByte('&')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func matchReference(s string) (decoded string, size int, ok bool) {
	limit := len(s)
	if limit > 40 {
		limit = 40
	}
	for j := 1; j < limit; j++ {
		if s[j] == ';' {
			if decoded, ok := entity.Decode(s[:j+1]); ok {
				return decoded, j + 1, true
			}
			return "", 0, false
		}
	}
	return "", 0, false
}

// resolveAttention pairs emphasis delimiters above the given stack
// bottom and splices emphasis, strong, and strikethrough events into
// the stream, consuming the paired marker characters.
// It follows the classic two-stack algorithm with openers-bottom
// optimization and the [rule of three] for multiples.
//
// [rule of three]: https://spec.commonmark.org/0.30/#emphasis-and-strong-emphasis
func (p *inlineParser) resolveAttention(bottom int) {
	var openersBottom [3][3]int
	for i := range openersBottom {
		for j := range openersBottom[i] {
			openersBottom[i][j] = bottom
		}
	}

	closerIdx := bottom
	for closerIdx < len(p.delims) {
		closer := p.delims[closerIdx]
		if !closer.canClose {
			closerIdx++
			continue
		}
		ci := attentionCharIndex(closer.char)
		floor := openersBottom[ci][closer.n%3]
		openerIdx := -1
		for j := closerIdx - 1; j >= floor; j-- {
			o := p.delims[j]
			if o.char == closer.char && o.canOpen && isAttentionMatch(o, closer) {
				openerIdx = j
				break
			}
		}
		if openerIdx < 0 {
			openersBottom[ci][closer.n%3] = closerIdx
			if !closer.canOpen {
				p.removeDelim(closerIdx)
			} else {
				closerIdx++
			}
			continue
		}
		opener := p.delims[openerIdx]

		var use int
		var tok token
		if closer.char == '~' {
			use = closer.n
			tok = tokDelete
		} else {
			use = 1
			tok = tokEmphasis
			if opener.n >= 2 && closer.n >= 2 {
				use = 2
				tok = tokStrong
			}
		}

		openerExit := &p.events[opener.evIdx+1]
		emphStart := openerExit.end - use
		openerExit.end -= use
		opener.n -= use

		closerEnter := &p.events[closer.evIdx]
		emphEnd := closerEnter.start + use
		closerEnter.start += use
		closer.n -= use

		info := &nodeInfo{}
		p.insertEvent(opener.evIdx+2, event{kind: enter, tok: tok, start: emphStart, end: -1, info: info})
		p.insertEvent(closer.evIdx, event{kind: exit, tok: tok, start: -1, end: emphEnd, info: info})

		// Delimiters between the opener and closer can never pair.
		for closerIdx > openerIdx+1 {
			p.removeDelim(openerIdx + 1)
			closerIdx--
		}
		if opener.n == 0 {
			p.removeEvents(opener.evIdx, 2)
			p.removeDelim(openerIdx)
			closerIdx--
		}
		if closer.n == 0 {
			p.removeEvents(closer.evIdx, 2)
			p.removeDelim(closerIdx)
		}
	}
	p.delims = p.delims[:bottom]
}

func attentionCharIndex(ch byte) int {
	switch ch {
	case '*':
		return 0
	case '_':
		return 1
	default:
		return 2
	}
}

// isAttentionMatch reports whether an opener/closer pair is allowed.
// Strikethrough runs must be the same length; emphasis follows the
// rule of three for runs that can both open and close.
func isAttentionMatch(opener, closer *delimiter) bool {
	if opener.char == '~' {
		return opener.n == closer.n && opener.n <= 2
	}
	if (opener.canClose || closer.canOpen) &&
		(opener.n+closer.n)%3 == 0 &&
		(opener.n%3 != 0 || closer.n%3 != 0) {
		return false
	}
	return true
}

func (p *inlineParser) removeDelim(i int) {
	p.delims = append(p.delims[:i], p.delims[i+1:]...)
}

// insertEvent splices an event into the stream at idx,
// keeping delimiter, bracket, and element indexes valid.
func (p *inlineParser) insertEvent(idx int, ev event) {
	p.events = append(p.events, event{})
	copy(p.events[idx+1:], p.events[idx:])
	p.events[idx] = ev
	for _, d := range p.delims {
		if d.evIdx >= idx {
			d.evIdx++
		}
	}
	for _, b := range p.brackets {
		if b.evIdx >= idx {
			b.evIdx++
		}
	}
	for _, j := range p.jsxStack {
		if j.evIdx >= idx {
			j.evIdx++
		}
	}
}

// removeEvents deletes count events starting at idx,
// keeping delimiter, bracket, and element indexes valid.
func (p *inlineParser) removeEvents(idx, count int) {
	p.events = append(p.events[:idx], p.events[idx+count:]...)
	for _, d := range p.delims {
		if d.evIdx > idx {
			d.evIdx -= count
		}
	}
	for _, b := range p.brackets {
		if b.evIdx > idx {
			b.evIdx -= count
		}
	}
	for _, j := range p.jsxStack {
		if j.evIdx > idx {
			j.evIdx -= count
		}
	}
}
