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

import "bytes"

// tabStopSize is the multiple of columns that a [tab] advances to.
//
// [tab]: https://spec.commonmark.org/0.30/#tabs
const tabStopSize = 4

// codeBlockIndentLimit is the column width of an indent
// required to start an indented code block.
const codeBlockIndentLimit = 4

// line is one line of input: [start, textEnd) is the text,
// [textEnd, end) the line ending.
type line struct {
	start, textEnd, end int
}

// lineCursor is a cursor on a line of text,
// used while splitting a document into blocks.
// tabpos tracks the column position within a partially consumed tab.
type lineCursor struct {
	src    []byte
	ln     line
	i      int // byte offset within [ln.start, ln.textEnd]
	tabpos int8
}

func newLineCursor(src []byte, ln line) *lineCursor {
	return &lineCursor{src: src, ln: ln, i: ln.start}
}

// bytes returns the text bytes remaining in the line,
// not including the line ending.
func (c *lineCursor) bytes() []byte {
	if c.i >= c.ln.textEnd {
		return nil
	}
	return c.src[c.i:c.ln.textEnd]
}

// advance advances the cursor by n bytes.
// It panics if n is greater than the number of bytes remaining in the line.
func (c *lineCursor) advance(n int) {
	newIndex := c.i + n
	if newIndex > c.ln.textEnd {
		panic("markdown: cursor advanced out of bounds")
	}
	c.i = newIndex
	c.tabpos = 0
}

// indent returns the number of columns of whitespace
// present after the cursor's position.
func (c *lineCursor) indent() int {
	if c.i >= c.ln.textEnd {
		return 0
	}
	var indent int
	switch c.src[c.i] {
	case ' ':
		indent = 1
	case '\t':
		indent = tabStopSize - int(c.tabpos)
	default:
		return 0
	}
	for _, b := range c.src[c.i+1 : c.ln.textEnd] {
		switch b {
		case ' ':
			indent++
		case '\t':
			indent += tabStopSize
		default:
			return indent
		}
	}
	return indent
}

// consumeIndent advances the cursor by n columns of whitespace.
// It panics if n is greater than c.indent().
func (c *lineCursor) consumeIndent(n int) {
	for n > 0 {
		switch {
		case c.i < c.ln.textEnd && c.src[c.i] == ' ':
			n--
			c.i++
		case c.i < c.ln.textEnd && c.src[c.i] == '\t':
			if n < tabStopSize-int(c.tabpos) {
				c.tabpos += int8(n)
				return
			}
			n -= tabStopSize - int(c.tabpos)
			c.i++
			c.tabpos = 0
		default:
			panic("markdown: consumed past end of indent")
		}
	}
}

// blank reports whether the rest of the line is whitespace only.
func (c *lineCursor) blank() bool {
	return isBlankLine(c.bytes())
}

func trimIndent(line []byte) []byte {
	return bytes.TrimLeft(line, " \t")
}

func isBlankLine(line []byte) bool {
	for _, b := range line {
		if !(b == '\r' || b == '\n' || b == ' ' || b == '\t') {
			return false
		}
	}
	return true
}

// isEndEscaped reports whether s ends with an odd number of backslashes.
func isEndEscaped(s []byte) bool {
	n := 0
	for ; n < len(s); n++ {
		if s[len(s)-n-1] != '\\' {
			break
		}
	}
	return n%2 == 1
}

func isSpaceTabOrLineEnding(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isASCIILetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isASCIIDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isASCIIPunctuation(c byte) bool {
	return '!' <= c && c <= '/' ||
		':' <= c && c <= '@' ||
		'[' <= c && c <= '`' ||
		'{' <= c && c <= '~'
}

// parseThematicBreak attempts to parse the line as a [thematic break].
// It returns the end of the thematic break characters
// or -1 if the line is not a thematic break.
// parseThematicBreak assumes that the caller has stripped any leading indentation.
//
// [thematic break]: https://spec.commonmark.org/0.30/#thematic-breaks
func parseThematicBreak(line []byte) (end int) {
	n := 0
	var want byte
	for i, b := range line {
		switch b {
		case '-', '_', '*':
			if n == 0 {
				want = b
			} else if b != want {
				return -1
			}
			n++
			end = i + 1
		case ' ', '\t', '\r', '\n':
			// Ignore
		default:
			return -1
		}
	}
	if n < 3 {
		return -1
	}
	return end
}

type atxHeading struct {
	level        int // 1-6
	contentStart int
	contentEnd   int
}

// parseATXHeading attempts to parse the line as an [ATX heading].
// The level is zero if the line is not an ATX heading.
// parseATXHeading assumes that the caller has stripped any leading indentation.
//
// [ATX heading]: https://spec.commonmark.org/0.30/#atx-headings
func parseATXHeading(line []byte) atxHeading {
	var h atxHeading
	for h.level < len(line) && line[h.level] == '#' {
		h.level++
	}
	if h.level == 0 || h.level > 6 {
		return atxHeading{}
	}

	// Consume required whitespace before heading.
	i := h.level
	if i >= len(line) || line[i] == '\n' || line[i] == '\r' {
		h.contentStart = i
		h.contentEnd = i
		return h
	}
	if !(line[i] == ' ' || line[i] == '\t') {
		return atxHeading{}
	}
	i++

	// Advance past leading whitespace.
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	h.contentStart = i

	// Find end of heading line. Skip past trailing spaces.
	h.contentEnd = len(line)
	hitHash := false
scanBack:
	for ; h.contentEnd > h.contentStart; h.contentEnd-- {
		switch line[h.contentEnd-1] {
		case '\r', '\n':
			// Skip past EOL.
		case ' ', '\t':
			if isEndEscaped(line[:h.contentEnd-1]) {
				break scanBack
			}
		case '#':
			hitHash = true
			break scanBack
		default:
			break scanBack
		}
	}
	if !hitHash {
		return h
	}

	// We've encountered one hashmark '#'.
	// Consume all of them, unless they are preceded by a space or tab.
scanTrailingHashes:
	for i := h.contentEnd - 1; ; i-- {
		if i <= h.contentStart {
			h.contentEnd = h.contentStart
			break
		}
		switch line[i] {
		case '#':
			// Keep going.
		case ' ', '\t':
			h.contentEnd = i + 1
			break scanTrailingHashes
		default:
			return h
		}
	}
	// We've hit the end of hashmarks. Trim trailing whitespace.
	for ; h.contentEnd > h.contentStart; h.contentEnd-- {
		if b := line[h.contentEnd-1]; !(b == ' ' || b == '\t') || isEndEscaped(line[:h.contentEnd-1]) {
			break
		}
	}
	return h
}

// parseBlockQuote attempts to parse a [block quote marker] from the beginning of the line.
// It returns the end of the block quote marker
// or -1 if the line does not begin with the marker.
// parseBlockQuote assumes that the caller has stripped any leading indentation.
//
// [block quote marker]: https://spec.commonmark.org/0.30/#block-quote-marker
func parseBlockQuote(line []byte) (end int) {
	if len(line) == 0 || line[0] != '>' {
		return -1
	}
	if len(line) > 1 && line[1] == ' ' {
		return 2
	}
	return 1
}

type codeFence struct {
	char      byte // '`' or '~'
	length    int
	infoStart int
	infoEnd   int
}

// parseCodeFence attempts to parse the line as an opening [code fence].
// The length is zero if the line is not a fence.
// parseCodeFence assumes that the caller has stripped any leading indentation.
//
// [code fence]: https://spec.commonmark.org/0.30/#code-fence
func parseCodeFence(line []byte) codeFence {
	if len(line) == 0 || (line[0] != '`' && line[0] != '~') {
		return codeFence{}
	}
	f := codeFence{char: line[0]}
	for f.length < len(line) && line[f.length] == f.char {
		f.length++
	}
	if f.length < 3 {
		return codeFence{}
	}
	info := bytes.TrimRight(line[f.length:], " \t\r\n")
	if f.char == '`' && bytes.IndexByte(info, '`') >= 0 {
		// Info strings of backtick fences cannot contain backticks.
		return codeFence{}
	}
	f.infoStart = f.length
	for f.infoStart < len(line) && (line[f.infoStart] == ' ' || line[f.infoStart] == '\t') {
		f.infoStart++
	}
	f.infoEnd = f.length + len(bytes.TrimRight(line[f.length:], " \t\r\n"))
	if f.infoStart > f.infoEnd {
		f.infoStart = f.infoEnd
	}
	return f
}

// parseClosingCodeFence reports whether the line closes a fence
// opened with the given character and length.
func parseClosingCodeFence(line []byte, char byte, length int) bool {
	line = trimIndent(line)
	n := 0
	for n < len(line) && line[n] == char {
		n++
	}
	if n < length {
		return false
	}
	return isBlankLine(line[n:])
}

// parseMathFence attempts to parse the line as an opening [math fence]:
// two or more dollar signs followed by optional metadata.
func parseMathFence(line []byte) codeFence {
	if len(line) == 0 || line[0] != '$' {
		return codeFence{}
	}
	f := codeFence{char: '$'}
	for f.length < len(line) && line[f.length] == '$' {
		f.length++
	}
	if f.length < 2 {
		return codeFence{}
	}
	rest := bytes.TrimRight(line[f.length:], " \t\r\n")
	if bytes.IndexByte(rest, '$') >= 0 {
		return codeFence{}
	}
	f.infoStart = f.length
	for f.infoStart < len(line) && (line[f.infoStart] == ' ' || line[f.infoStart] == '\t') {
		f.infoStart++
	}
	f.infoEnd = f.length + len(rest)
	if f.infoStart > f.infoEnd {
		f.infoStart = f.infoEnd
	}
	return f
}

type listMarker struct {
	width      int // bytes of the marker itself
	ordered    bool
	start      int  // first ordinal for ordered lists
	marker     byte // bullet character, or ordinal terminator
	blankAfter bool // no content follows the marker on this line
	padding    int  // columns between marker and content
}

// parseListMarker attempts to parse a [list marker] from the beginning of the line.
// parseListMarker assumes that the caller has stripped any leading indentation;
// rest is the remainder of the line after the marker candidate.
//
// [list marker]: https://spec.commonmark.org/0.30/#list-marker
func parseListMarker(line []byte) (listMarker, bool) {
	var m listMarker
	switch {
	case len(line) == 0:
		return listMarker{}, false
	case line[0] == '-' || line[0] == '+' || line[0] == '*':
		m.marker = line[0]
		m.width = 1
	case isASCIIDigit(line[0]):
		i := 0
		for i < len(line) && isASCIIDigit(line[i]) {
			if i >= 9 {
				return listMarker{}, false
			}
			m.start = m.start*10 + int(line[i]-'0')
			i++
		}
		if i >= len(line) || (line[i] != '.' && line[i] != ')') {
			return listMarker{}, false
		}
		m.ordered = true
		m.marker = line[i]
		m.width = i + 1
	default:
		return listMarker{}, false
	}

	rest := line[m.width:]
	if isBlankLine(rest) {
		m.blankAfter = true
		m.padding = 1
		return m, true
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return listMarker{}, false
	}
	cols := 0
	for _, b := range rest {
		switch b {
		case ' ':
			cols++
		case '\t':
			cols += tabStopSize
		default:
			b = 0
		}
		if b == 0 {
			break
		}
	}
	if cols > 4 {
		// The content is indented code; it begins one column
		// after the marker.
		m.padding = 1
	} else {
		m.padding = cols
	}
	return m, true
}

// parseSetextUnderline attempts to parse the line as a [setext heading underline].
// It returns the heading depth (1 for '=', 2 for '-') or zero.
//
// [setext heading underline]: https://spec.commonmark.org/0.30/#setext-heading-underline
func parseSetextUnderline(line []byte) (depth int) {
	if len(line) == 0 {
		return 0
	}
	ch := line[0]
	if ch != '=' && ch != '-' {
		return 0
	}
	n := 0
	for n < len(line) && line[n] == ch {
		n++
	}
	if !isBlankLine(line[n:]) {
		return 0
	}
	if ch == '=' {
		return 1
	}
	return 2
}

// parseDelimiterRow attempts to parse the line as a [GFM table delimiter row].
// It returns one alignment per column.
//
// [GFM table delimiter row]: https://github.github.com/gfm/#delimiter-row
func parseDelimiterRow(line []byte) ([]AlignKind, bool) {
	line = bytes.TrimRight(trimIndent(line), " \t\r\n")
	if len(line) == 0 || bytes.IndexByte(line, '|') < 0 {
		return nil, false
	}
	if line[0] == '|' {
		line = line[1:]
	}
	if len(line) > 0 && line[len(line)-1] == '|' {
		line = line[:len(line)-1]
	}
	var align []AlignKind
	for _, cell := range bytes.Split(line, []byte("|")) {
		cell = bytes.TrimSpace(cell)
		if len(cell) == 0 {
			return nil, false
		}
		a := AlignNone
		if cell[0] == ':' {
			a = AlignLeft
			cell = cell[1:]
		}
		if len(cell) > 0 && cell[len(cell)-1] == ':' {
			if a == AlignLeft {
				a = AlignCenter
			} else {
				a = AlignRight
			}
			cell = cell[:len(cell)-1]
		}
		if len(cell) == 0 {
			return nil, false
		}
		for _, b := range cell {
			if b != '-' {
				return nil, false
			}
		}
		align = append(align, a)
	}
	if len(align) == 0 {
		return nil, false
	}
	return align, true
}

// splitTableRow splits a table row line into cell spans.
// Pipes escaped with a backslash do not delimit cells.
// Offsets are absolute; leading and trailing cell whitespace is trimmed.
func splitTableRow(src []byte, start, textEnd int) []span {
	i := start
	// Skip leading whitespace and an optional leading pipe.
	for i < textEnd && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	if i < textEnd && src[i] == '|' {
		i++
	}
	end := textEnd
	for end > i && (src[end-1] == ' ' || src[end-1] == '\t') {
		end--
	}
	if end > i && src[end-1] == '|' && !isEndEscaped(src[i:end-1]) {
		end--
	}
	var cells []span
	cellStart := i
	for j := i; j <= end; j++ {
		if j == end || (src[j] == '|' && !isEndEscaped(src[cellStart:j])) {
			s, e := cellStart, j
			for s < e && (src[s] == ' ' || src[s] == '\t') {
				s++
			}
			for e > s && (src[e-1] == ' ' || src[e-1] == '\t') {
				e--
			}
			cells = append(cells, span{start: s, end: e})
			cellStart = j + 1
		}
	}
	return cells
}

// parseFootnoteLabel attempts to parse a [GFM footnote definition label]
// ("[^label]:") from the beginning of the line.
// It returns the raw label span relative to line and the end of the marker.
//
// [GFM footnote definition label]: https://github.github.com/gfm/#footnotes
func parseFootnoteLabel(line []byte) (labelStart, labelEnd, end int, ok bool) {
	if len(line) < 5 || line[0] != '[' || line[1] != '^' {
		return 0, 0, 0, false
	}
	i := 2
	for ; ; i++ {
		if i >= len(line) {
			return 0, 0, 0, false
		}
		switch line[i] {
		case ']':
			if i == 2 {
				return 0, 0, 0, false
			}
			if i+1 >= len(line) || line[i+1] != ':' {
				return 0, 0, 0, false
			}
			return 2, i, i + 2, true
		case '[', '\n', '\r':
			return 0, 0, 0, false
		case '\\':
			i++
		}
	}
}
