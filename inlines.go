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
	"unicode"
	"unicode/utf8"

	"github.com/bricef/markdown-rs/internal/entity"
)

// inlineCursor reads bytes from a sequence of source spans,
// hopping over the gaps between them (container prefixes and
// stripped indentation). Offsets remain absolute throughout.
// Copying the cursor checkpoints it; assigning the copy back restores.
type inlineCursor struct {
	src   []byte
	spans []span
	si    int
	pos   int
}

func newInlineCursor(src []byte, spans []span) inlineCursor {
	c := inlineCursor{src: src, spans: spans}
	for c.si < len(spans) && spans[c.si].len() == 0 {
		c.si++
	}
	if c.si < len(spans) {
		c.pos = spans[c.si].start
	} else {
		c.pos = len(src)
	}
	return c
}

// cur returns the byte at the cursor, or -1 at the end of input.
func (c *inlineCursor) cur() int {
	if c.si >= len(c.spans) {
		return -1
	}
	return int(c.src[c.pos])
}

// next advances the cursor by one byte.
func (c *inlineCursor) next() {
	if c.si >= len(c.spans) {
		return
	}
	c.pos++
	for c.pos >= c.spans[c.si].end {
		c.si++
		if c.si >= len(c.spans) {
			return
		}
		c.pos = c.spans[c.si].start
	}
}

// rest returns the bytes remaining in the cursor's current span.
// Multi-byte lookahead never needs to cross a span boundary,
// since boundaries only occur at line endings.
func (c *inlineCursor) rest() []byte {
	if c.si >= len(c.spans) {
		return nil
	}
	return c.src[c.pos:c.spans[c.si].end]
}

func (c *inlineCursor) peekRune() (rune, int) {
	return utf8.DecodeRune(c.rest())
}

// collect copies the bytes from the cursor's position up to the given
// absolute offset, skipping the gaps between spans.
func collect(c inlineCursor, end int) string {
	var sb strings.Builder
	for c.si < len(c.spans) && c.pos < end {
		sb.WriteByte(c.src[c.pos])
		c.next()
	}
	return sb.String()
}

// delimiter is a run of emphasis characters awaiting resolution.
type delimiter struct {
	evIdx    int // index of the run's text chunk enter event
	char     byte
	n        int
	canOpen  bool
	canClose bool
}

// bracket is a pending label start ("[", "![", or "[^").
type bracket struct {
	evIdx       int
	start       int
	image       bool
	footnote    bool
	active      bool
	contentPos  inlineCursor // just after the opener
	delimBottom int
}

// inlineParser tokenizes the text content of one leaf block.
type inlineParser struct {
	t      *tokenizer
	c      inlineCursor
	events []event

	delims   []*delimiter
	brackets []*bracket
	jsxStack []*jsxOpen

	chunkStart int
	prev       rune // previous content rune; line endings count as '\n'
	flow       bool // parsing the content of a JSX flow leaf
}

func newInlineParser(t *tokenizer, spans []span) *inlineParser {
	return &inlineParser{
		t:          t,
		c:          newInlineCursor(t.src, spans),
		chunkStart: -1,
		prev:       '\n',
	}
}

// flush emits the pending text chunk, ending at the given offset.
func (p *inlineParser) flush(end int) {
	if p.chunkStart >= 0 && end > p.chunkStart {
		p.events = append(p.events,
			enterEvent(tokText, p.chunkStart, nil),
			exitEvent(tokText, end, nil))
	}
	p.chunkStart = -1
}

// emitChunk flushes pending text and emits a chunk for [start, end),
// returning the index of its enter event.
func (p *inlineParser) emitChunk(start, end int) int {
	p.flush(start)
	idx := len(p.events)
	p.events = append(p.events,
		enterEvent(tokText, start, nil),
		exitEvent(tokText, end, nil))
	return idx
}

func (p *inlineParser) emitPair(tok token, start, end int, info *nodeInfo) {
	p.events = append(p.events,
		enterEvent(tok, start, info),
		exitEvent(tok, end, info))
}

// text consumes one rune of plain text.
func (p *inlineParser) text() {
	if p.chunkStart < 0 {
		p.chunkStart = p.c.pos
	}
	r, size := p.c.peekRune()
	for i := 0; i < size; i++ {
		p.c.next()
	}
	p.prev = r
}

func (p *inlineParser) parse() {
	con := &p.t.con
	for p.t.err == nil {
		b := p.c.cur()
		if b < 0 {
			break
		}
		switch bb := byte(b); {
		case bb == '\n' || bb == '\r':
			p.lineEnding()
		case bb == '\\':
			p.backslash()
		case bb == '&' && con.CharacterReference:
			p.characterReference()
		case bb == '`' && con.CodeText:
			p.verbatimSpan('`', tokCodeText)
		case bb == '$' && con.MathText:
			p.verbatimSpan('$', tokMathText)
		case bb == '<':
			p.angle()
		case bb == '{' && con.MdxExpressionText:
			p.textExpression()
		case bb == '*' || bb == '_':
			p.delimiterRun(bb)
		case bb == '~' && con.GFMStrikethrough:
			p.delimiterRun(bb)
		case bb == '[':
			p.leftBracket()
		case bb == '!' && con.LabelStartImage && p.peekByte(1) == '[':
			p.openBracket(true, 2)
		case bb == ']':
			p.closeBracket()
		case (bb == 'h' || bb == 'H' || bb == 'w' || bb == 'W') && con.GFMAutolinkLiteral && p.atWordStart():
			if !p.tryLiteralURL() {
				p.text()
			}
		case bb == '@' && con.GFMAutolinkLiteral:
			if !p.tryLiteralEmail() {
				p.text()
			}
		default:
			p.text()
		}
	}
	if p.t.err != nil {
		return
	}
	p.flush(p.c.pos)
	for len(p.jsxStack) > 0 {
		p.closeUnclosedJsx()
		if p.t.err != nil {
			return
		}
	}
	p.resolveAttention(0)
}

// peekByte returns the byte n positions ahead within the current span,
// or -1.
func (p *inlineParser) peekByte(n int) int {
	rest := p.c.rest()
	if n >= len(rest) {
		return -1
	}
	return int(rest[n])
}

func (p *inlineParser) leftBracket() {
	con := &p.t.con
	switch {
	case con.GFMLabelStartFootnote && p.peekByte(1) == '^':
		p.openBracket(false, 2)
		p.brackets[len(p.brackets)-1].footnote = true
	case con.LabelStartLink:
		p.openBracket(false, 1)
	default:
		p.text()
	}
}

func (p *inlineParser) openBracket(image bool, width int) {
	start := p.c.pos
	for i := 0; i < width; i++ {
		p.c.next()
	}
	idx := p.emitChunk(start, start+width)
	p.brackets = append(p.brackets, &bracket{
		evIdx:       idx,
		start:       start,
		image:       image,
		active:      true,
		contentPos:  p.c,
		delimBottom: len(p.delims),
	})
	p.prev = '['
}

// lineEnding handles a line ending inside paragraph-like content:
// a soft break, or a hard break when the line ends in two or more spaces.
func (p *inlineParser) lineEnding() {
	nlStart := p.c.pos
	nlEnd := p.c.spans[p.c.si].end
	wsStart := nlStart
	if p.chunkStart >= 0 {
		for wsStart > p.chunkStart && (p.c.src[wsStart-1] == ' ' || p.c.src[wsStart-1] == '\t') {
			wsStart--
		}
	}
	hard := p.t.con.HardBreakTrailing && p.chunkStart >= 0 && nlStart-wsStart >= 2
	p.flush(wsStart)
	p.consumeLineEnding()
	if hard {
		p.emitPair(tokHardBreak, wsStart, nlEnd, nil)
	} else {
		p.emitPair(tokSoftBreak, nlStart, nlEnd, nil)
	}
	p.prev = '\n'
}

func (p *inlineParser) consumeLineEnding() {
	if p.c.cur() == '\r' {
		p.c.next()
	}
	if p.c.cur() == '\n' {
		p.c.next()
	}
}

func (p *inlineParser) backslash() {
	start := p.c.pos
	save := p.c
	p.c.next()
	b := p.c.cur()
	if (b == '\n' || b == '\r') && p.t.con.HardBreakEscape {
		nlEnd := p.c.spans[p.c.si].end
		p.flush(start)
		p.consumeLineEnding()
		p.emitPair(tokHardBreak, start, nlEnd, nil)
		p.prev = '\n'
		return
	}
	if b >= 0 && isASCIIPunctuation(byte(b)) && p.t.con.CharacterEscape {
		p.flush(start)
		info := &nodeInfo{value: string(byte(b))}
		p.emitPair(tokCharacterEscape, start, start+2, info)
		p.c.next()
		p.prev = rune(byte(b))
		return
	}
	p.c = save
	p.text()
}

func (p *inlineParser) characterReference() {
	start := p.c.pos
	rest := p.c.rest()
	limit := len(rest)
	if limit > 40 {
		limit = 40
	}
	semi := -1
	for i := 1; i < limit; i++ {
		if rest[i] == ';' {
			semi = i
			break
		}
	}
	if semi < 0 {
		p.text()
		return
	}
	decoded, ok := entity.Decode(string(rest[:semi+1]))
	if !ok {
		p.text()
		return
	}
	p.flush(start)
	info := &nodeInfo{value: decoded}
	p.emitPair(tokCharacterReference, start, start+semi+1, info)
	for i := 0; i <= semi; i++ {
		p.c.next()
	}
	p.prev, _ = utf8.DecodeLastRuneInString(decoded)
}

// verbatimSpan parses a [code span] (or the analogous math span):
// a run of markers, verbatim content, and a matching run.
// Line endings in the content become spaces, and one leading plus one
// trailing space is stripped when the content is not all spaces.
//
// [code span]: https://spec.commonmark.org/0.30/#code-spans
func (p *inlineParser) verbatimSpan(marker byte, tok token) {
	start := p.c.pos
	save := p.c
	n := 0
	for p.c.cur() == int(marker) {
		n++
		p.c.next()
	}
	var value []byte
	for {
		b := p.c.cur()
		if b < 0 {
			// No closer: the run is literal text.
			p.c = save
			if p.chunkStart < 0 {
				p.chunkStart = start
			}
			for i := 0; i < n; i++ {
				p.c.next()
			}
			p.prev = rune(marker)
			return
		}
		if byte(b) == marker {
			m := 0
			for p.c.cur() == int(marker) {
				m++
				p.c.next()
			}
			if m == n {
				end := p.c.pos
				p.flush(start)
				info := &nodeInfo{value: stripVerbatim(value)}
				p.emitPair(tok, start, end, info)
				p.prev = rune(marker)
				return
			}
			for i := 0; i < m; i++ {
				value = append(value, marker)
			}
			continue
		}
		switch byte(b) {
		case '\n':
			value = append(value, ' ')
			p.c.next()
		case '\r':
			value = append(value, ' ')
			p.c.next()
			if p.c.cur() == '\n' {
				p.c.next()
			}
		default:
			value = append(value, byte(b))
			p.c.next()
		}
	}
}

func stripVerbatim(value []byte) string {
	allSpaces := true
	for _, b := range value {
		if b != ' ' {
			allSpaces = false
			break
		}
	}
	if !allSpaces && len(value) >= 2 && value[0] == ' ' && value[len(value)-1] == ' ' {
		value = value[1 : len(value)-1]
	}
	return string(value)
}

func (p *inlineParser) angle() {
	start := p.c.pos
	if p.t.con.Autolink && p.tryAutolink() {
		return
	}
	if p.t.con.HTMLText {
		save := p.c
		if end := parseHTMLTag(&p.c); end >= 0 {
			p.flush(start)
			info := &nodeInfo{value: collect(save, end)}
			p.emitPair(tokHTMLText, start, end, info)
			p.prev = '>'
			return
		}
		p.c = save
	}
	if p.t.con.MdxJsxText || p.flow {
		p.jsxTag()
		return
	}
	p.text()
}

// tryAutolink parses an [autolink]: an absolute URI or an email
// address between angle brackets, on a single line.
//
// [autolink]: https://spec.commonmark.org/0.30/#autolinks
func (p *inlineParser) tryAutolink() bool {
	start := p.c.pos
	rest := p.c.rest()
	inner := rest[1:]
	e := autolinkURIEnd(inner)
	mail := false
	if e < 0 {
		e = autolinkEmailEnd(inner)
		mail = true
	}
	if e < 0 || e >= len(inner) || inner[e] != '>' {
		return false
	}
	text := string(inner[:e])
	url := text
	if mail {
		url = "mailto:" + text
	}
	p.flush(start)
	info := &nodeInfo{url: url, value: text}
	p.emitPair(tokAutolink, start, start+e+2, info)
	for i := 0; i < e+2; i++ {
		p.c.next()
	}
	p.prev = '>'
	return true
}

// autolinkURIEnd matches scheme ":" plus non-space characters and
// returns the length of the match, or -1.
func autolinkURIEnd(s []byte) int {
	if len(s) == 0 || !isASCIILetter(s[0]) {
		return -1
	}
	i := 1
	for i < len(s) && (isASCIILetter(s[i]) || isASCIIDigit(s[i]) || s[i] == '+' || s[i] == '.' || s[i] == '-') {
		i++
	}
	if i < 2 || i > 32 || i >= len(s) || s[i] != ':' {
		return -1
	}
	i++
	for i < len(s) {
		b := s[i]
		if b <= ' ' || b == '<' || b == '>' || b == 0x7f {
			break
		}
		i++
	}
	return i
}

// autolinkEmailEnd matches an email address and returns the length of
// the match, or -1.
func autolinkEmailEnd(s []byte) int {
	i := 0
	for i < len(s) && isEmailAtext(s[i]) {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != '@' {
		return -1
	}
	i++
	for {
		labelStart := i
		if i >= len(s) || !isEmailLabelChar(s[i]) || s[i] == '-' {
			return -1
		}
		for i < len(s) && isEmailLabelChar(s[i]) {
			i++
		}
		if s[i-1] == '-' || i-labelStart > 63 {
			return -1
		}
		if i < len(s) && s[i] == '.' {
			i++
			continue
		}
		return i
	}
}

func isEmailAtext(b byte) bool {
	return isASCIILetter(b) || isASCIIDigit(b) ||
		strings.IndexByte(".!#$%&'*+/=?^_`{|}~-", b) >= 0
}

func isEmailLabelChar(b byte) bool {
	return isASCIILetter(b) || isASCIIDigit(b) || b == '-'
}

// delimiterRun records a run of emphasis characters together with its
// [left- and right-flanking] classification.
//
// [left- and right-flanking]: https://spec.commonmark.org/0.30/#left-flanking-delimiter-run
func (p *inlineParser) delimiterRun(ch byte) {
	start := p.c.pos
	n := 0
	for p.c.cur() == int(ch) {
		n++
		p.c.next()
	}
	var after rune = '\n'
	if b := p.c.cur(); b >= 0 && byte(b) != '\n' && byte(b) != '\r' {
		after, _ = p.c.peekRune()
	}
	before := p.prev

	beforeWS := isUnicodeWhitespace(before)
	beforePunct := isUnicodePunct(before)
	afterWS := isUnicodeWhitespace(after)
	afterPunct := isUnicodePunct(after)

	leftFlank := !afterWS && (!afterPunct || beforeWS || beforePunct)
	rightFlank := !beforeWS && (!beforePunct || afterWS || afterPunct)

	var canOpen, canClose bool
	if ch == '_' {
		canOpen = leftFlank && (!rightFlank || beforePunct)
		canClose = rightFlank && (!leftFlank || afterPunct)
	} else {
		canOpen = leftFlank
		canClose = rightFlank
	}

	idx := p.emitChunk(start, start+n)
	if ch != '~' || n <= 2 {
		p.delims = append(p.delims, &delimiter{
			evIdx:    idx,
			char:     ch,
			n:        n,
			canOpen:  canOpen,
			canClose: canClose,
		})
	}
	p.prev = rune(ch)
}

func isUnicodeWhitespace(r rune) bool {
	return r == '\n' || r == '\r' || unicode.IsSpace(r)
}

func isUnicodePunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func (p *inlineParser) atWordStart() bool {
	r := p.prev
	return isUnicodeWhitespace(r) || r == '*' || r == '_' || r == '~' || r == '('
}

// tryLiteralURL parses a [GFM autolink literal] beginning with
// "www.", "http://", or "https://".
//
// [GFM autolink literal]: https://github.github.com/gfm/#autolinks-extension-
func (p *inlineParser) tryLiteralURL() bool {
	start := p.c.pos
	rest := p.c.rest()
	var prefix int
	www := false
	switch {
	case hasCaseInsensitiveBytePrefix(rest, "www."):
		prefix, www = 4, true
	case hasCaseInsensitiveBytePrefix(rest, "http://"):
		prefix = 7
	case hasCaseInsensitiveBytePrefix(rest, "https://"):
		prefix = 8
	default:
		return false
	}
	end := prefix
	for end < len(rest) {
		b := rest[end]
		if b <= ' ' || b == '<' {
			break
		}
		end++
	}
	end = trimLiteralEnd(rest, prefix, end)
	if !validLiteralDomain(rest[prefix:end]) {
		return false
	}
	text := string(rest[:end])
	url := text
	if www {
		url = "http://" + text
	}
	p.flush(start)
	info := &nodeInfo{url: url, value: text}
	p.emitPair(tokAutolink, start, start+end, info)
	for i := 0; i < end; i++ {
		p.c.next()
	}
	p.prev, _ = utf8.DecodeLastRuneInString(text)
	return true
}

// trimLiteralEnd applies GFM's trailing punctuation rules:
// closing punctuation, unbalanced parentheses, and entity-like
// endings do not belong to the autolink.
func trimLiteralEnd(s []byte, start, end int) int {
	for end > start {
		b := s[end-1]
		switch {
		case strings.IndexByte("?!.,:*_~'\"", b) >= 0:
			end--
		case b == ')':
			open, close := 0, 0
			for _, c := range s[start:end] {
				switch c {
				case '(':
					open++
				case ')':
					close++
				}
			}
			if close <= open {
				return end
			}
			end--
		case b == ';':
			// Possible entity reference such as "&copy;".
			i := end - 1
			for i > start && (isASCIILetter(s[i-1]) || isASCIIDigit(s[i-1])) {
				i--
			}
			if i > start && s[i-1] == '&' {
				end = i - 1
			} else {
				return end
			}
		default:
			return end
		}
	}
	return end
}

// validLiteralDomain checks the domain part of an autolink literal:
// there must be a dot, and the last two segments must not contain
// underscores.
func validLiteralDomain(s []byte) bool {
	domainEnd := len(s)
	for i, b := range s {
		if b == '/' || b == '?' || b == '#' {
			domainEnd = i
			break
		}
	}
	domain := s[:domainEnd]
	if len(domain) == 0 {
		return false
	}
	dots := 0
	segmentUnderscore := false
	prevSegmentUnderscore := false
	for _, b := range domain {
		if b == '.' {
			dots++
			prevSegmentUnderscore = segmentUnderscore
			segmentUnderscore = false
			continue
		}
		if b == '_' {
			segmentUnderscore = true
		}
	}
	return dots > 0 && !segmentUnderscore && !prevSegmentUnderscore
}

// tryLiteralEmail parses a GFM email autolink literal.
// The user part has already been consumed as pending text;
// the cursor is at '@'.
func (p *inlineParser) tryLiteralEmail() bool {
	if p.chunkStart < 0 {
		return false
	}
	at := p.c.pos
	userStart := at
	for userStart > p.chunkStart {
		b := p.c.src[userStart-1]
		if !(isASCIILetter(b) || isASCIIDigit(b) || b == '.' || b == '-' || b == '_' || b == '+') {
			break
		}
		userStart--
	}
	if userStart == at {
		return false
	}
	rest := p.c.rest()
	i := 1 // skip '@'
	dots := 0
	for i < len(rest) && (isEmailLabelChar(rest[i]) || rest[i] == '_' || rest[i] == '.') {
		if rest[i] == '.' {
			dots++
		}
		i++
	}
	// The last character must be alphanumeric,
	// and there must be a dot in the domain.
	for i > 1 && !(isASCIILetter(rest[i-1]) || isASCIIDigit(rest[i-1])) {
		if rest[i-1] == '.' {
			dots--
		}
		i--
	}
	if i <= 1 || dots < 1 {
		return false
	}
	end := at + i
	text := string(p.c.src[userStart:end])
	p.flush(userStart)
	info := &nodeInfo{url: "mailto:" + text, value: text}
	p.emitPair(tokAutolink, userStart, end, info)
	for p.c.si < len(p.c.spans) && p.c.pos < end {
		p.c.next()
	}
	p.prev, _ = utf8.DecodeLastRuneInString(text)
	return true
}

// textExpression parses an MDX expression in text position:
// a balanced group of braces, possibly spanning lines.
func (p *inlineParser) textExpression() {
	start := p.c.pos
	value, stops, end, ok := p.scanExpression()
	if !ok {
		return
	}
	p.flush(start)
	if hook := p.t.opts.MdxExpressionParse; hook != nil {
		if err := hook(value, MdxExpressionIndependent, stops); err != nil {
			p.t.err = p.t.hookError(err, stops, end-1)
			return
		}
	}
	info := &nodeInfo{value: value, stops: stops}
	p.emitPair(tokMdxTextExpression, start, end, info)
	p.prev = '}'
}

// scanExpression consumes a brace-balanced expression starting at '{'.
// It returns the interior value, the stops mapping value indexes back
// to document offsets, and the offset just past the closing brace.
// Reaching the end of input is a fatal error.
func (p *inlineParser) scanExpression() (value string, stops []Stop, end int, ok bool) {
	var sb strings.Builder
	p.c.next() // consume '{'
	if p.c.si < len(p.c.spans) {
		stops = append(stops, Stop{Index: 0, Offset: p.c.pos})
	}
	depth := 1
	for {
		b := p.c.cur()
		if b < 0 {
			p.t.err = &ParseError{
				Point:   p.t.pos.point(p.c.pos),
				Message: "Unexpected end of file in expression, expected a corresponding closing brace for `{`",
			}
			return "", nil, 0, false
		}
		switch byte(b) {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = p.c.pos + 1
				p.c.next()
				return sb.String(), stops, end, true
			}
		}
		prev := p.c.pos
		sb.WriteByte(byte(b))
		p.c.next()
		if p.c.si < len(p.c.spans) && p.c.pos != prev+1 {
			stops = append(stops, Stop{Index: sb.Len(), Offset: p.c.pos})
		}
	}
}

// closeBracket resolves a ']' against the bracket stack:
// a footnote reference, an inline link or image, a reference, or
// failing all of those, literal text.
func (p *inlineParser) closeBracket() {
	pos := p.c.pos
	var b *bracket
	bi := -1
	for i := len(p.brackets) - 1; i >= 0; i-- {
		if p.brackets[i].active {
			b, bi = p.brackets[i], i
			break
		}
	}
	if b == nil {
		p.text()
		return
	}
	// An opener outside the innermost JSX element cannot pair with a
	// closer inside it; the resulting events would not nest.
	if n := len(p.jsxStack); n > 0 && b.evIdx < p.jsxStack[n-1].evIdx {
		p.text()
		return
	}
	p.flush(pos)
	rawLabel := collect(b.contentPos, pos)
	p.c.next() // consume ']'

	if b.footnote {
		id := normalizeIdentifier(rawLabel)
		if rawLabel != "" && p.t.footnotes[id] {
			p.events = p.events[:b.evIdx]
			p.dropDelims(b.delimBottom)
			info := &nodeInfo{identifier: id, label: decodeString(rawLabel), hasLabel: true}
			p.emitPair(tokFootnoteReference, b.start, pos+1, info)
		} else {
			p.chunkStart = pos
		}
		p.brackets = p.brackets[:bi]
		p.prev = ']'
		return
	}

	info := &nodeInfo{checked: -1}
	inline := false
	isRef := false
	end := pos + 1
	if p.c.cur() == '(' {
		save := p.c
		if url, title, hasTitle, resEnd, ok := p.parseResource(); ok {
			info.url, info.title, info.hasTitle = url, title, hasTitle
			inline = true
			end = resEnd
		} else {
			p.c = save
		}
	}
	if !inline && p.c.cur() == '[' {
		save := p.c
		if raw, labelEnd, ok := parseLinkLabel(&p.c); ok {
			ident := raw
			kind := ReferenceFull
			if raw == "" {
				ident = rawLabel
				kind = ReferenceCollapsed
			}
			id := normalizeIdentifier(ident)
			if p.t.defs[id] {
				info.refKind = kind
				info.identifier = id
				info.label = decodeString(ident)
				info.hasLabel = true
				isRef = true
				end = labelEnd
			} else {
				p.c = save
			}
		} else {
			p.c = save
		}
	}
	if !inline && !isRef {
		id := normalizeIdentifier(rawLabel)
		if rawLabel != "" && p.t.defs[id] {
			info.refKind = ReferenceShortcut
			info.identifier = id
			info.label = decodeString(rawLabel)
			info.hasLabel = true
			isRef = true
			end = pos + 1
		}
	}
	if !inline && !isRef {
		p.brackets = p.brackets[:bi]
		p.chunkStart = pos
		p.prev = ']'
		return
	}

	p.resolveAttention(b.delimBottom)
	var tok token
	switch {
	case b.image && inline:
		tok = tokImage
	case b.image:
		tok = tokImageReference
	case inline:
		tok = tokLink
	default:
		tok = tokLinkReference
	}
	if b.image {
		info.alt = altFromEvents(p.t.src, p.events[b.evIdx+2:])
		p.events = p.events[:b.evIdx]
		p.emitPair(tok, b.start, end, info)
	} else {
		p.events[b.evIdx] = enterEvent(tok, b.start, info)
		copy(p.events[b.evIdx+1:], p.events[b.evIdx+2:])
		p.events = p.events[:len(p.events)-1]
		p.events = append(p.events, exitEvent(tok, end, info))
		for _, earlier := range p.brackets[:bi] {
			if !earlier.image {
				earlier.active = false
			}
		}
	}
	p.brackets = p.brackets[:bi]
	p.prev = ']'
	if inline {
		p.prev = ')'
	}
}

// dropDelims removes delimiters at or above the given stack bottom.
func (p *inlineParser) dropDelims(bottom int) {
	if bottom < len(p.delims) {
		p.delims = p.delims[:bottom]
	}
}

// parseResource parses an inline link [resource]:
// "(" destination (whitespace title)? ")".
//
// [resource]: https://spec.commonmark.org/0.30/#links
func (p *inlineParser) parseResource() (url, title string, hasTitle bool, end int, ok bool) {
	c := &p.c
	c.next() // consume '('
	skipLinkSpace(c)
	if c.cur() == ')' {
		end = c.pos + 1
		c.next()
		return "", "", false, end, true
	}
	rawDest, destOK := parseLinkDestination(c)
	if !destOK {
		return "", "", false, 0, false
	}
	url = decodeString(rawDest)
	n := skipLinkSpace(c)
	if b := c.cur(); n > 0 && (b == '"' || b == '\'' || b == '(') {
		rawTitle, titleOK := parseLinkTitle(c)
		if !titleOK {
			return "", "", false, 0, false
		}
		title = decodeString(rawTitle)
		hasTitle = true
		skipLinkSpace(c)
	}
	if c.cur() != ')' {
		return "", "", false, 0, false
	}
	end = c.pos + 1
	c.next()
	return url, title, hasTitle, end, true
}

// skipLinkSpace skips whitespace, including line endings,
// and returns the number of bytes skipped.
func skipLinkSpace(c *inlineCursor) int {
	n := 0
	for {
		b := c.cur()
		if b < 0 || !isSpaceTabOrLineEnding(byte(b)) {
			return n
		}
		c.next()
		n++
	}
}

// parseLinkLabel parses a [link label] starting at '[',
// returning the raw text between the brackets and the offset just
// past the closing bracket.
//
// [link label]: https://spec.commonmark.org/0.30/#link-label
func parseLinkLabel(c *inlineCursor) (raw string, end int, ok bool) {
	if c.cur() != '[' {
		return "", 0, false
	}
	c.next()
	var sb strings.Builder
	n := 0
	for {
		b := c.cur()
		if b < 0 || n > 999 {
			return "", 0, false
		}
		switch byte(b) {
		case ']':
			end = c.pos + 1
			c.next()
			return sb.String(), end, true
		case '[':
			return "", 0, false
		case '\\':
			sb.WriteByte('\\')
			c.next()
			if b2 := c.cur(); b2 >= 0 && isASCIIPunctuation(byte(b2)) {
				sb.WriteByte(byte(b2))
				c.next()
				n++
			}
		default:
			sb.WriteByte(byte(b))
			c.next()
		}
		n++
	}
}

// parseLinkDestination parses a [link destination],
// either angle-bracketed or bare with balanced parentheses.
// The returned value is raw; escapes and references are still encoded.
//
/// [link destination]: https://spec.commonmark.org/0.30/#link-destination
func parseLinkDestination(c *inlineCursor) (raw string, ok bool) {
	var sb strings.Builder
	if c.cur() == '<' {
		c.next()
		for {
			b := c.cur()
			if b < 0 {
				return "", false
			}
			switch byte(b) {
			case '>':
				c.next()
				return sb.String(), true
			case '<', '\n', '\r':
				return "", false
			case '\\':
				sb.WriteByte('\\')
				c.next()
				if b2 := c.cur(); b2 >= 0 && isASCIIPunctuation(byte(b2)) {
					sb.WriteByte(byte(b2))
					c.next()
				}
			default:
				sb.WriteByte(byte(b))
				c.next()
			}
		}
	}
	depth := 0
	for {
		b := c.cur()
		if b < 0 {
			break
		}
		bb := byte(b)
		if bb <= ' ' || bb == 0x7f {
			break
		}
		if bb == '(' {
			depth++
		}
		if bb == ')' {
			if depth == 0 {
				break
			}
			depth--
		}
		if bb == '\\' {
			sb.WriteByte('\\')
			c.next()
			if b2 := c.cur(); b2 >= 0 && isASCIIPunctuation(byte(b2)) {
				sb.WriteByte(byte(b2))
				c.next()
			}
			continue
		}
		sb.WriteByte(bb)
		c.next()
	}
	if sb.Len() == 0 || depth != 0 {
		return "", false
	}
	return sb.String(), true
}

// parseLinkTitle parses a [link title] in quotes or parentheses.
// The returned value is raw; escapes and references are still encoded.
//
// [link title]: https://spec.commonmark.org/0.30/#link-title
func parseLinkTitle(c *inlineCursor) (raw string, ok bool) {
	open := c.cur()
	if open < 0 {
		return "", false
	}
	var closer byte
	switch byte(open) {
	case '"', '\'':
		closer = byte(open)
	case '(':
		closer = ')'
	default:
		return "", false
	}
	c.next()
	var sb strings.Builder
	for {
		b := c.cur()
		if b < 0 {
			return "", false
		}
		bb := byte(b)
		switch {
		case bb == closer:
			c.next()
			return sb.String(), true
		case byte(open) == '(' && bb == '(':
			return "", false
		case bb == '\\':
			sb.WriteByte('\\')
			c.next()
			if b2 := c.cur(); b2 >= 0 && isASCIIPunctuation(byte(b2)) {
				sb.WriteByte(byte(b2))
				c.next()
			}
		default:
			sb.WriteByte(bb)
			c.next()
		}
	}
}

// altFromEvents flattens inline events into the plain-text alt of an
// image or footnote: literal text with escapes and references decoded,
// verbatim spans by value, and breaks as newlines.
// Text chunk enter events are immediately followed by their exits.
func altFromEvents(src []byte, events []event) string {
	var sb strings.Builder
	for i := 0; i < len(events); i++ {
		ev := events[i]
		if ev.kind != enter {
			continue
		}
		switch ev.tok {
		case tokText:
			if i+1 < len(events) {
				sb.Write(src[ev.start:events[i+1].end])
			}
		case tokCharacterEscape, tokCharacterReference, tokCodeText, tokMathText, tokAutolink:
			sb.WriteString(ev.info.value)
		case tokSoftBreak, tokHardBreak:
			sb.WriteByte('\n')
		case tokImage, tokImageReference:
			sb.WriteString(ev.info.alt)
		}
	}
	return sb.String()
}

// extractDefinitions peels [link reference definitions] off the front
// of a paragraph's content, emitting definition events and registering
// the identifiers. It returns the remaining content spans.
//
// [link reference definitions]: https://spec.commonmark.org/0.30/#link-reference-definitions
func (t *tokenizer) extractDefinitions(spans []span) []span {
	c := newInlineCursor(t.src, spans)
	for {
		save := c
		if !t.parseDefinition(&c) {
			c = save
			break
		}
	}
	if c.si >= len(c.spans) {
		return nil
	}
	out := []span{{start: c.pos, end: spans[c.si].end}}
	out = append(out, spans[c.si+1:]...)
	return out
}

func (t *tokenizer) parseDefinition(c *inlineCursor) bool {
	start := c.pos
	if c.cur() != '[' {
		return false
	}
	rawLabel, _, ok := parseLinkLabel(c)
	if !ok || strings.Trim(rawLabel, " \t\r\n") == "" {
		return false
	}
	if c.cur() != ':' {
		return false
	}
	c.next()
	if !skipDefinitionSpace(c) {
		return false
	}
	rawDest, ok := parseLinkDestination(c)
	if !ok {
		return false
	}
	destEnd := c.pos
	afterDest := *c

	title := ""
	hasTitle := false
	end := destEnd
	if n, spaceOK := skipDefinitionSpaceCount(c); spaceOK && n > 0 {
		if b := c.cur(); b == '"' || b == '\'' || b == '(' {
			if rawTitle, titleOK := parseLinkTitle(c); titleOK && atLineEnd(c) {
				title = decodeString(rawTitle)
				hasTitle = true
				end = c.pos
			}
		}
	}
	if !hasTitle {
		*c = afterDest
		if !atLineEnd(c) {
			return false
		}
	}
	consumeRestOfLine(c)

	id := normalizeIdentifier(rawLabel)
	if !t.defs[id] {
		t.defs[id] = true
	}
	info := &nodeInfo{
		url:        decodeString(rawDest),
		title:      title,
		hasTitle:   hasTitle,
		identifier: id,
		label:      decodeString(rawLabel),
		hasLabel:   true,
		checked:    -1,
	}
	t.events = append(t.events,
		enterEvent(tokDefinition, start, info),
		exitEvent(tokDefinition, end, info))
	return true
}

// skipDefinitionSpace skips spaces, tabs, and at most one line ending.
func skipDefinitionSpace(c *inlineCursor) bool {
	_, ok := skipDefinitionSpaceCount(c)
	return ok
}

func skipDefinitionSpaceCount(c *inlineCursor) (int, bool) {
	n := 0
	newlines := 0
	for {
		b := c.cur()
		if b < 0 {
			return n, true
		}
		switch byte(b) {
		case ' ', '\t':
			n++
			c.next()
		case '\n':
			newlines++
			if newlines > 1 {
				return n, false
			}
			n++
			c.next()
		case '\r':
			newlines++
			if newlines > 1 {
				return n, false
			}
			n++
			c.next()
			if c.cur() == '\n' {
				c.next()
			}
		default:
			return n, true
		}
	}
}

// atLineEnd reports whether only spaces and tabs remain before the
// next line ending or the end of input.
func atLineEnd(c *inlineCursor) bool {
	probe := *c
	for {
		b := probe.cur()
		if b < 0 || byte(b) == '\n' || byte(b) == '\r' {
			return true
		}
		if byte(b) != ' ' && byte(b) != '\t' {
			return false
		}
		probe.next()
	}
}

func consumeRestOfLine(c *inlineCursor) {
	for {
		b := c.cur()
		if b < 0 {
			return
		}
		switch byte(b) {
		case '\n':
			c.next()
			return
		case '\r':
			c.next()
			if c.cur() == '\n' {
				c.next()
			}
			return
		default:
			c.next()
		}
	}
}

// expandInlines replaces the buffered content spans of inline leaves
// with text-level events. It runs after the block phase so every
// definition in the document is known.
func (t *tokenizer) expandInlines() {
	src := t.events
	out := make([]event, 0, len(src)+16)
	for i := 0; i < len(src); i++ {
		ev := src[i]
		if ev.kind != enter || ev.info == nil || len(ev.info.spans) == 0 {
			out = append(out, ev)
			continue
		}
		switch ev.tok {
		case tokParagraph, tokHeading, tokTableCell:
			out = append(out, ev)
			p := newInlineParser(t, ev.info.spans)
			p.parse()
			if t.err != nil {
				return
			}
			out = append(out, p.events...)
			i++
			out = append(out, src[i])
		case tokMdxJsxFlowElement:
			p := newInlineParser(t, ev.info.spans)
			i++
			p.parseJsxFlow(ev, src[i])
			if t.err != nil {
				return
			}
			out = append(out, p.events...)
		default:
			out = append(out, ev)
		}
	}
	t.events = out
}
