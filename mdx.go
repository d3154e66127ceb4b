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
	"unicode/utf8"
)

// jsxOpen is an open JSX element awaiting its closing tag.
type jsxOpen struct {
	evIdx         int
	tok           token
	name          string
	named         bool
	start         int
	delimBottom   int
	bracketBottom int
	info          *nodeInfo
}

// isJsxNameStart reports whether r can start a JSX identifier.
func isJsxNameStart(r rune) bool {
	return r == '$' || r == '_' || unicode.IsLetter(r)
}

// isJsxNameCont reports whether r can continue a JSX identifier.
// JSX additionally allows dashes, which is how custom element names
// are written.
func isJsxNameCont(r rune) bool {
	return isJsxNameStart(r) ||
		r == '-' || r == 0x200c || r == 0x200d ||
		unicode.In(r, unicode.Nd, unicode.Mn, unicode.Mc, unicode.Pc)
}

// startsJsxFlow reports whether a line's text could open a JSX element
// in flow position: "<" followed by a tag.
func startsJsxFlow(rest []byte) bool {
	if len(rest) < 2 || rest[0] != '<' {
		return false
	}
	if rest[1] == '/' || rest[1] == '>' {
		return true
	}
	r, _ := utf8.DecodeRune(rest[1:])
	return isJsxNameStart(r)
}

// Expectation phrases shared by the tag diagnostics.
const (
	jsxExpectNameStart  = "a character that can start a name, such as a letter, `$`, or `_`"
	jsxExpectNameCont   = "a name character such as letters, digits, `$`, or `_`; whitespace before attributes; or the end of the tag"
	jsxExpectAttrStart  = "a character that can start an attribute name, such as a letter, `$`, or `_`; whitespace before attributes; or the end of the tag"
	jsxExpectAttrOrEq   = "a character that can start an attribute name, such as a letter, `$`, or `_`; `=` to initialize a value; or the end of the tag"
	jsxExpectAttrCont   = "an attribute name character such as letters, digits, `$`, or `_`; `=` to initialize a value; whitespace before attributes; or the end of the tag"
	jsxExpectValueStart = "a character that can start an attribute value, such as `\"`, `'`, or `{`"

	jsxNoteComment  = "to create a comment in MDX, use `{/* text */}`"
	jsxNoteJS       = "JS comments in JSX tags are not supported in MDX"
	jsxNoteLink     = "to create a link in MDX, use `[text](url)`"
	jsxNotePropElem = "to use an element or fragment as a prop value in MDX, use `{<element />}`"
)

// jsxCrash reports a fatal error at the cursor, in the style
// "Unexpected character `x` (U+0078) <where>, expected <expected>".
func (p *inlineParser) jsxCrash(where, expected, note string) {
	var msg string
	if p.c.cur() < 0 {
		msg = fmt.Sprintf("Unexpected end of file %s, expected %s", where, expected)
	} else {
		r, _ := p.c.peekRune()
		msg = fmt.Sprintf("Unexpected character %s %s, expected %s", charName(r), where, expected)
	}
	p.t.err = &ParseError{
		Point:   p.t.pos.point(p.c.pos),
		Message: msg,
		Note:    note,
	}
}

func (p *inlineParser) skipJsxSpace() {
	for {
		b := p.c.cur()
		if b < 0 || !isSpaceTabOrLineEnding(byte(b)) {
			return
		}
		p.c.next()
	}
}

// jsxName consumes a run of identifier characters.
func (p *inlineParser) jsxName() string {
	save := p.c
	for p.c.cur() >= 0 {
		r, size := p.c.peekRune()
		if !isJsxNameCont(r) {
			break
		}
		for i := 0; i < size; i++ {
			p.c.next()
		}
	}
	return collect(save, p.c.pos)
}

// jsxTag parses a JSX tag with the cursor on "<". A "<" followed by
// markdown whitespace is not a tag and falls through to plain text;
// past that point any violation of the tag grammar is fatal.
func (p *inlineParser) jsxTag() {
	start := p.c.pos
	save := p.c
	p.c.next() // consume '<'
	if b := p.c.cur(); b < 0 || isSpaceTabOrLineEnding(byte(b)) {
		p.c = save
		p.text()
		return
	}

	closing := false
	slashPos := -1
	if p.c.cur() == '/' {
		closing = true
		slashPos = p.c.pos
		p.c.next()
		p.skipJsxSpace()
	}

	name, named, ok := p.jsxTagName(closing)
	if !ok {
		return
	}

	var attrs []AttributeContent
	selfClosing := false
	end := -1
	if p.c.cur() == '>' && !named {
		// Fragment: no attributes.
		end = p.c.pos + 1
		p.c.next()
	} else {
		attrs, selfClosing, end, ok = p.jsxAttributes(name, named)
		if !ok {
			return
		}
	}

	switch {
	case closing:
		p.jsxClose(start, end, slashPos, name, named)
	case selfClosing:
		p.flush(start)
		tok := tokMdxJsxTextElement
		if p.flow && len(p.jsxStack) == 0 {
			tok = tokMdxJsxFlowElement
		}
		info := &nodeInfo{name: name, named: named, attrs: attrs}
		p.emitPair(tok, start, end, info)
		p.prev = '>'
	default:
		p.flush(start)
		tok := tokMdxJsxTextElement
		if p.flow && len(p.jsxStack) == 0 {
			tok = tokMdxJsxFlowElement
		}
		info := &nodeInfo{name: name, named: named, attrs: attrs}
		p.events = append(p.events, enterEvent(tok, start, info))
		p.jsxStack = append(p.jsxStack, &jsxOpen{
			evIdx:         len(p.events) - 1,
			tok:           tok,
			name:          name,
			named:         named,
			start:         start,
			delimBottom:   len(p.delims),
			bracketBottom: len(p.brackets),
			info:          info,
		})
		p.prev = '>'
	}
}

// jsxTagName parses the tag name: a fragment (empty), a primary name,
// member names ("a.b.c"), or a local name ("a:b").
func (p *inlineParser) jsxTagName(closing bool) (name string, named bool, ok bool) {
	if p.c.cur() == '>' {
		return "", false, true
	}
	r, _ := p.c.peekRune()
	if p.c.cur() < 0 || !isJsxNameStart(r) {
		note := ""
		switch r {
		case '!':
			note = jsxNoteComment
		case '/':
			note = jsxNoteJS
		}
		p.jsxCrash("before name", jsxExpectNameStart, note)
		return "", false, false
	}
	name = p.jsxName()
	if !p.jsxNameBoundary(".:/>{") {
		note := ""
		if p.c.cur() == '@' {
			note = jsxNoteLink
		}
		p.jsxCrash("in name", jsxExpectNameCont, note)
		return "", false, false
	}

	sawMember, sawLocal := false, false
	for {
		p.skipJsxSpace()
		switch p.c.cur() {
		case '.':
			if sawLocal {
				p.jsxCrash("after local name", jsxExpectAttrStart, "")
				return "", false, false
			}
			p.c.next()
			p.skipJsxSpace()
			r, _ := p.c.peekRune()
			if p.c.cur() < 0 || !isJsxNameStart(r) {
				p.jsxCrash("before member name", jsxExpectAttrStart, "")
				return "", false, false
			}
			name += "." + p.jsxName()
			if !p.jsxNameBoundary("./>{") {
				note := ""
				if p.c.cur() == '@' {
					note = jsxNoteLink
				}
				p.jsxCrash("in member name", jsxExpectNameCont, note)
				return "", false, false
			}
			sawMember = true
		case ':':
			if sawMember {
				p.jsxCrash("after member name", jsxExpectAttrStart, "")
				return "", false, false
			}
			if sawLocal {
				p.jsxCrash("after local name", jsxExpectAttrStart, "")
				return "", false, false
			}
			p.c.next()
			p.skipJsxSpace()
			r, _ := p.c.peekRune()
			if p.c.cur() < 0 || !isJsxNameStart(r) {
				note := ""
				if p.c.cur() == '+' || p.c.cur() == '/' {
					note = jsxNoteLink
				}
				p.jsxCrash("before local name", jsxExpectNameStart, note)
				return "", false, false
			}
			name += ":" + p.jsxName()
			if !p.jsxNameBoundary("/>{") {
				p.jsxCrash("in local name", jsxExpectNameCont, "")
				return "", false, false
			}
			sawLocal = true
		default:
			return name, true, true
		}
	}
}

// jsxNameBoundary reports whether the character ending a name run is a
// legal follower: whitespace or one of the given delimiters.
func (p *inlineParser) jsxNameBoundary(delims string) bool {
	b := p.c.cur()
	if b < 0 {
		return true // EOF reported by the next state
	}
	return isSpaceTabOrLineEnding(byte(b)) || strings.IndexByte(delims, byte(b)) >= 0
}

// jsxAttributes parses the attribute list and the end of the tag.
// The diagnostic context shifts as the tag advances: an unexpected
// character directly after the tag name reads "after name", later ones
// read "before attribute name".
func (p *inlineParser) jsxAttributes(name string, named bool) (attrs []AttributeContent, selfClosing bool, end int, ok bool) {
	ctx := "before attribute name"
	if named {
		switch {
		case strings.ContainsRune(name, ':'):
			ctx = "after local name"
		case strings.ContainsRune(name, '.'):
			ctx = "after member name"
		default:
			ctx = "after name"
		}
	}
	for {
		p.skipJsxSpace()
		b := p.c.cur()
		switch {
		case b == '/':
			p.c.next()
			p.skipJsxSpace()
			if p.c.cur() != '>' {
				note := ""
				if p.c.cur() == '/' {
					note = jsxNoteJS
				}
				p.jsxCrash("after self-closing slash", "`>` to end the tag", note)
				return nil, false, 0, false
			}
			end = p.c.pos + 1
			p.c.next()
			return attrs, true, end, true
		case b == '>':
			end = p.c.pos + 1
			p.c.next()
			return attrs, false, end, true
		case b == '{':
			expr, ok := p.jsxExpression(MdxExpressionSpread)
			if !ok {
				return nil, false, 0, false
			}
			attrs = append(attrs, AttributeContent{Expression: expr})
			ctx = "before attribute name"
		default:
			r, _ := p.c.peekRune()
			if b < 0 || !isJsxNameStart(r) {
				p.jsxCrash(ctx, jsxExpectAttrStart, "")
				return nil, false, 0, false
			}
			attr, ok := p.jsxAttribute()
			if !ok {
				return nil, false, 0, false
			}
			attrs = append(attrs, attr)
			ctx = "before attribute name"
		}
	}
}

// jsxAttribute parses one named attribute, optionally qualified
// ("xml:lang") and optionally initialized ("a", "a=\"b\"", "a={b}").
func (p *inlineParser) jsxAttribute() (AttributeContent, bool) {
	name := p.jsxName()
	if !p.jsxNameBoundary(":=/>{") {
		p.jsxCrash("in attribute name", jsxExpectAttrCont, "")
		return AttributeContent{}, false
	}
	p.skipJsxSpace()
	afterCtx := "after attribute name"
	if p.c.cur() == ':' {
		p.c.next()
		p.skipJsxSpace()
		r, _ := p.c.peekRune()
		if p.c.cur() < 0 || !isJsxNameStart(r) {
			p.jsxCrash("before local attribute name", jsxExpectAttrOrEq, "")
			return AttributeContent{}, false
		}
		name += ":" + p.jsxName()
		if !p.jsxNameBoundary("=/>{") {
			p.jsxCrash("in local attribute name", jsxExpectAttrCont, "")
			return AttributeContent{}, false
		}
		p.skipJsxSpace()
		afterCtx = "after local attribute name"
	}
	if p.c.cur() != '=' {
		b := p.c.cur()
		if b >= 0 {
			r, _ := p.c.peekRune()
			if b == '/' || b == '>' || b == '{' || isJsxNameStart(r) {
				return AttributeContent{Property: &MdxJsxAttribute{Name: name}}, true
			}
		}
		p.jsxCrash(afterCtx, jsxExpectAttrOrEq, "")
		return AttributeContent{}, false
	}
	p.c.next() // consume '='
	p.skipJsxSpace()
	value, ok := p.jsxAttributeValue()
	if !ok {
		return AttributeContent{}, false
	}
	return AttributeContent{Property: &MdxJsxAttribute{Name: name, Value: value}}, true
}

func (p *inlineParser) jsxAttributeValue() (*AttributeValue, bool) {
	switch b := p.c.cur(); {
	case b == '"' || b == '\'':
		quote := byte(b)
		p.c.next()
		save := p.c
		for {
			q := p.c.cur()
			if q < 0 {
				p.t.err = &ParseError{
					Point: p.t.pos.point(p.c.pos),
					Message: "Unexpected end of file in attribute value, expected a corresponding closing quote " +
						charName(rune(quote)),
				}
				return nil, false
			}
			if byte(q) == quote {
				break
			}
			p.c.next()
		}
		raw := collect(save, p.c.pos)
		p.c.next() // closing quote
		literal := decodeJsxValue(raw)
		return &AttributeValue{Literal: &literal}, true
	case b == '{':
		expr, ok := p.jsxExpression(MdxExpressionValue)
		if !ok {
			return nil, false
		}
		return &AttributeValue{Expression: expr}, true
	default:
		note := ""
		if b == '<' {
			note = jsxNotePropElem
		}
		p.jsxCrash("before attribute value", jsxExpectValueStart, note)
		return nil, false
	}
}

// jsxExpression parses a braced expression in a tag and runs the
// expression hook with the given kind.
func (p *inlineParser) jsxExpression(kind MdxExpressionKind) (*AttributeExpression, bool) {
	value, stops, end, ok := p.scanExpression()
	if !ok {
		return nil, false
	}
	if hook := p.t.opts.MdxExpressionParse; hook != nil {
		if err := hook(value, kind, stops); err != nil {
			p.t.err = p.t.hookError(err, stops, end-1)
			return nil, false
		}
	}
	return &AttributeExpression{Value: value, Stops: stops}, true
}

// decodeJsxValue resolves character references in a JSX attribute
// value. Backslashes are not special inside tags.
func decodeJsxValue(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '&' {
			if decoded, size, ok := matchReference(s[i:]); ok {
				sb.WriteString(decoded)
				i += size - 1
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// jsxClose resolves a closing tag against the element stack.
// Attention inside the element is resolved before the element exits so
// the emitted events nest.
func (p *inlineParser) jsxClose(start, end, slashPos int, name string, named bool) {
	if len(p.jsxStack) == 0 {
		p.t.err = &ParseError{
			Point:   p.t.pos.point(slashPos),
			Message: "Unexpected closing slash `/` in tag, expected an open tag first",
		}
		return
	}
	top := p.jsxStack[len(p.jsxStack)-1]
	if top.named != named || top.name != name {
		openPt := p.t.pos.point(top.start)
		p.t.err = &ParseError{
			Point: p.t.pos.point(start),
			Message: fmt.Sprintf("Unexpected closing tag `%s`, expected corresponding closing tag for `%s` (%d:%d)",
				jsxTagString(name, named, true), jsxTagString(top.name, top.named, false),
				openPt.Line, openPt.Column),
		}
		return
	}
	p.jsxStack = p.jsxStack[:len(p.jsxStack)-1]
	p.flush(start)
	p.resolveAttention(top.delimBottom)
	if len(p.brackets) > top.bracketBottom {
		p.brackets = p.brackets[:top.bracketBottom]
	}
	p.events = append(p.events, exitEvent(top.tok, end, top.info))
	p.prev = '>'
}

// closeUnclosedJsx reports the innermost element still open when its
// containing construct ends.
func (p *inlineParser) closeUnclosedJsx() {
	top := p.jsxStack[len(p.jsxStack)-1]
	p.jsxStack = p.jsxStack[:len(p.jsxStack)-1]
	container := "paragraph"
	if top.tok == tokMdxJsxFlowElement {
		container = "document"
	}
	openPt := p.t.pos.point(top.start)
	p.t.err = &ParseError{
		Point: p.t.pos.point(p.c.pos),
		Message: fmt.Sprintf("Expected a closing tag for `%s` (%d:%d) before the end of `%s`",
			jsxTagString(top.name, top.named, false), openPt.Line, openPt.Column, container),
	}
}

func jsxTagString(name string, named, closing bool) string {
	var sb strings.Builder
	sb.WriteByte('<')
	if closing {
		sb.WriteByte('/')
	}
	if named {
		sb.WriteString(name)
	}
	sb.WriteByte('>')
	return sb.String()
}

// parseJsxFlow tokenizes the buffered content of a JSX flow leaf.
// The leaf must reduce to a single element; outside it only blank text
// is allowed.
func (p *inlineParser) parseJsxFlow(enterEv, exitEv event) {
	spans := enterEv.info.spans
	p.flow = true
	p.parse()
	if p.t.err != nil {
		return
	}
	out := make([]event, 0, len(p.events))
	depth := 0
	rootSeen := false
	for i := 0; i < len(p.events); i++ {
		ev := p.events[i]
		if ev.kind == enter && depth == 0 {
			if ev.tok == tokMdxJsxFlowElement && !rootSeen {
				rootSeen = true
			} else if ev.tok == tokText && ev.info == nil {
				junk, blank := blankSpanRange(p.t.src, spans, ev.start, p.events[i+1].end)
				if !blank {
					p.jsxFlowJunk(junk)
					return
				}
				i++ // skip the whitespace chunk's exit as well
				continue
			} else if ev.tok == tokSoftBreak || ev.tok == tokHardBreak {
				i++
				continue
			} else {
				p.jsxFlowJunk(ev.start)
				return
			}
		}
		if ev.kind == enter {
			depth++
		} else {
			depth--
		}
		out = append(out, ev)
	}
	if !rootSeen {
		p.jsxFlowJunk(enterEv.start)
		return
	}
	out[0].start = enterEv.start
	out[len(out)-1].end = exitEv.end
	p.events = out
}

func (p *inlineParser) jsxFlowJunk(pos int) {
	r, _ := utf8.DecodeRune(p.t.src[pos:])
	p.t.err = &ParseError{
		Point:   p.t.pos.point(pos),
		Message: fmt.Sprintf("Unexpected character %s after element, expected a line ending", charName(r)),
	}
}

// blankSpanRange scans the [start, end) portion of the given spans and
// returns the offset of the first non-whitespace byte, if any.
func blankSpanRange(src []byte, spans []span, start, end int) (junk int, blank bool) {
	for _, s := range spans {
		lo, hi := s.start, s.end
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		for i := lo; i < hi; i++ {
			if !isSpaceTabOrLineEnding(src[i]) {
				return i, false
			}
		}
	}
	return 0, true
}
