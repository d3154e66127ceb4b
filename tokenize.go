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
	"bytes"
	"errors"
	"strings"
)

// tokenizer splits a document into an event stream.
// The first phase works line by line and handles the block structure:
// containers (block quotes, lists, footnote definitions) and leaves.
// Leaf content is buffered as source spans and expanded into text-level
// events by a second phase once all definitions are known.
type tokenizer struct {
	src  []byte
	con  Constructs
	opts *Options
	pos  *positioner

	events     []event
	containers []*openContainer
	leaf       *openLeaf

	defs      map[string]bool
	footnotes map[string]bool

	err *ParseError
}

// openContainer is a block on the container stack.
type openContainer struct {
	tok  token
	info *nodeInfo

	// list items and footnote definitions
	contentIndent int
	marker        byte
	ordered       bool

	lastEnd    int  // end offset of the last line that contributed content
	blankOpen  bool // the opening line had no content after the marker
	hasContent bool
	sawBlank   bool // a blank line occurred since the last content
}

// openLeaf is the innermost open block, always a child of the
// innermost container (or the document).
type openLeaf struct {
	tok   token
	info  *nodeInfo
	start int
	end   int

	// spans is the buffered content, one span per line.
	// Inline leaves (paragraph, table, JSX) keep the line ending bytes;
	// verbatim leaves (code, math, HTML, frontmatter) do not.
	spans []span

	blanks []span // pending blank lines inside indented code

	fenceChar   byte
	fenceLen    int
	fenceIndent int

	htmlKind int

	braceDepth  int
	closeOffset int // offset of the closing brace of a flow expression
}

func newTokenizer(src []byte, opts *Options) *tokenizer {
	return &tokenizer{
		src:       src,
		con:       opts.constructs(),
		opts:      opts,
		pos:       newPositioner(src),
		defs:      make(map[string]bool),
		footnotes: make(map[string]bool),
	}
}

func (t *tokenizer) run() error {
	for start := 0; start < len(t.src); {
		textEnd := start
		for textEnd < len(t.src) && t.src[textEnd] != '\n' && t.src[textEnd] != '\r' {
			textEnd++
		}
		end := textEnd
		if end < len(t.src) {
			if t.src[end] == '\r' && end+1 < len(t.src) && t.src[end+1] == '\n' {
				end += 2
			} else {
				end++
			}
		}
		t.blockLine(line{start: start, textEnd: textEnd, end: end})
		if t.err != nil {
			return t.err
		}
		start = end
	}
	t.finish()
	if t.err != nil {
		return t.err
	}
	t.expandInlines()
	if t.err != nil {
		return t.err
	}
	return nil
}

func (t *tokenizer) blockLine(ln line) {
	c := newLineCursor(t.src, ln)
	matched := 0
	for matched < len(t.containers) {
		if !t.containerContinues(c, t.containers[matched]) {
			break
		}
		matched++
	}
	allMatched := matched == len(t.containers)

	if allMatched && t.leaf != nil && leafAcceptsRaw(t.leaf.tok) {
		if t.rawLine(c) {
			t.markContent(ln)
			return
		}
		// The leaf ended before this line; keep interpreting it.
	}

	if !allMatched {
		// Lazy continuation: a paragraph absorbs the line if the line
		// could not begin any other kind of block.
		if t.leaf != nil && t.leaf.tok == tokParagraph && !c.blank() && !t.lineStartsNewBlock(c) {
			t.addParagraphLine(c)
			t.markContent(ln)
			return
		}
		t.closeContainers(matched)
	}

	if c.blank() {
		t.closeLeaf()
		for _, oc := range t.containers {
			if oc.hasContent {
				oc.sawBlank = true
			}
		}
		return
	}

	t.openBlocks(c)
	if t.err == nil {
		t.markContent(ln)
	}
}

// containerContinues reports whether the line continues the container,
// consuming the container's prefix from the cursor if so.
func (t *tokenizer) containerContinues(c *lineCursor, oc *openContainer) bool {
	switch oc.tok {
	case tokBlockQuote:
		ind := c.indent()
		if ind >= codeBlockIndentLimit {
			return false
		}
		rest := trimIndent(c.bytes())
		n := parseBlockQuote(rest)
		if n < 0 {
			return false
		}
		c.consumeIndent(ind)
		c.advance(n)
		return true
	case tokList:
		// The list's fate is decided by its items.
		return true
	case tokListItem, tokFootnoteDefinition:
		if c.blank() {
			return !oc.blankOpen || oc.hasContent
		}
		if c.indent() < oc.contentIndent {
			return false
		}
		c.consumeIndent(oc.contentIndent)
		oc.blankOpen = false
		return true
	default:
		panic("markdown: unknown container")
	}
}

// markContent records that the line contributed content to every open block.
func (t *tokenizer) markContent(ln line) {
	for _, oc := range t.containers {
		if oc.blankOpen {
			continue
		}
		if oc.sawBlank {
			oc.info.spread = true
			oc.sawBlank = false
		}
		oc.hasContent = true
		oc.lastEnd = ln.textEnd
	}
	if t.leaf != nil {
		t.leaf.end = ln.textEnd
	}
}

func (t *tokenizer) topContainer() *openContainer {
	if len(t.containers) == 0 {
		return nil
	}
	return t.containers[len(t.containers)-1]
}

// closeContainers closes the leaf and every container above index n.
func (t *tokenizer) closeContainers(n int) {
	t.closeLeaf()
	for len(t.containers) > n {
		oc := t.containers[len(t.containers)-1]
		t.containers = t.containers[:len(t.containers)-1]
		t.events = append(t.events, exitEvent(oc.tok, oc.lastEnd, oc.info))
		if parent := t.topContainer(); parent != nil && parent.tok == tokList && oc.tok == tokListItem {
			parent.lastEnd = oc.lastEnd
		}
	}
}

// prepareForBlock closes the current leaf and any list
// that cannot contain the new block.
func (t *tokenizer) prepareForBlock(tok token) {
	t.closeLeaf()
	for {
		top := t.topContainer()
		if top == nil || top.tok != tokList || tok == tokListItem {
			return
		}
		t.closeContainers(len(t.containers) - 1)
	}
}

func (t *tokenizer) finish() {
	if lf := t.leaf; lf != nil && lf.tok == tokMdxFlowExpression {
		t.err = &ParseError{
			Point:   t.pos.point(len(t.src)),
			Message: "Unexpected end of file in expression, expected a corresponding closing brace for `{`",
		}
		return
	}
	t.closeContainers(0)
}

// lineStartsNewBlock reports whether the line could begin a block
// other than a paragraph. It is used to decide lazy continuation and
// never consumes input.
func (t *tokenizer) lineStartsNewBlock(c *lineCursor) bool {
	if c.indent() >= codeBlockIndentLimit {
		// Indented code cannot interrupt a paragraph.
		return false
	}
	rest := trimIndent(c.bytes())
	if len(rest) == 0 {
		return false
	}
	if t.con.BlockQuote && rest[0] == '>' {
		return true
	}
	if t.con.HeadingATX && parseATXHeading(rest).level > 0 {
		return true
	}
	if t.con.CodeFenced && parseCodeFence(rest).length > 0 {
		return true
	}
	if t.con.MathFlow && parseMathFence(rest).length > 0 {
		return true
	}
	if t.con.ThematicBreak && parseThematicBreak(rest) >= 0 {
		return true
	}
	if t.con.ListItem {
		if m, ok := parseListMarker(rest); ok && !m.blankAfter && (!m.ordered || m.start == 1) {
			return true
		}
	}
	if t.con.HTMLFlow && htmlFlowStart(rest, true) > 0 {
		return true
	}
	if t.con.MdxJsxFlow && startsJsxFlow(rest) {
		return true
	}
	if t.con.MdxExpressionFlow && rest[0] == '{' {
		return true
	}
	return false
}

// openBlocks interprets the rest of the line once containers have
// been matched, opening new blocks and collecting leaf content.
func (t *tokenizer) openBlocks(c *lineCursor) {
	for t.err == nil {
		if c.blank() {
			// Nothing after a freshly opened container marker.
			return
		}
		pOpen := t.leaf != nil && t.leaf.tok == tokParagraph
		ind := c.indent()
		rest := trimIndent(c.bytes())

		if c.i == 0 && t.leaf == nil && len(t.containers) == 0 {
			if t.openFrontmatter(c) {
				return
			}
		}

		if ind >= codeBlockIndentLimit {
			if t.con.CodeIndented && !pOpen {
				t.openIndentedCode(c)
				return
			}
		} else {
			if t.con.BlockQuote && rest[0] == '>' {
				t.openBlockQuote(c)
				continue
			}
			if t.con.HeadingATX {
				if h := parseATXHeading(rest); h.level > 0 {
					t.openATXHeading(c, h)
					return
				}
			}
			if t.con.CodeFenced {
				if f := parseCodeFence(rest); f.length > 0 {
					t.openFencedCode(c, f, tokCode)
					return
				}
			}
			if t.con.MathFlow {
				if f := parseMathFence(rest); f.length > 0 {
					t.openFencedCode(c, f, tokMath)
					return
				}
			}
			if t.con.MdxEsm && len(t.containers) == 0 && !pOpen && startsEsm(rest) {
				t.openMdxEsm(c)
				return
			}
			if t.con.MdxExpressionFlow && rest[0] == '{' {
				t.openFlowExpression(c)
				return
			}
			if t.con.MdxJsxFlow && startsJsxFlow(rest) {
				t.openJsxFlow(c)
				return
			}
			if t.con.HTMLFlow {
				if kind := htmlFlowStart(rest, pOpen); kind > 0 {
					t.openHTMLFlow(c, kind)
					return
				}
			}
			if pOpen && t.con.HeadingSetext {
				if depth := parseSetextUnderline(rest); depth > 0 {
					if t.convertSetext(c, depth) {
						return
					}
					continue
				}
			}
			if pOpen && t.con.GFMTable && len(t.leaf.spans) == 1 {
				if align, ok := parseDelimiterRow(rest); ok && t.convertTable(align) {
					return
				}
			}
			if t.con.ThematicBreak && parseThematicBreak(rest) >= 0 {
				t.openThematicBreak(c)
				return
			}
			if t.con.ListItem {
				if m, ok := parseListMarker(rest); ok && t.openListItem(c, m, pOpen) {
					continue
				}
			}
			if t.con.GFMFootnoteDefinition && !pOpen {
				if ls, le, end, ok := parseFootnoteLabel(rest); ok {
					t.openFootnoteDefinition(c, ls, le, end)
					continue
				}
			}
		}
		break
	}
	if t.err != nil {
		return
	}
	if t.leaf != nil && t.leaf.tok == tokTable {
		t.addTableRow(c)
		return
	}
	if t.leaf != nil && t.leaf.tok == tokParagraph {
		t.addParagraphLine(c)
		return
	}
	if !t.con.Paragraph {
		// Free text with the paragraph construct disabled is dropped.
		return
	}
	t.openParagraph(c)
}

func (t *tokenizer) openBlockQuote(c *lineCursor) {
	t.prepareForBlock(tokBlockQuote)
	c.consumeIndent(c.indent())
	start := c.i
	c.advance(parseBlockQuote(c.bytes()))
	info := &nodeInfo{checked: -1}
	t.containers = append(t.containers, &openContainer{
		tok:     tokBlockQuote,
		info:    info,
		lastEnd: c.ln.textEnd,
	})
	t.events = append(t.events, enterEvent(tokBlockQuote, start, info))
}

func (t *tokenizer) openListItem(c *lineCursor, m listMarker, pOpen bool) bool {
	if pOpen && (m.blankAfter || (m.ordered && m.start != 1)) {
		// Lists interrupting a paragraph must not start with a blank
		// line, and ordered ones must start at 1.
		return false
	}
	t.closeLeaf()
	top := t.topContainer()
	if top != nil && top.tok == tokList && (top.marker != m.marker || top.ordered != m.ordered) {
		t.closeContainers(len(t.containers) - 1)
		top = t.topContainer()
	}
	ind := c.indent()
	c.consumeIndent(ind)
	markerStart := c.i
	if top == nil || top.tok != tokList {
		t.prepareForBlock(tokList)
		listStart := -1
		if m.ordered {
			listStart = m.start
		}
		info := &nodeInfo{ordered: m.ordered, listStart: listStart, checked: -1}
		top = &openContainer{
			tok:     tokList,
			info:    info,
			marker:  m.marker,
			ordered: m.ordered,
			lastEnd: c.ln.textEnd,
		}
		t.containers = append(t.containers, top)
		t.events = append(t.events, enterEvent(tokList, markerStart, info))
	} else if top.sawBlank {
		top.info.spread = true
		top.sawBlank = false
	}

	c.advance(m.width)
	if !m.blankAfter {
		c.consumeIndent(m.padding)
	}
	info := &nodeInfo{checked: -1}
	t.containers = append(t.containers, &openContainer{
		tok:           tokListItem,
		info:          info,
		contentIndent: ind + m.width + m.padding,
		marker:        m.marker,
		ordered:       m.ordered,
		lastEnd:       c.ln.textEnd,
		blankOpen:     m.blankAfter,
	})
	t.events = append(t.events, enterEvent(tokListItem, markerStart, info))
	return true
}

func (t *tokenizer) openFootnoteDefinition(c *lineCursor, labelStart, labelEnd, markerEnd int) {
	t.prepareForBlock(tokFootnoteDefinition)
	c.consumeIndent(c.indent())
	start := c.i
	raw := string(t.src[start+labelStart : start+labelEnd])
	info := &nodeInfo{
		checked:    -1,
		identifier: normalizeIdentifier(raw),
		label:      decodeString(raw),
		hasLabel:   true,
	}
	if !t.footnotes[info.identifier] {
		t.footnotes[info.identifier] = true
	}
	c.advance(markerEnd)
	t.containers = append(t.containers, &openContainer{
		tok:           tokFootnoteDefinition,
		info:          info,
		contentIndent: 4,
		lastEnd:       c.ln.textEnd,
		blankOpen:     c.blank(),
	})
	t.events = append(t.events, enterEvent(tokFootnoteDefinition, start, info))
}

func (t *tokenizer) openATXHeading(c *lineCursor, h atxHeading) {
	t.prepareForBlock(tokHeading)
	c.consumeIndent(c.indent())
	start := c.i
	info := &nodeInfo{
		depth: h.level,
		spans: []span{{start: start + h.contentStart, end: start + h.contentEnd}},
	}
	t.events = append(t.events,
		enterEvent(tokHeading, start, info),
		exitEvent(tokHeading, c.ln.textEnd, info))
	t.leaf = nil
}

func (t *tokenizer) openThematicBreak(c *lineCursor) {
	t.prepareForBlock(tokThematicBreak)
	c.consumeIndent(c.indent())
	info := &nodeInfo{}
	t.events = append(t.events,
		enterEvent(tokThematicBreak, c.i, info),
		exitEvent(tokThematicBreak, c.ln.textEnd, info))
}

func (t *tokenizer) openFencedCode(c *lineCursor, f codeFence, tok token) {
	t.prepareForBlock(tok)
	fenceIndent := c.indent()
	c.consumeIndent(fenceIndent)
	start := c.i
	info := &nodeInfo{}
	infoString := t.src[start+f.infoStart : start+f.infoEnd]
	if tok == tokCode {
		lang := infoString
		var meta []byte
		if i := bytes.IndexAny(infoString, " \t"); i >= 0 {
			lang, meta = infoString[:i], trimIndent(infoString[i:])
		}
		if len(lang) > 0 {
			info.lang = decodeString(string(lang))
			info.hasLang = true
		}
		if len(meta) > 0 {
			info.meta = decodeString(string(meta))
			info.hasMeta = true
		}
	} else if len(infoString) > 0 {
		info.meta = decodeString(string(infoString))
		info.hasMeta = true
	}
	t.leaf = &openLeaf{
		tok:         tok,
		info:        info,
		start:       start,
		end:         c.ln.textEnd,
		fenceChar:   f.char,
		fenceLen:    f.length,
		fenceIndent: fenceIndent,
	}
}

func (t *tokenizer) openIndentedCode(c *lineCursor) {
	t.prepareForBlock(tokCode)
	c.consumeIndent(codeBlockIndentLimit)
	t.leaf = &openLeaf{
		tok:   tokCode,
		info:  &nodeInfo{},
		start: c.i,
		end:   c.ln.textEnd,
		spans: []span{{start: c.i, end: c.ln.textEnd}},
	}
}

func (t *tokenizer) openHTMLFlow(c *lineCursor, kind int) {
	t.prepareForBlock(tokHTMLFlow)
	start := c.i
	t.leaf = &openLeaf{
		tok:      tokHTMLFlow,
		info:     &nodeInfo{},
		start:    start,
		end:      c.ln.textEnd,
		spans:    []span{{start: start, end: c.ln.textEnd}},
		htmlKind: kind,
	}
	if kind <= 5 && htmlFlowEnds(kind, c.bytes()) {
		t.closeLeaf()
	}
}

// openFrontmatter recognizes YAML or TOML frontmatter at offset zero.
// The closing fence is located up front; without one the opening line
// is ordinary content.
func (t *tokenizer) openFrontmatter(c *lineCursor) bool {
	var tok token
	var marker byte
	switch {
	case t.con.FrontmatterYaml && string(c.bytes()) == "---":
		tok, marker = tokYaml, '-'
	case t.con.FrontmatterToml && string(c.bytes()) == "+++":
		tok, marker = tokToml, '+'
	default:
		return false
	}
	fence := []byte{marker, marker, marker}
	if !frontmatterCloses(t.src[c.ln.end:], fence) {
		return false
	}
	t.leaf = &openLeaf{
		tok:       tok,
		info:      &nodeInfo{},
		start:     0,
		end:       c.ln.textEnd,
		fenceChar: marker,
	}
	return true
}

// frontmatterCloses reports whether a line equal to the fence
// occurs in the remaining source.
func frontmatterCloses(src, fence []byte) bool {
	for len(src) > 0 {
		end := bytes.IndexAny(src, "\r\n")
		if end < 0 {
			end = len(src)
		}
		if bytes.Equal(bytes.TrimRight(src[:end], " \t"), fence) {
			return true
		}
		src = src[end:]
		if len(src) > 0 {
			if src[0] == '\r' && len(src) > 1 && src[1] == '\n' {
				src = src[2:]
			} else {
				src = src[1:]
			}
		}
	}
	return false
}

func (t *tokenizer) openMdxEsm(c *lineCursor) {
	t.prepareForBlock(tokMdxEsm)
	start := c.i
	t.leaf = &openLeaf{
		tok:   tokMdxEsm,
		info:  &nodeInfo{},
		start: start,
		end:   c.ln.textEnd,
		spans: []span{{start: start, end: c.ln.end}},
	}
}

func (t *tokenizer) openFlowExpression(c *lineCursor) {
	t.prepareForBlock(tokMdxFlowExpression)
	c.consumeIndent(c.indent())
	start := c.i
	lf := &openLeaf{
		tok:         tokMdxFlowExpression,
		info:        &nodeInfo{},
		start:       start,
		end:         c.ln.textEnd,
		braceDepth:  0,
		closeOffset: -1,
	}
	t.leaf = lf
	t.scanExpressionLine(c, lf)
}

// scanExpressionLine consumes the rest of the line into a flow
// expression leaf, tracking brace depth. When the closing brace is
// found with trailing content after it, the expression was never a
// block of its own and the buffered lines degrade to a paragraph.
func (t *tokenizer) scanExpressionLine(c *lineCursor, lf *openLeaf) {
	lf.spans = append(lf.spans, span{start: c.i, end: c.ln.end})
	lf.end = c.ln.textEnd
	for j := c.i; j < c.ln.textEnd; j++ {
		switch t.src[j] {
		case '{':
			lf.braceDepth++
		case '}':
			lf.braceDepth--
			if lf.braceDepth == 0 {
				if !isBlankLine(t.src[j+1 : c.ln.textEnd]) {
					// Trailing content: reinterpret as a paragraph.
					lf.tok = tokParagraph
					lf.info = &nodeInfo{}
					return
				}
				lf.closeOffset = j
				lf.end = c.ln.textEnd
				t.closeLeaf()
				return
			}
		}
	}
}

func (t *tokenizer) openJsxFlow(c *lineCursor) {
	t.prepareForBlock(tokMdxJsxFlowElement)
	c.consumeIndent(c.indent())
	start := c.i
	t.leaf = &openLeaf{
		tok:   tokMdxJsxFlowElement,
		info:  &nodeInfo{},
		start: start,
		end:   c.ln.textEnd,
		spans: []span{{start: start, end: c.ln.end}},
	}
}

func (t *tokenizer) openParagraph(c *lineCursor) {
	t.prepareForBlock(tokParagraph)
	c.consumeIndent(c.indent())
	if t.con.GFMTaskListItem {
		if item := t.topContainer(); item != nil && item.tok == tokListItem && !item.hasContent {
			if b := c.bytes(); len(b) > 3 && b[0] == '[' &&
				(b[1] == ' ' || b[1] == 'x' || b[1] == 'X') && b[2] == ']' &&
				(b[3] == ' ' || b[3] == '\t') {
				if b[1] == ' ' {
					item.info.checked = 0
				} else {
					item.info.checked = 1
				}
				c.advance(3)
				c.consumeIndent(c.indent())
			}
		}
	}
	t.leaf = &openLeaf{
		tok:   tokParagraph,
		info:  &nodeInfo{},
		start: c.i,
		end:   c.ln.textEnd,
		spans: []span{{start: c.i, end: c.ln.end}},
	}
}

func (t *tokenizer) addParagraphLine(c *lineCursor) {
	c.consumeIndent(c.indent())
	t.leaf.spans = append(t.leaf.spans, span{start: c.i, end: c.ln.end})
	t.leaf.end = c.ln.textEnd
}

// convertSetext turns the open paragraph into a setext heading.
// It reports false when peeling link reference definitions leaves no
// paragraph content, in which case the underline is reinterpreted.
func (t *tokenizer) convertSetext(c *lineCursor, depth int) bool {
	lf := t.leaf
	if t.con.Definition {
		lf.spans = t.extractDefinitions(lf.spans)
	}
	if len(lf.spans) == 0 {
		t.leaf = nil
		return false
	}
	t.leaf = nil
	spans := append([]span(nil), lf.spans...)
	spans[len(spans)-1] = trimSpanRight(t.src, spans[len(spans)-1])
	info := &nodeInfo{depth: depth, spans: spans}
	t.events = append(t.events,
		enterEvent(tokHeading, spans[0].start, info),
		exitEvent(tokHeading, c.ln.textEnd, info))
	return true
}

// convertTable turns the open one-line paragraph into a table.
// The current line is the delimiter row; it contributes no events.
func (t *tokenizer) convertTable(align []AlignKind) bool {
	header := t.leaf.spans[0]
	headerText := trimSpanRight(t.src, header)
	cells := splitTableRow(t.src, headerText.start, headerText.end)
	if len(cells) != len(align) {
		return false
	}
	info := &nodeInfo{align: align}
	t.events = append(t.events, enterEvent(tokTable, header.start, info))
	t.leaf = &openLeaf{
		tok:   tokTable,
		info:  info,
		start: header.start,
		end:   headerText.end,
	}
	t.emitTableRow(cells, headerText.start, headerText.end)
	return true
}

func (t *tokenizer) addTableRow(c *lineCursor) {
	c.consumeIndent(c.indent())
	start := c.i
	end := start + len(bytes.TrimRight(c.bytes(), " \t"))
	cells := splitTableRow(t.src, start, end)
	t.emitTableRow(cells, start, end)
	t.leaf.end = c.ln.textEnd
}

func (t *tokenizer) emitTableRow(cells []span, start, end int) {
	align := t.leaf.info.align
	rowInfo := &nodeInfo{}
	t.events = append(t.events, enterEvent(tokTableRow, start, rowInfo))
	for i := 0; i < len(align); i++ {
		cell := span{start: end, end: end}
		if i < len(cells) {
			cell = cells[i]
		}
		cellInfo := &nodeInfo{spans: []span{cell}}
		t.events = append(t.events,
			enterEvent(tokTableCell, cell.start, cellInfo),
			exitEvent(tokTableCell, cell.end, cellInfo))
	}
	t.events = append(t.events, exitEvent(tokTableRow, end, rowInfo))
}

// leafAcceptsRaw reports whether the leaf consumes lines verbatim,
// without looking for new block starts.
func leafAcceptsRaw(tok token) bool {
	switch tok {
	case tokCode, tokMath, tokHTMLFlow, tokYaml, tokToml,
		tokMdxEsm, tokMdxFlowExpression, tokMdxJsxFlowElement:
		return true
	default:
		return false
	}
}

// rawLine feeds a line to a verbatim leaf.
// It reports whether the line was consumed; if not, the leaf has been
// closed and the line must be interpreted anew.
func (t *tokenizer) rawLine(c *lineCursor) bool {
	lf := t.leaf
	switch lf.tok {
	case tokCode, tokMath:
		if lf.fenceLen == 0 {
			// Indented code.
			if c.blank() {
				n := c.indent()
				if n > codeBlockIndentLimit {
					n = codeBlockIndentLimit
				}
				c.consumeIndent(n)
				lf.blanks = append(lf.blanks, span{start: c.i, end: c.ln.textEnd})
				return true
			}
			if c.indent() < codeBlockIndentLimit {
				t.closeLeaf()
				return false
			}
			c.consumeIndent(codeBlockIndentLimit)
			lf.spans = append(lf.spans, lf.blanks...)
			lf.blanks = nil
			lf.spans = append(lf.spans, span{start: c.i, end: c.ln.textEnd})
			lf.end = c.ln.textEnd
			return true
		}
		if c.indent() < codeBlockIndentLimit && closesFence(c.bytes(), lf.fenceChar, lf.fenceLen) {
			lf.end = c.ln.textEnd
			t.closeLeaf()
			return true
		}
		n := c.indent()
		if n > lf.fenceIndent {
			n = lf.fenceIndent
		}
		c.consumeIndent(n)
		lf.spans = append(lf.spans, span{start: c.i, end: c.ln.textEnd})
		lf.end = c.ln.textEnd
		return true
	case tokHTMLFlow:
		if lf.htmlKind >= 6 {
			if c.blank() {
				t.closeLeaf()
				return false
			}
			lf.spans = append(lf.spans, span{start: c.i, end: c.ln.textEnd})
			lf.end = c.ln.textEnd
			return true
		}
		lf.spans = append(lf.spans, span{start: c.i, end: c.ln.textEnd})
		lf.end = c.ln.textEnd
		if htmlFlowEnds(lf.htmlKind, c.bytes()) {
			t.closeLeaf()
		}
		return true
	case tokYaml, tokToml:
		fence := []byte{lf.fenceChar, lf.fenceChar, lf.fenceChar}
		if c.indent() == 0 && bytes.Equal(bytes.TrimRight(c.bytes(), " \t"), fence) {
			lf.end = c.ln.textEnd
			t.closeLeaf()
			return true
		}
		lf.spans = append(lf.spans, span{start: c.i, end: c.ln.textEnd})
		lf.end = c.ln.textEnd
		return true
	case tokMdxEsm:
		if c.blank() {
			t.closeLeaf()
			return false
		}
		lf.spans = append(lf.spans, span{start: c.i, end: c.ln.end})
		lf.end = c.ln.textEnd
		return true
	case tokMdxFlowExpression:
		t.scanExpressionLine(c, lf)
		return true
	case tokMdxJsxFlowElement:
		if c.blank() {
			t.closeLeaf()
			return false
		}
		c.consumeIndent(c.indent())
		lf.spans = append(lf.spans, span{start: c.i, end: c.ln.end})
		lf.end = c.ln.textEnd
		return true
	default:
		panic("markdown: leaf does not take raw lines")
	}
}

func closesFence(line []byte, char byte, length int) bool {
	if char == '$' {
		line = trimIndent(line)
		n := 0
		for n < len(line) && line[n] == '$' {
			n++
		}
		return n >= length && isBlankLine(line[n:])
	}
	return parseClosingCodeFence(line, char, length)
}

// closeLeaf flushes the open leaf into the event stream.
func (t *tokenizer) closeLeaf() {
	lf := t.leaf
	if lf == nil {
		return
	}
	t.leaf = nil
	switch lf.tok {
	case tokParagraph:
		spans := lf.spans
		if t.con.Definition {
			spans = t.extractDefinitions(spans)
		}
		for len(spans) > 0 {
			last := trimSpanRight(t.src, spans[len(spans)-1])
			if last.len() > 0 {
				spans[len(spans)-1] = last
				break
			}
			spans = spans[:len(spans)-1]
		}
		if len(spans) == 0 {
			return
		}
		info := lf.info
		info.spans = spans
		t.events = append(t.events,
			enterEvent(tokParagraph, spans[0].start, info),
			exitEvent(tokParagraph, spans[len(spans)-1].end, info))
	case tokCode, tokMath:
		lf.info.value = joinLines(t.src, lf.spans)
		t.events = append(t.events,
			enterEvent(lf.tok, lf.start, lf.info),
			exitEvent(lf.tok, lf.end, lf.info))
	case tokHTMLFlow:
		lf.info.value = joinLines(t.src, lf.spans)
		t.events = append(t.events,
			enterEvent(tokHTMLFlow, lf.start, lf.info),
			exitEvent(tokHTMLFlow, lf.end, lf.info))
	case tokYaml, tokToml:
		lf.info.value = joinLines(t.src, lf.spans)
		t.events = append(t.events,
			enterEvent(lf.tok, lf.start, lf.info),
			exitEvent(lf.tok, lf.end, lf.info))
	case tokMdxEsm:
		spans := append([]span(nil), lf.spans...)
		spans[len(spans)-1] = trimSpanRight(t.src, spans[len(spans)-1])
		value, stops := buildValue(t.src, spans)
		lf.info.value = value
		lf.info.stops = stops
		if t.opts != nil && t.opts.MdxEsmParse != nil {
			if err := t.opts.MdxEsmParse(value, stops); err != nil {
				t.err = t.hookError(err, stops, lf.start)
				return
			}
		}
		t.events = append(t.events,
			enterEvent(tokMdxEsm, lf.start, lf.info),
			exitEvent(tokMdxEsm, lf.end, lf.info))
	case tokMdxFlowExpression:
		spans := append([]span(nil), lf.spans...)
		spans[0].start++ // opening brace
		spans[len(spans)-1].end = lf.closeOffset
		if spans[0].start > spans[0].end && len(spans) == 1 {
			spans[0].start = spans[0].end
		}
		value, stops := buildValue(t.src, spans)
		lf.info.value = value
		lf.info.stops = stops
		if t.opts != nil && t.opts.MdxExpressionParse != nil {
			if err := t.opts.MdxExpressionParse(value, MdxExpressionIndependent, stops); err != nil {
				t.err = t.hookError(err, stops, lf.closeOffset)
				return
			}
		}
		t.events = append(t.events,
			enterEvent(tokMdxFlowExpression, lf.start, lf.info),
			exitEvent(tokMdxFlowExpression, lf.end, lf.info))
	case tokMdxJsxFlowElement:
		spans := lf.spans
		spans[len(spans)-1] = trimSpanRight(t.src, spans[len(spans)-1])
		lf.info.spans = spans
		t.events = append(t.events,
			enterEvent(tokMdxJsxFlowElement, lf.start, lf.info),
			exitEvent(tokMdxJsxFlowElement, lf.end, lf.info))
	case tokTable:
		t.events = append(t.events, exitEvent(tokTable, lf.end, lf.info))
	default:
		panic("markdown: cannot close leaf " + lf.tok.String())
	}
}

// hookError converts an error from an external parser hook into a
// positioned parse error, translating value-relative offsets through
// the stops.
func (t *tokenizer) hookError(err error, stops []Stop, fallback int) *ParseError {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	var oe *OffsetError
	if errors.As(err, &oe) {
		return &ParseError{
			Point:   t.pos.point(translateStops(stops, oe.Offset)),
			Message: oe.Message,
		}
	}
	return &ParseError{Point: t.pos.point(fallback), Message: err.Error()}
}

func trimSpanRight(src []byte, s span) span {
	for s.end > s.start && isSpaceTabOrLineEnding(src[s.end-1]) {
		s.end--
	}
	return s
}

// joinLines assembles a literal value from line spans,
// separated by newlines.
func joinLines(src []byte, spans []span) string {
	var sb strings.Builder
	for i, s := range spans {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.Write(src[s.start:s.end])
	}
	return sb.String()
}

// buildValue assembles a literal value from source spans and records a
// stop at every span boundary so value offsets can be mapped back.
func buildValue(src []byte, spans []span) (string, []Stop) {
	var sb strings.Builder
	stops := make([]Stop, 0, len(spans))
	for _, s := range spans {
		stops = append(stops, Stop{Index: sb.Len(), Offset: s.start})
		sb.Write(src[s.start:s.end])
	}
	return sb.String(), stops
}

func startsEsm(line []byte) bool {
	var kw []byte
	switch {
	case bytes.HasPrefix(line, []byte("import")):
		kw = line[6:]
	case bytes.HasPrefix(line, []byte("export")):
		kw = line[6:]
	default:
		return false
	}
	return len(kw) == 0 || kw[0] == ' ' || kw[0] == '\t'
}
