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
	"strings"

	"golang.org/x/net/html/atom"
)

// parseHTMLTag parses a [raw HTML] tag at the cursor's position and
// returns its end offset, or -1 if the input is not a tag.
// The cursor is left after the tag on success and is otherwise
// in an unspecified position; callers restore from a saved copy.
//
// [raw HTML]: https://spec.commonmark.org/0.30/#raw-html
func parseHTMLTag(c *inlineCursor) (end int) {
	const (
		cdataPrefix = "[CDATA["
		cdataSuffix = "]]>"
	)

	if c.cur() != '<' {
		return -1
	}
	c.next()
	switch c.cur() {
	case '?':
		// Processing instructions.
		c.next()
		for {
			if c.cur() < 0 {
				return -1
			}
			if c.cur() != '?' {
				c.next()
				continue
			}
			c.next()
			if c.cur() == '>' {
				end = c.pos + 1
				c.next()
				return end
			}
		}
	case '!':
		c.next()
		rest := c.rest()
		switch {
		case len(rest) > 0 && isASCIILetter(rest[0]):
			// Declaration.
			c.next()
			for c.cur() != '>' {
				if c.cur() < 0 {
					return -1
				}
				c.next()
			}
			end = c.pos + 1
			c.next()
			return end
		case bytes.HasPrefix(rest, []byte("--")):
			// Comment.
			c.next()
			c.next()
			if after := c.rest(); bytes.HasPrefix(after, []byte(">")) || bytes.HasPrefix(after, []byte("->")) {
				return -1
			}
			for {
				if bytes.HasPrefix(c.rest(), []byte("-->")) {
					c.next()
					c.next()
					end = c.pos + 1
					c.next()
					return end
				}
				if bytes.HasPrefix(c.rest(), []byte("--")) {
					return -1
				}
				if c.cur() < 0 {
					return -1
				}
				c.next()
			}
		case bytes.HasPrefix(rest, []byte(cdataPrefix)):
			for i := 0; i < len(cdataPrefix); i++ {
				c.next()
			}
			for {
				if bytes.HasPrefix(c.rest(), []byte(cdataSuffix)) {
					for i := 0; i < len(cdataSuffix)-1; i++ {
						c.next()
					}
					end = c.pos + 1
					c.next()
					return end
				}
				if c.cur() < 0 {
					return -1
				}
				c.next()
			}
		default:
			return -1
		}
	case '/':
		return parseHTMLClosingTag(c)
	default:
		return parseHTMLOpenTag(c)
	}
}

// parseHTMLOpenTag parses an [open tag] sans the leading '<'.
//
// [open tag]: https://spec.commonmark.org/0.30/#open-tag
func parseHTMLOpenTag(c *inlineCursor) (end int) {
	if !parseHTMLTagName(c) {
		return -1
	}
	for {
		beforeSpace := c.pos
		if !skipTagSpace(c) {
			return -1
		}
		switch c.cur() {
		case '/':
			c.next()
			if c.cur() != '>' {
				return -1
			}
			fallthrough
		case '>':
			end = c.pos + 1
			c.next()
			return end
		}
		if c.pos == beforeSpace || !parseHTMLAttribute(c) {
			return -1
		}
	}
}

// parseHTMLClosingTag parses a [closing tag] sans the leading '<'.
//
// [closing tag]: https://spec.commonmark.org/0.30/#closing-tag
func parseHTMLClosingTag(c *inlineCursor) (end int) {
	if c.cur() != '/' {
		return -1
	}
	c.next()
	if !parseHTMLTagName(c) {
		return -1
	}
	if !skipTagSpace(c) {
		return -1
	}
	if c.cur() != '>' {
		return -1
	}
	end = c.pos + 1
	c.next()
	return end
}

func parseHTMLTagName(c *inlineCursor) bool {
	b := c.cur()
	if b < 0 || !isASCIILetter(byte(b)) {
		return false
	}
	c.next()
	for {
		b := c.cur()
		if b < 0 || !(isASCIILetter(byte(b)) || isASCIIDigit(byte(b)) || byte(b) == '-') {
			return true
		}
		c.next()
	}
}

func parseHTMLAttribute(c *inlineCursor) bool {
	// Attribute name.
	if b := c.cur(); b < 0 || !isASCIILetter(byte(b)) && byte(b) != '_' && byte(b) != ':' {
		return false
	}
	c.next()
	for {
		b := c.cur()
		if b < 0 {
			// Only one character needed for name and value is optional.
			return true
		}
		if !(isASCIILetter(byte(b)) || isASCIIDigit(byte(b)) || strings.IndexByte("_.:-", byte(b)) >= 0) {
			break
		}
		c.next()
	}

	// Attribute value specification.
	// Don't consume space unless it is followed by an equal sign,
	// since it will cause future attributes to fail.
	prevState := *c
	if !skipTagSpace(c) {
		*c = prevState
		return true
	}
	if c.cur() != '=' {
		*c = prevState
		return true
	}
	c.next()
	if !skipTagSpace(c) {
		// Must have an attribute value following equals sign.
		return false
	}
	switch b := c.cur(); {
	case b == '\'', b == '"':
		quote := b
		c.next()
		for c.cur() != quote {
			if c.cur() < 0 {
				return false
			}
			c.next()
		}
		c.next()
		return true
	case isUnquotedAttributeValueChar(byte(b)):
		for {
			c.next()
			if b := c.cur(); b < 0 || !isUnquotedAttributeValueChar(byte(b)) {
				return true
			}
		}
	default:
		return false
	}
}

// skipTagSpace skips whitespace inside a tag, including line endings.
// It reports false if the end of input was reached.
func skipTagSpace(c *inlineCursor) bool {
	for {
		b := c.cur()
		if b < 0 {
			return false
		}
		if !isSpaceTabOrLineEnding(byte(b)) {
			return true
		}
		c.next()
	}
}

func isUnquotedAttributeValueChar(c byte) bool {
	return !isSpaceTabOrLineEnding(c) && strings.IndexByte("\"'=<>`", c) < 0
}

// htmlFlowStart reports which [HTML block] kind the line begins, or zero.
// Kind 7 cannot interrupt a paragraph.
//
// [HTML block]: https://spec.commonmark.org/0.30/#html-blocks
func htmlFlowStart(line []byte, interrupting bool) int {
	for i, cond := range htmlBlockConditions {
		if interrupting && !cond.canInterruptParagraph {
			continue
		}
		if cond.startCondition(line) {
			return i + 1
		}
	}
	return 0
}

// htmlFlowEnds reports whether the line ends an HTML block of the
// given kind. The line itself is part of the block.
func htmlFlowEnds(kind int, line []byte) bool {
	return htmlBlockConditions[kind-1].endCondition(line)
}

// htmlBlockConditions is the set of HTML block start and end conditions.
var htmlBlockConditions = []struct {
	startCondition        func(line []byte) bool
	endCondition          func(line []byte) bool
	canInterruptParagraph bool
}{
	{
		startCondition: func(line []byte) bool {
			for _, starter := range htmlBlockStarters1 {
				if hasCaseInsensitiveBytePrefix(line, starter) {
					rest := line[len(starter):]
					if len(rest) == 0 || isSpaceTabOrLineEnding(rest[0]) || rest[0] == '>' {
						return true
					}
				}
			}
			return false
		},
		endCondition: func(line []byte) bool {
			for _, ender := range htmlBlockEnders1 {
				if caseInsensitiveContains(line, ender) {
					return true
				}
			}
			return false
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			return bytes.HasPrefix(line, []byte("<!--"))
		},
		endCondition: func(line []byte) bool {
			return bytes.Contains(line, []byte("-->"))
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			return bytes.HasPrefix(line, []byte("<?"))
		},
		endCondition: func(line []byte) bool {
			return bytes.Contains(line, []byte("?>"))
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			return bytes.HasPrefix(line, []byte("<!")) && len(line) >= 3 && isASCIILetter(line[2])
		},
		endCondition: func(line []byte) bool {
			return bytes.Contains(line, []byte(">"))
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			return bytes.HasPrefix(line, []byte("<![CDATA["))
		},
		endCondition: func(line []byte) bool {
			return bytes.Contains(line, []byte("]]>"))
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			switch {
			case bytes.HasPrefix(line, []byte("</")):
				line = line[2:]
			case bytes.HasPrefix(line, []byte("<")):
				line = line[1:]
			default:
				return false
			}
			for _, starter := range htmlBlockStarters6 {
				if hasCaseInsensitiveBytePrefix(line, starter) {
					rest := line[len(starter):]
					if len(rest) == 0 || isSpaceTabOrLineEnding(rest[0]) || rest[0] == '>' || bytes.HasPrefix(rest, []byte("/>")) {
						return true
					}
				}
			}
			return false
		},
		endCondition:          isBlankLine,
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line []byte) bool {
			if !bytes.HasPrefix(line, []byte("<")) {
				return false
			}
			c := newInlineCursor(line, []span{{start: 1, end: len(line)}})
			var end int
			if bytes.HasPrefix(line, []byte("</")) {
				end = parseHTMLClosingTag(&c)
			} else {
				end = parseHTMLOpenTag(&c)
			}
			if end < 0 {
				return false
			}
			return isBlankLine(line[end:])
		},
		endCondition:          isBlankLine,
		canInterruptParagraph: false,
	},
}

func hasCaseInsensitiveBytePrefix(b []byte, prefix string) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i, bb := range b[:len(prefix)] {
		if toLowerASCII(prefix[i]) != toLowerASCII(bb) {
			return false
		}
	}
	return true
}

func caseInsensitiveContains(b []byte, search string) bool {
	for i := 0; i+len(search) <= len(b); i++ {
		if hasCaseInsensitiveBytePrefix(b[i:], search) {
			return true
		}
	}
	return false
}

func toLowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}

var (
	htmlBlockStarters1 = []string{
		"<pre",
		"<script",
		"<style",
		"<textarea",
	}
	htmlBlockEnders1 = []string{
		"</pre>",
		"</script>",
		"</style>",
		"</textarea>",
	}

	htmlBlockStarters6 = []string{
		atom.Address.String(),
		atom.Article.String(),
		atom.Aside.String(),
		atom.Base.String(),
		atom.Basefont.String(),
		atom.Blockquote.String(),
		atom.Body.String(),
		atom.Caption.String(),
		atom.Center.String(),
		atom.Col.String(),
		atom.Colgroup.String(),
		atom.Dd.String(),
		atom.Details.String(),
		atom.Dialog.String(),
		atom.Dir.String(),
		atom.Div.String(),
		atom.Dl.String(),
		atom.Dt.String(),
		atom.Fieldset.String(),
		atom.Figcaption.String(),
		atom.Figure.String(),
		atom.Footer.String(),
		atom.Form.String(),
		atom.Frame.String(),
		atom.Frameset.String(),
		atom.H1.String(),
		atom.H2.String(),
		atom.H3.String(),
		atom.H4.String(),
		atom.H5.String(),
		atom.H6.String(),
		atom.Head.String(),
		atom.Header.String(),
		atom.Hr.String(),
		atom.Html.String(),
		atom.Iframe.String(),
		atom.Legend.String(),
		atom.Li.String(),
		atom.Link.String(),
		atom.Main.String(),
		atom.Menu.String(),
		atom.Menuitem.String(),
		atom.Nav.String(),
		atom.Noframes.String(),
		atom.Ol.String(),
		atom.Optgroup.String(),
		atom.Option.String(),
		atom.P.String(),
		atom.Param.String(),
		atom.Section.String(),
		atom.Source.String(),
		atom.Summary.String(),
		atom.Table.String(),
		atom.Tbody.String(),
		atom.Td.String(),
		atom.Tfoot.String(),
		atom.Th.String(),
		atom.Thead.String(),
		atom.Title.String(),
		atom.Tr.String(),
		atom.Track.String(),
		atom.Ul.String(),
	}
)
