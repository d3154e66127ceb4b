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

// Package format serializes a markdown syntax tree back to Markdown
// text. The output is canonical: re-parsing it yields a tree equal to
// the input up to non-semantic formatting choices such as heading
// style and emphasis markers.
package format

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go4.org/bytereplacer"

	markdown "github.com/bricef/markdown-rs"
)

// Markdown renders the tree as Markdown text.
// It returns an error for node variants that have no Markdown form,
// rather than dropping them silently.
func Markdown(root *markdown.Root) (string, error) {
	s := new(state)
	if err := s.blocks(root.Children, false); err != nil {
		return "", err
	}
	return s.buf.String(), nil
}

// Render writes the tree to w as Markdown text.
func Render(w io.Writer, root *markdown.Root) error {
	text, err := Markdown(root)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

// state accumulates output lines. prefix is the continuation prefix of
// the enclosing containers; first, when set, replaces it for the next
// line only (list item and footnote definition markers).
type state struct {
	buf    bytes.Buffer
	prefix []byte
	first  []byte
}

func (s *state) pushPrefix(first, cont string) (restore []byte) {
	restore = s.prefix
	s.first = append([]byte(nil), s.prefix...)
	s.first = append(s.first, first...)
	s.prefix = append(append([]byte(nil), s.prefix...), cont...)
	return restore
}

func (s *state) beginLine() {
	if s.first != nil {
		s.buf.Write(s.first)
		s.first = nil
		return
	}
	s.buf.Write(s.prefix)
}

// blankLine separates two sibling blocks. Trailing spaces of the
// container prefix are dropped, so a block quote writes ">" alone.
func (s *state) blankLine() {
	p := s.prefix
	for len(p) > 0 && (p[len(p)-1] == ' ' || p[len(p)-1] == '\t') {
		p = p[:len(p)-1]
	}
	s.buf.Write(p)
	s.buf.WriteByte('\n')
}

// writeLines writes text as one or more complete output lines.
func (s *state) writeLines(text string) {
	for {
		line, rest, more := strings.Cut(text, "\n")
		s.beginLine()
		s.buf.WriteString(line)
		s.buf.WriteByte('\n')
		if !more {
			return
		}
		text = rest
	}
}

func (s *state) blocks(children []markdown.Node, tight bool) error {
	for i, c := range children {
		if i > 0 && !tight {
			s.blankLine()
		}
		if err := s.block(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) block(n markdown.Node) error {
	switch n := n.(type) {
	case *markdown.Paragraph:
		text, err := phrasing(n.Children)
		if err != nil {
			return err
		}
		s.writeLines(text)
	case *markdown.Heading:
		text, err := phrasing(n.Children)
		if err != nil {
			return err
		}
		text = strings.ReplaceAll(text, "\n", " ")
		line := strings.Repeat("#", n.Depth)
		if text != "" {
			line += " " + text
		}
		s.writeLines(line)
	case *markdown.ThematicBreak:
		s.writeLines("***")
	case *markdown.BlockQuote:
		restore := s.pushPrefix("> ", "> ")
		err := s.blocks(n.Children, false)
		s.prefix = restore
		if err != nil {
			return err
		}
	case *markdown.List:
		return s.list(n)
	case *markdown.Code:
		return s.code(n)
	case *markdown.Math:
		meta := ""
		if n.Meta != nil {
			meta = *n.Meta
		}
		s.writeLines("$$" + meta)
		if n.Value != "" {
			s.writeLines(n.Value)
		}
		s.writeLines("$$")
	case *markdown.Html:
		s.writeLines(n.Value)
	case *markdown.Yaml:
		s.writeLines("---")
		if n.Value != "" {
			s.writeLines(n.Value)
		}
		s.writeLines("---")
	case *markdown.Toml:
		s.writeLines("+++")
		if n.Value != "" {
			s.writeLines(n.Value)
		}
		s.writeLines("+++")
	case *markdown.Definition:
		line := "[" + escapeLabel(labelOrIdentifier(n.Label, n.Identifier)) + "]: " + destination(n.URL)
		if n.Title != nil {
			line += " " + title(*n.Title)
		}
		s.writeLines(line)
	case *markdown.FootnoteDefinition:
		marker := "[^" + escapeLabel(labelOrIdentifier(n.Label, n.Identifier)) + "]: "
		restore := s.pushPrefix(marker, "    ")
		if len(n.Children) == 0 {
			s.writeLines("")
		}
		err := s.blocks(n.Children, false)
		s.prefix = restore
		if err != nil {
			return err
		}
	case *markdown.Table:
		return s.table(n)
	case *markdown.MdxjsEsm:
		s.writeLines(n.Value)
	case *markdown.MdxFlowExpression:
		s.writeLines("{" + n.Value + "}")
	case *markdown.MdxJsxFlowElement:
		text, err := jsxElement(n.Name, n.Attributes, n.Children)
		if err != nil {
			return err
		}
		s.writeLines(text)
	default:
		return fmt.Errorf("format markdown: no flow serialization for %T", n)
	}
	return nil
}

func (s *state) list(n *markdown.List) error {
	ordinal := 1
	if n.Ordered && n.Start != nil {
		ordinal = *n.Start
	}
	for i, c := range n.Children {
		item, ok := c.(*markdown.ListItem)
		if !ok {
			return fmt.Errorf("format markdown: list child is %T, not a list item", c)
		}
		if i > 0 && n.Spread {
			s.blankLine()
		}
		marker := "- "
		if n.Ordered {
			marker = strconv.Itoa(ordinal) + ". "
			ordinal++
		}
		if item.Checked != nil {
			if *item.Checked {
				marker += "[x] "
			} else {
				marker += "[ ] "
			}
		}
		restore := s.pushPrefix(marker, strings.Repeat(" ", len(marker)))
		if len(item.Children) == 0 {
			s.writeLines("")
		}
		err := s.blocks(item.Children, !n.Spread && !item.Spread)
		s.prefix = restore
		s.first = nil
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *state) code(n *markdown.Code) error {
	fence := "```"
	for run := 3; strings.Contains(n.Value, fence); run++ {
		fence = strings.Repeat("`", run+1)
	}
	info := ""
	if n.Lang != nil {
		info = *n.Lang
		if n.Meta != nil {
			info += " " + *n.Meta
		}
	} else if n.Meta != nil {
		return fmt.Errorf("format markdown: code meta %q without a language", *n.Meta)
	}
	if strings.ContainsAny(info, "`") {
		return fmt.Errorf("format markdown: code info %q contains a backtick", info)
	}
	s.writeLines(fence + info)
	if n.Value != "" {
		s.writeLines(n.Value)
	}
	s.writeLines(fence)
	return nil
}

func (s *state) table(n *markdown.Table) error {
	var rows [][]string
	for _, c := range n.Children {
		row, ok := c.(*markdown.TableRow)
		if !ok {
			return fmt.Errorf("format markdown: table child is %T, not a table row", c)
		}
		var cells []string
		for _, cc := range row.Children {
			cell, ok := cc.(*markdown.TableCell)
			if !ok {
				return fmt.Errorf("format markdown: table row child is %T, not a table cell", cc)
			}
			text, err := phrasing(cell.Children)
			if err != nil {
				return err
			}
			text = strings.ReplaceAll(text, "\n", " ")
			text = strings.ReplaceAll(text, "|", "\\|")
			cells = append(cells, text)
		}
		rows = append(rows, cells)
	}
	for i, cells := range rows {
		var sb strings.Builder
		sb.WriteByte('|')
		for _, cell := range cells {
			sb.WriteString(" " + cell + " |")
		}
		s.writeLines(sb.String())
		if i == 0 {
			var sb strings.Builder
			sb.WriteByte('|')
			for col := range cells {
				align := markdown.AlignNone
				if col < len(n.Align) {
					align = n.Align[col]
				}
				switch align {
				case markdown.AlignLeft:
					sb.WriteString(" :-- |")
				case markdown.AlignRight:
					sb.WriteString(" --: |")
				case markdown.AlignCenter:
					sb.WriteString(" :-: |")
				default:
					sb.WriteString(" --- |")
				}
			}
			s.writeLines(sb.String())
		}
	}
	return nil
}

// phrasing renders inline children to a string. Line breaks inside the
// result are newlines; the caller applies container prefixes.
func phrasing(children []markdown.Node) (string, error) {
	w := &phrasingWriter{lineStart: true}
	if err := w.nodes(children); err != nil {
		return "", err
	}
	return w.sb.String(), nil
}

type phrasingWriter struct {
	sb        strings.Builder
	lineStart bool
}

func (w *phrasingWriter) raw(s string) {
	if s == "" {
		return
	}
	w.sb.WriteString(s)
	w.lineStart = strings.HasSuffix(s, "\n")
}

func (w *phrasingWriter) nodes(children []markdown.Node) error {
	for _, c := range children {
		if err := w.node(c); err != nil {
			return err
		}
	}
	return nil
}

func (w *phrasingWriter) node(n markdown.Node) error {
	switch n := n.(type) {
	case *markdown.Text:
		w.text(n.Value)
	case *markdown.Emphasis:
		w.raw("*")
		if err := w.nodes(n.Children); err != nil {
			return err
		}
		w.raw("*")
	case *markdown.Strong:
		w.raw("**")
		if err := w.nodes(n.Children); err != nil {
			return err
		}
		w.raw("**")
	case *markdown.Delete:
		w.raw("~~")
		if err := w.nodes(n.Children); err != nil {
			return err
		}
		w.raw("~~")
	case *markdown.InlineCode:
		w.raw(codeSpan(n.Value))
	case *markdown.InlineMath:
		marker := "$"
		for strings.Contains(n.Value, marker) {
			marker += "$"
		}
		w.raw(marker + n.Value + marker)
	case *markdown.Break:
		w.raw("\\\n")
	case *markdown.Link:
		if auto, ok := autolinkForm(n); ok {
			w.raw(auto)
			return nil
		}
		w.raw("[")
		if err := w.nodes(n.Children); err != nil {
			return err
		}
		w.raw("](" + resource(n.URL, n.Title) + ")")
	case *markdown.Image:
		w.raw("![")
		w.text(n.Alt)
		w.raw("](" + resource(n.URL, n.Title) + ")")
	case *markdown.LinkReference:
		w.raw("[")
		if err := w.nodes(n.Children); err != nil {
			return err
		}
		w.raw("]")
		w.raw(referenceSuffix(n.ReferenceKind, n.Label, n.Identifier))
	case *markdown.ImageReference:
		w.raw("![")
		w.text(n.Alt)
		w.raw("]")
		w.raw(referenceSuffix(n.ReferenceKind, n.Label, n.Identifier))
	case *markdown.FootnoteReference:
		w.raw("[^" + escapeLabel(labelOrIdentifier(n.Label, n.Identifier)) + "]")
	case *markdown.Html:
		w.raw(n.Value)
	case *markdown.MdxTextExpression:
		w.raw("{" + n.Value + "}")
	case *markdown.MdxJsxTextElement:
		text, err := jsxElement(n.Name, n.Attributes, n.Children)
		if err != nil {
			return err
		}
		w.raw(text)
	default:
		return fmt.Errorf("format markdown: no phrasing serialization for %T", n)
	}
	return nil
}

var textEscaper = bytereplacer.New(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`&`, `\&`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\~`,
)

// text writes literal content, escaping anything that could reopen a
// construct. Characters that only matter in column one get an extra
// escape at line starts.
func (w *phrasingWriter) text(s string) {
	for {
		line, rest, more := strings.Cut(s, "\n")
		line = string(textEscaper.Replace([]byte(line)))
		if w.lineStart {
			line = guardLineStart(line)
		}
		w.raw(line)
		if !more {
			return
		}
		w.sb.WriteByte('\n')
		w.lineStart = true
		s = rest
	}
}

// guardLineStart escapes a leading character that would start a block
// construct at the beginning of a line.
func guardLineStart(line string) string {
	if line == "" {
		return line
	}
	switch line[0] {
	case '#', '>', '-', '+', '=':
		return "\\" + line
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return line[:i] + "\\" + line[i:]
	}
	return line
}

// codeSpan fences a code span with more backticks than any run inside
// it, padding with spaces when the value borders on a backtick.
func codeSpan(value string) string {
	run := 0
	longest := 0
	for i := 0; i < len(value); i++ {
		if value[i] == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", longest+1)
	if strings.HasPrefix(value, "`") || strings.HasSuffix(value, "`") ||
		(strings.HasPrefix(value, " ") && strings.HasSuffix(value, " ") && strings.Trim(value, " ") != "") {
		value = " " + value + " "
	}
	return fence + value + fence
}

// autolinkForm reports whether a link round-trips as "<url>":
// a single text child spelling exactly the destination, no title.
func autolinkForm(n *markdown.Link) (string, bool) {
	if n.Title != nil || len(n.Children) != 1 {
		return "", false
	}
	text, ok := n.Children[0].(*markdown.Text)
	if !ok || text.Value != n.URL {
		return "", false
	}
	if !strings.Contains(n.URL, ":") || strings.ContainsAny(n.URL, "<> \t\n") {
		return "", false
	}
	return "<" + n.URL + ">", true
}

func referenceSuffix(kind markdown.ReferenceKind, label *string, identifier string) string {
	switch kind {
	case markdown.ReferenceFull:
		return "[" + escapeLabel(labelOrIdentifier(label, identifier)) + "]"
	case markdown.ReferenceCollapsed:
		return "[]"
	default:
		return ""
	}
}

func labelOrIdentifier(label *string, identifier string) string {
	if label != nil {
		return *label
	}
	return identifier
}

var labelEscaper = bytereplacer.New(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeLabel(s string) string {
	return string(labelEscaper.Replace([]byte(s)))
}

// destination renders a link destination, angle-bracketed when it
// contains whitespace or other troublesome characters.
func destination(url string) string {
	if url == "" {
		return "<>"
	}
	if strings.ContainsAny(url, " \t\n<>()") {
		r := strings.NewReplacer("<", "\\<", ">", "\\>")
		return "<" + r.Replace(url) + ">"
	}
	return url
}

func title(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func resource(url string, t *string) string {
	out := destination(url)
	if t != nil {
		out += " " + title(*t)
	}
	return out
}

var attrValueEscaper = bytereplacer.New(
	`&`, "&amp;",
	`"`, "&quot;",
)

// jsxElement renders an MDX JSX element and its phrasing children.
func jsxElement(name *string, attrs []markdown.AttributeContent, children []markdown.Node) (string, error) {
	var sb strings.Builder
	sb.WriteByte('<')
	if name != nil {
		sb.WriteString(*name)
	}
	for _, attr := range attrs {
		sb.WriteByte(' ')
		switch {
		case attr.Expression != nil:
			sb.WriteString("{" + attr.Expression.Value + "}")
		case attr.Property != nil:
			sb.WriteString(attr.Property.Name)
			if v := attr.Property.Value; v != nil {
				switch {
				case v.Literal != nil:
					sb.WriteString(`="` + string(attrValueEscaper.Replace([]byte(*v.Literal))) + `"`)
				case v.Expression != nil:
					sb.WriteString("={" + v.Expression.Value + "}")
				}
			}
		}
	}
	if len(children) == 0 && name != nil {
		sb.WriteString(" />")
		return sb.String(), nil
	}
	sb.WriteByte('>')
	inner, err := phrasing(children)
	if err != nil {
		return "", err
	}
	sb.WriteString(inner)
	sb.WriteString("</")
	if name != nil {
		sb.WriteString(*name)
	}
	sb.WriteByte('>')
	return sb.String(), nil
}
