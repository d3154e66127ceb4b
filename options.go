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

// Constructs enumerates the grammar rules the tokenizer may match.
// A disabled construct's opening sequence falls through to plain text
// rather than producing an error.
type Constructs struct {
	Autolink              bool
	BlockQuote            bool
	CharacterEscape       bool
	CharacterReference    bool
	CodeFenced            bool
	CodeIndented          bool
	CodeText              bool
	Definition            bool
	FrontmatterToml       bool
	FrontmatterYaml       bool
	GFMAutolinkLiteral    bool
	GFMFootnoteDefinition bool
	GFMLabelStartFootnote bool
	GFMStrikethrough      bool
	GFMTable              bool
	GFMTaskListItem       bool
	HardBreakEscape       bool
	HardBreakTrailing     bool
	HeadingATX            bool
	HeadingSetext         bool
	HTMLFlow              bool
	HTMLText              bool
	LabelStartImage       bool
	LabelStartLink        bool
	ListItem              bool
	MathFlow              bool
	MathText              bool
	MdxEsm                bool
	MdxExpressionFlow     bool
	MdxExpressionText     bool
	MdxJsxFlow            bool
	MdxJsxText            bool
	Paragraph             bool
	ThematicBreak         bool
}

// DefaultConstructs returns the CommonMark construct set.
func DefaultConstructs() Constructs {
	return Constructs{
		Autolink:           true,
		BlockQuote:         true,
		CharacterEscape:    true,
		CharacterReference: true,
		CodeFenced:         true,
		CodeIndented:       true,
		CodeText:           true,
		Definition:         true,
		HardBreakEscape:    true,
		HardBreakTrailing:  true,
		HeadingATX:         true,
		HeadingSetext:      true,
		HTMLFlow:           true,
		HTMLText:           true,
		LabelStartImage:    true,
		LabelStartLink:     true,
		ListItem:           true,
		Paragraph:          true,
		ThematicBreak:      true,
	}
}

// GFMConstructs returns the GitHub Flavored Markdown construct set:
// CommonMark plus autolink literals, footnotes, strikethrough, tables,
// and task list items.
func GFMConstructs() Constructs {
	c := DefaultConstructs()
	c.GFMAutolinkLiteral = true
	c.GFMFootnoteDefinition = true
	c.GFMLabelStartFootnote = true
	c.GFMStrikethrough = true
	c.GFMTable = true
	c.GFMTaskListItem = true
	return c
}

// MDXConstructs returns the MDX construct set:
// CommonMark with raw HTML, autolinks, and indented code replaced by
// ESM, expressions, and JSX elements.
func MDXConstructs() Constructs {
	c := DefaultConstructs()
	c.Autolink = false
	c.CodeIndented = false
	c.HTMLFlow = false
	c.HTMLText = false
	c.MdxEsm = true
	c.MdxExpressionFlow = true
	c.MdxExpressionText = true
	c.MdxJsxFlow = true
	c.MdxJsxText = true
	return c
}

// MathConstructs returns the CommonMark construct set plus math
// blocks and math spans.
func MathConstructs() Constructs {
	c := DefaultConstructs()
	c.MathFlow = true
	c.MathText = true
	return c
}

// FrontmatterConstructs returns the CommonMark construct set plus
// YAML and TOML frontmatter.
func FrontmatterConstructs() Constructs {
	c := DefaultConstructs()
	c.FrontmatterYaml = true
	c.FrontmatterToml = true
	return c
}

// MdxExpressionKind tells an expression hook what position
// the fragment was found in.
type MdxExpressionKind int

const (
	// MdxExpressionIndependent is a standalone expression,
	// in flow ({...} as its own block) or text position.
	MdxExpressionIndependent MdxExpressionKind = iota
	// MdxExpressionSpread is an attribute expression,
	// which must hold a single spread such as `...x`.
	MdxExpressionSpread
	// MdxExpressionValue is an attribute value expression (`a={b}`).
	MdxExpressionValue
)

// MdxEsmParse is an external parser hook for ESM import/export fragments.
// The stops translate byte indexes into value back to document offsets.
// Returning an error (ideally an [*OffsetError]) aborts the parse.
type MdxEsmParse func(value string, stops []Stop) error

// MdxExpressionParse is an external parser hook for braced expression
// fragments. It is called synchronously when the closing brace is found.
type MdxExpressionParse func(value string, kind MdxExpressionKind, stops []Stop) error

// Options is the set of parameters to [ParseTree].
// The zero value parses plain CommonMark.
type Options struct {
	// Constructs is the active capability set.
	// The zero value is replaced by [DefaultConstructs].
	Constructs *Constructs
	// MdxEsmParse parses ESM fragments when MdxEsm is enabled.
	MdxEsmParse MdxEsmParse
	// MdxExpressionParse parses expression fragments when MDX
	// expression constructs are enabled.
	MdxExpressionParse MdxExpressionParse
}

func (o *Options) constructs() Constructs {
	if o == nil || o.Constructs == nil {
		return DefaultConstructs()
	}
	return *o.Constructs
}
