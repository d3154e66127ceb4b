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

import "strings"

// Node is a single element of the syntax tree.
// The set of implementations is closed:
// every node is one of the variant structs in this package,
// and consumers can type switch exhaustively.
type Node interface {
	node()
}

// ReferenceKind is the explicitness of a reference.
type ReferenceKind int

const (
	// ReferenceShortcut is an implicit reference: [a].
	ReferenceShortcut ReferenceKind = iota
	// ReferenceCollapsed is an explicit reference with an inferred
	// identifier: [a][].
	ReferenceCollapsed
	// ReferenceFull is an explicit reference: [a][b].
	ReferenceFull
)

func (k ReferenceKind) String() string {
	switch k {
	case ReferenceShortcut:
		return "shortcut"
	case ReferenceCollapsed:
		return "collapsed"
	case ReferenceFull:
		return "full"
	default:
		return "unknown"
	}
}

// AlignKind is how phrasing content in a table column is aligned.
type AlignKind int

const (
	AlignNone AlignKind = iota
	AlignLeft
	AlignRight
	AlignCenter
)

func (k AlignKind) String() string {
	switch k {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	default:
		return "none"
	}
}

// AttributeContent is one attribute of an MDX JSX element:
// either a spread expression or a name/value property.
// Exactly one field is set.
type AttributeContent struct {
	// Expression is set for spread expressions ({...x}).
	Expression *AttributeExpression
	// Property is set for name/value attributes.
	Property *MdxJsxAttribute
}

// AttributeExpression is an expression in attribute or
// attribute-value position, with its offset remapping.
type AttributeExpression struct {
	Value string
	Stops []Stop
}

// MdxJsxAttribute is a name/value JSX attribute.
// Value is nil for boolean-style attributes.
type MdxJsxAttribute struct {
	Name  string
	Value *AttributeValue
}

// AttributeValue is the value of a JSX attribute:
// either a literal string or an expression with stops.
// Exactly one field is set.
type AttributeValue struct {
	// Literal is the decoded value for quoted attribute values.
	Literal *string
	// Expression is set instead for `={...}` values.
	Expression *AttributeExpression
}

// Root is the document.
type Root struct {
	Children []Node
	Position *Position
}

// Paragraph is a unit of discourse.
type Paragraph struct {
	Children []Node
	Position *Position
}

// Heading is a heading of a section; Depth is its rank, 1 through 6.
type Heading struct {
	Children []Node
	Position *Position
	Depth    int
}

// ThematicBreak is a break between sections, such as "***".
type ThematicBreak struct {
	Position *Position
}

// BlockQuote is a section quoted from somewhere else.
type BlockQuote struct {
	Children []Node
	Position *Position
}

// List is an ordered or unordered list of items.
type List struct {
	Children []Node
	Position *Position
	Ordered  bool
	// Start is the ordinal of the first item; nil when unordered.
	Start *int
	// Spread reports whether any children are separated by blank lines.
	Spread bool
}

// ListItem is an item in a [List].
type ListItem struct {
	Children []Node
	Position *Position
	Spread   bool
	// Checked is the GFM task state: done, not done,
	// or nil when the item is not a task.
	Checked *bool
}

// Html is a fragment of raw HTML, in flow or phrasing position.
type Html struct {
	Value    string
	Position *Position
}

// Code is a fenced or indented code block.
type Code struct {
	Value    string
	Position *Position
	// Lang is the language of the code, from the first word of the
	// info string; nil when absent.
	Lang *string
	// Meta is the rest of the info string; nil when absent.
	Meta *string
}

// Math is a math block fenced with "$$".
type Math struct {
	Value    string
	Position *Position
	Meta     *string
}

// Definition is a link reference definition: "[a]: b".
//
// Identifier is the normalized source value used for matching:
// character escapes and character references are not interpreted,
// but markdown whitespace is collapsed and case is folded.
// Label is the human-facing form with escapes and references decoded.
type Definition struct {
	Position   *Position
	URL        string
	Title      *string
	Identifier string
	Label      *string
}

// Text is literal phrasing content.
type Text struct {
	Value    string
	Position *Position
}

// Emphasis is stressed phrasing content.
type Emphasis struct {
	Children []Node
	Position *Position
}

// Strong is strongly stressed phrasing content.
type Strong struct {
	Children []Node
	Position *Position
}

// Delete is struck-out phrasing content (GFM).
type Delete struct {
	Children []Node
	Position *Position
}

// InlineCode is a code span.
type InlineCode struct {
	Value    string
	Position *Position
}

// InlineMath is a math span delimited with "$".
type InlineMath struct {
	Value    string
	Position *Position
}

// Break is a hard line break.
type Break struct {
	Position *Position
}

// Link is a hyperlink with an inline resource.
type Link struct {
	Children []Node
	Position *Position
	URL      string
	Title    *string
}

// Image is an image with an inline resource.
type Image struct {
	Position *Position
	Alt      string
	URL      string
	Title    *string
}

// LinkReference is a hyperlink by association: "[a]" or "[a][b]".
// Identifier and Label follow the same convention as [Definition].
type LinkReference struct {
	Children      []Node
	Position      *Position
	ReferenceKind ReferenceKind
	Identifier    string
	Label         *string
}

// ImageReference is an image by association: "![a]".
type ImageReference struct {
	Position      *Position
	Alt           string
	ReferenceKind ReferenceKind
	Identifier    string
	Label         *string
}

// FootnoteDefinition is content relating to the document
// outside of the flow (GFM): "[^a]: b".
type FootnoteDefinition struct {
	Children   []Node
	Position   *Position
	Identifier string
	Label      *string
}

// FootnoteReference is a marker through association (GFM): "[^a]".
type FootnoteReference struct {
	Position   *Position
	Identifier string
	Label      *string
}

// Table is two-dimensional data (GFM).
// Align has one entry per column.
type Table struct {
	Children []Node
	Position *Position
	Align    []AlignKind
}

// TableRow is a row of cells in a [Table].
type TableRow struct {
	Children []Node
	Position *Position
}

// TableCell is a header or data cell in a [TableRow].
type TableCell struct {
	Children []Node
	Position *Position
}

// Yaml is YAML frontmatter.
type Yaml struct {
	Value    string
	Position *Position
}

// Toml is TOML frontmatter.
type Toml struct {
	Value    string
	Position *Position
}

// MdxjsEsm is an MDX ESM import/export fragment.
type MdxjsEsm struct {
	Value    string
	Position *Position
	Stops    []Stop
}

// MdxFlowExpression is an MDX expression in flow position: "{a}".
type MdxFlowExpression struct {
	Value    string
	Position *Position
	Stops    []Stop
}

// MdxTextExpression is an MDX expression in phrasing position.
type MdxTextExpression struct {
	Value    string
	Position *Position
	Stops    []Stop
}

// MdxJsxFlowElement is an MDX JSX element in flow position.
// Name is nil for fragments.
type MdxJsxFlowElement struct {
	Children   []Node
	Position   *Position
	Name       *string
	Attributes []AttributeContent
}

// MdxJsxTextElement is an MDX JSX element in phrasing position.
// Name is nil for fragments.
type MdxJsxTextElement struct {
	Children   []Node
	Position   *Position
	Name       *string
	Attributes []AttributeContent
}

func (*Root) node()               {}
func (*Paragraph) node()          {}
func (*Heading) node()            {}
func (*ThematicBreak) node()      {}
func (*BlockQuote) node()         {}
func (*List) node()               {}
func (*ListItem) node()           {}
func (*Html) node()               {}
func (*Code) node()               {}
func (*Math) node()               {}
func (*Definition) node()         {}
func (*Text) node()               {}
func (*Emphasis) node()           {}
func (*Strong) node()             {}
func (*Delete) node()             {}
func (*InlineCode) node()         {}
func (*InlineMath) node()         {}
func (*Break) node()              {}
func (*Link) node()               {}
func (*Image) node()              {}
func (*LinkReference) node()      {}
func (*ImageReference) node()     {}
func (*FootnoteDefinition) node() {}
func (*FootnoteReference) node()  {}
func (*Table) node()              {}
func (*TableRow) node()           {}
func (*TableCell) node()          {}
func (*Yaml) node()               {}
func (*Toml) node()               {}
func (*MdxjsEsm) node()           {}
func (*MdxFlowExpression) node()  {}
func (*MdxTextExpression) node()  {}
func (*MdxJsxFlowElement) node()  {}
func (*MdxJsxTextElement) node()  {}

// Children returns the ordered children of a parent node,
// or nil for literal and void nodes.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Root:
		return n.Children
	case *Paragraph:
		return n.Children
	case *Heading:
		return n.Children
	case *BlockQuote:
		return n.Children
	case *List:
		return n.Children
	case *ListItem:
		return n.Children
	case *Emphasis:
		return n.Children
	case *Strong:
		return n.Children
	case *Delete:
		return n.Children
	case *Link:
		return n.Children
	case *LinkReference:
		return n.Children
	case *FootnoteDefinition:
		return n.Children
	case *Table:
		return n.Children
	case *TableRow:
		return n.Children
	case *TableCell:
		return n.Children
	case *MdxJsxFlowElement:
		return n.Children
	case *MdxJsxTextElement:
		return n.Children
	default:
		return nil
	}
}

// Pos returns the node's position, or nil when the node was
// synthesized without source.
func Pos(n Node) *Position {
	switch n := n.(type) {
	case *Root:
		return n.Position
	case *Paragraph:
		return n.Position
	case *Heading:
		return n.Position
	case *ThematicBreak:
		return n.Position
	case *BlockQuote:
		return n.Position
	case *List:
		return n.Position
	case *ListItem:
		return n.Position
	case *Html:
		return n.Position
	case *Code:
		return n.Position
	case *Math:
		return n.Position
	case *Definition:
		return n.Position
	case *Text:
		return n.Position
	case *Emphasis:
		return n.Position
	case *Strong:
		return n.Position
	case *Delete:
		return n.Position
	case *InlineCode:
		return n.Position
	case *InlineMath:
		return n.Position
	case *Break:
		return n.Position
	case *Link:
		return n.Position
	case *Image:
		return n.Position
	case *LinkReference:
		return n.Position
	case *ImageReference:
		return n.Position
	case *FootnoteDefinition:
		return n.Position
	case *FootnoteReference:
		return n.Position
	case *Table:
		return n.Position
	case *TableRow:
		return n.Position
	case *TableCell:
		return n.Position
	case *Yaml:
		return n.Position
	case *Toml:
		return n.Position
	case *MdxjsEsm:
		return n.Position
	case *MdxFlowExpression:
		return n.Position
	case *MdxTextExpression:
		return n.Position
	case *MdxJsxFlowElement:
		return n.Position
	case *MdxJsxTextElement:
		return n.Position
	default:
		return nil
	}
}

// Content returns the concatenated literal content of a subtree:
// a literal node's value, or the contents of a parent's children.
// Void nodes contribute nothing.
func Content(n Node) string {
	switch n := n.(type) {
	case *Html:
		return n.Value
	case *Code:
		return n.Value
	case *Math:
		return n.Value
	case *Text:
		return n.Value
	case *InlineCode:
		return n.Value
	case *InlineMath:
		return n.Value
	case *Yaml:
		return n.Value
	case *Toml:
		return n.Value
	case *MdxjsEsm:
		return n.Value
	case *MdxFlowExpression:
		return n.Value
	case *MdxTextExpression:
		return n.Value
	default:
		children := Children(n)
		if len(children) == 0 {
			return ""
		}
		sb := new(strings.Builder)
		for _, c := range children {
			sb.WriteString(Content(c))
		}
		return sb.String()
	}
}
