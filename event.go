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

import "fmt"

// eventKind marks an event as the start or the end of a token.
type eventKind uint8

const (
	enter eventKind = iota
	exit
)

func (k eventKind) String() string {
	if k == enter {
		return "enter"
	}
	return "exit"
}

// token identifies the construct a tokenizer event belongs to.
type token uint8

const (
	tokNone token = iota

	// Flow tokens.
	tokParagraph
	tokHeading
	tokThematicBreak
	tokBlockQuote
	tokList
	tokListItem
	tokCode
	tokMath
	tokHTMLFlow
	tokDefinition
	tokFootnoteDefinition
	tokTable
	tokTableRow
	tokTableCell
	tokYaml
	tokToml
	tokMdxEsm
	tokMdxFlowExpression
	tokMdxJsxFlowElement

	// Text tokens.
	tokText
	tokCharacterEscape
	tokCharacterReference
	tokSoftBreak
	tokHardBreak
	tokCodeText
	tokMathText
	tokAutolink
	tokHTMLText
	tokEmphasis
	tokStrong
	tokDelete
	tokLink
	tokImage
	tokLinkReference
	tokImageReference
	tokFootnoteReference
	tokMdxTextExpression
	tokMdxJsxTextElement
)

var tokenNames = map[token]string{
	tokParagraph:          "paragraph",
	tokHeading:            "heading",
	tokThematicBreak:      "thematicBreak",
	tokBlockQuote:         "blockQuote",
	tokList:               "list",
	tokListItem:           "listItem",
	tokCode:               "code",
	tokMath:               "math",
	tokHTMLFlow:           "htmlFlow",
	tokDefinition:         "definition",
	tokFootnoteDefinition: "footnoteDefinition",
	tokTable:              "table",
	tokTableRow:           "tableRow",
	tokTableCell:          "tableCell",
	tokYaml:               "yaml",
	tokToml:               "toml",
	tokMdxEsm:             "mdxjsEsm",
	tokMdxFlowExpression:  "mdxFlowExpression",
	tokMdxJsxFlowElement:  "mdxJsxFlowElement",
	tokText:               "text",
	tokCharacterEscape:    "characterEscape",
	tokCharacterReference: "characterReference",
	tokSoftBreak:          "softBreak",
	tokHardBreak:          "hardBreak",
	tokCodeText:           "codeText",
	tokMathText:           "mathText",
	tokAutolink:           "autolink",
	tokHTMLText:           "htmlText",
	tokEmphasis:           "emphasis",
	tokStrong:             "strong",
	tokDelete:             "delete",
	tokLink:               "link",
	tokImage:              "image",
	tokLinkReference:      "linkReference",
	tokImageReference:     "imageReference",
	tokFootnoteReference:  "footnoteReference",
	tokMdxTextExpression:  "mdxTextExpression",
	tokMdxJsxTextElement:  "mdxJsxTextElement",
}

func (t token) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", uint8(t))
}

// event is a single marker in the tokenizer's output stream.
// Enter and exit events for the same token nest like balanced parentheses;
// the compiler checks this invariant while folding the stream.
// The enter event carries the token's start offset, the exit event its end.
// Both events of a pair share the same info record.
type event struct {
	kind  eventKind
	tok   token
	start int
	end   int
	info  *nodeInfo
}

func enterEvent(tok token, start int, info *nodeInfo) event {
	return event{kind: enter, tok: tok, start: start, end: -1, info: info}
}

func exitEvent(tok token, end int, info *nodeInfo) event {
	return event{kind: exit, tok: tok, start: -1, end: end, info: info}
}

// nodeInfo carries per-construct data gathered during tokenization,
// shared by an enter/exit event pair.
// Only the fields relevant to the pair's token are set,
// in the same spirit as a tagged union payload.
type nodeInfo struct {
	// heading
	depth int

	// list, listItem
	ordered   bool
	listStart int  // first ordinal, -1 when unordered
	spread    bool
	checked   int8 // -1 not a task item, 0 unchecked, 1 checked

	// code
	lang, meta string
	hasLang    bool
	hasMeta    bool

	// link, image, definition
	url      string
	title    string
	hasTitle bool
	alt      string

	// references and definitions
	refKind    ReferenceKind
	identifier string
	label      string
	hasLabel   bool

	// table
	align []AlignKind

	// literals (code, html, math, frontmatter, mdx)
	value string
	stops []Stop

	// mdx jsx elements
	name  string
	named bool
	attrs []AttributeContent

	// pending inline content, one span per line segment
	spans []span
}
