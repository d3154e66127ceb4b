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

// compileFrame accumulates the children of one parent token while the
// compiler folds the event stream. Adjacent pieces of literal phrasing
// content (text, escapes, references, soft breaks) merge into a single
// [Text] node.
type compileFrame struct {
	tok   token
	start int
	info  *nodeInfo

	children []Node

	textBuf   strings.Builder
	textStart int
	textEnd   int
}

func newCompileFrame(tok token, start int, info *nodeInfo) *compileFrame {
	return &compileFrame{tok: tok, start: start, info: info, textStart: -1}
}

func (f *compileFrame) addText(s string, start, end int) {
	if f.textStart < 0 {
		f.textStart = start
	}
	f.textBuf.WriteString(s)
	f.textEnd = end
}

func (f *compileFrame) flushText(pos *positioner) {
	if f.textStart < 0 {
		return
	}
	f.children = append(f.children, &Text{
		Value:    f.textBuf.String(),
		Position: pos.position(f.textStart, f.textEnd),
	})
	f.textBuf.Reset()
	f.textStart = -1
}

// compile folds the resolved event stream into the syntax tree.
// The stream is balanced by construction; an imbalance here is an
// internal error.
func (t *tokenizer) compile() *Root {
	root := newCompileFrame(tokNone, 0, nil)
	stack := []*compileFrame{root}
	events := t.events
	for i := 0; i < len(events); i++ {
		ev := events[i]
		top := stack[len(stack)-1]
		if ev.kind == exit {
			if len(stack) < 2 || top.tok != ev.tok {
				panic("markdown: unbalanced exit event for " + ev.tok.String())
			}
			top.flushText(t.pos)
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, t.parentNode(top, ev.end))
			continue
		}
		switch ev.tok {
		case tokText:
			i++
			top.addText(string(t.src[ev.start:events[i].end]), ev.start, events[i].end)
		case tokCharacterEscape, tokCharacterReference:
			i++
			top.addText(ev.info.value, ev.start, events[i].end)
		case tokSoftBreak:
			i++
			top.addText("\n", ev.start, events[i].end)
		case tokHardBreak:
			i++
			top.flushText(t.pos)
			top.children = append(top.children, &Break{Position: t.pos.position(ev.start, events[i].end)})
		case tokThematicBreak, tokCode, tokMath, tokHTMLFlow, tokHTMLText,
			tokYaml, tokToml, tokDefinition, tokMdxEsm,
			tokMdxFlowExpression, tokMdxTextExpression,
			tokCodeText, tokMathText, tokAutolink,
			tokImage, tokImageReference, tokFootnoteReference:
			i++
			top.flushText(t.pos)
			top.children = append(top.children, t.leafNode(ev, events[i]))
		default:
			top.flushText(t.pos)
			stack = append(stack, newCompileFrame(ev.tok, ev.start, ev.info))
		}
	}
	if len(stack) != 1 {
		panic("markdown: unbalanced enter event for " + stack[len(stack)-1].tok.String())
	}
	root.flushText(t.pos)
	return &Root{
		Children: root.children,
		Position: t.pos.position(0, len(t.src)),
	}
}

// parentNode builds the node for a closed parent frame.
func (t *tokenizer) parentNode(f *compileFrame, end int) Node {
	pos := t.pos.position(f.start, end)
	info := f.info
	switch f.tok {
	case tokParagraph:
		return &Paragraph{Children: f.children, Position: pos}
	case tokHeading:
		return &Heading{Children: f.children, Position: pos, Depth: info.depth}
	case tokBlockQuote:
		return &BlockQuote{Children: f.children, Position: pos}
	case tokList:
		n := &List{Children: f.children, Position: pos, Ordered: info.ordered, Spread: info.spread}
		if info.ordered {
			start := info.listStart
			n.Start = &start
		}
		return n
	case tokListItem:
		n := &ListItem{Children: f.children, Position: pos, Spread: info.spread}
		if info.checked >= 0 {
			checked := info.checked == 1
			n.Checked = &checked
		}
		return n
	case tokFootnoteDefinition:
		return &FootnoteDefinition{
			Children:   f.children,
			Position:   pos,
			Identifier: info.identifier,
			Label:      optLabel(info),
		}
	case tokTable:
		return &Table{Children: f.children, Position: pos, Align: info.align}
	case tokTableRow:
		return &TableRow{Children: f.children, Position: pos}
	case tokTableCell:
		return &TableCell{Children: f.children, Position: pos}
	case tokEmphasis:
		return &Emphasis{Children: f.children, Position: pos}
	case tokStrong:
		return &Strong{Children: f.children, Position: pos}
	case tokDelete:
		return &Delete{Children: f.children, Position: pos}
	case tokLink:
		return &Link{Children: f.children, Position: pos, URL: info.url, Title: optTitle(info)}
	case tokLinkReference:
		return &LinkReference{
			Children:      f.children,
			Position:      pos,
			ReferenceKind: info.refKind,
			Identifier:    info.identifier,
			Label:         optLabel(info),
		}
	case tokMdxJsxFlowElement:
		return &MdxJsxFlowElement{
			Children:   f.children,
			Position:   pos,
			Name:       optName(info),
			Attributes: info.attrs,
		}
	case tokMdxJsxTextElement:
		return &MdxJsxTextElement{
			Children:   f.children,
			Position:   pos,
			Name:       optName(info),
			Attributes: info.attrs,
		}
	default:
		panic("markdown: cannot compile parent " + f.tok.String())
	}
}

// leafNode builds the node for a literal or void enter/exit pair.
func (t *tokenizer) leafNode(ev, exitEv event) Node {
	pos := t.pos.position(ev.start, exitEv.end)
	info := ev.info
	switch ev.tok {
	case tokThematicBreak:
		return &ThematicBreak{Position: pos}
	case tokCode:
		n := &Code{Value: info.value, Position: pos}
		if info.hasLang {
			lang := info.lang
			n.Lang = &lang
		}
		if info.hasMeta {
			meta := info.meta
			n.Meta = &meta
		}
		return n
	case tokMath:
		n := &Math{Value: info.value, Position: pos}
		if info.hasMeta {
			meta := info.meta
			n.Meta = &meta
		}
		return n
	case tokHTMLFlow, tokHTMLText:
		return &Html{Value: info.value, Position: pos}
	case tokYaml:
		return &Yaml{Value: info.value, Position: pos}
	case tokToml:
		return &Toml{Value: info.value, Position: pos}
	case tokDefinition:
		return &Definition{
			Position:   pos,
			URL:        info.url,
			Title:      optTitle(info),
			Identifier: info.identifier,
			Label:      optLabel(info),
		}
	case tokMdxEsm:
		return &MdxjsEsm{Value: info.value, Position: pos, Stops: info.stops}
	case tokMdxFlowExpression:
		return &MdxFlowExpression{Value: info.value, Position: pos, Stops: info.stops}
	case tokMdxTextExpression:
		return &MdxTextExpression{Value: info.value, Position: pos, Stops: info.stops}
	case tokCodeText:
		return &InlineCode{Value: info.value, Position: pos}
	case tokMathText:
		return &InlineMath{Value: info.value, Position: pos}
	case tokAutolink:
		// Angle-bracketed autolinks exclude the brackets from the
		// inner text; GFM literal autolinks have no brackets.
		textStart, textEnd := ev.start, exitEv.end
		if t.src[ev.start] == '<' {
			textStart++
			textEnd--
		}
		return &Link{
			Children: []Node{&Text{
				Value:    info.value,
				Position: t.pos.position(textStart, textEnd),
			}},
			Position: pos,
			URL:      info.url,
		}
	case tokImage:
		return &Image{Position: pos, Alt: info.alt, URL: info.url, Title: optTitle(info)}
	case tokImageReference:
		return &ImageReference{
			Position:      pos,
			Alt:           info.alt,
			ReferenceKind: info.refKind,
			Identifier:    info.identifier,
			Label:         optLabel(info),
		}
	case tokFootnoteReference:
		return &FootnoteReference{
			Position:   pos,
			Identifier: info.identifier,
			Label:      optLabel(info),
		}
	default:
		panic("markdown: cannot compile leaf " + ev.tok.String())
	}
}

func optTitle(info *nodeInfo) *string {
	if !info.hasTitle {
		return nil
	}
	title := info.title
	return &title
}

func optLabel(info *nodeInfo) *string {
	if !info.hasLabel {
		return nil
	}
	label := info.label
	return &label
}

func optName(info *nodeInfo) *string {
	if !info.named {
		return nil
	}
	name := info.name
	return &name
}
