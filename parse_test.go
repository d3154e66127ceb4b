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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// treeOptions compares syntax trees structurally, ignoring positions.
var treeOptions = cmp.Options{
	cmpopts.EquateEmpty(),
	cmp.FilterPath(func(p cmp.Path) bool {
		sf, ok := p.Last().(cmp.StructField)
		return ok && sf.Name() == "Position"
	}, cmp.Ignore()),
}

func mustParse(tb testing.TB, source string, opts *Options) *Root {
	tb.Helper()
	root, err := ParseTree([]byte(source), opts)
	if err != nil {
		tb.Fatalf("ParseTree(%q): %v", source, err)
	}
	return root
}

func gfmOptions() *Options {
	c := GFMConstructs()
	return &Options{Constructs: &c}
}

func mdxOptions() *Options {
	c := MDXConstructs()
	return &Options{Constructs: &c}
}

func ptr[T any](v T) *T {
	return &v
}

func TestParseTree(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Node
	}{
		{
			name:   "Empty",
			source: "",
			want:   nil,
		},
		{
			name:   "Paragraph",
			source: "Hello, world!",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "Hello, world!"}}},
			},
		},
		{
			name:   "TwoParagraphs",
			source: "a\n\nb\n",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "a"}}},
				&Paragraph{Children: []Node{&Text{Value: "b"}}},
			},
		},
		{
			name:   "ATXHeading",
			source: "# Hello",
			want: []Node{
				&Heading{Depth: 1, Children: []Node{&Text{Value: "Hello"}}},
			},
		},
		{
			name:   "ATXHeadingNeedsSpace",
			source: "#Hello",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "#Hello"}}},
			},
		},
		{
			name:   "ATXHeadingClosingSequence",
			source: "## foo ##",
			want: []Node{
				&Heading{Depth: 2, Children: []Node{&Text{Value: "foo"}}},
			},
		},
		{
			name:   "SetextHeading",
			source: "Hello\n=====\n",
			want: []Node{
				&Heading{Depth: 1, Children: []Node{&Text{Value: "Hello"}}},
			},
		},
		{
			name:   "SetextHeadingMultiline",
			source: "Hello\nWorld\n-----\n",
			want: []Node{
				&Heading{Depth: 2, Children: []Node{&Text{Value: "Hello\nWorld"}}},
			},
		},
		{
			name:   "ThematicBreak",
			source: "***\n",
			want:   []Node{&ThematicBreak{}},
		},
		{
			name:   "ThematicBreakInterruptsParagraph",
			source: "a\n***\nb\n",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "a"}}},
				&ThematicBreak{},
				&Paragraph{Children: []Node{&Text{Value: "b"}}},
			},
		},
		{
			name:   "BlockQuote",
			source: "> a\n> b",
			want: []Node{
				&BlockQuote{Children: []Node{
					&Paragraph{Children: []Node{&Text{Value: "a\nb"}}},
				}},
			},
		},
		{
			name:   "BlockQuoteLazyContinuation",
			source: "> a\nb",
			want: []Node{
				&BlockQuote{Children: []Node{
					&Paragraph{Children: []Node{&Text{Value: "a\nb"}}},
				}},
			},
		},
		{
			name:   "BlockQuoteNested",
			source: "> > a\n",
			want: []Node{
				&BlockQuote{Children: []Node{
					&BlockQuote{Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "a"}}},
					}},
				}},
			},
		},
		{
			name:   "TightList",
			source: "- a\n- b\n",
			want: []Node{
				&List{Children: []Node{
					&ListItem{Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "a"}}},
					}},
					&ListItem{Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "b"}}},
					}},
				}},
			},
		},
		{
			name:   "LooseList",
			source: "- a\n\n- b\n",
			want: []Node{
				&List{Spread: true, Children: []Node{
					&ListItem{Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "a"}}},
					}},
					&ListItem{Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "b"}}},
					}},
				}},
			},
		},
		{
			name:   "OrderedListStart",
			source: "3. a\n4. b\n",
			want: []Node{
				&List{Ordered: true, Start: ptr(3), Children: []Node{
					&ListItem{Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "a"}}},
					}},
					&ListItem{Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "b"}}},
					}},
				}},
			},
		},
		{
			name:   "ListItemMultipleBlocks",
			source: "- a\n\n  b\n",
			want: []Node{
				&List{Spread: true, Children: []Node{
					&ListItem{Spread: true, Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "a"}}},
						&Paragraph{Children: []Node{&Text{Value: "b"}}},
					}},
				}},
			},
		},
		{
			name:   "MarkerChangeStartsNewList",
			source: "- a\n* b\n",
			want: []Node{
				&List{Children: []Node{
					&ListItem{Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "a"}}},
					}},
				}},
				&List{Children: []Node{
					&ListItem{Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "b"}}},
					}},
				}},
			},
		},
		{
			name:   "FencedCode",
			source: "```go hello\nx := 1\n```\n",
			want: []Node{
				&Code{Lang: ptr("go"), Meta: ptr("hello"), Value: "x := 1"},
			},
		},
		{
			name:   "FencedCodeNoInfo",
			source: "```\na\n```",
			want:   []Node{&Code{Value: "a"}},
		},
		{
			name:   "FencedCodeUnclosed",
			source: "```\na\n",
			want:   []Node{&Code{Value: "a"}},
		},
		{
			name:   "IndentedCode",
			source: "    foo\n    bar\n",
			want:   []Node{&Code{Value: "foo\nbar"}},
		},
		{
			name:   "IndentedCodeCannotInterrupt",
			source: "a\n    b\n",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "a\nb"}}},
			},
		},
		{
			name:   "HTMLFlow",
			source: "<div>\nhi\n</div>\n",
			want:   []Node{&Html{Value: "<div>\nhi\n</div>"}},
		},
		{
			name:   "Definition",
			source: "[a]: /url 'title'\n",
			want: []Node{
				&Definition{URL: "/url", Title: ptr("title"), Identifier: "a", Label: ptr("a")},
			},
		},
		{
			name:   "DefinitionBeforeParagraph",
			source: "[a]: /url\nrest\n",
			want: []Node{
				&Definition{URL: "/url", Identifier: "a", Label: ptr("a")},
				&Paragraph{Children: []Node{&Text{Value: "rest"}}},
			},
		},
		{
			name:   "ForwardReference",
			source: "[a]\n\n[a]: /url\n",
			want: []Node{
				&Paragraph{Children: []Node{
					&LinkReference{
						ReferenceKind: ReferenceShortcut,
						Identifier:    "a",
						Label:         ptr("a"),
						Children:      []Node{&Text{Value: "a"}},
					},
				}},
				&Definition{URL: "/url", Identifier: "a", Label: ptr("a")},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mustParse(t, test.source, nil)
			want := &Root{Children: test.want}
			if diff := cmp.Diff(want, got, treeOptions); diff != "" {
				t.Errorf("ParseTree(%q) (-want +got):\n%s", test.source, diff)
			}
		})
	}
}

func TestParseTreeGFM(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Node
	}{
		{
			name:   "TaskList",
			source: "- [x] done\n- [ ] todo\n",
			want: []Node{
				&List{Children: []Node{
					&ListItem{Checked: ptr(true), Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "done"}}},
					}},
					&ListItem{Checked: ptr(false), Children: []Node{
						&Paragraph{Children: []Node{&Text{Value: "todo"}}},
					}},
				}},
			},
		},
		{
			name:   "Strikethrough",
			source: "~~a~~ b",
			want: []Node{
				&Paragraph{Children: []Node{
					&Delete{Children: []Node{&Text{Value: "a"}}},
					&Text{Value: " b"},
				}},
			},
		},
		{
			name:   "Table",
			source: "| a | b |\n| --- | :-: |\n| c | d |\n",
			want: []Node{
				&Table{
					Align: []AlignKind{AlignNone, AlignCenter},
					Children: []Node{
						&TableRow{Children: []Node{
							&TableCell{Children: []Node{&Text{Value: "a"}}},
							&TableCell{Children: []Node{&Text{Value: "b"}}},
						}},
						&TableRow{Children: []Node{
							&TableCell{Children: []Node{&Text{Value: "c"}}},
							&TableCell{Children: []Node{&Text{Value: "d"}}},
						}},
					},
				},
			},
		},
		{
			name:   "TableMissingCells",
			source: "| a | b |\n| --- | --- |\n| c |\n",
			want: []Node{
				&Table{
					Align: []AlignKind{AlignNone, AlignNone},
					Children: []Node{
						&TableRow{Children: []Node{
							&TableCell{Children: []Node{&Text{Value: "a"}}},
							&TableCell{Children: []Node{&Text{Value: "b"}}},
						}},
						&TableRow{Children: []Node{
							&TableCell{Children: []Node{&Text{Value: "c"}}},
							&TableCell{},
						}},
					},
				},
			},
		},
		{
			name:   "DelimiterRowMismatchStaysParagraph",
			source: "| a | b |\n| --- |\n",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "| a | b |\n| --- |"}}},
			},
		},
		{
			name:   "Footnote",
			source: "Note[^1]\n\n[^1]: the note\n",
			want: []Node{
				&Paragraph{Children: []Node{
					&Text{Value: "Note"},
					&FootnoteReference{Identifier: "1", Label: ptr("1")},
				}},
				&FootnoteDefinition{Identifier: "1", Label: ptr("1"), Children: []Node{
					&Paragraph{Children: []Node{&Text{Value: "the note"}}},
				}},
			},
		},
		{
			name:   "FootnoteLabelDecoded",
			source: "Note[^a&amp;b]\n\n[^a&amp;b]: the note\n",
			want: []Node{
				&Paragraph{Children: []Node{
					&Text{Value: "Note"},
					&FootnoteReference{Identifier: "a&amp;b", Label: ptr("a&b")},
				}},
				&FootnoteDefinition{Identifier: "a&amp;b", Label: ptr("a&b"), Children: []Node{
					&Paragraph{Children: []Node{&Text{Value: "the note"}}},
				}},
			},
		},
		{
			name:   "UndefinedFootnoteIsText",
			source: "Note[^1]\n",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "Note[^1]"}}},
			},
		},
		{
			name:   "AutolinkLiteral",
			source: "See https://example.com/x.\n",
			want: []Node{
				&Paragraph{Children: []Node{
					&Text{Value: "See "},
					&Link{URL: "https://example.com/x", Children: []Node{
						&Text{Value: "https://example.com/x"},
					}},
					&Text{Value: "."},
				}},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mustParse(t, test.source, gfmOptions())
			want := &Root{Children: test.want}
			if diff := cmp.Diff(want, got, treeOptions); diff != "" {
				t.Errorf("ParseTree(%q) (-want +got):\n%s", test.source, diff)
			}
		})
	}
}

func TestFrontmatter(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Node
	}{
		{
			name:   "Yaml",
			source: "---\ntitle: x\n---\n\nhi\n",
			want: []Node{
				&Yaml{Value: "title: x"},
				&Paragraph{Children: []Node{&Text{Value: "hi"}}},
			},
		},
		{
			name:   "Toml",
			source: "+++\na = 1\n+++\n",
			want:   []Node{&Toml{Value: "a = 1"}},
		},
		{
			name:   "UnclosedIsThematicBreak",
			source: "---\ntitle: x\n",
			want: []Node{
				&ThematicBreak{},
				&Paragraph{Children: []Node{&Text{Value: "title: x"}}},
			},
		},
		{
			name:   "NotAtStartOfDocument",
			source: "hi\n\n---\na\n---\n",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "hi"}}},
				&ThematicBreak{},
				&Heading{Depth: 2, Children: []Node{&Text{Value: "a"}}},
			},
		},
	}
	con := FrontmatterConstructs()
	opts := &Options{Constructs: &con}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mustParse(t, test.source, opts)
			want := &Root{Children: test.want}
			if diff := cmp.Diff(want, got, treeOptions); diff != "" {
				t.Errorf("ParseTree(%q) (-want +got):\n%s", test.source, diff)
			}
		})
	}
}

func TestMathFlow(t *testing.T) {
	con := MathConstructs()
	opts := &Options{Constructs: &con}

	got := mustParse(t, "$$\nx^2\n$$\n\na $x$ b\n", opts)
	want := &Root{Children: []Node{
		&Math{Value: "x^2"},
		&Paragraph{Children: []Node{
			&Text{Value: "a "},
			&InlineMath{Value: "x"},
			&Text{Value: " b"},
		}},
	}}
	if diff := cmp.Diff(want, got, treeOptions); diff != "" {
		t.Errorf("tree (-want +got):\n%s", diff)
	}
}

func TestInsecureCharacters(t *testing.T) {
	got := mustParse(t, "Hello,\x00World", nil)
	want := &Root{Children: []Node{
		&Paragraph{Children: []Node{&Text{Value: "Hello,�World"}}},
	}}
	if diff := cmp.Diff(want, got, treeOptions); diff != "" {
		t.Errorf("tree (-want +got):\n%s", diff)
	}
}

func TestDisabledConstructs(t *testing.T) {
	con := Constructs{Paragraph: true}
	opts := &Options{Constructs: &con}

	const source = "# not a heading\n"
	got := mustParse(t, source, opts)
	want := &Root{Children: []Node{
		&Paragraph{Children: []Node{&Text{Value: "# not a heading"}}},
	}}
	if diff := cmp.Diff(want, got, treeOptions); diff != "" {
		t.Errorf("ParseTree(%q) (-want +got):\n%s", source, diff)
	}
}

func TestDisabledParagraph(t *testing.T) {
	con := DefaultConstructs()
	con.Paragraph = false
	opts := &Options{Constructs: &con}

	const source = "# heading\n\nfree text\n\n> quoted text\n"
	got := mustParse(t, source, opts)
	want := &Root{Children: []Node{
		&Heading{Depth: 1, Children: []Node{&Text{Value: "heading"}}},
		&BlockQuote{},
	}}
	if diff := cmp.Diff(want, got, treeOptions); diff != "" {
		t.Errorf("ParseTree(%q) (-want +got):\n%s", source, diff)
	}
}

const kitchenSink = "# Title\n" +
	"\n" +
	"Some *emphasis*, **strong**, `code`, and ~~strikethrough~~.\n" +
	"\n" +
	"> A quote\n" +
	"> spanning lines.\n" +
	"\n" +
	"1. first\n" +
	"2. second\n" +
	"\n" +
	"- [x] task\n" +
	"\n" +
	"```go\nfmt.Println(42)\n```\n" +
	"\n" +
	"| a | b |\n| :-- | --: |\n| c | d |\n" +
	"\n" +
	"A [link][ref] and an image: ![alt](/img.png 'title').\n" +
	"\n" +
	"[ref]: https://example.com 'Example'\n" +
	"\n" +
	"Footnote[^note].\n" +
	"\n" +
	"[^note]: The note.\n"

func TestParseTreeDeterministic(t *testing.T) {
	first := mustParse(t, kitchenSink, gfmOptions())
	second := mustParse(t, kitchenSink, gfmOptions())
	if diff := cmp.Diff(first, second, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("second parse differs (-first +second):\n%s", diff)
	}
}

func TestPositionConsistency(t *testing.T) {
	root := mustParse(t, kitchenSink, gfmOptions())
	if root.Position == nil {
		t.Fatal("root has no position")
	}
	if root.Position.Start.Offset != 0 || root.Position.End.Offset != len(kitchenSink) {
		t.Errorf("root position = %v; want 0:%d", root.Position, len(kitchenSink))
	}
	Walk(root, &WalkOptions{
		Pre: func(c *Cursor) bool {
			pos := Pos(c.Node())
			if pos == nil {
				t.Errorf("%T has no position", c.Node())
				return true
			}
			if pos.Start.Offset > pos.End.Offset {
				t.Errorf("%T position %v: start is past end", c.Node(), pos)
			}
			if parent := c.Parent(); parent != nil {
				ppos := Pos(parent)
				if pos.Start.Offset < ppos.Start.Offset || pos.End.Offset > ppos.End.Offset {
					t.Errorf("%T position %v exceeds parent %T position %v", c.Node(), pos, parent, ppos)
				}
			}
			prev := Point{Line: 1, Column: 1}
			for _, child := range Children(c.Node()) {
				cpos := Pos(child)
				if cpos == nil {
					continue
				}
				if cpos.Start.Offset < prev.Offset {
					t.Errorf("%T child %T at %v starts before previous sibling end %v", c.Node(), child, cpos, prev)
				}
				prev = cpos.End
			}
			return true
		},
	})
}

func TestContent(t *testing.T) {
	root := mustParse(t, "# a *b*\n", nil)
	if got, want := Content(root), "a b"; got != want {
		t.Errorf("Content(root) = %q; want %q", got, want)
	}
}
