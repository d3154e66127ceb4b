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

package format

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	markdown "github.com/bricef/markdown-rs"
)

func ptr[T any](v T) *T {
	return &v
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name string
		root *markdown.Root
		want string
	}{
		{
			name: "Paragraph",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Paragraph{Children: []markdown.Node{
					&markdown.Text{Value: "Hello, world!"},
				}},
			}},
			want: "Hello, world!\n",
		},
		{
			name: "Heading",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Heading{Depth: 2, Children: []markdown.Node{
					&markdown.Text{Value: "Title"},
				}},
			}},
			want: "## Title\n",
		},
		{
			name: "BlockQuote",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.BlockQuote{Children: []markdown.Node{
					&markdown.Paragraph{Children: []markdown.Node{
						&markdown.Text{Value: "a\nb"},
					}},
				}},
			}},
			want: "> a\n> b\n",
		},
		{
			name: "BlockQuoteTwoParagraphs",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.BlockQuote{Children: []markdown.Node{
					&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "a"}}},
					&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "b"}}},
				}},
			}},
			want: "> a\n>\n> b\n",
		},
		{
			name: "TightList",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.List{Children: []markdown.Node{
					&markdown.ListItem{Children: []markdown.Node{
						&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "a"}}},
					}},
					&markdown.ListItem{Children: []markdown.Node{
						&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "b"}}},
					}},
				}},
			}},
			want: "- a\n- b\n",
		},
		{
			name: "OrderedListStart",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.List{Ordered: true, Start: ptr(3), Children: []markdown.Node{
					&markdown.ListItem{Children: []markdown.Node{
						&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "a"}}},
					}},
					&markdown.ListItem{Children: []markdown.Node{
						&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "b"}}},
					}},
				}},
			}},
			want: "3. a\n4. b\n",
		},
		{
			name: "TaskList",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.List{Children: []markdown.Node{
					&markdown.ListItem{Checked: ptr(true), Children: []markdown.Node{
						&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "done"}}},
					}},
				}},
			}},
			want: "- [x] done\n",
		},
		{
			name: "Code",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Code{Lang: ptr("go"), Value: "x := 1"},
			}},
			want: "```go\nx := 1\n```\n",
		},
		{
			name: "CodeFenceLengthening",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Code{Value: "```\na\n```"},
			}},
			want: "````\n```\na\n```\n````\n",
		},
		{
			name: "Definition",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Definition{URL: "/url", Title: ptr("title"), Identifier: "a", Label: ptr("a")},
			}},
			want: "[a]: /url \"title\"\n",
		},
		{
			name: "Table",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Table{
					Align: []markdown.AlignKind{markdown.AlignNone, markdown.AlignCenter},
					Children: []markdown.Node{
						&markdown.TableRow{Children: []markdown.Node{
							&markdown.TableCell{Children: []markdown.Node{&markdown.Text{Value: "a"}}},
							&markdown.TableCell{Children: []markdown.Node{&markdown.Text{Value: "b"}}},
						}},
						&markdown.TableRow{Children: []markdown.Node{
							&markdown.TableCell{Children: []markdown.Node{&markdown.Text{Value: "c"}}},
							&markdown.TableCell{Children: []markdown.Node{&markdown.Text{Value: "d"}}},
						}},
					},
				},
			}},
			want: "| a | b |\n| --- | :-: |\n| c | d |\n",
		},
		{
			name: "Phrasing",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Paragraph{Children: []markdown.Node{
					&markdown.Emphasis{Children: []markdown.Node{&markdown.Text{Value: "a"}}},
					&markdown.Text{Value: " "},
					&markdown.Strong{Children: []markdown.Node{&markdown.Text{Value: "b"}}},
					&markdown.Text{Value: " "},
					&markdown.InlineCode{Value: "c"},
				}},
			}},
			want: "*a* **b** `c`\n",
		},
		{
			name: "TextEscaping",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Paragraph{Children: []markdown.Node{
					&markdown.Text{Value: "*not emphasis*"},
				}},
			}},
			want: "\\*not emphasis\\*\n",
		},
		{
			name: "LineStartGuard",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Paragraph{Children: []markdown.Node{
					&markdown.Text{Value: "# not a heading\n1. not a list"},
				}},
			}},
			want: "\\# not a heading\n1\\. not a list\n",
		},
		{
			name: "HardBreak",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Paragraph{Children: []markdown.Node{
					&markdown.Text{Value: "a"},
					&markdown.Break{},
					&markdown.Text{Value: "b"},
				}},
			}},
			want: "a\\\nb\n",
		},
		{
			name: "Autolink",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Paragraph{Children: []markdown.Node{
					&markdown.Link{URL: "https://example.com", Children: []markdown.Node{
						&markdown.Text{Value: "https://example.com"},
					}},
				}},
			}},
			want: "<https://example.com>\n",
		},
		{
			name: "LinkDestinationWithSpace",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Paragraph{Children: []markdown.Node{
					&markdown.Link{URL: "/a b", Children: []markdown.Node{
						&markdown.Text{Value: "x"},
					}},
				}},
			}},
			want: "[x](</a b>)\n",
		},
		{
			name: "CodeSpanPadding",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Paragraph{Children: []markdown.Node{
					&markdown.InlineCode{Value: "`a`"},
				}},
			}},
			want: "`` `a` ``\n",
		},
		{
			name: "FootnoteDefinition",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.FootnoteDefinition{Identifier: "1", Label: ptr("1"), Children: []markdown.Node{
					&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "a"}}},
					&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "b"}}},
				}},
			}},
			want: "[^1]: a\n\n    b\n",
		},
		{
			name: "MdxFlowExpression",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.MdxFlowExpression{Value: "1 + 1"},
			}},
			want: "{1 + 1}\n",
		},
		{
			name: "JsxSelfClosing",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.MdxJsxFlowElement{Name: ptr("a"), Attributes: []markdown.AttributeContent{
					{Property: &markdown.MdxJsxAttribute{Name: "x"}},
					{Property: &markdown.MdxJsxAttribute{
						Name:  "b",
						Value: &markdown.AttributeValue{Literal: ptr(`say "&"`)},
					}},
					{Expression: &markdown.AttributeExpression{Value: "...rest"}},
				}},
			}},
			want: "<a x b=\"say &quot;&amp;&quot;\" {...rest} />\n",
		},
		{
			name: "JsxFragment",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.MdxJsxFlowElement{Children: []markdown.Node{
					&markdown.Text{Value: "a"},
				}},
			}},
			want: "<>a</>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Markdown(test.root)
			if err != nil {
				t.Fatal("Markdown:", err)
			}
			if got != test.want {
				t.Errorf("Markdown(...) = %q; want %q", got, test.want)
			}
		})
	}
}

func TestMarkdownErrors(t *testing.T) {
	tests := []struct {
		name string
		root *markdown.Root
	}{
		{
			name: "TextInFlowPosition",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Text{Value: "a"},
			}},
		},
		{
			name: "CodeMetaWithoutLang",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Code{Meta: ptr("m"), Value: "a"},
			}},
		},
		{
			name: "BacktickInCodeInfo",
			root: &markdown.Root{Children: []markdown.Node{
				&markdown.Code{Lang: ptr("a`b"), Value: "a"},
			}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got, err := Markdown(test.root); err == nil {
				t.Errorf("Markdown(...) = %q, <nil>; want error", got)
			}
		})
	}
}

func TestRender(t *testing.T) {
	root := &markdown.Root{Children: []markdown.Node{
		&markdown.Paragraph{Children: []markdown.Node{&markdown.Text{Value: "hi"}}},
	}}
	sb := new(strings.Builder)
	if err := Render(sb, root); err != nil {
		t.Fatal("Render:", err)
	}
	if got, want := sb.String(), "hi\n"; got != want {
		t.Errorf("Render wrote %q; want %q", got, want)
	}
}

// roundTripOptions ignores positions and stops, which necessarily
// shift when a tree is serialized to a new document.
var roundTripOptions = cmp.Options{
	cmpopts.EquateEmpty(),
	cmp.FilterPath(func(p cmp.Path) bool {
		sf, ok := p.Last().(cmp.StructField)
		return ok && (sf.Name() == "Position" || sf.Name() == "Stops")
	}, cmp.Ignore()),
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		source string
		opts   func() *markdown.Options
	}{
		{
			name: "GFM",
			source: "# Title\n" +
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
				"A [link][ref] and an image: ![alt](/img.png \"title\").\n" +
				"\n" +
				"[ref]: https://example.com \"Example\"\n" +
				"\n" +
				"Footnote[^note].\n" +
				"\n" +
				"[^note]: The note.\n",
			opts: func() *markdown.Options {
				c := markdown.GFMConstructs()
				return &markdown.Options{Constructs: &c}
			},
		},
		{
			name: "MDX",
			source: "import Note from './note'\n" +
				"\n" +
				"{1 + 1}\n" +
				"\n" +
				"<Note kind=\"warn\" level={2}>\n" +
				"  <i>text</i>\n" +
				"</Note>\n" +
				"\n" +
				"Inline {x} and <b>tags</b>.\n",
			opts: func() *markdown.Options {
				c := markdown.MDXConstructs()
				return &markdown.Options{Constructs: &c}
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			first, err := markdown.ParseTree([]byte(test.source), test.opts())
			if err != nil {
				t.Fatal("ParseTree:", err)
			}
			text, err := Markdown(first)
			if err != nil {
				t.Fatal("Markdown:", err)
			}
			second, err := markdown.ParseTree([]byte(text), test.opts())
			if err != nil {
				t.Fatalf("ParseTree(%q): %v", text, err)
			}
			if diff := cmp.Diff(first, second, roundTripOptions); diff != "" {
				t.Errorf("tree changed after round trip through %q (-first +second):\n%s", text, diff)
			}
		})
	}
}
