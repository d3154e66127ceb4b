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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMdxEsm(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Node
	}{
		{
			name:   "Import",
			source: "import a from 'b'\n\nhi\n",
			want: []Node{
				&MdxjsEsm{
					Value: "import a from 'b'",
					Stops: []Stop{{Index: 0, Offset: 0}},
				},
				&Paragraph{Children: []Node{&Text{Value: "hi"}}},
			},
		},
		{
			name:   "ExportMultiline",
			source: "export const a = 1\nexport const b = 2\n\nhi\n",
			want: []Node{
				&MdxjsEsm{
					Value: "export const a = 1\nexport const b = 2",
					Stops: []Stop{{Index: 0, Offset: 0}, {Index: 19, Offset: 19}},
				},
				&Paragraph{Children: []Node{&Text{Value: "hi"}}},
			},
		},
		{
			name:   "KeywordNeedsBoundary",
			source: "importance\n",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "importance"}}},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mustParse(t, test.source, mdxOptions())
			want := &Root{Children: test.want}
			if diff := cmp.Diff(want, got, treeOptions); diff != "" {
				t.Errorf("ParseTree(%q) (-want +got):\n%s", test.source, diff)
			}
		})
	}
}

func TestMdxExpressions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Node
	}{
		{
			name:   "Flow",
			source: "{1 + 1}\n",
			want: []Node{
				&MdxFlowExpression{
					Value: "1 + 1",
					Stops: []Stop{{Index: 0, Offset: 1}},
				},
			},
		},
		{
			name:   "FlowMultiline",
			source: "{\n  a\n}\n",
			want: []Node{
				&MdxFlowExpression{
					Value: "\n  a\n",
					Stops: []Stop{{Index: 0, Offset: 1}, {Index: 1, Offset: 2}, {Index: 5, Offset: 6}},
				},
			},
		},
		{
			name:   "FlowEmpty",
			source: "{}\n",
			want: []Node{
				&MdxFlowExpression{
					Value: "",
					Stops: []Stop{{Index: 0, Offset: 1}},
				},
			},
		},
		{
			name:   "Text",
			source: "a {b} c\n",
			want: []Node{
				&Paragraph{Children: []Node{
					&Text{Value: "a "},
					&MdxTextExpression{Value: "b", Stops: []Stop{{Index: 0, Offset: 3}}},
					&Text{Value: " c"},
				}},
			},
		},
		{
			name:   "TrailingContentDegradesToParagraph",
			source: "{a} b\n",
			want: []Node{
				&Paragraph{Children: []Node{
					&MdxTextExpression{Value: "a", Stops: []Stop{{Index: 0, Offset: 1}}},
					&Text{Value: " b"},
				}},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mustParse(t, test.source, mdxOptions())
			want := &Root{Children: test.want}
			if diff := cmp.Diff(want, got, treeOptions); diff != "" {
				t.Errorf("ParseTree(%q) (-want +got):\n%s", test.source, diff)
			}
		})
	}
}

func TestMdxJsx(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Node
	}{
		{
			name:   "TextElement",
			source: "a <b>c</b> d\n",
			want: []Node{
				&Paragraph{Children: []Node{
					&Text{Value: "a "},
					&MdxJsxTextElement{Name: ptr("b"), Children: []Node{&Text{Value: "c"}}},
					&Text{Value: " d"},
				}},
			},
		},
		{
			name:   "TextFragment",
			source: "a <>c</> d\n",
			want: []Node{
				&Paragraph{Children: []Node{
					&Text{Value: "a "},
					&MdxJsxTextElement{Children: []Node{&Text{Value: "c"}}},
					&Text{Value: " d"},
				}},
			},
		},
		{
			name:   "FlowElement",
			source: "<a>*hi*</a>\n",
			want: []Node{
				&MdxJsxFlowElement{Name: ptr("a"), Children: []Node{
					&Emphasis{Children: []Node{&Text{Value: "hi"}}},
				}},
			},
		},
		{
			name:   "FlowSelfClosing",
			source: "<a />\n",
			want: []Node{
				&MdxJsxFlowElement{Name: ptr("a")},
			},
		},
		{
			name:   "FlowFragment",
			source: "<>a</>\n",
			want: []Node{
				&MdxJsxFlowElement{Children: []Node{&Text{Value: "a"}}},
			},
		},
		{
			name:   "NestedElement",
			source: "<a><b /></a>\n",
			want: []Node{
				&MdxJsxFlowElement{Name: ptr("a"), Children: []Node{
					&MdxJsxTextElement{Name: ptr("b")},
				}},
			},
		},
		{
			name:   "MemberName",
			source: "<a.b.c />\n",
			want: []Node{
				&MdxJsxFlowElement{Name: ptr("a.b.c")},
			},
		},
		{
			name:   "LocalName",
			source: "<x:y />\n",
			want: []Node{
				&MdxJsxFlowElement{Name: ptr("x:y")},
			},
		},
		{
			name:   "Attributes",
			source: "<a x b=\"&amp;\" c={1} {...d} />\n",
			want: []Node{
				&MdxJsxFlowElement{
					Name: ptr("a"),
					Attributes: []AttributeContent{
						{Property: &MdxJsxAttribute{Name: "x"}},
						{Property: &MdxJsxAttribute{Name: "b", Value: &AttributeValue{Literal: ptr("&")}}},
						{Property: &MdxJsxAttribute{Name: "c", Value: &AttributeValue{
							Expression: &AttributeExpression{Value: "1", Stops: []Stop{{Index: 0, Offset: 18}}},
						}}},
						{Expression: &AttributeExpression{Value: "...d", Stops: []Stop{{Index: 0, Offset: 22}}}},
					},
				},
			},
		},
		{
			name:   "LocalAttributeName",
			source: "<a xml:lang=\"en\" />\n",
			want: []Node{
				&MdxJsxFlowElement{
					Name: ptr("a"),
					Attributes: []AttributeContent{
						{Property: &MdxJsxAttribute{Name: "xml:lang", Value: &AttributeValue{Literal: ptr("en")}}},
					},
				},
			},
		},
		{
			name:   "AngleBeforeWhitespaceIsText",
			source: "1 < 3\n",
			want: []Node{
				&Paragraph{Children: []Node{&Text{Value: "1 < 3"}}},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mustParse(t, test.source, mdxOptions())
			want := &Root{Children: test.want}
			if diff := cmp.Diff(want, got, treeOptions); diff != "" {
				t.Errorf("ParseTree(%q) (-want +got):\n%s", test.source, diff)
			}
		})
	}
}

func TestMdxErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "CommentSyntax",
			source: "a <!---> b",
			want:   "1:4: Unexpected character `!` (U+0021) before name, expected a character that can start a name, such as a letter, `$`, or `_` (note: to create a comment in MDX, use `{/* text */}`)",
		},
		{
			name:   "UnclosedTextElement",
			source: "a <b> c",
			want:   "1:8: Expected a closing tag for `<b>` (1:3) before the end of `paragraph`",
		},
		{
			name:   "UnclosedFlowElement",
			source: "<a>\nx\n",
			want:   "2:2: Expected a closing tag for `<a>` (1:1) before the end of `document`",
		},
		{
			name:   "StrayClosingTag",
			source: "a </b> c",
			want:   "1:4: Unexpected closing slash `/` in tag, expected an open tag first",
		},
		{
			name:   "MismatchedClosingTag",
			source: "a <b>c</d> e",
			want:   "1:7: Unexpected closing tag `</d>`, expected corresponding closing tag for `<b>` (1:3)",
		},
		{
			name:   "EOFInTextExpression",
			source: "a {b",
			want:   "1:5: Unexpected end of file in expression, expected a corresponding closing brace for `{`",
		},
		{
			name:   "EOFInFlowExpression",
			source: "{a\n",
			want:   "2:1: Unexpected end of file in expression, expected a corresponding closing brace for `{`",
		},
		{
			name:   "EOFInAttributeValue",
			source: "a <b c=\"d",
			want:   "1:11: Unexpected end of file in attribute value, expected a corresponding closing quote `\"` (U+0022)",
		},
		{
			name:   "BadAttributeValueStart",
			source: "a <b c=d>",
			want:   "1:9: Unexpected character `d` (U+0064) before attribute value, expected a character that can start an attribute value, such as `\"`, `'`, or `{`",
		},
		{
			name:   "ElementAsPropValue",
			source: "a <b c=<d />>",
			want:   "1:9: Unexpected character `<` (U+003C) before attribute value, expected a character that can start an attribute value, such as `\"`, `'`, or `{` (note: to use an element or fragment as a prop value in MDX, use `{<element />}`)",
		},
		{
			name:   "JunkAfterSelfClosingSlash",
			source: "a <b/ c>",
			want:   "1:7: Unexpected character `c` (U+0063) after self-closing slash, expected `>` to end the tag",
		},
		{
			name:   "AtSignInName",
			source: "a <b@c>",
			want:   "1:5: Unexpected character `@` (U+0040) in name, expected a name character such as letters, digits, `$`, or `_`; whitespace before attributes; or the end of the tag (note: to create a link in MDX, use `[text](url)`)",
		},
		{
			name:   "JunkAfterFlowElement",
			source: "<a /> x\n",
			want:   "1:7: Unexpected character `x` (U+0078) after element, expected a line ending",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root, err := ParseTree([]byte(test.source), mdxOptions())
			require.Nil(t, root)
			require.EqualError(t, err, test.want)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
		})
	}
}

func TestMdxHooks(t *testing.T) {
	t.Run("EsmValue", func(t *testing.T) {
		var gotValue string
		var gotStops []Stop
		opts := mdxOptions()
		opts.MdxEsmParse = func(value string, stops []Stop) error {
			gotValue = value
			gotStops = stops
			return nil
		}
		mustParse(t, "import a from 'b'\n", opts)
		require.Equal(t, "import a from 'b'", gotValue)
		require.Equal(t, []Stop{{Index: 0, Offset: 0}}, gotStops)
	})

	t.Run("EsmError", func(t *testing.T) {
		opts := mdxOptions()
		opts.MdxEsmParse = func(value string, stops []Stop) error {
			return errors.New("bad esm")
		}
		_, err := ParseTree([]byte("import a from 'b'\n"), opts)
		require.EqualError(t, err, "1:1: bad esm")
	})

	t.Run("ExpressionKinds", func(t *testing.T) {
		var kinds []MdxExpressionKind
		opts := mdxOptions()
		opts.MdxExpressionParse = func(value string, kind MdxExpressionKind, stops []Stop) error {
			kinds = append(kinds, kind)
			return nil
		}
		mustParse(t, "<a {...s} b={v} />\n\n{x}\n\nt {y}\n", opts)
		// Flow expressions are parsed as their blocks close; tag
		// expressions wait for the text phase.
		want := []MdxExpressionKind{
			MdxExpressionIndependent,
			MdxExpressionSpread,
			MdxExpressionValue,
			MdxExpressionIndependent,
		}
		require.Equal(t, want, kinds)
	})

	t.Run("OffsetErrorTranslated", func(t *testing.T) {
		opts := mdxOptions()
		opts.MdxExpressionParse = func(value string, kind MdxExpressionKind, stops []Stop) error {
			return &OffsetError{Offset: 2, Message: "unexpected end"}
		}
		_, err := ParseTree([]byte("{a+}\n"), opts)
		require.EqualError(t, err, "1:4: unexpected end")
	})

	t.Run("ParseErrorPassedThrough", func(t *testing.T) {
		opts := mdxOptions()
		pe := &ParseError{Point: Point{Line: 9, Column: 9, Offset: 99}, Message: "custom"}
		opts.MdxExpressionParse = func(value string, kind MdxExpressionKind, stops []Stop) error {
			return pe
		}
		_, err := ParseTree([]byte("{a}\n"), opts)
		require.Same(t, pe, err)
	})

	t.Run("FallbackAtClosingBrace", func(t *testing.T) {
		opts := mdxOptions()
		opts.MdxExpressionParse = func(value string, kind MdxExpressionKind, stops []Stop) error {
			return errors.New("nope")
		}
		_, err := ParseTree([]byte("<a b={!} />\n"), opts)
		require.EqualError(t, err, "1:8: nope")
	})
}

func TestMdxJsxAttentionNesting(t *testing.T) {
	// A closer inside an element cannot pair with an opener outside it;
	// the opener is still free to pair past the element as a whole.
	got := mustParse(t, "*a <b>c*</b>*\n", mdxOptions())
	want := &Root{Children: []Node{
		&Paragraph{Children: []Node{
			&Emphasis{Children: []Node{
				&Text{Value: "a "},
				&MdxJsxTextElement{Name: ptr("b"), Children: []Node{
					&Text{Value: "c*"},
				}},
			}},
		}},
	}}
	if diff := cmp.Diff(want, got, treeOptions); diff != "" {
		t.Errorf("tree (-want +got):\n%s", diff)
	}
}
