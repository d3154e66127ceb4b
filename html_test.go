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

import "testing"

func TestParseHTMLTag(t *testing.T) {
	tests := []struct {
		source string
		want   int
	}{
		{"<a>", 3},
		{"<a >", 4},
		{"<a/>", 4},
		{"<a />", 5},
		{"</a>", 4},
		{"<a href>", 8},
		{"<a href=x>", 10},
		{`<a href="x y">`, 14},
		{"<a b='c' d=\"e\">", 15},
		{"<a b=c d>", 9},
		{"<!-- comment -->", 16},
		{"<!---->", 7},
		{"<?php echo 1; ?>", 16},
		{"<!DOCTYPE html>", 15},
		{"<![CDATA[x]]>", 13},

		{"<3>", -1},
		{"<a href=>", -1},
		{"<a =>", -1},
		{"</a b>", -1},
		{"<!-- -- -->", -1},
		{"<a", -1},
		{"a", -1},
	}
	for _, test := range tests {
		c := newInlineCursor([]byte(test.source), []span{{start: 0, end: len(test.source)}})
		if got := parseHTMLTag(&c); got != test.want {
			t.Errorf("parseHTMLTag(%q) = %d; want %d", test.source, got, test.want)
		}
	}
}

func TestHTMLFlowStart(t *testing.T) {
	tests := []struct {
		line         string
		interrupting bool
		want         int
	}{
		{"<pre>", false, 1},
		{"<PRE class=x>", false, 1},
		{"<script", false, 1},
		{"<!-- comment", false, 2},
		{"<?php", false, 3},
		{"<!ATTLIST", false, 4},
		{"<![CDATA[", false, 5},
		{"<div>", false, 6},
		{"</div>", false, 6},
		{"<DIV CLASS=\"a\"", false, 6},
		{"<custom-tag>", false, 7},
		{"<custom-tag>", true, 0},
		{"<custom-tag> text", false, 0},
		{"x<div>", false, 0},
	}
	for _, test := range tests {
		if got := htmlFlowStart([]byte(test.line), test.interrupting); got != test.want {
			t.Errorf("htmlFlowStart(%q, %t) = %d; want %d", test.line, test.interrupting, got, test.want)
		}
	}
}

func TestHTMLFlowEnds(t *testing.T) {
	tests := []struct {
		kind int
		line string
		want bool
	}{
		{1, "console.log(1)</script>", true},
		{1, "console.log(1)", false},
		{2, "a --> b", true},
		{2, "a -- b", false},
		{4, "foo>", true},
		{6, "", true},
		{6, "more", false},
		{7, "  \t", true},
	}
	for _, test := range tests {
		if got := htmlFlowEnds(test.kind, []byte(test.line)); got != test.want {
			t.Errorf("htmlFlowEnds(%d, %q) = %t; want %t", test.kind, test.line, got, test.want)
		}
	}
}
