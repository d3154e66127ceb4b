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
	"fmt"
	"unicode/utf8"
)

// Point is a single place in a source document.
// Line and Column are 1-indexed, Offset is a 0-indexed byte offset.
type Point struct {
	Line   int
	Column int
	Offset int
}

// String formats the point as "line:column".
func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Position is the location of a node in a source document.
// The range is half-open: [Start.Offset, End.Offset).
type Position struct {
	Start Point
	End   Point
}

// String formats the position as "startLine:startColumn-endLine:endColumn".
func (p Position) String() string {
	return fmt.Sprintf("%v-%v", p.Start, p.End)
}

// A Stop maps a byte index into a synthesized literal value
// to the absolute byte offset in the document it was copied from.
// Values assembled from non-contiguous source spans carry one Stop
// per span boundary so consumers can translate value-relative offsets
// back into document coordinates.
type Stop struct {
	Index  int
	Offset int
}

// translateStops converts a byte index into a synthesized value
// into an absolute document offset using the value's stops.
func translateStops(stops []Stop, index int) int {
	absolute := index
	for _, s := range stops {
		if s.Index > index {
			break
		}
		absolute = s.Offset + (index - s.Index)
	}
	return absolute
}

// span is a half-open byte range into the source document.
type span struct {
	start, end int
}

func (s span) len() int {
	return s.end - s.start
}

// positioner translates byte offsets into points.
// Line start offsets are recorded once during tokenization;
// only the column computation touches the source again,
// and only within a single line.
type positioner struct {
	src        []byte
	lineStarts []int
}

func newPositioner(src []byte) *positioner {
	p := &positioner{src: src, lineStarts: []int{0}}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			p.lineStarts = append(p.lineStarts, i+1)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			p.lineStarts = append(p.lineStarts, i+1)
		}
	}
	return p
}

// point converts a byte offset into a Point.
func (p *positioner) point(offset int) Point {
	if offset < 0 {
		offset = 0
	}
	if offset > len(p.src) {
		offset = len(p.src)
	}
	// Binary search for the line containing offset.
	lo, hi := 0, len(p.lineStarts)
	for lo < hi {
		mid := (lo + hi) / 2
		if p.lineStarts[mid] <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	line := lo - 1
	col := 1 + utf8.RuneCount(p.src[p.lineStarts[line]:offset])
	return Point{Line: line + 1, Column: col, Offset: offset}
}

func (p *positioner) position(start, end int) *Position {
	return &Position{Start: p.point(start), End: p.point(end)}
}
