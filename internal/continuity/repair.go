// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package continuity

import (
	"fmt"
)

// A row-major plane of samples. Stride is the distance between rows, in samples.
type Plane[T Sample] struct {
	Pix    []T
	Width  int
	Height int
	Stride int
}

// Returns row y as a line
func (p Plane[T]) Row(y int) Line[T] {
	return Line[T]{Pix: p.Pix, Offset: y * p.Stride, Step: 1, N: p.Width}
}

// Returns column x as a line
func (p Plane[T]) Col(x int) Line[T] {
	return Line[T]{Pix: p.Pix, Offset: x, Step: p.Stride, N: p.Height}
}

// Edge of a plane
type Edge int

const (
	EdgeTop Edge = iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

// Order in which FixPlane processes the edges. Corner samples belong to two bands,
// so the order is part of the result.
var Edges = []Edge{EdgeTop, EdgeBottom, EdgeLeft, EdgeRight}

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	default:
		return fmt.Sprintf("Edge(%d)", int(e))
	}
}

// Border settings for one plane: number of lines to rewrite per edge, and the regression radius
type Border struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Radius int `json:"radius"`
}

// Returns the line count for the given edge
func (b Border) Count(e Edge) int {
	switch e {
	case EdgeTop:
		return b.Top
	case EdgeBottom:
		return b.Bottom
	case EdgeLeft:
		return b.Left
	case EdgeRight:
		return b.Right
	}
	return 0
}

// True if no edge has lines to rewrite
func (b Border) IsEmpty() bool {
	return b.Left == 0 && b.Top == 0 && b.Right == 0 && b.Bottom == 0
}

// Returns the number of lines perpendicular to the given edge, i.e. the limit for its border count
func extent(e Edge, width, height int) int {
	if e == EdgeTop || e == EdgeBottom {
		return height
	}
	return width
}

// Checks that the border counts and radius fit a plane of the given size
func (b Border) Check(width, height int) error {
	if b.Radius < 0 {
		return fmt.Errorf("%w: negative radius %d", ErrConfig, b.Radius)
	}
	for _, e := range Edges {
		c := b.Count(e)
		if c < 0 {
			return fmt.Errorf("%w: negative %s border %d", ErrConfig, e, c)
		}
		if lim := extent(e, width, height); c > 0 && c >= lim {
			return fmt.Errorf("%w: %s border %d leaves no reference line in %dx%d plane", ErrConfig, e, c, width, height)
		}
	}
	return nil
}

// Returns the target and reference line indices for iteration i of a cascade of count lines.
// The first reference is the innermost untouched line, each later one the previous target.
func cascadeIndices(e Edge, i, count, width, height int) (target, ref int) {
	switch e {
	case EdgeTop, EdgeLeft:
		ref = count - i
		return ref - 1, ref
	case EdgeBottom:
		ref = height - count - 1 + i
		return ref + 1, ref
	default: // EdgeRight
		ref = width - count - 1 + i
		return ref + 1, ref
	}
}

// Rewrites count lines at the given edge, from the interior outwards
func (fx *Fixer[T]) FixEdge(p Plane[T], e Edge, count, radius int) error {
	if radius < 0 {
		return fmt.Errorf("%w: negative radius %d", ErrConfig, radius)
	}
	if count <= 0 {
		return nil
	}
	if lim := extent(e, p.Width, p.Height); count >= lim {
		return fmt.Errorf("%w: %s border %d leaves no reference line in %dx%d plane", ErrConfig, e, count, p.Width, p.Height)
	}
	for i := 0; i < count; i++ {
		t, r := cascadeIndices(e, i, count, p.Width, p.Height)
		if e == EdgeTop || e == EdgeBottom {
			fx.FixLine(p.Row(t), p.Row(r), radius)
		} else {
			fx.FixLine(p.Col(t), p.Col(r), radius)
		}
	}
	return nil
}

// Rewrites the border bands of all four edges, in the order given by Edges
func (fx *Fixer[T]) FixPlane(p Plane[T], b Border) error {
	if err := b.Check(p.Width, p.Height); err != nil {
		return err
	}
	for _, e := range Edges {
		if err := fx.FixEdge(p, e, b.Count(e), b.Radius); err != nil {
			return err
		}
	}
	return nil
}
