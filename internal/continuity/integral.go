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

// Package continuity repairs discontinuities at the borders of integer pixel planes.
// Each border line is replaced with a least-squares fit of itself against the
// adjacent interior line, cascading outwards one line at a time.
package continuity

// Unsigned integer sample types supported by the kernel
type Sample interface {
	~uint8 | ~uint16
}

// A strided view of N samples within a plane buffer. Position i lives at Pix[Offset+i*Step].
// For a row of a row-major plane Step is 1, for a column it is the row stride.
type Line[T Sample] struct {
	Pix    []T
	Offset int
	Step   int
	N      int
}

func (l Line[T]) At(i int) T     { return l.Pix[l.Offset+i*l.Step] }
func (l Line[T]) Set(i int, v T) { l.Pix[l.Offset+i*l.Step] = v }

// Running sums through one line position, inclusive. X is the target line, Y the reference line.
type Integral struct {
	X    int64
	Y    int64
	XY   int64
	XSqr int64
}

// Prefix sums over a target/reference line pair, enabling O(1) window sums
type IntegralTable []Integral

// Builds the integral table for the given target and reference lines, which must have equal
// length. Reuses the storage of tab if it has sufficient capacity, else allocates.
func BuildIntegralTable[T Sample](tab IntegralTable, target, ref Line[T]) IntegralTable {
	n := target.N
	if cap(tab) < n {
		tab = make(IntegralTable, n)
	}
	tab = tab[:n]
	if n == 0 {
		return tab
	}

	x, y := int64(target.At(0)), int64(ref.At(0))
	tab[0] = Integral{X: x, Y: y, XY: x * y, XSqr: x * x}
	for i := 1; i < n; i++ {
		x, y = int64(target.At(i)), int64(ref.At(i))
		prev := &tab[i-1]
		tab[i] = Integral{
			X:    prev.X + x,
			Y:    prev.Y + y,
			XY:   prev.XY + x*y,
			XSqr: prev.XSqr + x*x,
		}
	}
	return tab
}

// Sums over a window, obtained by differencing two table entries
type WindowSums struct {
	Count int // right-left+1
	X     int64
	Y     int64
	XY    int64
	XSqr  int64
}

// Returns the sums for the inclusive window [left, right]. The differences span positions
// left+1..right, while Count includes position left. Regression results depend on this
// exact convention.
func (tab IntegralTable) Window(left, right int) WindowSums {
	l, r := &tab[left], &tab[right]
	return WindowSums{
		Count: right - left + 1,
		X:     r.X - l.X,
		Y:     r.Y - l.Y,
		XY:    r.XY - l.XY,
		XSqr:  r.XSqr - l.XSqr,
	}
}

// Returns the centered window of given radius around position i, clipped to [0, n-1].
// Any radius of n or more yields the full line.
func CenteredWindow(i, radius, n int) (left, right int) {
	if radius > n {
		radius = n
	}
	left, right = i-radius, i+radius
	if left < 0 {
		left = 0
	}
	if right > n-1 {
		right = n - 1
	}
	return left, right
}
