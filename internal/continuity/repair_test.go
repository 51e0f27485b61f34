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
	"errors"
	"testing"

	"github.com/valyala/fastrand"
)

func planeFromRows(rows ...[]uint8) Plane[uint8] {
	w := len(rows[0])
	pix := make([]uint8, 0, w*len(rows))
	for _, r := range rows {
		pix = append(pix, r...)
	}
	return Plane[uint8]{Pix: pix, Width: w, Height: len(rows), Stride: w}
}

func rowOf(p Plane[uint8], y int) []uint8 {
	return p.Pix[y*p.Stride : y*p.Stride+p.Width]
}

func TestFixEdgeCascade(t *testing.T) {
	p := planeFromRows(
		[]uint8{1, 2, 3, 4, 5},      // outermost border line
		[]uint8{50, 40, 30, 20, 10}, // first border line
		[]uint8{10, 20, 30, 40, 50}, // interior reference
		[]uint8{7, 7, 7, 7, 7},
	)
	if err := NewFixer[uint8](5, 255, PrecisionDouble).FixEdge(p, EdgeTop, 2, 0); err != nil {
		t.Fatal(err)
	}
	want := [][]uint8{
		{15, 19, 24, 29, 34}, // fit against the rewritten line 1, not its original
		{34, 32, 30, 28, 26},
		{10, 20, 30, 40, 50},
		{7, 7, 7, 7, 7},
	}
	for y, w := range want {
		if got := rowOf(p, y); !equal8(got, w) {
			t.Errorf("row %d got %v; want %v", y, got, w)
		}
	}

	// changing only the first border line changes both border outputs
	q := planeFromRows(
		[]uint8{1, 2, 3, 4, 5},
		[]uint8{1, 2, 3, 4, 5},
		[]uint8{10, 20, 30, 40, 50},
		[]uint8{7, 7, 7, 7, 7},
	)
	if err := NewFixer[uint8](5, 255, PrecisionDouble).FixEdge(q, EdgeTop, 2, 0); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 2; y++ {
		if got := rowOf(q, y); !equal8(got, []uint8{10, 20, 30, 40, 50}) {
			t.Errorf("variant row %d got %v; want [10 20 30 40 50]", y, got)
		}
	}
}

func randomPlane(rng *fastrand.RNG, w, h int) Plane[uint8] {
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = uint8(rng.Uint32n(256))
	}
	return Plane[uint8]{Pix: pix, Width: w, Height: h, Stride: w}
}

func flipVertical(p Plane[uint8]) Plane[uint8] {
	q := Plane[uint8]{Pix: make([]uint8, len(p.Pix)), Width: p.Width, Height: p.Height, Stride: p.Stride}
	for y := 0; y < p.Height; y++ {
		copy(q.Pix[y*q.Stride:(y+1)*q.Stride], p.Pix[(p.Height-1-y)*p.Stride:(p.Height-y)*p.Stride])
	}
	return q
}

func transpose(p Plane[uint8]) Plane[uint8] {
	q := Plane[uint8]{Pix: make([]uint8, p.Width*p.Height), Width: p.Height, Height: p.Width, Stride: p.Height}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			q.Pix[x*q.Stride+y] = p.Pix[y*p.Stride+x]
		}
	}
	return q
}

func flipHorizontal(p Plane[uint8]) Plane[uint8] {
	q := Plane[uint8]{Pix: make([]uint8, len(p.Pix)), Width: p.Width, Height: p.Height, Stride: p.Stride}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			q.Pix[y*q.Stride+x] = p.Pix[y*p.Stride+p.Width-1-x]
		}
	}
	return q
}

func TestFixEdgeSymmetry(t *testing.T) {
	rng := fastrand.RNG{}
	w, h, count, radius := 23, 11, 3, 2
	orig := randomPlane(&rng, w, h)

	top := Plane[uint8]{Pix: append([]uint8(nil), orig.Pix...), Width: w, Height: h, Stride: w}
	if err := NewFixer[uint8](w, 255, PrecisionDouble).FixEdge(top, EdgeTop, count, radius); err != nil {
		t.Fatal(err)
	}

	tcs := []struct {
		edge    Edge
		forward func(Plane[uint8]) Plane[uint8]
		back    func(Plane[uint8]) Plane[uint8]
	}{
		{EdgeBottom, flipVertical, flipVertical},
		{EdgeLeft, transpose, transpose},
		{EdgeRight, func(p Plane[uint8]) Plane[uint8] { return flipHorizontal(transpose(p)) },
			func(p Plane[uint8]) Plane[uint8] { return transpose(flipHorizontal(p)) }},
	}
	for _, tc := range tcs {
		p := tc.forward(orig)
		if err := NewFixer[uint8](w, 255, PrecisionDouble).FixEdge(p, tc.edge, count, radius); err != nil {
			t.Fatal(err)
		}
		got := tc.back(p)
		if !equal8(got.Pix, top.Pix) {
			t.Errorf("%s edge differs from mapped top edge result", tc.edge)
		}
	}
}

func TestFixEdgeLeavesInteriorAndPaddingUntouched(t *testing.T) {
	rng := fastrand.RNG{}
	w, h, stride := 9, 8, 12
	pix := make([]uint8, stride*h)
	for i := range pix {
		pix[i] = uint8(rng.Uint32n(256))
	}
	orig := append([]uint8(nil), pix...)
	p := Plane[uint8]{Pix: pix, Width: w, Height: h, Stride: stride}
	b := Border{Left: 2, Top: 1, Right: 2, Bottom: 3, Radius: 1}
	if err := NewFixer[uint8](h, 255, PrecisionDouble).FixPlane(p, b); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < stride; x++ {
			inBand := y < b.Top || y >= h-b.Bottom || x < b.Left || (x >= w-b.Right && x < w)
			if !inBand && pix[y*stride+x] != orig[y*stride+x] {
				t.Errorf("sample (%d,%d) changed from %d to %d", x, y, orig[y*stride+x], pix[y*stride+x])
			}
		}
	}
}

func TestFixEdgeRejectsBandWithoutReference(t *testing.T) {
	p := planeFromRows([]uint8{1, 2}, []uint8{3, 4})
	fx := NewFixer[uint8](2, 255, PrecisionDouble)
	if err := fx.FixEdge(p, EdgeTop, 2, 0); !errors.Is(err, ErrConfig) {
		t.Errorf("top=2 on height 2 err=%v; want ErrConfig", err)
	}
	if err := fx.FixEdge(p, EdgeRight, 1, 0); err != nil {
		t.Errorf("right=1 on width 2 err=%v; want nil", err)
	}
}

func TestFixEdgeRejectsNegativeRadius(t *testing.T) {
	p := planeFromRows([]uint8{1, 2, 3, 4}, []uint8{5, 6, 7, 8}, []uint8{9, 10, 11, 12}, []uint8{13, 14, 15, 16})
	orig := append([]uint8(nil), p.Pix...)
	fx := NewFixer[uint8](4, 255, PrecisionDouble)
	if err := fx.FixEdge(p, EdgeTop, 1, -10); !errors.Is(err, ErrConfig) {
		t.Errorf("radius -10 err=%v; want ErrConfig", err)
	}
	if !equal8(p.Pix, orig) {
		t.Errorf("plane modified to %v", p.Pix)
	}
}

func TestCascadeIndices(t *testing.T) {
	w, h := 10, 6
	tcs := []struct {
		e                   Edge
		i, count            int
		wantTarget, wantRef int
	}{
		{EdgeTop, 0, 3, 2, 3},
		{EdgeTop, 2, 3, 0, 1},
		{EdgeBottom, 0, 2, 4, 3},
		{EdgeBottom, 1, 2, 5, 4},
		{EdgeLeft, 0, 1, 0, 1},
		{EdgeRight, 0, 3, 7, 6},
		{EdgeRight, 2, 3, 9, 8},
	}
	for _, tc := range tcs {
		tg, ref := cascadeIndices(tc.e, tc.i, tc.count, w, h)
		if tg != tc.wantTarget || ref != tc.wantRef {
			t.Errorf("%s i=%d count=%d: target %d ref %d; want %d %d", tc.e, tc.i, tc.count, tg, ref, tc.wantTarget, tc.wantRef)
		}
	}
}
