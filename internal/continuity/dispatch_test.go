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

	"github.com/mlnoga/edgefix/internal/frame"
)

func randomFrame(rng *fastrand.RNG, format frame.Format, w, h int) *frame.Frame {
	f := frame.New(format, w, h)
	max := uint32(format.MaxValue()) + 1
	for i := range f.Planes {
		p := &f.Planes[i]
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				p.Set(x, y, int(rng.Uint32n(max)))
			}
		}
	}
	return f
}

func TestFixFrameMatchesPlaneKernel(t *testing.T) {
	rng := fastrand.RNG{}
	f := randomFrame(&rng, yuv420p8, 32, 16)
	ref := f.Clone()
	borders := []Border{{Top: 2, Left: 3, Radius: 4}, {Bottom: 1, Radius: 0}, {}}

	if err := FixFrame(f, borders, PrecisionDouble); err != nil {
		t.Fatal(err)
	}
	fx := NewFixer[uint8](32, 255, PrecisionDouble)
	for i, b := range borders {
		if err := fx.FixPlane(view8(&ref.Planes[i]), b); err != nil {
			t.Fatal(err)
		}
		if !equal8(f.Planes[i].Pix8, ref.Planes[i].Pix8) {
			t.Errorf("plane %d differs from direct kernel result", i)
		}
	}
}

func TestFixFrame16Bit(t *testing.T) {
	format := frame.Format{SampleType: frame.SampleInteger, BitsPerSample: 16, BytesPerSample: 2, NumPlanes: 1}
	f := frame.New(format, 5, 3)
	p := &f.Planes[0]
	for x, v := range []int{65535, 1000, 2000, 3000, 4000} {
		p.Set(x, 0, v)
	}
	for x, v := range []int{0, 2000, 4000, 6000, 8000} {
		p.Set(x, 1, v)
	}
	if err := FixFrame(f, []Border{{Top: 1, Radius: 0}}, PrecisionDouble); err != nil {
		t.Fatal(err)
	}
	for x, want := range []int{65535, 2000, 4000, 6000, 8000} {
		if got := p.At(x, 0); got != want {
			t.Errorf("x=%d got %d; want %d", x, got, want)
		}
	}
}

func TestFixFrameRejectsBeforeMutation(t *testing.T) {
	rng := fastrand.RNG{}
	f := randomFrame(&rng, yuv420p8, 16, 8)
	orig := f.Clone()
	// plane 1 is 8x4, so a 4-line band is invalid there
	err := FixFrame(f, []Border{{Top: 2, Radius: 1}, {Top: 4, Radius: 1}}, PrecisionDouble)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("err=%v; want ErrConfig", err)
	}
	if !equal8(f.Planes[0].Pix8, orig.Planes[0].Pix8) {
		t.Errorf("plane 0 modified despite configuration error")
	}
}

func TestFixFrameRejectsUnsupportedWidth(t *testing.T) {
	f := &frame.Frame{
		Format: frame.Format{SampleType: frame.SampleInteger, BitsPerSample: 24, BytesPerSample: 3, NumPlanes: 1},
		Width:  4, Height: 4,
		Planes: []frame.Plane{{Width: 4, Height: 4, Stride: 4}},
	}
	if err := FixFrame(f, []Border{{Top: 1}}, PrecisionDouble); !errors.Is(err, frame.ErrUnsupportedFormat) {
		t.Errorf("err=%v; want ErrUnsupportedFormat", err)
	}

	g := frame.New(frame.Format{SampleType: frame.SampleInteger, BitsPerSample: 12, BytesPerSample: 2, NumPlanes: 1}, 4, 4)
	if err := FixFrame(g, []Border{{Top: 1}}, PrecisionSingle); !errors.Is(err, ErrConfig) {
		t.Errorf("single precision on 16-bit err=%v; want ErrConfig", err)
	}
}
