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
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/valyala/fastrand"
)

func TestFitAffineIdentity(t *testing.T) {
	n := 50
	pix := make([]uint8, n)
	for i := range pix {
		pix[i] = uint8(3*i + 7)
	}
	line := Line[uint8]{Pix: pix, Step: 1, N: n}
	fit := BuildIntegralTable(nil, line, line).Window(0, n-1).Fit()
	if math.Abs(fit.Slope-1) > 1e-6 {
		t.Errorf("slope=%g; want 1", fit.Slope)
	}
	if math.Abs(fit.Intercept) > 1e-4 {
		t.Errorf("intercept=%g; want 0", fit.Intercept)
	}
}

func TestFitFixture(t *testing.T) {
	target := Line[uint8]{Pix: []uint8{12, 19, 31, 41, 49}, Step: 1, N: 5}
	ref := Line[uint8]{Pix: []uint8{10, 20, 30, 40, 50}, Step: 1, N: 5}
	s := BuildIntegralTable(nil, target, ref).Window(0, 4)

	want := WindowSums{Count: 5, X: 140, Y: 140, XY: 5400, XSqr: 5404}
	if s != want {
		t.Fatalf("sums=%+v; want %+v", s, want)
	}
	for _, fit := range []Fit{s.Fit(), s.FitSingle()} {
		if math.Abs(fit.Slope-7400.0/7420.001) > 1e-6 {
			t.Errorf("slope=%g; want %g", fit.Slope, 7400.0/7420.001)
		}
		if math.Abs(fit.Intercept-0.0754754) > 1e-4 {
			t.Errorf("intercept=%g; want 0.0754754", fit.Intercept)
		}
	}
}

func TestFitDegenerateWindows(t *testing.T) {
	// single sample window: all differenced sums are zero
	fit := WindowSums{Count: 1}.Fit()
	if fit.Slope != 0 || fit.Intercept != 0 {
		t.Errorf("single sample fit=%+v; want zero", fit)
	}

	// zero target line: denominator is only epsilon
	pix := []uint16{0, 0, 0, 0}
	ref := []uint16{1, 2, 3, 4}
	s := BuildIntegralTable(nil, Line[uint16]{Pix: pix, Step: 1, N: 4}, Line[uint16]{Pix: ref, Step: 1, N: 4}).Window(0, 3)
	fit = s.Fit()
	if fit.Slope != 0 || math.Abs(fit.Intercept-2.25) > 1e-12 {
		t.Errorf("zero target fit=%+v; want slope 0 intercept 2.25", fit)
	}
}

func TestParsePrecision(t *testing.T) {
	for _, tc := range []struct {
		s    string
		want Precision
	}{{"", PrecisionDouble}, {"double", PrecisionDouble}, {"single", PrecisionSingle}} {
		got, err := ParsePrecision(tc.s)
		if err != nil || got != tc.want {
			t.Errorf("ParsePrecision(%q)=%v,%v; want %v", tc.s, got, err, tc.want)
		}
	}
	if _, err := ParsePrecision("half"); !errors.Is(err, ErrConfig) {
		t.Errorf("ParsePrecision(half) err=%v; want ErrConfig", err)
	}
}

func TestPrecisionJSON(t *testing.T) {
	var c Config
	if err := json.Unmarshal([]byte(`{"top":[4],"precision":"single"}`), &c); err != nil {
		t.Fatal(err)
	}
	if c.Precision != PrecisionSingle || len(c.Top) != 1 || c.Top[0] != 4 {
		t.Errorf("config=%+v; want top [4] single precision", c)
	}
	bs, err := json.Marshal(c.Precision)
	if err != nil || string(bs) != `"single"` {
		t.Errorf("marshal=%s,%v; want \"single\"", bs, err)
	}
}

func TestSaturate(t *testing.T) {
	tcs := []struct{ v, max, want float64 }{
		{-3, 255, 0},
		{math.NaN(), 255, 0},
		{254.6, 255, 255},
		{300, 255, 255},
		{2.5, 255, 2},
		{3.5, 255, 4},
		{70000, 65535, 65535},
	}
	for _, tc := range tcs {
		if got := saturate(tc.v, tc.max); got != tc.want {
			t.Errorf("saturate(%g,%g)=%g; want %g", tc.v, tc.max, got, tc.want)
		}
	}
}

func TestFitRoundsEachProduct(t *testing.T) {
	rng := fastrand.RNG{}
	for k := 0; k < 1000; k++ {
		n := int(rng.Uint32n(200)) + 1
		var s WindowSums
		s.Count = n
		for i := 0; i < n; i++ {
			x, y := int64(rng.Uint32n(256)), int64(rng.Uint32n(256))
			s.X += x
			s.Y += y
			s.XY += x * y
			s.XSqr += x * x
		}

		// each intermediate is stored, which forces rounding to the declared type
		cnt, sx, sy := float32(s.Count), float32(int32(s.X)), float32(int32(s.Y))
		sxy, sxsqr := float32(int32(s.XY)), float32(int32(s.XSqr))
		p1, p2, p3, p4 := cnt*sxy, sx*sy, sxsqr*cnt, sx*sx
		num, den := p1-p2, p3-p4
		den += float32(0.001)
		slope := num / den
		p5 := slope * sx
		intercept := (sy - p5) / cnt

		got := s.FitSingle()
		if got.Slope != float64(slope) || got.Intercept != float64(intercept) {
			t.Fatalf("sums %+v: got %+v; want slope %g intercept %g", s, got, slope, intercept)
		}

		x := float32(rng.Uint32n(256))
		prod := x * slope
		v := prod + intercept
		if want := saturate(float64(v), 255); saturateSingle(float64(x), got, 255) != want {
			t.Fatalf("sums %+v x %g: saturateSingle=%g; want %g", s, x, saturateSingle(float64(x), got, 255), want)
		}
	}
}
