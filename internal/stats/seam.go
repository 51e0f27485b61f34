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

package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/edgefix/internal/continuity"
	"github.com/mlnoga/edgefix/internal/frame"
	"github.com/mlnoga/edgefix/internal/qsort"
)

// Statistics of the absolute steps between two adjacent lines parallel to an edge
type Step struct {
	Mean   float64
	StdDev float64
	Median float64
	Max    float64
}

func (s Step) String() string {
	return fmt.Sprintf("mean %.3f stddev %.3f median %.1f max %.0f", s.Mean, s.StdDev, s.Median, s.Max)
}

// Seam statistics for one edge of one plane. Outer is the step between the outermost
// line and its neighbour. Inner is the step between the first two lines past the border band,
// or past the outermost line without a band, as a baseline for the texture of the frame.
// Inner is NaN if the plane is too small.
type Seam struct {
	Plane  int
	Edge   continuity.Edge
	Border int
	Outer  Step
	Inner  Step
}

// Ratio of outer to inner mean step. Values well above 1 indicate a visible seam.
func (s Seam) Ratio() float64 {
	if s.Inner.Mean == 0 || math.IsNaN(s.Inner.Mean) {
		if s.Outer.Mean == 0 {
			return 1
		}
		return math.Inf(1)
	}
	return s.Outer.Mean / s.Inner.Mean
}

func (s Seam) String() string {
	return fmt.Sprintf("plane %d %-6s border %d: outer %s, inner %s, ratio %.2f",
		s.Plane, s.Edge, s.Border, s.Outer, s.Inner, s.Ratio())
}

// Returns the sample at position j along line i, counting lines inwards from the edge
func edgeSample(p *frame.Plane, e continuity.Edge, i, j int) float64 {
	switch e {
	case continuity.EdgeTop:
		return float64(p.At(j, i))
	case continuity.EdgeBottom:
		return float64(p.At(j, p.Height-1-i))
	case continuity.EdgeLeft:
		return float64(p.At(i, j))
	default:
		return float64(p.At(p.Width-1-i, j))
	}
}

// Returns the number of samples per line, and the number of lines, for the given edge
func edgeDims(p *frame.Plane, e continuity.Edge) (length, lines int) {
	if e == continuity.EdgeTop || e == continuity.EdgeBottom {
		return p.Width, p.Height
	}
	return p.Height, p.Width
}

// Calculates the statistics of absolute steps between line i and line i+1, counted inwards
// from the edge. The buffer is reused if large enough. Returns NaN statistics if line i+1
// does not exist.
func StepAt(p *frame.Plane, e continuity.Edge, i int, buf []float64) (Step, []float64) {
	length, lines := edgeDims(p, e)
	if i < 0 || i+1 >= lines || length == 0 {
		nan := math.NaN()
		return Step{Mean: nan, StdDev: nan, Median: nan, Max: nan}, buf
	}
	if cap(buf) < length {
		buf = make([]float64, length)
	}
	buf = buf[:length]
	for j := range buf {
		buf[j] = math.Abs(edgeSample(p, e, i, j) - edgeSample(p, e, i+1, j))
	}
	mean, stdDev := stat.MeanStdDev(buf, nil)
	if length == 1 {
		stdDev = 0
	}
	maxStep := floats.Max(buf)
	median := qsort.QSelectMedianFloat64(buf) // reorders buf
	return Step{Mean: mean, StdDev: stdDev, Median: median, Max: maxStep}, buf
}

// Calculates seam statistics for all edges of all planes. borders may be nil or shorter
// than the number of planes; missing entries count as no border.
func FrameSeams(f *frame.Frame, borders []continuity.Border) []Seam {
	seams := make([]Seam, 0, len(f.Planes)*len(continuity.Edges))
	var buf []float64
	for i := range f.Planes {
		p := &f.Planes[i]
		b := continuity.Border{}
		if i < len(borders) {
			b = borders[i]
		}
		for _, e := range continuity.Edges {
			s := Seam{Plane: i, Edge: e, Border: b.Count(e)}
			s.Outer, buf = StepAt(p, e, 0, buf)
			s.Inner, buf = StepAt(p, e, max(s.Border, 1), buf)
			seams = append(seams, s)
		}
	}
	return seams
}
