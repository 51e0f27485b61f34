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
	"fmt"
	"math"
)

// Added to the regression denominator to keep near-constant windows finite.
// Kept at single precision, as the 16-bit path historically promoted a float literal.
const epsilon = float64(float32(0.001))

// A linear fit reference ~ Slope*target + Intercept
type Fit struct {
	Slope     float64
	Intercept float64
}

// Applies the fit to a target value
func (f Fit) Apply(x float64) float64 { return float64(x*f.Slope) + f.Intercept }

// Least-squares fit over the window sums in double precision
func (s WindowSums) Fit() Fit {
	n := float64(s.Count)
	sx, sy := float64(s.X), float64(s.Y)
	sxy, sxsqr := float64(s.XY), float64(s.XSqr)

	// explicit conversions round each product, so no fused multiply-add is emitted
	slope := (float64(n*sxy) - float64(sx*sy)) / ((float64(sxsqr*n) - float64(sx*sx)) + epsilon)
	intercept := (sy - float64(slope*sx)) / n
	return Fit{Slope: slope, Intercept: intercept}
}

// Least-squares fit with 32-bit wrapping accumulators and single precision arithmetic,
// matching the historical 8-bit kernel. Differencing 64-bit sums and truncating to 32 bits
// yields the same value as differencing wrapped 32-bit sums.
func (s WindowSums) FitSingle() Fit {
	n := float32(s.Count)
	sx, sy := float32(int32(s.X)), float32(int32(s.Y))
	sxy, sxsqr := float32(int32(s.XY)), float32(int32(s.XSqr))

	slope := (float32(n*sxy) - float32(sx*sy)) / ((float32(sxsqr*n) - float32(sx*sx)) + float32(0.001))
	intercept := (sy - float32(slope*sx)) / n
	return Fit{Slope: float64(slope), Intercept: float64(intercept)}
}

// Regression arithmetic selection
type Precision int

const (
	PrecisionDouble Precision = iota // 64-bit accumulators, float64 arithmetic. Default for all depths
	PrecisionSingle                  // 32-bit accumulators, float32 arithmetic. 8-bit samples only
)

func (p Precision) String() string {
	switch p {
	case PrecisionDouble:
		return "double"
	case PrecisionSingle:
		return "single"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// Parses a precision name as used in flags and JSON
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "", "double":
		return PrecisionDouble, nil
	case "single":
		return PrecisionSingle, nil
	default:
		return PrecisionDouble, fmt.Errorf("%w: unknown precision '%s'", ErrConfig, s)
	}
}

func (p Precision) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

func (p *Precision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParsePrecision(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Clamps v to [0, max] and rounds half to even. NaN maps to 0.
func saturate(v, max float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > max {
		v = max
	}
	return math.RoundToEven(v)
}

// Single precision variant of saturate. Computing the product in float32 before clamping
// reproduces the historical 8-bit rounding.
func saturateSingle(x float64, fit Fit, max float64) float64 {
	v := float32(float32(x)*float32(fit.Slope)) + float32(fit.Intercept)
	return saturate(float64(v), max)
}
