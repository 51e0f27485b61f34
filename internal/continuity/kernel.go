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

// Rewrites border lines of one sample type. Owns a reusable integral table,
// so a Fixer must not be shared between goroutines. Use one per frame.
type Fixer[T Sample] struct {
	MaxValue  int       // output is clamped to [0, MaxValue]
	Precision Precision // regression arithmetic
	table     IntegralTable
}

// Creates a fixer for lines up to maxLen samples, clamping outputs to [0, maxValue]
func NewFixer[T Sample](maxLen, maxValue int, precision Precision) *Fixer[T] {
	return &Fixer[T]{
		MaxValue:  maxValue,
		Precision: precision,
		table:     make(IntegralTable, maxLen),
	}
}

func (fx *Fixer[T]) fit(s WindowSums) Fit {
	if fx.Precision == PrecisionSingle {
		return s.FitSingle()
	}
	return s.Fit()
}

func (fx *Fixer[T]) rewrite(x float64, fit Fit, max float64) T {
	if fx.Precision == PrecisionSingle {
		return T(saturateSingle(x, fit, max))
	}
	return T(saturate(fit.Apply(x), max))
}

// Rewrites the target line in place as a linear fit against the reference line.
// With radius 0 (or negative) a single fit over the whole line is used, otherwise one fit
// per centered window of the given radius. All fits and inputs use the original target values.
func (fx *Fixer[T]) FixLine(target, ref Line[T], radius int) {
	n := target.N
	if n <= 0 {
		return
	}
	fx.table = BuildIntegralTable(fx.table, target, ref)
	tab := fx.table
	max := float64(fx.MaxValue)

	if radius > n {
		radius = n
	}
	if radius <= 0 {
		fit := fx.fit(tab.Window(0, n-1))
		for i := 0; i < n; i++ {
			target.Set(i, fx.rewrite(float64(target.At(i)), fit, max))
		}
		return
	}

	// the table holds the original values, and position i is written only after
	// its own window has been evaluated, so in-place updates are safe
	for i := 0; i < n; i++ {
		left, right := CenteredWindow(i, radius, n)
		fit := fx.fit(tab.Window(left, right))
		target.Set(i, fx.rewrite(float64(target.At(i)), fit, max))
	}
}
