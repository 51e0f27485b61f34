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

	"github.com/mlnoga/edgefix/internal/frame"
)

func view8(p *frame.Plane) Plane[uint8] {
	return Plane[uint8]{Pix: p.Pix8, Width: p.Width, Height: p.Height, Stride: p.Stride}
}

func view16(p *frame.Plane) Plane[uint16] {
	return Plane[uint16]{Pix: p.Pix16, Width: p.Width, Height: p.Height, Stride: p.Stride}
}

// Repairs the borders of all planes of the frame in place, selecting the kernel
// by the format's bytes per sample. borders holds one entry per plane, as returned
// by Config.Resolve. All settings are checked before any plane is modified.
func FixFrame(f *frame.Frame, borders []Border, precision Precision) error {
	if err := f.Format.Validate(); err != nil {
		return err
	}
	if len(borders) > len(f.Planes) {
		return fmt.Errorf("%w: %d borders for %d planes", ErrConfig, len(borders), len(f.Planes))
	}
	for i, b := range borders {
		if err := b.Check(f.Planes[i].Width, f.Planes[i].Height); err != nil {
			return fmt.Errorf("plane %d: %w", i, err)
		}
	}

	switch f.Format.BytesPerSample {
	case 1:
		return fixPlanes(f, borders, precision, view8)
	case 2:
		if precision == PrecisionSingle {
			return fmt.Errorf("%w: single precision requires 8-bit samples", ErrConfig)
		}
		return fixPlanes(f, borders, precision, view16)
	default:
		return fmt.Errorf("%w: %d bytes per sample", frame.ErrUnsupportedFormat, f.Format.BytesPerSample)
	}
}

func fixPlanes[T Sample](f *frame.Frame, borders []Border, precision Precision, view func(*frame.Plane) Plane[T]) error {
	maxLen := 0
	for _, p := range f.Planes {
		if p.Width > maxLen {
			maxLen = p.Width
		}
		if p.Height > maxLen {
			maxLen = p.Height
		}
	}
	fx := NewFixer[T](maxLen, f.Format.MaxValue(), precision)
	for i, b := range borders {
		if b.IsEmpty() {
			continue
		}
		if err := fx.FixPlane(view(&f.Planes[i]), b); err != nil {
			return fmt.Errorf("plane %d: %w", i, err)
		}
	}
	return nil
}
