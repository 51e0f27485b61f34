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

package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var (
	diffNeutral = colorful.Hcl(0, 0, 0.5)      // unchanged samples
	diffRaised  = colorful.Hcl(30, 0.9, 0.65)  // samples that got brighter
	diffLowered = colorful.Hcl(260, 0.9, 0.45) // samples that got darker
)

// DiffMap renders the per-sample change of one plane as a heat map. Unchanged samples are
// gray, raised samples blend towards red and lowered ones towards blue, scaled by the largest
// absolute change in the plane.
func DiffMap(before, after *Frame, plane int) (*image.NRGBA, error) {
	if plane < 0 || plane >= len(before.Planes) || plane >= len(after.Planes) {
		return nil, fmt.Errorf("%d: no plane %d", after.ID, plane)
	}
	b, a := &before.Planes[plane], &after.Planes[plane]
	if b.Width != a.Width || b.Height != a.Height {
		return nil, fmt.Errorf("%d: plane %d size %dx%d differs from %dx%d", after.ID, plane, a.Width, a.Height, b.Width, b.Height)
	}

	maxDiff := 0
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			d := a.At(x, y) - b.At(x, y)
			if d < 0 {
				d = -d
			}
			if d > maxDiff {
				maxDiff = d
			}
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			d := a.At(x, y) - b.At(x, y)
			c := diffNeutral
			if d > 0 {
				c = diffNeutral.BlendHcl(diffRaised, float64(d)/float64(maxDiff)).Clamped()
			} else if d < 0 {
				c = diffNeutral.BlendHcl(diffLowered, float64(-d)/float64(maxDiff)).Clamped()
			}
			r, g, bl := c.RGB255()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: bl, A: 255})
		}
	}
	return img, nil
}

// WriteDiffMap writes the heat map of one plane as PNG
func WriteDiffMap(w io.Writer, before, after *Frame, plane int) error {
	img, err := DiffMap(before, after, plane)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// WriteDiffMapFile writes the heat map of one plane to a PNG file
func WriteDiffMapFile(fileName string, before, after *Frame, plane int) (err error) {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteDiffMap(file, before, after, plane)
}
