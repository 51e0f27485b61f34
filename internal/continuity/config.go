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
	"fmt"

	"github.com/mlnoga/edgefix/internal/frame"
)

// Returned, wrapped, for settings that cannot be applied to a given format
var ErrConfig = errors.New("invalid continuity settings")

// User-facing settings with one entry per plane. Missing border entries default to 0,
// missing radius entries to the smaller plane dimension.
type Config struct {
	Left      []int     `json:"left"`
	Top       []int     `json:"top"`
	Right     []int     `json:"right"`
	Bottom    []int     `json:"bottom"`
	Radius    []int     `json:"radius"`
	Precision Precision `json:"precision"`
}

func at(values []int, i, def int) int {
	if i < len(values) {
		return values[i]
	}
	return def
}

// Returns the radius used for a plane when none is given: the smaller dimension of the plane,
// with chroma planes reduced by the format's subsampling
func DefaultRadius(format frame.Format, plane, width, height int) int {
	w, h := format.PlaneSize(plane, width, height)
	if h < w {
		return h
	}
	return w
}

// Validates the settings against a format and frame size, and resolves per-plane borders.
// Fails without side effects if the format or any setting is unsupported.
func (c *Config) Resolve(format frame.Format, width, height int) ([]Border, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	n := format.NumPlanes
	params := []struct {
		name   string
		values []int
	}{
		{"left", c.Left}, {"top", c.Top}, {"right", c.Right}, {"bottom", c.Bottom}, {"radius", c.Radius},
	}
	for _, p := range params {
		if len(p.values) > n {
			return nil, fmt.Errorf("%w: too many %s parameter (%d for %d planes)", ErrConfig, p.name, len(p.values), n)
		}
	}
	if c.Precision == PrecisionSingle && format.BytesPerSample != 1 {
		return nil, fmt.Errorf("%w: single precision requires 8-bit samples, got %d bytes", ErrConfig, format.BytesPerSample)
	}

	borders := make([]Border, n)
	for i := range borders {
		b := Border{
			Left:   at(c.Left, i, 0),
			Top:    at(c.Top, i, 0),
			Right:  at(c.Right, i, 0),
			Bottom: at(c.Bottom, i, 0),
			Radius: at(c.Radius, i, DefaultRadius(format, i, width, height)),
		}
		w, h := format.PlaneSize(i, width, height)
		if err := b.Check(w, h); err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		borders[i] = b
	}
	return borders, nil
}
