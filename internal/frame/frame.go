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
	"errors"
	"fmt"
	"strings"
)

// Returned, wrapped, for pixel formats the tools cannot process
var ErrUnsupportedFormat = errors.New("unsupported pixel format")

// Sample type of a format
type SampleType int

const (
	SampleInteger SampleType = iota
	SampleFloat
)

func (s SampleType) String() string {
	if s == SampleFloat {
		return "float"
	}
	return "integer"
}

// Pixel format of a frame. All planes share bit depth; planes 1 and up
// are subsampled by 2^SubSamplingW horizontally and 2^SubSamplingH vertically.
type Format struct {
	SampleType     SampleType
	BitsPerSample  int
	BytesPerSample int
	NumPlanes      int
	SubSamplingW   int
	SubSamplingH   int
}

// Returns the largest sample value of the format
func (f Format) MaxValue() int { return (1 << uint(f.BitsPerSample)) - 1 }

// Returns width and height of the given plane for a frame of given luma dimensions
func (f Format) PlaneSize(plane, width, height int) (w, h int) {
	if plane == 0 {
		return width, height
	}
	return width >> uint(f.SubSamplingW), height >> uint(f.SubSamplingH)
}

func (f Format) String() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "%d plane %d-bit %s", f.NumPlanes, f.BitsPerSample, f.SampleType)
	if f.SubSamplingW != 0 || f.SubSamplingH != 0 {
		fmt.Fprintf(&b, " subsampled %dx%d", 1<<uint(f.SubSamplingW), 1<<uint(f.SubSamplingH))
	}
	return b.String()
}

// Checks that the format can be processed: integer samples of 8 to 16 bits in 1 or 2 bytes, 1 to 3 planes
func (f Format) Validate() error {
	if f.SampleType != SampleInteger {
		return fmt.Errorf("%w: only integer samples supported, got %s", ErrUnsupportedFormat, f.SampleType)
	}
	if f.BitsPerSample < 1 || f.BitsPerSample > 16 {
		return fmt.Errorf("%w: only 8..16bit integer input supported, got %d bits", ErrUnsupportedFormat, f.BitsPerSample)
	}
	if f.BytesPerSample != 1 && f.BytesPerSample != 2 {
		return fmt.Errorf("%w: %d bytes per sample", ErrUnsupportedFormat, f.BytesPerSample)
	}
	if f.BitsPerSample > 8*f.BytesPerSample {
		return fmt.Errorf("%w: %d bits do not fit %d bytes per sample", ErrUnsupportedFormat, f.BitsPerSample, f.BytesPerSample)
	}
	if f.NumPlanes < 1 || f.NumPlanes > 3 {
		return fmt.Errorf("%w: too many planes (%d)", ErrUnsupportedFormat, f.NumPlanes)
	}
	return nil
}

// FrameBytes returns the sample storage needed by one frame of the given size
func (f Format) FrameBytes(width, height int) int64 {
	n := int64(0)
	for i := 0; i < f.NumPlanes; i++ {
		w, h := f.PlaneSize(i, width, height)
		n += int64(w) * int64(h) * int64(f.BytesPerSample)
	}
	return n
}

// CheckSize rejects frame dimensions that the chroma subsampling does not divide evenly.
func (f Format) CheckSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: empty %dx%d frame", ErrUnsupportedFormat, width, height)
	}
	if f.NumPlanes > 1 && (width%(1<<uint(f.SubSamplingW)) != 0 || height%(1<<uint(f.SubSamplingH)) != 0) {
		return fmt.Errorf("%w: %dx%d is not a multiple of the %s chroma subsampling", ErrUnsupportedFormat, width, height, f)
	}
	return nil
}

// A plane of samples. Exactly one of Pix8 and Pix16 is set, matching the format's bytes per sample.
// Stride is in samples.
type Plane struct {
	Width  int
	Height int
	Stride int
	Pix8   []uint8
	Pix16  []uint16
}

// Returns the sample at column x, row y
func (p *Plane) At(x, y int) int {
	if p.Pix16 != nil {
		return int(p.Pix16[y*p.Stride+x])
	}
	return int(p.Pix8[y*p.Stride+x])
}

// Sets the sample at column x, row y. The value is not clamped.
func (p *Plane) Set(x, y, v int) {
	if p.Pix16 != nil {
		p.Pix16[y*p.Stride+x] = uint16(v)
	} else {
		p.Pix8[y*p.Stride+x] = uint8(v)
	}
}

// A frame: a set of integer planes with a common format
type Frame struct {
	ID       int    // Sequential ID number, for log output
	FileName string // Original file name, if any, for log output

	Format Format
	Width  int // Width of plane 0
	Height int // Height of plane 0
	Planes []Plane
}

// Allocates a frame with tightly packed planes of the given format and luma dimensions
func New(format Format, width, height int) *Frame {
	f := &Frame{Format: format, Width: width, Height: height, Planes: make([]Plane, format.NumPlanes)}
	for i := range f.Planes {
		w, h := format.PlaneSize(i, width, height)
		p := Plane{Width: w, Height: h, Stride: w}
		if format.BytesPerSample == 2 {
			p.Pix16 = make([]uint16, w*h)
		} else {
			p.Pix8 = make([]uint8, w*h)
		}
		f.Planes[i] = p
	}
	return f
}

// Deep copy of the frame
func (f *Frame) Clone() *Frame {
	c := *f
	c.Planes = make([]Plane, len(f.Planes))
	for i, p := range f.Planes {
		c.Planes[i] = p
		if p.Pix8 != nil {
			c.Planes[i].Pix8 = append([]uint8(nil), p.Pix8...)
		}
		if p.Pix16 != nil {
			c.Planes[i].Pix16 = append([]uint16(nil), p.Pix16...)
		}
	}
	return &c
}

// Returns the size of the pixel data in bytes
func (f *Frame) SizeBytes() int64 {
	n := int64(0)
	for _, p := range f.Planes {
		n += int64(p.Stride) * int64(p.Height) * int64(f.Format.BytesPerSample)
	}
	return n
}

func (f *Frame) DimensionsToString() string {
	return fmt.Sprintf("%dx%d %s", f.Width, f.Height, f.Format)
}
