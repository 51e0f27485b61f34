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
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/tiff"
)

func colorModelToBitsAndPlanes(m color.Model) (bits, planes int) {
	switch m {
	case color.RGBAModel, color.NRGBAModel:
		return 8, 3
	case color.RGBA64Model, color.NRGBA64Model:
		return 16, 3
	case color.AlphaModel, color.GrayModel:
		return 8, 1
	case color.Alpha16Model, color.Gray16Model:
		return 16, 1
	case color.YCbCrModel:
		return 8, 3
	default:
		if _, ok := m.(color.Palette); ok {
			return 8, 3
		}
		return 0, 0
	}
}

func ycbcrSubsampling(r image.YCbCrSubsampleRatio) (ssW, ssH int, ok bool) {
	switch r {
	case image.YCbCrSubsampleRatio444:
		return 0, 0, true
	case image.YCbCrSubsampleRatio422:
		return 1, 0, true
	case image.YCbCrSubsampleRatio420:
		return 1, 1, true
	case image.YCbCrSubsampleRatio440:
		return 0, 1, true
	case image.YCbCrSubsampleRatio411:
		return 2, 0, true
	case image.YCbCrSubsampleRatio410:
		return 2, 1, true
	}
	return 0, 0, false
}

// FromImage converts a decoded still image into planar samples. Chroma subsampled YCbCr images
// keep their planes, everything else becomes gray or R,G,B planes.
func FromImage(img image.Image) (*Frame, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	if yc, ok := img.(*image.YCbCr); ok && yc.SubsampleRatio != image.YCbCrSubsampleRatio444 {
		ssW, ssH, ok := ycbcrSubsampling(yc.SubsampleRatio)
		if !ok {
			return nil, fmt.Errorf("%w: YCbCr subsampling %v", ErrUnsupportedFormat, yc.SubsampleRatio)
		}
		format := Format{SampleType: SampleInteger, BitsPerSample: 8, BytesPerSample: 1, NumPlanes: 3, SubSamplingW: ssW, SubSamplingH: ssH}
		if err := format.CheckSize(width, height); err != nil {
			return nil, err
		}
		f := New(format, width, height)
		copyPlane8(&f.Planes[0], yc.Y[yc.YOffset(b.Min.X, b.Min.Y):], yc.YStride)
		copyPlane8(&f.Planes[1], yc.Cb[yc.COffset(b.Min.X, b.Min.Y):], yc.CStride)
		copyPlane8(&f.Planes[2], yc.Cr[yc.COffset(b.Min.X, b.Min.Y):], yc.CStride)
		return f, nil
	}

	bits, planes := colorModelToBitsAndPlanes(img.ColorModel())
	if bits == 0 {
		return nil, fmt.Errorf("%w: color model %T", ErrUnsupportedFormat, img.ColorModel())
	}
	format := Format{SampleType: SampleInteger, BitsPerSample: bits, BytesPerSample: bits / 8, NumPlanes: planes}
	f := New(format, width, height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			switch {
			case planes == 1 && bits == 8:
				f.Planes[0].Pix8[y*width+x] = color.GrayModel.Convert(c).(color.Gray).Y
			case planes == 1:
				f.Planes[0].Pix16[y*width+x] = color.Gray16Model.Convert(c).(color.Gray16).Y
			case bits == 8:
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				f.Planes[0].Pix8[y*width+x], f.Planes[1].Pix8[y*width+x], f.Planes[2].Pix8[y*width+x] = n.R, n.G, n.B
			default:
				n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
				f.Planes[0].Pix16[y*width+x], f.Planes[1].Pix16[y*width+x], f.Planes[2].Pix16[y*width+x] = n.R, n.G, n.B
			}
		}
	}
	return f, nil
}

func copyPlane8(p *Plane, src []uint8, stride int) {
	for y := 0; y < p.Height; y++ {
		copy(p.Pix8[y*p.Stride:y*p.Stride+p.Width], src[y*stride:y*stride+p.Width])
	}
}

// ToImage converts planar samples back into a still image for PNG or TIFF encoding.
// Subsampled frames are returned as YCbCr, which the encoders convert to RGB.
func (f *Frame) ToImage() (image.Image, error) {
	if err := f.Format.Validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, f.Width, f.Height)
	format := f.Format

	if format.NumPlanes == 2 {
		return nil, fmt.Errorf("%d: %w: two plane images", f.ID, ErrUnsupportedFormat)
	}
	if format.NumPlanes == 3 && (format.SubSamplingW != 0 || format.SubSamplingH != 0) {
		if format.BytesPerSample != 1 {
			return nil, fmt.Errorf("%d: %w: subsampled %d-bit images", f.ID, ErrUnsupportedFormat, format.BitsPerSample)
		}
		var ratio image.YCbCrSubsampleRatio
		switch {
		case format.SubSamplingW == 1 && format.SubSamplingH == 1:
			ratio = image.YCbCrSubsampleRatio420
		case format.SubSamplingW == 1 && format.SubSamplingH == 0:
			ratio = image.YCbCrSubsampleRatio422
		case format.SubSamplingW == 0 && format.SubSamplingH == 1:
			ratio = image.YCbCrSubsampleRatio440
		case format.SubSamplingW == 2 && format.SubSamplingH == 0:
			ratio = image.YCbCrSubsampleRatio411
		case format.SubSamplingW == 2 && format.SubSamplingH == 1:
			ratio = image.YCbCrSubsampleRatio410
		default:
			return nil, fmt.Errorf("%d: %w: %s", f.ID, ErrUnsupportedFormat, format)
		}
		img := image.NewYCbCr(rect, ratio)
		copyFromPlane8(img.Y, img.YStride, &f.Planes[0])
		copyFromPlane8(img.Cb, img.CStride, &f.Planes[1])
		copyFromPlane8(img.Cr, img.CStride, &f.Planes[2])
		return img, nil
	}

	switch {
	case format.NumPlanes == 1 && format.BytesPerSample == 1:
		img := image.NewGray(rect)
		copyFromPlane8(img.Pix, img.Stride, &f.Planes[0])
		return img, nil

	case format.NumPlanes == 1:
		img := image.NewGray16(rect)
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				img.SetGray16(x, y, color.Gray16{Y: uint16(f.Planes[0].At(x, y))})
			}
		}
		return img, nil

	case format.BytesPerSample == 1:
		img := image.NewNRGBA(rect)
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				img.SetNRGBA(x, y, color.NRGBA{
					R: uint8(f.Planes[0].At(x, y)), G: uint8(f.Planes[1].At(x, y)), B: uint8(f.Planes[2].At(x, y)), A: 255,
				})
			}
		}
		return img, nil

	default:
		img := image.NewNRGBA64(rect)
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				img.SetNRGBA64(x, y, color.NRGBA64{
					R: uint16(f.Planes[0].At(x, y)), G: uint16(f.Planes[1].At(x, y)), B: uint16(f.Planes[2].At(x, y)), A: 65535,
				})
			}
		}
		return img, nil
	}
}

func copyFromPlane8(dst []uint8, stride int, p *Plane) {
	for y := 0; y < p.Height; y++ {
		copy(dst[y*stride:y*stride+p.Width], p.Pix8[y*p.Stride:y*p.Stride+p.Width])
	}
}

// ReadImage decodes a PNG, JPEG or TIFF still image
func ReadImage(r io.Reader, ext string) (*Frame, error) {
	var img image.Image
	var err error
	switch ext {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	case ".tif", ".tiff":
		img, err = tiff.Decode(r)
	default:
		return nil, fmt.Errorf("%w: image extension %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// WriteImage encodes the frame as a lossless PNG or deflate-compressed TIFF
func WriteImage(w io.Writer, f *Frame, ext string) error {
	if ext != ".png" && ext != ".tif" && ext != ".tiff" {
		return fmt.Errorf("%d: %w: image extension %s", f.ID, ErrUnsupportedFormat, ext)
	}
	if f.Format.SubSamplingW != 0 || f.Format.SubSamplingH != 0 {
		return fmt.Errorf("%d: %w: subsampled frames cannot be stored losslessly as %s, use .y4m", f.ID, ErrUnsupportedFormat, ext)
	}
	img, err := f.ToImage()
	if err != nil {
		return err
	}
	if ext == ".png" {
		return png.Encode(w, img)
	}
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}
