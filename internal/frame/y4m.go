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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const y4mMagic = "YUV4MPEG2"
const y4mFrameTag = "FRAME"

// Y4MHeader is the stream header of a YUV4MPEG2 file
type Y4MHeader struct {
	Width      int
	Height     int
	FrameRate  string   // F parameter, e.g. 30000:1001
	Interlace  string   // I parameter, p t b or m
	Aspect     string   // A parameter, e.g. 1:1
	Colorspace string   // C parameter, e.g. 420jpeg or 444p16
	Extra      []string // X parameters, passed through unchanged
}

var y4mChroma = map[string][2]int{
	"420":      {1, 1},
	"420jpeg":  {1, 1},
	"420paldv": {1, 1},
	"420mpeg2": {1, 1},
	"422":      {1, 0},
	"444":      {0, 0},
}

// Format maps the colorspace tag to a sample layout. A missing tag means 420jpeg.
func (h Y4MHeader) Format() (Format, error) {
	cs := h.Colorspace
	if cs == "" {
		cs = "420jpeg"
	}
	format := Format{SampleType: SampleInteger, BitsPerSample: 8, BytesPerSample: 1, NumPlanes: 3}

	base, bits := cs, 8
	if strings.HasPrefix(cs, "mono") {
		base = "mono"
		if depth := strings.TrimPrefix(cs, "mono"); depth != "" {
			n, err := strconv.Atoi(depth)
			if err != nil {
				return Format{}, fmt.Errorf("%w: y4m colorspace %s", ErrUnsupportedFormat, cs)
			}
			bits = n
		}
	} else if i := strings.LastIndexByte(cs, 'p'); i > 0 {
		if n, err := strconv.Atoi(cs[i+1:]); err == nil {
			base, bits = cs[:i], n
		}
	}

	if base == "mono" {
		format.NumPlanes = 1
	} else {
		ss, ok := y4mChroma[base]
		if !ok {
			return Format{}, fmt.Errorf("%w: y4m colorspace %s", ErrUnsupportedFormat, cs)
		}
		format.SubSamplingW, format.SubSamplingH = ss[0], ss[1]
	}
	if bits < 8 || bits > 16 {
		return Format{}, fmt.Errorf("%w: y4m colorspace %s with %d bits", ErrUnsupportedFormat, cs, bits)
	}
	format.BitsPerSample = bits
	if bits > 8 {
		format.BytesPerSample = 2
	}
	return format, format.CheckSize(h.Width, h.Height)
}

// Y4MColorspace returns the colorspace tag for a sample layout
func Y4MColorspace(f Format) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	var base string
	switch {
	case f.NumPlanes == 1:
		if f.BitsPerSample == 8 {
			return "mono", nil
		}
		return "mono" + strconv.Itoa(f.BitsPerSample), nil
	case f.NumPlanes == 3 && f.SubSamplingW == 1 && f.SubSamplingH == 1:
		base = "420"
	case f.NumPlanes == 3 && f.SubSamplingW == 1 && f.SubSamplingH == 0:
		base = "422"
	case f.NumPlanes == 3 && f.SubSamplingW == 0 && f.SubSamplingH == 0:
		base = "444"
	default:
		return "", fmt.Errorf("%w: %s has no y4m colorspace", ErrUnsupportedFormat, f)
	}
	if f.BitsPerSample == 8 {
		if base == "420" {
			return "420jpeg", nil
		}
		return base, nil
	}
	if f.BitsPerSample < 8 {
		return "", fmt.Errorf("%w: %d-bit y4m", ErrUnsupportedFormat, f.BitsPerSample)
	}
	return base + "p" + strconv.Itoa(f.BitsPerSample), nil
}

func parseY4MHeader(line string) (h Y4MHeader, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != y4mMagic {
		return h, fmt.Errorf("%w: missing %s signature", ErrUnsupportedFormat, y4mMagic)
	}
	for _, f := range fields[1:] {
		val := f[1:]
		switch f[0] {
		case 'W':
			h.Width, err = strconv.Atoi(val)
		case 'H':
			h.Height, err = strconv.Atoi(val)
		case 'F':
			h.FrameRate = val
		case 'I':
			h.Interlace = val
		case 'A':
			h.Aspect = val
		case 'C':
			h.Colorspace = val
		case 'X':
			h.Extra = append(h.Extra, val)
		default:
			return h, fmt.Errorf("%w: unknown y4m header parameter %q", ErrUnsupportedFormat, f)
		}
		if err != nil {
			return h, fmt.Errorf("%w: y4m header parameter %q", ErrUnsupportedFormat, f)
		}
	}
	if h.Width <= 0 || h.Height <= 0 {
		return h, fmt.Errorf("%w: y4m header without frame size", ErrUnsupportedFormat)
	}
	return h, nil
}

func (h Y4MHeader) String() string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%s W%d H%d", y4mMagic, h.Width, h.Height)
	for _, p := range []struct {
		tag byte
		val string
	}{{'F', h.FrameRate}, {'I', h.Interlace}, {'A', h.Aspect}, {'C', h.Colorspace}} {
		if p.val != "" {
			fmt.Fprintf(&sb, " %c%s", p.tag, p.val)
		}
	}
	for _, x := range h.Extra {
		fmt.Fprintf(&sb, " X%s", x)
	}
	return sb.String()
}

// Y4MReader decodes a YUV4MPEG2 stream frame by frame
type Y4MReader struct {
	Header Y4MHeader
	format Format
	r      *bufio.Reader
	buf    []byte
	nextID int
}

// NewY4MReader parses the stream header and resolves its sample layout
func NewY4MReader(r io.Reader) (*Y4MReader, error) {
	br := bufio.NewReaderSize(r, bufLen)
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading y4m header: %w", err)
	}
	h, err := parseY4MHeader(strings.TrimSuffix(line, "\n"))
	if err != nil {
		return nil, err
	}
	format, err := h.Format()
	if err != nil {
		return nil, err
	}
	return &Y4MReader{Header: h, format: format, r: br}, nil
}

func (y *Y4MReader) Format() Format { return y.format }

// ReadFrame returns the next frame, or io.EOF after the last one
func (y *Y4MReader) ReadFrame() (*Frame, error) {
	line, err := y.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%d: reading y4m frame header: %w", y.nextID, io.ErrUnexpectedEOF)
	}
	if !strings.HasPrefix(line, y4mFrameTag) {
		return nil, fmt.Errorf("%d: %w: expected %s, got %q", y.nextID, ErrUnsupportedFormat, y4mFrameTag, strings.TrimSpace(line))
	}

	f := New(y.format, y.Header.Width, y.Header.Height)
	f.ID = y.nextID
	y.nextID++
	for i := range f.Planes {
		p := &f.Planes[i]
		if p.Pix8 != nil {
			if _, err := io.ReadFull(y.r, p.Pix8); err != nil {
				if errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}
				return nil, fmt.Errorf("%d: reading plane %d: %w", f.ID, i, err)
			}
			continue
		}
		if err := y.readPlane16(p); err != nil {
			return nil, fmt.Errorf("%d: reading plane %d: %w", f.ID, i, err)
		}
	}
	return f, nil
}

func (y *Y4MReader) readPlane16(p *Plane) error {
	if cap(y.buf) < p.Width*2 {
		y.buf = make([]byte, p.Width*2)
	}
	buf := y.buf[:p.Width*2]
	for row := 0; row < p.Height; row++ {
		if _, err := io.ReadFull(y.r, buf); err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		pix := p.Pix16[row*p.Stride : row*p.Stride+p.Width]
		for x := range pix {
			pix[x] = uint16(buf[2*x]) | uint16(buf[2*x+1])<<8
		}
	}
	return nil
}

// Y4MWriter encodes frames into a YUV4MPEG2 stream. The header is written with the first frame.
type Y4MWriter struct {
	Header      Y4MHeader
	w           *bufio.Writer
	format      Format
	wroteHeader bool
	buf         []byte
}

// NewY4MWriter creates a writer for frames of the given layout. The colorspace tag is derived
// from the format, and a zero size is taken from the first frame.
func NewY4MWriter(w io.Writer, h Y4MHeader, format Format) (*Y4MWriter, error) {
	cs, err := Y4MColorspace(format)
	if err != nil {
		return nil, err
	}
	h.Colorspace = cs
	return &Y4MWriter{Header: h, w: bufio.NewWriterSize(w, bufLen), format: format}, nil
}

func (y *Y4MWriter) WriteFrame(f *Frame) error {
	if f.Format != y.format {
		return fmt.Errorf("%d: %w: frame format %s differs from stream format %s", f.ID, ErrUnsupportedFormat, f.Format, y.format)
	}
	if y.Header.Width == 0 {
		y.Header.Width, y.Header.Height = f.Width, f.Height
	}
	if err := y.WriteHeader(); err != nil {
		return err
	}
	if f.Width != y.Header.Width || f.Height != y.Header.Height {
		return fmt.Errorf("%d: %w: frame size %dx%d differs from stream size %dx%d", f.ID, ErrUnsupportedFormat,
			f.Width, f.Height, y.Header.Width, y.Header.Height)
	}

	if _, err := io.WriteString(y.w, y4mFrameTag+"\n"); err != nil {
		return err
	}
	for i := range f.Planes {
		p := &f.Planes[i]
		for row := 0; row < p.Height; row++ {
			var err error
			if p.Pix8 != nil {
				_, err = y.w.Write(p.Pix8[row*p.Stride : row*p.Stride+p.Width])
			} else {
				y.buf = y.buf[:0]
				for _, v := range p.Pix16[row*p.Stride : row*p.Stride+p.Width] {
					y.buf = append(y.buf, byte(v), byte(v>>8))
				}
				_, err = y.w.Write(y.buf)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteHeader writes the stream header unless already written
func (y *Y4MWriter) WriteHeader() error {
	if y.wroteHeader {
		return nil
	}
	if _, err := fmt.Fprintf(y.w, "%s\n", y.Header); err != nil {
		return err
	}
	y.wroteHeader = true
	return nil
}

func (y *Y4MWriter) Flush() error { return y.w.Flush() }
