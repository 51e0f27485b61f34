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
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/valyala/fastrand"
)

func TestY4MHeaderFormat(t *testing.T) {
	tcs := []struct {
		cs                  string
		planes, bits, bytes int
		ssW, ssH            int
	}{
		{"", 3, 8, 1, 1, 1},
		{"420jpeg", 3, 8, 1, 1, 1},
		{"420paldv", 3, 8, 1, 1, 1},
		{"420mpeg2", 3, 8, 1, 1, 1},
		{"422", 3, 8, 1, 1, 0},
		{"444", 3, 8, 1, 0, 0},
		{"mono", 1, 8, 1, 0, 0},
		{"mono16", 1, 16, 2, 0, 0},
		{"420p10", 3, 10, 2, 1, 1},
		{"422p12", 3, 12, 2, 1, 0},
		{"444p16", 3, 16, 2, 0, 0},
	}
	for _, tc := range tcs {
		f, err := Y4MHeader{Width: 16, Height: 8, Colorspace: tc.cs}.Format()
		if err != nil {
			t.Errorf("%q: %v", tc.cs, err)
			continue
		}
		if f.NumPlanes != tc.planes || f.BitsPerSample != tc.bits || f.BytesPerSample != tc.bytes ||
			f.SubSamplingW != tc.ssW || f.SubSamplingH != tc.ssH {
			t.Errorf("%q: got %s; want %d planes %d bits ss %d,%d", tc.cs, f, tc.planes, tc.bits, tc.ssW, tc.ssH)
		}
	}
	for _, cs := range []string{"411", "444alpha", "420p7", "420p32"} {
		if _, err := (Y4MHeader{Width: 16, Height: 8, Colorspace: cs}).Format(); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%q err=%v; want ErrUnsupportedFormat", cs, err)
		}
	}
}

func TestY4MHeaderParse(t *testing.T) {
	h, err := parseY4MHeader("YUV4MPEG2 W64 H48 F30000:1001 Ip A1:1 C420p10 XYSCSS=420P10")
	if err != nil {
		t.Fatal(err)
	}
	if h.Width != 64 || h.Height != 48 || h.FrameRate != "30000:1001" || h.Interlace != "p" ||
		h.Aspect != "1:1" || h.Colorspace != "420p10" || len(h.Extra) != 1 {
		t.Errorf("parsed %+v", h)
	}
	if got := h.String(); got != "YUV4MPEG2 W64 H48 F30000:1001 Ip A1:1 C420p10 XYSCSS=420P10" {
		t.Errorf("String()=%q", got)
	}
	if _, err := parseY4MHeader("YUV4MPEG W64 H48"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("bad magic err=%v", err)
	}
	if _, err := parseY4MHeader("YUV4MPEG2 W64"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("missing height err=%v", err)
	}
}

func TestY4MStreamRoundTrip(t *testing.T) {
	rng := fastrand.RNG{}
	for _, format := range []Format{yuv420, yuv422p10, gray16} {
		frames := []*Frame{randomFrame(&rng, format, 16, 8), randomFrame(&rng, format, 16, 8), randomFrame(&rng, format, 16, 8)}
		buf := bytes.Buffer{}
		w, err := NewY4MWriter(&buf, Y4MHeader{FrameRate: "25:1", Interlace: "p"}, format)
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range frames {
			if err := w.WriteFrame(f); err != nil {
				t.Fatal(err)
			}
		}
		if err := w.Flush(); err != nil {
			t.Fatal(err)
		}

		r, err := NewY4MReader(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if r.Format() != format || r.Header.FrameRate != "25:1" {
			t.Fatalf("stream header %+v format %s; want %s", r.Header, r.Format(), format)
		}
		for i, want := range frames {
			got, err := r.ReadFrame()
			if err != nil {
				t.Fatalf("%s frame %d: %v", format, i, err)
			}
			if got.ID != i {
				t.Errorf("frame ID %d; want %d", got.ID, i)
			}
			framesEqual(t, got, want)
		}
		if _, err := r.ReadFrame(); err != io.EOF {
			t.Errorf("%s: err=%v after last frame; want io.EOF", format, err)
		}
	}
}

func TestY4MSixteenBitLittleEndian(t *testing.T) {
	format := Format{SampleType: SampleInteger, BitsPerSample: 16, BytesPerSample: 2, NumPlanes: 1}
	f := New(format, 2, 1)
	f.Planes[0].Set(0, 0, 0x1234)
	f.Planes[0].Set(1, 0, 0xabcd)
	buf := bytes.Buffer{}
	w, err := NewY4MWriter(&buf, Y4MHeader{}, format)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame(f); err != nil {
		t.Fatal(err)
	}
	w.Flush()
	want := "YUV4MPEG2 W2 H1 Cmono16\nFRAME\n\x34\x12\xcd\xab"
	if buf.String() != want {
		t.Errorf("got %q; want %q", buf.String(), want)
	}
}

func TestY4MTruncatedFrame(t *testing.T) {
	stream := "YUV4MPEG2 W4 H2 Cmono\nFRAME\n\x01\x02\x03"
	r, err := NewY4MReader(strings.NewReader(stream))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadFrame(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err=%v; want io.ErrUnexpectedEOF", err)
	}

	r, err = NewY4MReader(strings.NewReader("YUV4MPEG2 W4 H2 Cmono\nFRAMX\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadFrame(); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("bad frame tag err=%v; want ErrUnsupportedFormat", err)
	}
}

func TestY4MWriterRejectsMismatch(t *testing.T) {
	w, err := NewY4MWriter(io.Discard, Y4MHeader{}, yuv420)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame(New(gray8, 4, 4)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("format mismatch err=%v", err)
	}
	if err := w.WriteFrame(New(yuv420, 4, 4)); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame(New(yuv420, 8, 4)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("size mismatch err=%v", err)
	}
}
