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
	"io"
	"regexp"
	"strconv"
	"strings"
)

const fitsBlockSize int = 2880   // Block size of FITS header and data units
const HeaderLineSize int = 80    // Line size of a FITS header
const bufLen int = 16 * 1024     // I/O buffer length for sample data
const unsignedBzero int64 = 32768 // BZERO marking unsigned 16-bit data

var reParser *regexp.Regexp = compileRE() // Regexp parser for FITS header lines

// Header holds the parsed keys of a FITS header unit
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int64
	Floats   map[string]float64
	Strings  map[string]string
	Dates    map[string]string
	Comments []string
	History  []string
	End      bool
	Length   int
}

func NewHeader() Header {
	return Header{
		Bools:   make(map[string]bool),
		Ints:    make(map[string]int64),
		Floats:  make(map[string]float64),
		Strings: make(map[string]string),
		Dates:   make(map[string]string),
	}
}

func (h *Header) popInt(key string, id int) (int64, error) {
	if val, ok := h.Ints[key]; ok {
		delete(h.Ints, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", id, key)
}

func (h *Header) popNumber(key string) (float64, bool) {
	if val, ok := h.Ints[key]; ok {
		delete(h.Ints, key)
		return float64(val), true
	} else if val, ok := h.Floats[key]; ok {
		delete(h.Floats, key)
		return val, true
	}
	return 0, false
}

// ReadFITS reads a FITS image with up to three planes of 8-bit or unsigned 16-bit samples.
// Other sample types are parsed far enough to report them as unsupported.
func ReadFITS(r io.Reader, id int, logWriter io.Writer) (*Frame, error) {
	h := NewHeader()
	if err := h.read(r, id, logWriter); err != nil {
		return nil, err
	}

	// check mandatory fields as per standard
	if !h.Bools["SIMPLE"] {
		return nil, fmt.Errorf("%d: Not a valid FITS file; SIMPLE=T missing in header", id)
	}
	bitpix, err := h.popInt("BITPIX", id)
	if err != nil {
		return nil, err
	}
	naxis, err := h.popInt("NAXIS", id)
	if err != nil {
		return nil, err
	}
	if naxis < 2 || naxis > 3 {
		return nil, fmt.Errorf("%d: %w: NAXIS=%d, need 2 or 3 axes", id, ErrUnsupportedFormat, naxis)
	}
	naxisn := make([]int, naxis)
	for i := range naxisn {
		n, err := h.popInt("NAXIS"+strconv.Itoa(i+1), id)
		if err != nil {
			return nil, err
		}
		naxisn[i] = int(n)
	}
	bzero, _ := h.popNumber("BZERO")
	bscale, ok := h.popNumber("BSCALE")
	if ok && bscale != 1 {
		return nil, fmt.Errorf("%d: %w: BSCALE=%g", id, ErrUnsupportedFormat, bscale)
	}

	planes := 1
	if naxis == 3 {
		planes = naxisn[2]
	}
	format := Format{SampleType: SampleInteger, NumPlanes: planes}
	switch {
	case bitpix < 0:
		format.SampleType, format.BitsPerSample, format.BytesPerSample = SampleFloat, int(-bitpix), int(-bitpix/8)
	default:
		format.BitsPerSample, format.BytesPerSample = int(bitpix), int(bitpix/8)
		if depth, ok := h.Ints["BITDEPTH"]; ok && depth > 0 && depth < bitpix {
			format.BitsPerSample = int(depth)
		}
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%d: %w", id, err)
	}
	if bitpix == 16 && int64(bzero) != unsignedBzero {
		fmt.Fprintf(logWriter, "%d: Warning: signed 16-bit data with BZERO=%g, clamping negative values to 0\n", id, bzero)
	}
	if err := format.CheckSize(naxisn[0], naxisn[1]); err != nil {
		return nil, fmt.Errorf("%d: %w", id, err)
	}

	f := New(format, naxisn[0], naxisn[1])
	f.ID = id
	if bitpix == 8 {
		for i := range f.Planes {
			if _, err := io.ReadFull(r, f.Planes[i].Pix8); err != nil {
				return nil, fmt.Errorf("%d: %s", id, err.Error())
			}
		}
		return f, nil
	}
	for i := range f.Planes {
		if err := readInt16Data(r, f.Planes[i].Pix16, int64(bzero)); err != nil {
			return nil, fmt.Errorf("%d: %s", id, err.Error())
		}
	}
	return f, nil
}

// Batched read of 16-bit data, converting from network byte order and adjusting for bzero
func readInt16Data(r io.Reader, data []uint16, bzero int64) error {
	buf := make([]byte, bufLen)
	for dataIndex := 0; dataIndex < len(data); {
		bytesToRead := (len(data) - dataIndex) << 1
		if bytesToRead > bufLen {
			bytesToRead = bufLen
		}
		if _, err := io.ReadFull(r, buf[:bytesToRead]); err != nil {
			return err
		}
		for i := 0; i < bytesToRead; i += 2 {
			v := int64(int16((uint16(buf[i])<<8)|uint16(buf[i+1]))) + bzero
			if v < 0 {
				v = 0
			} else if v > 65535 {
				v = 65535
			}
			data[dataIndex+(i>>1)] = uint16(v)
		}
		dataIndex += bytesToRead >> 1
	}
	return nil
}

func (h *Header) read(r io.Reader, id int, logWriter io.Writer) error {
	buf := make([]byte, fitsBlockSize)

	for h.Length = 0; !h.End; {
		// read next header unit
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("%d: %s", id, err.Error())
		}
		h.Length += fitsBlockSize

		// parse all lines in this header unit
		for lineNo := 0; lineNo < fitsBlockSize/HeaderLineSize && !h.End; lineNo++ {
			line := buf[lineNo*HeaderLineSize : (lineNo+1)*HeaderLineSize]
			subValues := reParser.FindSubmatch(line)
			if subValues == nil {
				fmt.Fprintf(logWriter, "%d: Warning:Cannot parse '%s', ignoring\n", id, string(line))
			} else {
				h.readLine(reParser.SubexpNames(), subValues, id, lineNo, logWriter)
			}
		}
	}
	return nil
}

func (h *Header) readLine(subNames []string, subValues [][]byte, id, lineNo int, logWriter io.Writer) {
	key := ""
	// ignore index 0 which is the whole line
	for i := 1; i < len(subNames); i++ {
		if subValues[i] == nil || len(subNames[i]) != 1 {
			continue
		}
		switch c := subNames[i][0]; c {
		case 'E': // end line
			h.End = true
		case 'H': // history line
			h.History = append(h.History, string(subValues[i]))
		case 'C': // comment line
			h.Comments = append(h.Comments, string(subValues[i]))
		case 'k':
			key = string(subValues[i])
		case 'b':
			if len(subValues[i]) > 0 {
				v := subValues[i][0]
				h.Bools[key] = v == 't' || v == 'T'
			}
		case 'i':
			if val, err := strconv.ParseInt(string(subValues[i]), 10, 64); err == nil {
				h.Ints[key] = val
			}
		case 'f':
			if val, err := strconv.ParseFloat(strings.Replace(string(subValues[i]), "D", "E", 1), 64); err == nil {
				h.Floats[key] = val
			}
		case 's':
			h.Strings[key] = strings.TrimRight(string(subValues[i]), " ")
		case 'd':
			h.Dates[key] = string(subValues[i])
		case 'c':
			// ignore value comments
		default:
			fmt.Fprintf(logWriter, "%d:%d:Warning:Unknown token '%s'\n", id, lineNo, string(c))
		}
	}
}

// Build regexp parser for FITS header lines
func compileRE() *regexp.Regexp {
	white := "\\s+"
	whiteOpt := "\\s*"
	whiteLine := white

	hist := "HISTORY"
	rest := ".*"
	histLine := hist + white + "(?P<H>" + rest + ")"

	commKey := "COMMENT"
	commLine := commKey + white + "(?P<C>" + rest + ")"

	end := "(?P<E>END)"
	endLine := end + whiteOpt

	key := "(?P<k>[A-Z0-9_-]+)"
	equals := "="

	boo := "(?P<b>[TF])"
	inte := "(?P<i>[+-]?[0-9]+)"
	floa := "(?P<f>[+-]?[0-9]*\\.[0-9]*(?:[ED][-+]?[0-9]+)?)"
	stri := "'(?P<s>[^']*)'"
	date := "(?P<d>[0-9]{1,4}-?[012][0-9]-?[0123][0-9]T[012][0-9]:?[0-5][0-9]:?[0-5][0-9].?[0-9]*)"
	val := "(?:" + boo + "|" + inte + "|" + floa + "|" + stri + "|" + date + ")"

	commOpt := "(?:/(?P<c>.*))?"
	keyLine := key + whiteOpt + equals + whiteOpt + val + whiteOpt + commOpt

	lineRe := "^(?:" + whiteLine + "|" + histLine + "|" + commLine + "|" + keyLine + "|" + endLine + ")$"
	return regexp.MustCompile(lineRe)
}

// WriteFITS writes the frame as a FITS primary HDU with BITPIX 8 or unsigned 16.
// Subsampled frames have no FITS representation.
func WriteFITS(w io.Writer, f *Frame) error {
	if err := f.Format.Validate(); err != nil {
		return err
	}
	if f.Format.NumPlanes > 1 && (f.Format.SubSamplingW != 0 || f.Format.SubSamplingH != 0) {
		return fmt.Errorf("%d: %w: FITS cannot hold subsampled planes", f.ID, ErrUnsupportedFormat)
	}

	// Build header in string buffer
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "    FITS standard 4.0")
	if f.Format.BytesPerSample == 1 {
		writeInt(&sb, "BITPIX", 8, "    8-bit unsigned integer")
	} else {
		writeInt(&sb, "BITPIX", 16, "    16-bit integer")
	}
	naxis := 2
	if f.Format.NumPlanes > 1 {
		naxis = 3
	}
	writeInt(&sb, "NAXIS", naxis, "[1] Number of axis")
	writeInt(&sb, "NAXIS1", f.Width, "[1] Axis size")
	writeInt(&sb, "NAXIS2", f.Height, "[1] Axis size")
	if naxis == 3 {
		writeInt(&sb, "NAXIS3", f.Format.NumPlanes, "[1] Axis size")
	}
	if f.Format.BytesPerSample == 2 {
		writeInt(&sb, "BZERO", int(unsignedBzero), "[1] Zero offset")
		writeInt(&sb, "BSCALE", 1, "[1] Value scaler")
	}
	writeInt(&sb, "BITDEPTH", f.Format.BitsPerSample, "[1] Significant bits per sample")
	writeEnd(&sb)
	padBlock(&sb, ' ')

	// Write header block(s)
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	written := 0
	for i := range f.Planes {
		p := &f.Planes[i]
		var err error
		if f.Format.BytesPerSample == 1 {
			err = writeUint8Plane(w, p)
			written += p.Width * p.Height
		} else {
			err = writeUint16Plane(w, p)
			written += p.Width * p.Height * 2
		}
		if err != nil {
			return err
		}
	}

	// Pad data unit to a full block with zeros
	if rem := written % fitsBlockSize; rem > 0 {
		if _, err := w.Write(make([]byte, fitsBlockSize-rem)); err != nil {
			return err
		}
	}
	return nil
}

func padBlock(sb *strings.Builder, r rune) {
	if bytesInHeaderBlock := sb.Len() % fitsBlockSize; bytesInHeaderBlock > 0 {
		for i := bytesInHeaderBlock; i < fitsBlockSize; i++ {
			sb.WriteRune(r)
		}
	}
}

func writeUint8Plane(w io.Writer, p *Plane) error {
	for y := 0; y < p.Height; y++ {
		if _, err := w.Write(p.Pix8[y*p.Stride : y*p.Stride+p.Width]); err != nil {
			return err
		}
	}
	return nil
}

// Batched write of 16-bit data in network byte order, offset by BZERO
func writeUint16Plane(w io.Writer, p *Plane) error {
	buf := make([]byte, 0, bufLen)
	for y := 0; y < p.Height; y++ {
		for _, v := range p.Pix16[y*p.Stride : y*p.Stride+p.Width] {
			s := uint16(int32(v) - int32(unsignedBzero))
			buf = append(buf, byte(s>>8), byte(s))
			if len(buf) == bufLen {
				if _, err := w.Write(buf); err != nil {
					return err
				}
				buf = buf[:0]
			}
		}
	}
	_, err := w.Write(buf)
	return err
}

func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	v := "F"
	if value {
		v = "T"
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}

func writeInt(w io.Writer, key string, value int, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}

func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", HeaderLineSize-3))
}
