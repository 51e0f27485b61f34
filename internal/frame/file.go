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
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Extension returns the lower case file extension, looking through a .gz or .gzip suffix
func Extension(fileName string) (ext string, gzipped bool) {
	ext = strings.ToLower(path.Ext(fileName))
	if ext == ".gz" || ext == ".gzip" {
		return strings.ToLower(path.Ext(strings.TrimSuffix(fileName, path.Ext(fileName)))), true
	}
	return ext, false
}

func IsFITS(ext string) bool {
	return ext == ".fits" || ext == ".fit" || ext == ".fts"
}

func IsY4M(ext string) bool {
	return ext == ".y4m"
}

// ReadFile reads a still frame from a FITS, PNG, JPEG or TIFF file, or the first frame of a
// Y4M stream. Decompresses gzip if .gz or .gzip suffix is present.
func ReadFile(fileName string, id int, logWriter io.Writer) (*Frame, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = bufio.NewReaderSize(file, bufLen)
	ext, gzipped := Extension(fileName)
	if gzipped {
		if r, err = gzip.NewReader(r); err != nil {
			return nil, err
		}
	}

	var f *Frame
	switch {
	case IsFITS(ext):
		f, err = ReadFITS(r, id, logWriter)
	case IsY4M(ext):
		var y *Y4MReader
		if y, err = NewY4MReader(r); err == nil {
			f, err = y.ReadFrame()
		}
	default:
		f, err = ReadImage(r, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%d: %s: %w", id, fileName, err)
	}
	f.ID, f.FileName = id, fileName
	return f, nil
}

// WriteFile writes the frame in the format given by the file name extension
func WriteFile(fileName string, f *Frame) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := Write(writer, f, fileName); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// Write encodes the frame in the format given by the file name extension
func Write(w io.Writer, f *Frame, fileName string) error {
	ext, gzipped := Extension(fileName)
	if gzipped {
		zw := gzip.NewWriter(w)
		if err := writeFormat(zw, f, ext); err != nil {
			return err
		}
		return zw.Close()
	}
	return writeFormat(w, f, ext)
}

func writeFormat(w io.Writer, f *Frame, ext string) error {
	switch {
	case IsFITS(ext):
		return WriteFITS(w, f)
	case IsY4M(ext):
		y, err := NewY4MWriter(w, Y4MHeader{Width: f.Width, Height: f.Height}, f.Format)
		if err != nil {
			return err
		}
		if err := y.WriteFrame(f); err != nil {
			return err
		}
		return y.Flush()
	default:
		return WriteImage(w, f, ext)
	}
}
