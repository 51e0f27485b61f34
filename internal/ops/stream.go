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

package ops

import (
	"errors"
	"fmt"
	"io"

	"github.com/mlnoga/edgefix/internal/frame"
)

// Maximum number of frames per batch and thread, if memory permits
const framesPerThread = 2

// Returns the number of frames to hold in memory at once for frames of the given size
func BatchSize(c *Context, frameBytes int64) int {
	size := c.MaxThreads * framesPerThread
	if frameBytes > 0 && c.FrameMemoryMB > 0 {
		// each frame in flight may need an extra copy while being processed
		if byMemory := int(int64(c.FrameMemoryMB) * 1024 * 1024 / (2 * frameBytes)); byMemory < size {
			size = byMemory
		}
	}
	if size < 1 {
		size = 1
	}
	return size
}

// Applies the operator to all frames of a Y4M stream, and writes the results to another
// Y4M stream in the original order. The operator is checked against the stream format once
// before any frame is read. Frames are processed concurrently in memory-bounded batches.
// Returns the number of frames written.
func ApplyToY4M(op Operator, r io.Reader, w io.Writer, c *Context) (frames int, err error) {
	in, err := frame.NewY4MReader(r)
	if err != nil {
		return 0, err
	}
	format := in.Format()
	if fc, ok := op.(FormatChecker); ok {
		if err := fc.CheckFormat(format, in.Header.Width, in.Header.Height); err != nil {
			return 0, err
		}
	}
	out, err := frame.NewY4MWriter(w, in.Header, format)
	if err != nil {
		return 0, err
	}
	if err := out.WriteHeader(); err != nil {
		return 0, err
	}

	frameBytes := format.FrameBytes(in.Header.Width, in.Header.Height)
	batchSize := BatchSize(c, frameBytes)
	fmt.Fprintf(c.Log, "Processing %dx%d %s stream in batches of %d frames using %d threads\n",
		in.Header.Width, in.Header.Height, format, batchSize, c.MaxThreads)

	for done := false; !done; {
		promises := make([]Promise, 0, batchSize)
		for len(promises) < batchSize {
			f, err := in.ReadFrame()
			if errors.Is(err, io.EOF) {
				done = true
				break
			}
			if err != nil {
				return frames, err
			}
			promises = append(promises, PromiseOf(f))
		}
		if len(promises) == 0 {
			break
		}

		outs, err := op.MakePromises(promises, c)
		if err != nil {
			return frames, err
		}
		results, err := MaterializeAll(outs, c.MaxThreads, false)
		if err != nil {
			return frames, err
		}
		for _, f := range results {
			if err := out.WriteFrame(f); err != nil {
				return frames, err
			}
			frames++
		}
	}
	if err := out.Flush(); err != nil {
		return frames, err
	}
	fmt.Fprintf(c.Log, "Wrote %d frames.\n", frames)
	return frames, nil
}
