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

package fix

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mlnoga/edgefix/internal/continuity"
	"github.com/mlnoga/edgefix/internal/frame"
	"github.com/mlnoga/edgefix/internal/ops"
)

// Repairs the border bands of each frame by regression against the adjacent interior line
type OpContinuity struct {
	ops.OpUnaryBase
	continuity.Config
	DiffPattern string `json:"diffPattern"` // if set, writes a PNG diff map per plane, %d expands to the frame ID
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpContinuityDefault() }) } // register the operator for JSON decoding

func NewOpContinuityDefault() *OpContinuity { return NewOpContinuity(continuity.Config{}) }

func NewOpContinuity(config continuity.Config) *OpContinuity {
	op := &OpContinuity{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "continuity", Active: true}},
		Config:      config,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpContinuity) UnmarshalJSON(data []byte) error {
	type defaults OpContinuity
	def := defaults(*NewOpContinuityDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpContinuity(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

// Rejects formats and frame sizes the settings cannot be applied to
func (op *OpContinuity) CheckFormat(format frame.Format, width, height int) error {
	if !op.Active {
		return nil
	}
	_, err := op.Config.Resolve(format, width, height)
	return err
}

func (op *OpContinuity) Apply(f *frame.Frame, c *ops.Context) (result *frame.Frame, err error) {
	if !op.Active {
		return f, nil
	}
	borders, err := op.Config.Resolve(f.Format, f.Width, f.Height)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	for i, b := range borders {
		if b.IsEmpty() {
			continue
		}
		fmt.Fprintf(c.Log, "%d: Plane %d fixing left %d top %d right %d bottom %d with radius %d\n",
			f.ID, i, b.Left, b.Top, b.Right, b.Bottom, b.Radius)
	}

	var before *frame.Frame
	if op.DiffPattern != "" {
		before = f.Clone()
	}
	if err := continuity.FixFrame(f, borders, op.Precision); err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}

	if before != nil {
		if err := op.writeDiffMaps(before, f, borders, c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Writes one diff map per repaired plane. Multi-plane frames get a plane suffix before the extension.
func (op *OpContinuity) writeDiffMaps(before, after *frame.Frame, borders []continuity.Border, c *ops.Context) error {
	base := ops.ExpandPattern(op.DiffPattern, after.ID)
	for i, b := range borders {
		if b.IsEmpty() {
			continue
		}
		fileName := base
		if len(borders) > 1 {
			ext := filepath.Ext(base)
			fileName = fmt.Sprintf("%s.p%d%s", base[:len(base)-len(ext)], i, ext)
		}
		if err := ops.CheckPath(fileName, c); err != nil {
			return fmt.Errorf("%d: %w", after.ID, err)
		}
		if err := frame.WriteDiffMapFile(fileName, before, after, i); err != nil {
			return fmt.Errorf("%d: Error writing diff map %s: %w", after.ID, fileName, err)
		}
		fmt.Fprintf(c.Log, "%d: Wrote plane %d diff map to %s\n", after.ID, i, fileName)
	}
	return nil
}
