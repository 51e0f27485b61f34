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

	"github.com/mlnoga/edgefix/internal/continuity"
	"github.com/mlnoga/edgefix/internal/frame"
	"github.com/mlnoga/edgefix/internal/ops"
	"github.com/mlnoga/edgefix/internal/stats"
)

// Logs seam statistics for each edge of each plane, leaving the frame unchanged.
// The border settings only determine which lines serve as the interior baseline.
type OpSeams struct {
	ops.OpUnaryBase
	continuity.Config
	Label string `json:"label"` // prefix for the log lines, e.g. "before" or "after"
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpSeamsDefault() }) } // register the operator for JSON decoding

func NewOpSeamsDefault() *OpSeams { return NewOpSeams(continuity.Config{}, "") }

func NewOpSeams(config continuity.Config, label string) *OpSeams {
	op := &OpSeams{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "seams", Active: true}},
		Config:      config,
		Label:       label,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSeams) UnmarshalJSON(data []byte) error {
	type defaults OpSeams
	def := defaults(*NewOpSeamsDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpSeams(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpSeams) CheckFormat(format frame.Format, width, height int) error {
	if !op.Active {
		return nil
	}
	_, err := op.Config.Resolve(format, width, height)
	return err
}

func (op *OpSeams) Apply(f *frame.Frame, c *ops.Context) (result *frame.Frame, err error) {
	if !op.Active {
		return f, nil
	}
	borders, err := op.Config.Resolve(f.Format, f.Width, f.Height)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	prefix := ""
	if op.Label != "" {
		prefix = op.Label + " "
	}
	for _, s := range stats.FrameSeams(f, borders) {
		fmt.Fprintf(c.Log, "%d: %sseam %s\n", f.ID, prefix, s)
	}
	return f, nil
}
