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

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/cpuid"

	nl "github.com/mlnoga/edgefix/internal"
	"github.com/mlnoga/edgefix/internal/continuity"
	"github.com/mlnoga/edgefix/internal/frame"
	"github.com/mlnoga/edgefix/internal/ops"
	"github.com/mlnoga/edgefix/internal/ops/fix"
	"github.com/mlnoga/edgefix/internal/rest"
)

const version = "0.1.0"

// A comma-separated list of integers, one per plane
type intList []int

func (l *intList) String() string {
	if l == nil {
		return ""
	}
	s := make([]string, len(*l))
	for i, v := range *l {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

func (l *intList) Set(value string) error {
	*l = nil
	for _, s := range strings.Split(value, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid list entry '%s': %w", s, err)
		}
		*l = append(*l, v)
	}
	return nil
}

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "", "save output to `file`. For still images, a pattern like `fixed%04d.png` expands the frame number. For y4m input, a .y4m file or - for stdout")
var diff = flag.String("diff", "", "save PNG maps of the changes per frame with given filename pattern, e.g. `diff%04d.png`")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")
var config = flag.String("config", "", "read operator pipeline from JSON `file` instead of the border flags")
var threads = flag.Int("threads", 0, "number of frames to process in parallel, 0=number of logical cores")

var left, top, right, bottom, radius intList

var precision = flag.String("precision", "double", "regression arithmetic, double or single (8-bit only, reproduces historical rounding)")

var addr = flag.String("addr", ":8080", "listen on given address for serve command")
var chroot = flag.String("chroot", "", "chroot to given directory before serving, requires root")
var setuid = flag.Int("setuid", -1, "switch to given user id before serving, -1=keep")

func init() {
	flag.Var(&left, "left", "number of columns to fix at the left edge, per plane, e.g. `4,2,2`")
	flag.Var(&top, "top", "number of rows to fix at the top edge, per plane")
	flag.Var(&right, "right", "number of columns to fix at the right edge, per plane")
	flag.Var(&bottom, "bottom", "number of rows to fix at the bottom edge, per plane")
	flag.Var(&radius, "radius", "regression radius per plane, 0=one fit per line, default=smaller plane dimension")
}

func main() {
	logWriter := nl.LogWriter()
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Edgefix Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (fix|seams|serve|legal|version) (in.y4m | img0.fits ... imgn.png)

Commands:
  fix     Repair the border lines of a y4m stream or of still images
  seams   Show seam statistics along the borders of the inputs
  serve   Serve the REST API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	// Keep stdout free for stream output
	if *out == "-" {
		nl.SetLogConsole(os.Stderr)
	}

	// Initialize logging to file in addition to the console, if selected
	if *log == "%auto" {
		if *out != "" && *out != "-" && !strings.Contains(*out, "%") && args[0] == "fix" {
			*log = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	c := ops.NewContext(logWriter)
	if *threads > 0 {
		c.MaxThreads = *threads
	}

	var err error
	switch args[0] {
	case "fix":
		err = cmdFix(args[1:], c)
	case "seams":
		err = cmdSeams(args[1:], c)
	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			fmt.Fprintf(logWriter, "Serving on %s\n", *addr)
			err = rest.Serve(*addr)
		}
	case "legal":
		fmt.Fprint(logWriter, legal)
	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)
		fmt.Fprintf(logWriter, "Running on %s with %d logical cores, AVX2 %v, %d MiB memory\n",
			cpuid.CPU.BrandName, cpuid.CPU.LogicalCores, cpuid.CPU.AVX2(), c.MemoryMB)
	case "help", "?":
		flag.Usage()
	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		nl.LogSync()
		os.Exit(-1)
	}

	elapsed := time.Since(start)
	if args[0] == "fix" || args[0] == "seams" {
		fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)
	}
	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatal("Could not write allocation profile: ", err)
		}
	}
	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		pprof.StopCPUProfile()
		nl.LogSync()
		os.Exit(-1)
	}
	nl.LogSync()
}

// Builds the border settings from the command line flags
func flagConfig() (continuity.Config, error) {
	p, err := continuity.ParsePrecision(*precision)
	if err != nil {
		return continuity.Config{}, err
	}
	return continuity.Config{Left: left, Top: top, Right: right, Bottom: bottom, Radius: radius, Precision: p}, nil
}

// Reads an operator pipeline from a JSON file
func loadPipeline(fileName string) (ops.Operator, error) {
	raw, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return ops.UnmarshalOperator(raw)
}

func isY4MFile(fileName string) bool {
	ext, gzipped := frame.Extension(fileName)
	return !gzipped && frame.IsY4M(ext)
}

// True if the inputs form a single y4m stream, from a file or from stdin
func isStream(args []string) bool {
	return len(args) == 1 && (args[0] == "-" || isY4MFile(args[0]))
}

// Repair border lines with settings from flags or a JSON pipeline
func cmdFix(args []string, c *ops.Context) error {
	if len(args) == 0 {
		return errors.New("no inputs given")
	}
	var op ops.Operator
	if *config != "" {
		var err error
		if op, err = loadPipeline(*config); err != nil {
			return fmt.Errorf("reading pipeline %s: %w", *config, err)
		}
	} else {
		cfg, err := flagConfig()
		if err != nil {
			return err
		}
		opFix := fix.NewOpContinuity(cfg)
		opFix.DiffPattern = *diff
		op = opFix
	}
	m, err := json.MarshalIndent(op, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "Fixing with these settings:\n%s\n", string(m))

	if isStream(args) {
		if *out == "" {
			return errors.New("y4m input needs an -out file, or - for stdout")
		}
		return fixStream(args[0], *out, op, c)
	}
	if *out == "" && *config == "" {
		return errors.New("no -out pattern given")
	}
	seq := ops.NewOpSequence(ops.NewOpLoadMany(args), op)
	if *out != "" {
		seq.Append(ops.NewOpSave(*out))
	}
	return runFiles(seq, c)
}

// Applies the operator to a y4m stream from a file or stdin, writing to a .y4m file or stdout
func fixStream(inName, outName string, op ops.Operator, c *ops.Context) (err error) {
	if outName == "-" {
		return applyStream(inName, os.Stdout, op, c)
	}
	if !isY4MFile(outName) {
		return fmt.Errorf("output %s for a y4m stream must be a .y4m file", outName)
	}
	f, err := os.Create(outName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return applyStream(inName, f, op, c)
}

func applyStream(inName string, w io.Writer, op ops.Operator, c *ops.Context) error {
	var in io.Reader = os.Stdin
	if inName != "-" {
		f, err := os.Open(inName)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	_, err := ops.ApplyToY4M(op, in, w, c)
	return err
}

// Materializes all frames of a file based pipeline, without keeping them in memory
func runFiles(op ops.Operator, c *ops.Context) error {
	promises, err := op.MakePromises(nil, c)
	if err != nil {
		return err
	}
	_, err = ops.MaterializeAll(promises, c.MaxThreads, true)
	return err
}

// Log seam statistics of the inputs
func cmdSeams(args []string, c *ops.Context) error {
	if len(args) == 0 {
		return errors.New("no inputs given")
	}
	cfg, err := flagConfig()
	if err != nil {
		return err
	}
	op := fix.NewOpSeams(cfg, "")
	if isStream(args) {
		return applyStream(args[0], io.Discard, op, c)
	}
	return runFiles(ops.NewOpSequence(ops.NewOpLoadMany(args), op), c)
}
