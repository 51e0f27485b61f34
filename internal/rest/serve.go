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

package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/edgefix/internal/ops"
	"github.com/mlnoga/edgefix/internal/ops/fix"
	"github.com/mlnoga/edgefix/web"
)

// Serves the REST API on the given address, e.g. ":8080". Blocks until the server fails.
func Serve(addr string) error {
	return NewRouter().Run(addr)
}

// Returns the router with all API routes
func NewRouter() *gin.Engine {
	r := gin.Default()
	r.GET("/", getIndex)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/fix", postFix)
			v1.POST("/seams", postSeams)
			v1.POST("/run", postRun)
		}
	}
	return r
}

func getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// Serializes writes from concurrent operators to the response
type lockedWriter struct {
	mu sync.Mutex
	w  gin.ResponseWriter
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err := l.w.Write(p)
	l.w.Flush()
	return n, err
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Loads all files matching the patterns relative to the working directory, applies op
// to each and streams the log as plain text
func runOnFiles(c *gin.Context, args interface{}, filePatterns []string, op ops.Operator) {
	c.Header("Content-Type", "text/plain")
	c.Status(http.StatusOK)
	logWriter := &lockedWriter{w: c.Writer}

	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	ctx := ops.NewContext(logWriter)
	ctx.RestrictPaths = true
	seq := ops.NewOpSequence(ops.NewOpLoadMany(filePatterns), op)
	promises, err := seq.MakePromises(nil, ctx)
	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		return
	}
	if _, err := ops.MaterializeAll(promises, ctx.MaxThreads, true); err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		return
	}
	fmt.Fprintf(logWriter, "Done.\n")
}

type postFixArgs struct {
	FilePatterns []string          `json:"filePatterns"`
	Continuity   *fix.OpContinuity `json:"continuity"`
	Save         *ops.OpSave       `json:"save"`
}

func postFix(c *gin.Context) {
	var args postFixArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Continuity == nil {
		args.Continuity = fix.NewOpContinuityDefault()
	}
	if args.Save == nil || args.Save.FilePattern == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing save.filePattern"})
		return
	}
	runOnFiles(c, args, args.FilePatterns, ops.NewOpSequence(args.Continuity, args.Save))
}

type postSeamsArgs struct {
	FilePatterns []string     `json:"filePatterns"`
	Seams        *fix.OpSeams `json:"seams"`
}

func postSeams(c *gin.Context) {
	var args postSeamsArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Seams == nil {
		args.Seams = fix.NewOpSeamsDefault()
	}
	runOnFiles(c, args, args.FilePatterns, args.Seams)
}

type postRunArgs struct {
	FilePatterns []string        `json:"filePatterns"`
	Pipeline     json.RawMessage `json:"pipeline"`
}

// Runs an arbitrary operator pipeline given as JSON
func postRun(c *gin.Context) {
	var args postRunArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := ops.UnmarshalOperator(args.Pipeline)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	runOnFiles(c, args, args.FilePatterns, op)
}
