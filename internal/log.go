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

package internal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Singleton log writer. Writes to the console, and optionally to a file.
// Does not add prefixes, or force newlines.

// The console output, stdout unless redirected with SetLogConsole
var logConsole io.Writer = os.Stdout

// The optional additional file to log into
var logFile *bufio.Writer
var logFileOS *os.File

// Serializes concurrent writes from operators running in parallel
var logMutex sync.Mutex

// Enables logging to file
func LogAlsoToFile(fileName string) (err error) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		if err = logFile.Flush(); err != nil {
			return err
		}
		if err = logFileOS.Close(); err != nil {
			return err
		}
		logFile, logFileOS = nil, nil
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	logFileOS, logFile = f, bufio.NewWriter(f)
	return nil
}

// Redirects console output, e.g. to stderr when stdout carries data
func SetLogConsole(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logConsole = w
}

type logTee struct{}

// Writes the given bytes to the console and the optional log file
func (logTee) Write(p []byte) (n int, err error) {
	logMutex.Lock()
	defer logMutex.Unlock()
	n, err = logConsole.Write(p)
	if err != nil || logFile == nil {
		return n, err
	}
	return logFile.Write(p)
}

// Returns a writer that logs to the console and the optional log file
func LogWriter() io.Writer { return logTee{} }

func LogPrint(args ...interface{}) (n int, err error) {
	return fmt.Fprint(logTee{}, args...)
}

func LogPrintln(args ...interface{}) (n int, err error) {
	return fmt.Fprintln(logTee{}, args...)
}

func LogPrintf(format string, args ...interface{}) (n int, err error) {
	return fmt.Fprintf(logTee{}, format, args...)
}

func LogFatal(args ...interface{}) {
	fmt.Fprintln(logTee{}, args...)
	LogSync()
	os.Exit(-1)
}

func LogFatalf(format string, args ...interface{}) {
	fmt.Fprintf(logTee{}, format, args...)
	LogSync()
	os.Exit(-1)
}

func LogSync() {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile == nil {
		return
	}
	logFile.Flush()
	logFileOS.Sync()
}
