/*
 * rttape - rtimage, capture a SIMH Extended tape image from a device.
 *
 * Copyright 2024, Richard Cornwell
 * Copyright 2026, ACMS (Australia Computer Museum Society)
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// rtimage captures a raw tape device, or a regular file standing in for
// one, into a SIMH Extended ".tap" image.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/acms/rttape/capture"
	"github.com/acms/rttape/capture/devsource"
	"github.com/acms/rttape/internal/logging"
	"github.com/acms/rttape/tapeio"
)

const (
	exitSuccess      = 0
	exitUsageError   = 1
	exitIOError      = 2
	exitInternalFail = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	optMaxReattempts := getopt.IntLong("max-reattempts", 0, capture.DefaultMaxReattempts, "Retry budget for hard device errors")
	optBufferSize := getopt.IntLong("buffer-size", 0, capture.DefaultBufferSize, "Device read block size, in bytes")
	optQueueDepth := getopt.IntLong("queue-depth", 0, capture.DefaultQueueDepth, "Bounded reader/writer queue depth")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optVerbose := getopt.BoolLong("verbose", 'v', "Mirror every log record to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("<input> <output>")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		return exitSuccess
	}

	args := getopt.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "rtimage: usage: rtimage [options] <input> <output>")
		return exitUsageError
	}
	inputArg, outputPath := args[0], args[1]

	var logWriter io.Writer
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rtimage: opening log file: %v\n", err)
			return exitUsageError
		}
		logWriter = f
		defer f.Close()
	}
	level := slog.LevelInfo
	if *optVerbose {
		level = slog.LevelDebug
	}
	handler := logging.NewHandler(logWriter, level, *optVerbose)
	logger := slog.New(handler)

	if *optMaxReattempts <= 0 || *optBufferSize <= 0 || *optQueueDepth <= 0 {
		fmt.Fprintln(os.Stderr, "rtimage: max-reattempts, buffer-size and queue-depth must be positive")
		return exitUsageError
	}

	source, err := openSource(inputArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtimage: opening input %q: %v\n", inputArg, err)
		return exitIOError
	}
	defer source.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtimage: creating output %q: %v\n", outputPath, err)
		return exitIOError
	}
	defer out.Close()

	pipeline := &capture.Pipeline{
		Source:        source,
		Dest:          tapeio.NewWriter(out),
		MaxReattempts: *optMaxReattempts,
		BufferSize:    *optBufferSize,
		QueueDepth:    *optQueueDepth,
		Logger:        logger,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("capture started", slog.String("input", inputArg), slog.String("output", outputPath))
	if err := pipeline.Run(ctx); err != nil {
		if err == capture.ErrCancelled {
			fmt.Fprintln(os.Stderr, "rtimage: cancelled")
			return exitIOError
		}
		fmt.Fprintf(os.Stderr, "rtimage: %v\n", err)
		return exitInternalFail
	}
	logger.Info("capture finished")
	return exitSuccess
}

// openSource resolves the input argument and opens the right kind of
// capture.Source for it: standard input for "-", otherwise a device path
// (with shorthand resolution) or regular file.
func openSource(inputArg string) (capture.Source, error) {
	if inputArg == "-" {
		return devsource.NewStdinSource(os.Stdin), nil
	}
	return openInput(resolveDevicePath(inputArg))
}
