/*
 * rttape - slog handler for the capture CLI.
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

// Package logging provides the slog.Handler used by the capture CLI: a
// single-line, timestamped text format written to an optional log file,
// mirrored to stderr for warnings and above (or everything, in verbose
// mode).
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler writes one line per record to an optional file and, depending
// on level and verbosity, to stderr.
type Handler struct {
	out     io.Writer
	h       slog.Handler
	mu      *sync.Mutex
	verbose bool
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithAttrs(attrs), mu: h.mu, verbose: h.verbose}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithGroup(name), mu: h.mu, verbose: h.verbose}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	formattedTime := r.Time.Format("2006/01/02 15:04:05")
	strs := []string{formattedTime, r.Level.String() + ":", r.Message}

	if r.NumAttrs() != 0 {
		r.Attrs(func(a slog.Attr) bool {
			strs = append(strs, a.Key+"="+a.Value.String())
			return true
		})
	}
	line := []byte(strings.Join(strs, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(line)
	}
	if h.verbose || r.Level >= slog.LevelWarn {
		_, werr := os.Stderr.Write(line)
		if err == nil {
			err = werr
		}
	}
	return err
}

// SetVerbose toggles whether every record (not just warnings and above)
// is mirrored to stderr.
func (h *Handler) SetVerbose(verbose bool) {
	h.verbose = verbose
}

// NewHandler builds a Handler writing to logFile at the given minimum
// level. logFile may be nil to skip the file entirely, logging only to
// stderr (per verbose and level, as Handle describes).
func NewHandler(logFile io.Writer, level slog.Level, verbose bool) *Handler {
	inner := logFile
	if inner == nil {
		inner = io.Discard
	}
	return &Handler{
		out:     logFile,
		h:       slog.NewTextHandler(inner, &slog.HandlerOptions{Level: level}),
		mu:      &sync.Mutex{},
		verbose: verbose,
	}
}
