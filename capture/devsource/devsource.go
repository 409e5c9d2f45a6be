/*
 * rttape - concrete device sources for the tape capture pipeline.
 *
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

// Package devsource implements capture.Source over real byte sources: a
// regular file, standard input, and (on Linux) a character-special tape
// device.
package devsource

import (
	"errors"
	"io"
	"os"

	"github.com/acms/rttape/capture"
)

// FileSource reads from a regular, seekable file. It never produces
// OutcomeTapeMark: end of file is always OutcomeEndOfInput.
type FileSource struct {
	f *os.File
}

// OpenFile opens path for reading and wraps it in a FileSource.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{f: f}, nil
}

func (s *FileSource) ReadBlock(buf []byte) capture.ReadResult {
	n, err := s.f.Read(buf)
	switch {
	case err == nil:
		return capture.ReadResult{Outcome: capture.OutcomeData, N: n}
	case errors.Is(err, io.EOF):
		return capture.ReadResult{Outcome: capture.OutcomeEndOfInput, N: n}
	default:
		return capture.ReadResult{
			Outcome: capture.OutcomeHardError,
			N:       n,
			Err:     &capture.DeviceError{Kind: capture.ErrorKindIO, Cause: err},
		}
	}
}

func (s *FileSource) Close() error {
	return s.f.Close()
}

// StdinSource reads from standard input. Like FileSource it never produces
// a tape mark, and unlike FileSource it cannot be reopened once exhausted
// (a pipeline that needs to read a second logical file from stdin has to
// treat OutcomeEndOfInput as final).
type StdinSource struct {
	r io.Reader
}

// NewStdinSource wraps os.Stdin (or, in tests, any io.Reader standing in
// for it).
func NewStdinSource(r io.Reader) *StdinSource {
	return &StdinSource{r: r}
}

func (s *StdinSource) ReadBlock(buf []byte) capture.ReadResult {
	n, err := s.r.Read(buf)
	switch {
	case err == nil:
		return capture.ReadResult{Outcome: capture.OutcomeData, N: n}
	case errors.Is(err, io.EOF):
		return capture.ReadResult{Outcome: capture.OutcomeEndOfInput, N: n}
	default:
		return capture.ReadResult{
			Outcome: capture.OutcomeHardError,
			N:       n,
			Err:     &capture.DeviceError{Kind: capture.ErrorKindIO, Cause: err},
		}
	}
}

func (s *StdinSource) Close() error {
	return nil
}
