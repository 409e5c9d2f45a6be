/*
 * rttape - device source abstraction for the tape capture pipeline.
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

// Package capture implements the producer/consumer tape-capture pipeline:
// a reader goroutine draining a block-oriented device source, a writer
// goroutine serializing outcomes through a tapeio.Writer, joined by a
// bounded queue of reusable buffers.
package capture

import "fmt"

// Outcome discriminates what a single device read produced. One device
// read yields exactly one Outcome.
type Outcome int

const (
	// OutcomeData indicates nbytes of real data were read.
	OutcomeData Outcome = iota
	// OutcomeTapeMark indicates a zero-length read, the POSIX tape-mark
	// convention on character-special tape devices.
	OutcomeTapeMark
	// OutcomeEndOfInput indicates the source is exhausted (EOF on a
	// regular file or stdin; never produced by a tape device mid-stream).
	OutcomeEndOfInput
	// OutcomeHardError indicates the device reported an error.
	OutcomeHardError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeData:
		return "Data"
	case OutcomeTapeMark:
		return "TapeMark"
	case OutcomeEndOfInput:
		return "EndOfInput"
	case OutcomeHardError:
		return "HardError"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ErrorKind classifies a HardError outcome so retry policy and logging can
// distinguish transient conditions from fatal ones without parsing error
// strings.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindIO
	ErrorKindMedium
	ErrorKindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindIO:
		return "IOError"
	case ErrorKindMedium:
		return "MediumError"
	case ErrorKindTimeout:
		return "Timeout"
	default:
		return "UnknownError"
	}
}

// DeviceError wraps a device-level failure with its classification and the
// underlying cause, so the pipeline can log and retry without losing
// context.
type DeviceError struct {
	Kind  ErrorKind
	Cause error
}

func (e *DeviceError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("capture: device error (%s)", e.Kind)
	}
	return fmt.Sprintf("capture: device error (%s): %v", e.Kind, e.Cause)
}

func (e *DeviceError) Unwrap() error {
	return e.Cause
}

// ReadResult is what a single Source.ReadBlock call reports.
type ReadResult struct {
	Outcome Outcome
	N       int // valid bytes placed in the caller's buffer (OutcomeData, and OutcomeHardError if partially recovered)
	Err     *DeviceError
}

// Source is a thin abstraction over a block-oriented byte source: a
// character-special tape device, a regular file, or standard input.
// ReadBlock performs exactly one underlying read and reports one Outcome;
// it must not loop internally to satisfy len(buf).
type Source interface {
	ReadBlock(buf []byte) ReadResult
	Close() error
}
