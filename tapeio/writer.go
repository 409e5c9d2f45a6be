/*
 * rttape - buffered SIMH Extended stream writer.
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

// Package tapeio layers a buffered object-at-a-time writer and a seekable
// forward/reverse object reader over the simh framing codec.
package tapeio

import (
	"bufio"
	"io"

	"github.com/acms/rttape/simh"
)

// Writer is a single-threaded, buffered sink for SIMH Extended objects. It
// must not be shared across goroutines without external synchronization,
// per the core's concurrency model.
type Writer struct {
	w   *bufio.Writer
	pos uint64
}

// NewWriter wraps sink in a buffered Writer.
func NewWriter(sink io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(sink)}
}

// Position returns the number of bytes written so far.
func (w *Writer) Position() uint64 {
	return w.pos
}

// Flush pushes any buffered bytes to the underlying sink.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// writeObject encodes obj and writes it atomically: either every byte of
// the encoding reaches the sink, or (on an encode error) nothing does.
func (w *Writer) writeObject(obj simh.Object) error {
	buf, err := simh.Encode(obj)
	if err != nil {
		return err
	}
	n, err := w.w.Write(buf)
	w.pos += uint64(n)
	return err
}

// WriteObject writes obj in its canonical encoding.
func (w *Writer) WriteObject(obj simh.Object) error {
	return w.writeObject(obj)
}

// WriteRecord writes a good (or private-class, 1-6) data record.
func (w *Writer) WriteRecord(class byte, payload []byte) error {
	return w.writeObject(simh.DataRecord(class, payload))
}

// WriteBadRecord writes a class-8 record; payload may be empty to record
// "bad, no data recovered".
func (w *Writer) WriteBadRecord(payload []byte) error {
	return w.writeObject(simh.BadRecord(payload))
}

// WriteTapeMark writes a tape mark.
func (w *Writer) WriteTapeMark() error {
	return w.writeObject(simh.TapeMarkObject())
}

// WriteEraseGap writes count consecutive erase-gap markers.
func (w *Writer) WriteEraseGap(count uint32) error {
	return w.writeObject(simh.EraseGapObject(count))
}

// WriteEndOfMedium writes the end-of-medium sentinel.
func (w *Writer) WriteEndOfMedium() error {
	return w.writeObject(simh.EndOfMediumObject())
}

// WritePrivateMarker writes a class-7 marker.
func (w *Writer) WritePrivateMarker(value uint32) error {
	return w.writeObject(simh.PrivateMarkerObject(value))
}
