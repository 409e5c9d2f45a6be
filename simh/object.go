/*
 * rttape - SIMH Extended tape format object model.
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

// Package simh implements the SIMH Extended tape-image object model and
// framing codec: the on-disk representation of magnetic tape contents as
// length-prefixed data records and marker words. The codec does not
// interpret record payloads and performs no I/O beyond what it is handed.
package simh

import "fmt"

// Kind discriminates the closed set of SIMH Extended objects. Classes 9-D
// and F outside the defined ranges decode to ReservedDataRecord and
// ReservedMarker respectively rather than failing; adding a true new class
// requires extending both the encoder and decoder tables.
type Kind uint8

const (
	KindDataRecord Kind = iota
	KindTapeMark
	KindEraseGap
	KindEndOfMedium
	KindPrivateMarker
	KindReservedMarker
	KindReservedDataRecord
)

func (k Kind) String() string {
	switch k {
	case KindDataRecord:
		return "DataRecord"
	case KindTapeMark:
		return "TapeMark"
	case KindEraseGap:
		return "EraseGap"
	case KindEndOfMedium:
		return "EndOfMedium"
	case KindPrivateMarker:
		return "PrivateMarker"
	case KindReservedMarker:
		return "ReservedMarker"
	case KindReservedDataRecord:
		return "ReservedDataRecord"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Class values. Good (0) and bad (8) records are the two classes a writer
// normally emits; 1-6 are private data classes, 9-D reserved data classes,
// E is tape description, F is the marker class.
const (
	ClassGood            byte = 0x0
	ClassPrivateDataFirst byte = 0x1
	ClassPrivateDataLast  byte = 0x6
	ClassPrivateMarker    byte = 0x7
	ClassBad              byte = 0x8
	ClassReservedFirst    byte = 0x9
	ClassReservedLast     byte = 0xD
	ClassTapeDescription  byte = 0xE
	ClassMarker           byte = 0xF
)

// ValueMask isolates the 28-bit value field of a header word; ClassShift
// positions the 4-bit class discriminator in the high nibble.
const (
	ClassShift = 28
	ValueMask  = 0x0FFFFFFF
)

// MaxPayloadLen is the largest payload length the 28-bit value field can
// express: 2^28 - 1 bytes.
const MaxPayloadLen = ValueMask

// Object is a value-type representation of one SIMH Extended stream
// element. Fields not meaningful for a given Kind are zero. Objects never
// alias the backing storage they were decoded from; Payload is always a
// copy.
type Object struct {
	Kind    Kind
	Class   byte   // DataRecord, ReservedDataRecord: record class (0-6, 8-E).
	Payload []byte // DataRecord, ReservedDataRecord: record bytes.
	Count   uint32 // EraseGap: number of coalesced four-byte gap markers.
	Value   uint32 // PrivateMarker, ReservedMarker: 28-bit marker value.
}

// DataRecord constructs a good or private data record. Use BadRecord
// for class-8 records, which may carry a nil payload.
//
// A zero-length class-good record (DataRecord(ClassGood, nil)) encodes to
// eight zero bytes, which decode as two TapeMarkObject()s; no shipped Source ever
// reads a zero-length OutcomeData, so the ambiguity doesn't arise with the
// sources this module ships, but a caller constructing records directly
// should not rely on a zero-length good record round-tripping as itself.
func DataRecord(class byte, payload []byte) Object {
	return Object{Kind: KindDataRecord, Class: class, Payload: payload}
}

// BadRecord constructs a class-8 "bad, no data recovered" record when
// payload is empty, or a class-8 record with whatever bytes were salvaged.
func BadRecord(payload []byte) Object {
	return Object{Kind: KindDataRecord, Class: ClassBad, Payload: payload}
}

// TapeMarkObject constructs the TapeMark sentinel object.
func TapeMarkObject() Object {
	return Object{Kind: KindTapeMark}
}

// EraseGapObject constructs an erase gap representing count coalesced
// four-byte FFFFFFFE markers.
func EraseGapObject(count uint32) Object {
	return Object{Kind: KindEraseGap, Count: count}
}

// EndOfMediumObject constructs the EndOfMedium sentinel object.
func EndOfMediumObject() Object {
	return Object{Kind: KindEndOfMedium}
}

// PrivateMarkerObject constructs a class-7 marker carrying a 28-bit value.
func PrivateMarkerObject(value uint32) Object {
	return Object{Kind: KindPrivateMarker, Value: value & ValueMask}
}

// ReservedMarkerObject constructs a class-F marker outside the defined
// erase-gap, half-gap, and end-of-medium ranges.
func ReservedMarkerObject(value uint32) Object {
	return Object{Kind: KindReservedMarker, Value: value & ValueMask}
}

// ReservedDataRecordObject constructs a data record in the reserved class
// range 9-D. Decoders emit this instead of failing on an unrecognized
// defined-but-unused class.
func ReservedDataRecordObject(class byte, payload []byte) Object {
	return Object{Kind: KindReservedDataRecord, Class: class, Payload: payload}
}
