package simh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header word constants, little-endian 32-bit values. Byte order note: the
// forward half-gap word is pinned to the on-disk byte sequence FF FF FE FF
// (see design notes); as a little-endian uint32 that sequence decodes to
// 0xFFFEFFFF, which is the constant used throughout this file.
const (
	wordTapeMark      uint32 = 0x00000000
	wordEraseGap      uint32 = 0xFFFFFFFE
	wordEndOfMedium   uint32 = 0xFFFFFFFF
	wordHalfGapFwd    uint32 = 0xFFFEFFFF
	illegalRangeLo    uint32 = 0xFFFE0000
	illegalRangeHi    uint32 = 0xFFFEFFFE
	reverseHalfGapLo  uint32 = 0xFFFF0000
	reverseHalfGapHi  uint32 = 0xFFFFFFFD
)

func isDataClass(class byte) bool {
	return class != ClassPrivateMarker && class != ClassMarker
}

func isReservedDataClass(class byte) bool {
	return class >= ClassReservedFirst && class <= ClassReservedLast
}

func encodeHeader(class byte, value uint32) (uint32, error) {
	if value > ValueMask {
		return 0, fmt.Errorf("%w: value 0x%X", ErrLengthOutOfRange, value)
	}
	word := uint32(class)<<ClassShift | value
	if word >= illegalRangeLo && word <= illegalRangeHi {
		return 0, fmt.Errorf("%w: 0x%08X", ErrIllegalMarkerValue, word)
	}
	return word, nil
}

// Encode produces the canonical on-disk byte sequence for obj. It performs
// no I/O; callers write the result wherever they like.
func Encode(obj Object) ([]byte, error) {
	switch obj.Kind {
	case KindDataRecord, KindReservedDataRecord:
		return encodeRecord(obj.Class, obj.Payload)

	case KindTapeMark:
		return le32(wordTapeMark), nil

	case KindEraseGap:
		buf := make([]byte, 0, 4*obj.Count)
		for i := uint32(0); i < obj.Count; i++ {
			buf = append(buf, le32(wordEraseGap)...)
		}
		return buf, nil

	case KindEndOfMedium:
		return le32(wordEndOfMedium), nil

	case KindPrivateMarker:
		word, err := encodeHeader(ClassPrivateMarker, obj.Value)
		if err != nil {
			return nil, err
		}
		return le32(word), nil

	case KindReservedMarker:
		word, err := encodeHeader(ClassMarker, obj.Value)
		if err != nil {
			return nil, err
		}
		return le32(word), nil

	default:
		return nil, fmt.Errorf("simh: encode: unknown object kind %v", obj.Kind)
	}
}

func encodeRecord(class byte, payload []byte) ([]byte, error) {
	if !isDataClass(class) {
		return nil, fmt.Errorf("simh: class 0x%X is not a data-record class", class)
	}
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrLengthOutOfRange, len(payload))
	}
	word, err := encodeHeader(class, uint32(len(payload)))
	if err != nil {
		return nil, err
	}
	header := le32(word)

	out := make([]byte, 0, len(header)*2+len(payload)+1)
	out = append(out, header...)
	out = append(out, payload...)
	if len(payload)%2 != 0 {
		out = append(out, 0x00)
	}
	out = append(out, header...)
	return out, nil
}

func le32(word uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, word)
	return buf
}

// readWord reads one little-endian 32-bit word from r. It reports
// ErrEndOfBacking if zero bytes could be read (a clean object boundary) and
// ErrTruncatedRecord if between 1 and 3 bytes were available.
func readWord(r io.Reader) (uint32, error) {
	var buf [4]byte
	n, err := io.ReadFull(r, buf[:])
	switch {
	case n == 0 && errors.Is(err, io.EOF):
		return 0, ErrEndOfBacking
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrTruncatedRecord, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// seeker is the minimal random-access surface the codec needs to implement
// half-gap resynchronization. io.ReadSeeker satisfies it.
type seeker interface {
	io.Reader
	io.Seeker
}

// DecodeForward reads one Object starting at r's current position,
// applying forward half-gap resynchronization transparently. On success r
// is positioned per the stream-reader contract: after the trailing header
// for a data record, after the marker word otherwise. ErrEndOfBacking is
// returned (position unchanged) when r is exactly at end-of-backing; an
// EndOfMedium object is returned, not an error, when the word FFFFFFFF is
// read (and the position is left before it, i.e. unchanged).
func DecodeForward(r seeker) (Object, error) {
	for {
		word, err := readWord(r)
		if err != nil {
			return Object{}, err
		}

		if word == wordTapeMark {
			return TapeMarkObject(), nil
		}

		if word == wordEndOfMedium {
			if _, serr := r.Seek(-4, io.SeekCurrent); serr != nil {
				return Object{}, serr
			}
			return EndOfMediumObject(), nil
		}

		if word == wordEraseGap {
			return EraseGapObject(1), nil
		}

		if word == wordHalfGapFwd {
			if _, serr := r.Seek(-2, io.SeekCurrent); serr != nil {
				return Object{}, serr
			}
			continue
		}

		if word >= illegalRangeLo && word <= illegalRangeHi {
			return Object{}, fmt.Errorf("%w: 0x%08X", ErrMalformedMarker, word)
		}

		class, value := decodeHeader(word)

		if class == ClassPrivateMarker {
			return PrivateMarkerObject(value), nil
		}

		if class == ClassMarker {
			// Reverse-half-gap range and any other class-F value not
			// already handled above are reserved markers when read going
			// forward: the reverse-only half-gap pattern only means
			// something when scanning backward.
			return ReservedMarkerObject(value), nil
		}

		return decodeRecord(r, class, value)
	}
}

func decodeHeader(word uint32) (class byte, value uint32) {
	return byte(word >> ClassShift), word & ValueMask
}

func decodeRecord(r seeker, class byte, length uint32) (Object, error) {
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Object{}, fmt.Errorf("%w: %v", ErrTruncatedRecord, err)
		}
	}
	if length%2 != 0 {
		var pad [1]byte
		if _, err := io.ReadFull(r, pad[:]); err != nil {
			return Object{}, fmt.Errorf("%w: missing pad byte: %v", ErrTruncatedRecord, err)
		}
	}

	trailing, err := readWord(r)
	if err != nil {
		if errors.Is(err, ErrEndOfBacking) {
			return Object{}, ErrTruncatedRecord
		}
		return Object{}, err
	}

	leading := uint32(class)<<ClassShift | length
	if trailing != leading {
		return Object{}, fmt.Errorf("%w: leading 0x%08X trailing 0x%08X", ErrCorruptRecord, leading, trailing)
	}

	if isReservedDataClass(class) {
		return ReservedDataRecordObject(class, payload), nil
	}
	return DataRecord(class, payload), nil
}

// DecodeReverse reads the Object immediately preceding r's current
// position, applying reverse half-gap resynchronization. On success r is
// positioned at the start of the decoded object. ErrEndOfBacking is
// returned if the position is already 0 (beginning of tape).
func DecodeReverse(r seeker) (Object, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return Object{}, err
	}
	if pos == 0 {
		return Object{}, ErrEndOfBacking
	}

	for {
		word, start, err := readWordBefore(r)
		if err != nil {
			return Object{}, err
		}

		if word == wordTapeMark {
			if _, serr := r.Seek(start, io.SeekStart); serr != nil {
				return Object{}, serr
			}
			return TapeMarkObject(), nil
		}

		if word == wordEndOfMedium {
			if _, serr := r.Seek(start, io.SeekStart); serr != nil {
				return Object{}, serr
			}
			return EndOfMediumObject(), nil
		}

		if word == wordEraseGap {
			if _, serr := r.Seek(start, io.SeekStart); serr != nil {
				return Object{}, serr
			}
			return EraseGapObject(1), nil
		}

		if word >= reverseHalfGapLo && word <= reverseHalfGapHi {
			// Reverse half-gap: rewind the reverse cursor by two more
			// bytes and retry; the next word read is the trailing header
			// of the record that overwrote the gap.
			if _, serr := r.Seek(start+2, io.SeekStart); serr != nil {
				return Object{}, serr
			}
			continue
		}

		if word >= illegalRangeLo && word <= illegalRangeHi {
			return Object{}, fmt.Errorf("%w: 0x%08X", ErrMalformedMarker, word)
		}

		class, value := decodeHeader(word)

		if class == ClassPrivateMarker {
			if _, serr := r.Seek(start, io.SeekStart); serr != nil {
				return Object{}, serr
			}
			return PrivateMarkerObject(value), nil
		}

		if class == ClassMarker {
			if _, serr := r.Seek(start, io.SeekStart); serr != nil {
				return Object{}, serr
			}
			return ReservedMarkerObject(value), nil
		}

		return decodeRecordReverse(r, start, class, value)
	}
}

// readWordBefore reads the 4-byte word immediately before r's current
// position without permanently moving past it: on return r is positioned
// at the start of the word just read (start == that position).
func readWordBefore(r seeker) (word uint32, start int64, err error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, err
	}
	if pos < 4 {
		return 0, 0, fmt.Errorf("%w: reverse read before beginning of tape", ErrTruncatedRecord)
	}
	start = pos - 4
	if _, err = r.Seek(start, io.SeekStart); err != nil {
		return 0, 0, err
	}
	word, err = readWord(r)
	if err != nil {
		return 0, 0, err
	}
	if _, err = r.Seek(start, io.SeekStart); err != nil {
		return 0, 0, err
	}
	return word, start, nil
}

func decodeRecordReverse(r seeker, trailerStart int64, class byte, length uint32) (Object, error) {
	padded := length
	if padded%2 != 0 {
		padded++
	}
	recordStart := trailerStart - 4 - int64(padded)
	if recordStart < 0 {
		return Object{}, fmt.Errorf("%w: record extends before beginning of tape", ErrTruncatedRecord)
	}

	if _, err := r.Seek(recordStart, io.SeekStart); err != nil {
		return Object{}, err
	}
	leadWord, err := readWord(r)
	if err != nil {
		return Object{}, err
	}
	leadClass, leadLength := decodeHeader(leadWord)
	if leadClass != class || leadLength != length {
		return Object{}, fmt.Errorf("%w: leading 0x%08X trailing class 0x%X len %d", ErrCorruptRecord, leadWord, class, length)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Object{}, fmt.Errorf("%w: %v", ErrTruncatedRecord, err)
		}
	}

	if _, err := r.Seek(recordStart, io.SeekStart); err != nil {
		return Object{}, err
	}

	if isReservedDataClass(class) {
		return ReservedDataRecordObject(class, payload), nil
	}
	return DataRecord(class, payload), nil
}
