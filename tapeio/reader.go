package tapeio

import (
	"errors"
	"io"

	"github.com/acms/rttape/simh"
)

// ErrBeginningOfTape is returned by ReadReverse when the cursor is already
// at position 0.
var ErrBeginningOfTape = errors.New("tapeio: reverse read at position 0")

// seeker is the random-access surface Reader needs from its source.
type seeker interface {
	io.Reader
	io.Seeker
}

// Reader presents a seekable SIMH Extended byte stream as a sequence of
// objects, readable forward or backward from a single cursor. It is
// single-threaded; callers must not share a Reader across goroutines.
type Reader struct {
	r        seeker
	coalesce bool
}

// NewReader wraps source. Adjacent EraseGap{Count:1} reads are coalesced
// into a single EraseGap{Count:N} by default; call DisableGapCoalescing
// to see the raw per-marker count instead.
func NewReader(source seeker) *Reader {
	return &Reader{r: source, coalesce: true}
}

// DisableGapCoalescing turns off erase-gap coalescing on subsequent forward
// reads. Reverse reads never coalesce.
func (r *Reader) DisableGapCoalescing() {
	r.coalesce = false
}

// Position returns the current byte offset of the cursor.
func (r *Reader) Position() (uint64, error) {
	pos, err := r.r.Seek(0, io.SeekCurrent)
	return uint64(pos), err
}

// Seek moves the cursor to an absolute byte offset.
func (r *Reader) Seek(pos uint64) error {
	_, err := r.r.Seek(int64(pos), io.SeekStart)
	return err
}

// ReadForward decodes and returns the next object, advancing the cursor
// per the stream-reader position contract (§4.3): past a data record's
// trailing header, past a marker, but not past EndOfMedium. It returns
// simh.ErrEndOfBacking at a clean end of stream.
func (r *Reader) ReadForward() (simh.Object, error) {
	obj, err := simh.DecodeForward(r.r)
	if err != nil {
		return simh.Object{}, err
	}

	if r.coalesce && obj.Kind == simh.KindEraseGap {
		count := obj.Count
		for {
			pos, perr := r.r.Seek(0, io.SeekCurrent)
			if perr != nil {
				return simh.Object{}, perr
			}
			next, nerr := simh.DecodeForward(r.r)
			if nerr != nil || next.Kind != simh.KindEraseGap {
				if _, serr := r.r.Seek(pos, io.SeekStart); serr != nil {
					return simh.Object{}, serr
				}
				break
			}
			count += next.Count
		}
		obj.Count = count
	}

	return obj, nil
}

// ReadReverse decodes and returns the object immediately before the
// cursor, leaving the cursor at that object's start. It returns
// ErrBeginningOfTape at position 0, and leaves the cursor positioned
// before (not after) an EndOfMedium marker per the PU discipline.
func (r *Reader) ReadReverse() (simh.Object, error) {
	obj, err := simh.DecodeReverse(r.r)
	if err != nil {
		if errors.Is(err, simh.ErrEndOfBacking) {
			return simh.Object{}, ErrBeginningOfTape
		}
		return simh.Object{}, err
	}
	return obj, nil
}
