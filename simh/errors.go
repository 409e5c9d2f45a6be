package simh

import "errors"

// Sentinel errors surfaced by the codec. The codec is pure: it never
// retries or recovers internally, it only reports.
var (
	// ErrLengthOutOfRange is returned by the encoder when a payload is too
	// long for the 28-bit length field (>= 2^28 bytes).
	ErrLengthOutOfRange = errors.New("simh: payload length exceeds 28-bit field")

	// ErrIllegalMarkerValue is returned by the encoder when asked to emit a
	// header whose value falls in the reserved forward-half-gap range
	// FFFE0000..=FFFEFFFE, which would be misread as a gap marker on a
	// reverse scan.
	ErrIllegalMarkerValue = errors.New("simh: marker value in illegal forward half-gap range")

	// ErrCorruptRecord is returned by the decoder when a data record's
	// leading and trailing header words differ.
	ErrCorruptRecord = errors.New("simh: leading and trailing header words differ")

	// ErrTruncatedRecord is returned by the decoder when the backing store
	// ends in the middle of a record (short payload or missing trailing
	// header).
	ErrTruncatedRecord = errors.New("simh: end of backing store mid-record")

	// ErrMalformedMarker is returned by the decoder when it reads a header
	// value in the illegal forward-half-gap range FFFE0000..=FFFEFFFE.
	ErrMalformedMarker = errors.New("simh: header value in illegal forward half-gap range")
)

// ErrEndOfBacking is the sentinel returned when the decoder hits
// end-of-backing at a clean object boundary. It is not a failure, and it
// is distinct from io.EOF (errors.Is(ErrEndOfBacking, io.EOF) is false).
var ErrEndOfBacking = errors.New("simh: end of backing store at object boundary")
