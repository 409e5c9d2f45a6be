//go:build linux

package devsource

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/acms/rttape/capture"
)

// CharDeviceSource reads from a character-special tape device (e.g.
// /dev/nst0). A zero-length read is the POSIX tape-mark convention; read
// errors are classified by errno, in the style of golang.org/x/sys/unix
// ioctl/errno handling used elsewhere in this ecosystem for low-level
// device control.
type CharDeviceSource struct {
	f *os.File
}

// OpenCharDevice opens the character-special device at path for reading.
func OpenCharDevice(path string) (*CharDeviceSource, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return &CharDeviceSource{f: f}, nil
}

func (s *CharDeviceSource) ReadBlock(buf []byte) capture.ReadResult {
	n, err := s.f.Read(buf)
	// os.File reports a zero-length read(2) as io.EOF.
	if n == 0 && errors.Is(err, io.EOF) {
		return capture.ReadResult{Outcome: capture.OutcomeTapeMark}
	}
	if err == nil {
		if n == 0 {
			return capture.ReadResult{Outcome: capture.OutcomeTapeMark}
		}
		return capture.ReadResult{Outcome: capture.OutcomeData, N: n}
	}

	if errors.Is(err, os.ErrClosed) {
		return capture.ReadResult{
			Outcome: capture.OutcomeHardError,
			N:       n,
			Err:     &capture.DeviceError{Kind: capture.ErrorKindIO, Cause: err},
		}
	}

	return capture.ReadResult{
		Outcome: capture.OutcomeHardError,
		N:       n,
		Err:     &capture.DeviceError{Kind: classifyErrno(err), Cause: err},
	}
}

func (s *CharDeviceSource) Close() error {
	return s.f.Close()
}

// classifyErrno maps the errno underlying a failed read(2) on a tape
// character device to a capture.ErrorKind, so the pipeline's retry policy
// and logging don't have to parse error strings.
func classifyErrno(err error) capture.ErrorKind {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return capture.ErrorKindUnknown
	}
	switch errno {
	case unix.EIO:
		return capture.ErrorKindIO
	case unix.ENOSPC, unix.ENOMEDIUM, unix.ENXIO:
		return capture.ErrorKindMedium
	case unix.ETIMEDOUT:
		return capture.ErrorKindTimeout
	default:
		return capture.ErrorKindUnknown
	}
}
