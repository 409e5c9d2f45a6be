//go:build linux

package devsource

import (
	"fmt"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/acms/rttape/capture"
)

func TestClassifyErrno(t *testing.T) {
	cases := []struct {
		err  error
		want capture.ErrorKind
	}{
		{unix.EIO, capture.ErrorKindIO},
		{unix.ENOSPC, capture.ErrorKindMedium},
		{unix.ENOMEDIUM, capture.ErrorKindMedium},
		{unix.ENXIO, capture.ErrorKindMedium},
		{unix.ETIMEDOUT, capture.ErrorKindTimeout},
		{unix.EACCES, capture.ErrorKindUnknown},
		{fmt.Errorf("wrapped: %w", unix.EIO), capture.ErrorKindIO},
	}
	for _, c := range cases {
		if got := classifyErrno(c.err); got != c.want {
			t.Errorf("classifyErrno(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestClassifyErrnoNonErrno(t *testing.T) {
	if got := classifyErrno(fmt.Errorf("not an errno")); got != capture.ErrorKindUnknown {
		t.Errorf("classifyErrno(non-errno) = %v, want Unknown", got)
	}
}
