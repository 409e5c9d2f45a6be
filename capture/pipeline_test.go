package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acms/rttape/simh"
	"github.com/acms/rttape/tapeio"
)

var errSimulatedIO = errors.New("simulated device I/O error")

// scriptedSource replays a fixed sequence of ReadResults, one per
// ReadBlock call, copying Data payloads into the caller's buffer.
type scriptedSource struct {
	results []ReadResult
	payload [][]byte
	i       int
	closed  bool
}

func (s *scriptedSource) ReadBlock(buf []byte) ReadResult {
	if s.i >= len(s.results) {
		return ReadResult{Outcome: OutcomeEndOfInput}
	}
	r := s.results[s.i]
	if r.Outcome == OutcomeData && s.i < len(s.payload) {
		n := copy(buf, s.payload[s.i])
		r.N = n
	}
	s.i++
	return r
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

func noBackoff(attempt int) {}

func decodeAll(t *testing.T, data []byte) []simh.Object {
	t.Helper()
	r := tapeio.NewReader(bytes.NewReader(data))
	r.DisableGapCoalescing()
	var objs []simh.Object
	for {
		obj, err := r.ReadForward()
		if err != nil {
			if err == simh.ErrEndOfBacking {
				break
			}
			t.Fatalf("decode: %v", err)
		}
		objs = append(objs, obj)
		if obj.Kind == simh.KindEndOfMedium {
			break
		}
	}
	return objs
}

func TestPipelineEmptyInputYieldsEndOfMediumOnly(t *testing.T) {
	src := &scriptedSource{results: []ReadResult{
		{Outcome: OutcomeEndOfInput},
	}}
	var out bytes.Buffer
	p := &Pipeline{Source: src, Dest: tapeio.NewWriter(&out), BackoffFunc: noBackoff}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	objs := decodeAll(t, out.Bytes())
	if len(objs) != 1 || objs[0].Kind != simh.KindEndOfMedium {
		t.Fatalf("got %v, want [EndOfMedium]", objs)
	}
}

func TestPipelinePreservesOrdering(t *testing.T) {
	src := &scriptedSource{
		results: []ReadResult{
			{Outcome: OutcomeData},
			{Outcome: OutcomeData},
			{Outcome: OutcomeTapeMark},
			{Outcome: OutcomeData},
			{Outcome: OutcomeEndOfInput},
		},
		payload: [][]byte{
			[]byte("first record"),
			[]byte("second record"),
			nil,
			[]byte("third record"),
		},
	}
	var out bytes.Buffer
	p := &Pipeline{Source: src, Dest: tapeio.NewWriter(&out), BackoffFunc: noBackoff}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	objs := decodeAll(t, out.Bytes())
	wantKinds := []simh.Kind{
		simh.KindDataRecord,
		simh.KindDataRecord,
		simh.KindTapeMark,
		simh.KindDataRecord,
		simh.KindEndOfMedium,
	}
	if len(objs) != len(wantKinds) {
		t.Fatalf("got %d objects, want %d: %v", len(objs), len(wantKinds), objs)
	}
	for i, k := range wantKinds {
		if objs[i].Kind != k {
			t.Errorf("object %d: got %v, want %v", i, objs[i].Kind, k)
		}
	}
	if string(objs[0].Payload) != "first record" {
		t.Errorf("object 0 payload = %q", objs[0].Payload)
	}
	if string(objs[3].Payload) != "third record" {
		t.Errorf("object 3 payload = %q", objs[3].Payload)
	}
}

func TestPipelineDoubleTapeMarkTerminatesCapture(t *testing.T) {
	src := &scriptedSource{
		results: []ReadResult{
			{Outcome: OutcomeData},
			{Outcome: OutcomeTapeMark},
			{Outcome: OutcomeTapeMark},
			// A real device would stop being polled here; if it weren't,
			// these further reads would be wrongly included in the capture.
			{Outcome: OutcomeData},
		},
		payload: [][]byte{[]byte("payload")},
	}
	var out bytes.Buffer
	p := &Pipeline{Source: src, Dest: tapeio.NewWriter(&out), BackoffFunc: noBackoff}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	objs := decodeAll(t, out.Bytes())
	wantKinds := []simh.Kind{
		simh.KindDataRecord,
		simh.KindTapeMark,
		simh.KindTapeMark,
		simh.KindEndOfMedium,
	}
	if len(objs) != len(wantKinds) {
		t.Fatalf("got %d objects, want %d: %v", len(objs), len(wantKinds), objs)
	}
	for i, k := range wantKinds {
		if objs[i].Kind != k {
			t.Errorf("object %d: got %v, want %v", i, objs[i].Kind, k)
		}
	}
}

func TestPipelineExhaustedRetriesProduceBadRecord(t *testing.T) {
	hardErr := ReadResult{
		Outcome: OutcomeHardError,
		Err:     &DeviceError{Kind: ErrorKindIO, Cause: errSimulatedIO},
	}
	results := []ReadResult{}
	for i := 0; i < 3; i++ {
		results = append(results, hardErr)
	}
	results = append(results, ReadResult{Outcome: OutcomeEndOfInput})

	src := &scriptedSource{results: results}
	var out bytes.Buffer
	p := &Pipeline{
		Source:        src,
		Dest:          tapeio.NewWriter(&out),
		MaxReattempts: 2,
		BackoffFunc:   noBackoff,
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	objs := decodeAll(t, out.Bytes())
	if len(objs) != 2 {
		t.Fatalf("got %d objects, want 2: %v", len(objs), objs)
	}
	if objs[0].Kind != simh.KindDataRecord || objs[0].Class != simh.ClassBad {
		t.Errorf("object 0 = %v, want a class-8 bad record", objs[0])
	}
	if objs[1].Kind != simh.KindEndOfMedium {
		t.Errorf("object 1 = %v, want EndOfMedium", objs[1])
	}
}

func TestPipelineRetriesRecoverFromTransientError(t *testing.T) {
	hardErr := ReadResult{
		Outcome: OutcomeHardError,
		Err:     &DeviceError{Kind: ErrorKindIO, Cause: errSimulatedIO},
	}
	src := &scriptedSource{
		results: []ReadResult{
			hardErr,
			hardErr,
			{Outcome: OutcomeData},
			{Outcome: OutcomeEndOfInput},
		},
		payload: [][]byte{nil, nil, []byte("recovered")},
	}
	var out bytes.Buffer
	p := &Pipeline{
		Source:        src,
		Dest:          tapeio.NewWriter(&out),
		MaxReattempts: 5,
		BackoffFunc:   noBackoff,
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	objs := decodeAll(t, out.Bytes())
	if len(objs) != 2 {
		t.Fatalf("got %d objects, want 2: %v", len(objs), objs)
	}
	if objs[0].Kind != simh.KindDataRecord || objs[0].Class != simh.ClassGood {
		t.Errorf("object 0 = %v, want a good data record", objs[0])
	}
	if string(objs[0].Payload) != "recovered" {
		t.Errorf("object 0 payload = %q", objs[0].Payload)
	}
}

// endlessDriveSource models a real character-device tape drive that is
// left online past the end of the recorded data: once its scripted
// results run out it keeps reporting OutcomeTapeMark forever, the way
// chardevice_linux.go maps a zero-length read once the drive is sitting
// on a load point or at end of tape. It never reports OutcomeEndOfInput,
// so Run must rely on writeLoop's double-tape-mark termination alone.
type endlessDriveSource struct {
	results []ReadResult
	payload [][]byte
	i       int
}

func (s *endlessDriveSource) ReadBlock(buf []byte) ReadResult {
	if s.i >= len(s.results) {
		return ReadResult{Outcome: OutcomeTapeMark}
	}
	r := s.results[s.i]
	if r.Outcome == OutcomeData && s.i < len(s.payload) {
		n := copy(buf, s.payload[s.i])
		r.N = n
	}
	s.i++
	return r
}

func (s *endlessDriveSource) Close() error { return nil }

func TestPipelineDoubleTapeMarkTerminatesCaptureOnEndlessSource(t *testing.T) {
	src := &endlessDriveSource{
		results: []ReadResult{
			{Outcome: OutcomeData},
			{Outcome: OutcomeTapeMark},
			{Outcome: OutcomeTapeMark},
		},
		payload: [][]byte{[]byte("payload")},
	}
	var out bytes.Buffer
	p := &Pipeline{Source: src, Dest: tapeio.NewWriter(&out), BackoffFunc: noBackoff}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after double tape mark; readLoop was not signalled to stop")
	}

	objs := decodeAll(t, out.Bytes())
	wantKinds := []simh.Kind{
		simh.KindDataRecord,
		simh.KindTapeMark,
		simh.KindTapeMark,
		simh.KindEndOfMedium,
	}
	if len(objs) != len(wantKinds) {
		t.Fatalf("got %d objects, want %d: %v", len(objs), len(wantKinds), objs)
	}
	for i, k := range wantKinds {
		if objs[i].Kind != k {
			t.Errorf("object %d: got %v, want %v", i, objs[i].Kind, k)
		}
	}
}

// blockingSource blocks every read until unblock is closed, modeling a
// device that hangs; used to exercise cancellation without relying on the
// queue ever draining.
type blockingSource struct {
	unblock chan struct{}
}

func (s *blockingSource) ReadBlock(buf []byte) ReadResult {
	<-s.unblock
	return ReadResult{Outcome: OutcomeEndOfInput}
}

func (s *blockingSource) Close() error { return nil }

func TestPipelineCancellation(t *testing.T) {
	// The fake device itself reacts to cancellation by unblocking its
	// in-flight read, standing in for a real device whose read is
	// abandoned (closed, or returns an error) once the caller gives up.
	src := &blockingSource{unblock: make(chan struct{})}

	var out bytes.Buffer
	p := &Pipeline{Source: src, Dest: tapeio.NewWriter(&out), BackoffFunc: noBackoff}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	cancel()
	close(src.unblock)

	select {
	case err := <-done:
		if err != ErrCancelled && err != nil {
			t.Fatalf("Run: got %v, want ErrCancelled or nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
