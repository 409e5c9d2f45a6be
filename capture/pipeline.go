package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/acms/rttape/internal/hexdump"
	"github.com/acms/rttape/simh"
	"github.com/acms/rttape/tapeio"
)

// Defaults for the three pipeline knobs, matching the capture CLI contract.
const (
	DefaultMaxReattempts = 64
	DefaultBufferSize    = 64 * 1024
	DefaultQueueDepth    = 4
)

// ErrCancelled is returned by Run when the context was cancelled before
// the source reported end of input.
var ErrCancelled = errors.New("capture: cancelled")

// buffer is a reusable, fixed-capacity block. Ownership transfers across
// the queue channel and back to the free list; a buffer is never read or
// written by two goroutines at once.
type buffer struct {
	data    []byte
	n       int
	outcome Outcome
	err     *DeviceError
}

// Pipeline drains a Source into a tapeio.Writer with bounded memory,
// translating device outcomes into SIMH objects per the capture state
// machine: data becomes good records, retried-out hard errors become
// class-8 bad records, a tape mark becomes a TapeMark object, and two
// consecutive tape marks (or end of input) terminate the capture with an
// EndOfMedium marker.
type Pipeline struct {
	Source Source
	Dest   *tapeio.Writer

	MaxReattempts int
	BufferSize    int
	QueueDepth    int

	// BackoffFunc is called between retry attempts on a hard error; it
	// defaults to a capped exponential sleep. Tests override it to avoid
	// real delays.
	BackoffFunc func(attempt int)

	Logger *slog.Logger
}

func (p *Pipeline) defaults() {
	if p.MaxReattempts <= 0 {
		p.MaxReattempts = DefaultMaxReattempts
	}
	if p.BufferSize <= 0 {
		p.BufferSize = DefaultBufferSize
	}
	if p.QueueDepth <= 0 {
		p.QueueDepth = DefaultQueueDepth
	}
	if p.BackoffFunc == nil {
		p.BackoffFunc = defaultBackoff
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
}

func defaultBackoff(attempt int) {
	const cap = 2 * time.Second
	delay := cap
	if attempt >= 1 && attempt <= 6 {
		delay = 50 * time.Millisecond << (attempt - 1)
	}
	time.Sleep(delay)
}

// Run drives the capture to completion: it returns nil when the capture
// terminated cleanly (end of input, or a double tape mark), ErrCancelled
// if ctx was cancelled first, or the first fatal output-sink error
// encountered by the writer goroutine.
func (p *Pipeline) Run(ctx context.Context) error {
	p.defaults()

	// readCtx is cancelled both by the caller's ctx and by the writer
	// goroutine concluding the capture (double tape mark, end of input,
	// or a fatal write error), so readLoop is told to stop even when its
	// source — a real tape drive, per capture/devsource — never reports
	// OutcomeEndOfInput on its own.
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	queue := make(chan *buffer, p.QueueDepth)
	// free is sized one larger than queue: QueueDepth buffers can sit in
	// queue while one more is in flight, being filled by readLoop.
	free := make(chan *buffer, p.QueueDepth+1)
	for i := 0; i < p.QueueDepth+1; i++ {
		free <- &buffer{data: make([]byte, p.BufferSize)}
	}

	var wg sync.WaitGroup
	var writeErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		p.readLoop(readCtx, queue, free)
	}()
	go func() {
		defer wg.Done()
		defer stopReading()
		writeErr = p.writeLoop(ctx, queue, free)
	}()
	wg.Wait()

	if writeErr != nil {
		return writeErr
	}
	if ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

// readLoop acquires a free buffer, performs one device read (with retry on
// hard error), and hands the filled buffer to the writer via queue. It
// exits on cancellation or once the source reports end of input.
func (p *Pipeline) readLoop(ctx context.Context, queue chan<- *buffer, free <-chan *buffer) {
	defer close(queue)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var buf *buffer
		select {
		case buf = <-free:
		case <-ctx.Done():
			return
		}

		p.readWithRetry(buf)

		select {
		case queue <- buf:
		case <-ctx.Done():
			return
		}

		if buf.outcome == OutcomeEndOfInput {
			return
		}
	}
}

// readWithRetry performs one logical device read, reissuing on hard error
// up to MaxReattempts times. The final attempt's bytes are preserved
// regardless of outcome, matching the physical media faithfully.
func (p *Pipeline) readWithRetry(buf *buffer) {
	result := p.Source.ReadBlock(buf.data)
	attempt := 0
	for result.Outcome == OutcomeHardError && attempt < p.MaxReattempts {
		p.Logger.Warn("tape read error, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_reattempts", p.MaxReattempts),
			slog.Any("error", result.Err))
		p.BackoffFunc(attempt + 1)
		attempt++
		result = p.Source.ReadBlock(buf.data)
	}
	buf.n = result.N
	buf.outcome = result.Outcome
	buf.err = result.Err
}

// writeLoop drains the queue, translating each buffer into SIMH objects.
func (p *Pipeline) writeLoop(ctx context.Context, queue <-chan *buffer, free chan<- *buffer) error {
	lastWasTapeMark := false

	for buf := range queue {
		switch buf.outcome {
		case OutcomeData:
			payload := buf.data[:buf.n]
			if err := p.Dest.WriteRecord(simh.ClassGood, payload); err != nil {
				return fmt.Errorf("capture: writing data record: %w", err)
			}
			p.traceRecord("data record captured", simh.ClassGood, payload)
			lastWasTapeMark = false

		case OutcomeTapeMark:
			if err := p.Dest.WriteTapeMark(); err != nil {
				return fmt.Errorf("capture: writing tape mark: %w", err)
			}
			if lastWasTapeMark {
				return p.finish(ctx)
			}
			lastWasTapeMark = true

		case OutcomeHardError:
			payload := buf.data[:buf.n]
			p.Logger.Error("tape read failed after retries, emitting bad record",
				slog.Int("bytes_recovered", buf.n),
				slog.Any("error", buf.err))
			if err := p.Dest.WriteBadRecord(payload); err != nil {
				return fmt.Errorf("capture: writing bad record: %w", err)
			}
			p.traceRecord("bad record captured", simh.ClassBad, payload)
			lastWasTapeMark = false

		case OutcomeEndOfInput:
			select {
			case free <- buf:
			default:
			}
			return p.finish(ctx)
		}

		select {
		case free <- buf:
		default:
		}
	}

	return p.finish(ctx)
}

// hexPreviewMaxBytes bounds how much of a record's payload traceRecord
// renders as hex, so one long record doesn't blow out a log line.
const hexPreviewMaxBytes = 16

// traceRecord emits a Debug-level hex trace of a record just written:
// its header word and a short preview of its payload. It is a no-op
// unless the logger is enabled for Debug (the -verbose capture tracing
// the CLI turns on with -verbose).
func (p *Pipeline) traceRecord(msg string, class byte, payload []byte) {
	if !p.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	header := uint32(class)<<simh.ClassShift | uint32(len(payload))
	p.Logger.Debug(msg,
		slog.Int("bytes", len(payload)),
		slog.String("header", hexdump.Word(header)),
		slog.String("preview", hexdump.Preview(payload, hexPreviewMaxBytes)))
}

// finish writes EndOfMedium and flushes, regardless of why the loop ended.
func (p *Pipeline) finish(ctx context.Context) error {
	if err := p.Dest.WriteEndOfMedium(); err != nil {
		return fmt.Errorf("capture: writing end of medium: %w", err)
	}
	if err := p.Dest.Flush(); err != nil {
		return fmt.Errorf("capture: flushing output: %w", err)
	}
	return nil
}
