package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arloliu/go-gesture/internal/pool"
)

const readChunkSize = 4096

// LineReader reassembles newline-terminated text lines from a non-blocking
// byte stream.
//
// It is the sole consumer of the stream's inbound bytes. Bytes that do not yet
// form a complete line stay in an internal buffer owned by the reader; partial
// lines are never returned.
//
// This type is NOT goroutine-safe. A session owns exactly one LineReader.
type LineReader struct {
	src          io.Reader
	buf          []byte
	chunk        []byte
	pollInterval time.Duration

	// tracer is called for each line consumed by WaitForMarker.
	tracer LineTracer
	// onLine is called for each line returned by ReadLine. Used for metrics.
	onLine func()
}

// NewLineReader creates a LineReader polling src every pollInterval while no
// bytes are available.
//
// src must not block in Read when no bytes are available; see serialport.Port.
func NewLineReader(src io.Reader, pollInterval time.Duration) *LineReader {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	return &LineReader{
		src:          src,
		chunk:        make([]byte, readChunkSize),
		pollInterval: pollInterval,
	}
}

// SetTracer sets the tracer notified of every line consumed by WaitForMarker.
func (r *LineReader) SetTracer(t LineTracer) {
	r.tracer = t
}

// Buffered returns the number of bytes received but not yet returned as a line.
func (r *LineReader) Buffered() int {
	return len(r.buf)
}

// ReadLine returns the next complete line without its terminating "\n" and
// any trailing "\r".
//
// ok is false when no complete line formed within timeout; this is not an
// error. A timeout <= 0 waits until a line arrives or ctx is done. err is
// non-nil only when ctx is done or the stream fails.
//
// Lines already buffered are returned before the stream is read again, so a
// chunk holding several lines is drained one line per call. Invalid UTF-8
// sequences are replaced with U+FFFD.
//
// The timeout is checked once per poll iteration and is not preemptive.
func (r *LineReader) ReadLine(ctx context.Context, timeout time.Duration) (string, bool, error) {
	start := time.Now()

	for {
		if line, ok := r.nextLine(); ok {
			if r.onLine != nil {
				r.onLine()
			}

			return line, true, nil
		}

		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		default:
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.buf = append(r.buf, r.chunk[:n]...)
		}
		if err != nil {
			return "", false, fmt.Errorf("capture: read stream: %w", err)
		}

		switch {
		case n > 0 && bytes.IndexByte(r.chunk[:n], '\n') >= 0:
			continue
		case n == 0:
			if err := pool.Sleep(ctx, r.pollInterval); err != nil {
				return "", false, err
			}
		}

		if timeout > 0 && time.Since(start) > timeout {
			return "", false, nil
		}
	}
}

// nextLine splits the first complete line off the buffer.
func (r *LineReader) nextLine() (string, bool) {
	idx := bytes.IndexByte(r.buf, '\n')
	if idx < 0 {
		return "", false
	}

	line := r.buf[:idx]
	line = bytes.TrimRight(line, "\r")
	s := strings.ToValidUTF8(string(line), "\uFFFD")

	r.buf = r.buf[idx+1:]
	if len(r.buf) == 0 {
		r.buf = r.buf[:0:0]
	}

	return s, true
}
