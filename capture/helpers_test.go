package capture

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-gesture/logger"
	"github.com/arloliu/go-gesture/serialport"
	"github.com/stretchr/testify/require"
)

// newTestConfig creates a CaptureConfig with short timeouts suitable for tests.
func newTestConfig(t *testing.T, opts ...CaptureOption) *CaptureConfig {
	t.Helper()

	defaults := []CaptureOption{
		WithConfigTimeout(time.Second),
		WithMarkerTimeout(500 * time.Millisecond),
		WithConfigLineTimeout(MinTimeout),
		WithDataLineTimeout(200 * time.Millisecond),
		WithCountTimeout(200 * time.Millisecond),
		WithLogger(logger.NewSlogWithWriter(io.Discard, logger.DebugLevel, false)),
	}

	cfg, err := NewCaptureConfig(append(defaults, opts...)...)
	require.NoError(t, err)

	return cfg
}

// recordingPort wraps a port and records every token the host writes, so
// writes can be inspected after the port has been closed.
type recordingPort struct {
	serialport.Port

	mu     sync.Mutex
	writes []string
	closed bool
}

func (p *recordingPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.writes = append(p.writes, string(b))
	p.mu.Unlock()

	return p.Port.Write(b)
}

func (p *recordingPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	return p.Port.Close()
}

func (p *recordingPort) Writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.writes...)
}

func (p *recordingPort) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closed
}

// newScriptedPort returns a host port whose peer has already sent transcript.
func newScriptedPort(t *testing.T, transcript string) *recordingPort {
	t.Helper()

	host, device := serialport.NewLoopback()
	t.Cleanup(func() { _ = device.Close() })

	_, err := device.Write([]byte(transcript))
	require.NoError(t, err)

	return &recordingPort{Port: host}
}

// memSink is an in-memory Sink.
type memSink struct {
	header  string
	rows    []string
	appends int
	closed  bool
}

func (s *memSink) WriteHeader(header string) error {
	s.header = header
	return nil
}

func (s *memSink) AppendRows(rows []string) error {
	s.rows = append(s.rows, rows...)
	s.appends++

	return nil
}

func (s *memSink) Close() error {
	s.closed = true
	return nil
}

// newTestSession creates a session over a scripted port and an in-memory sink.
func newTestSession(t *testing.T, transcript string, opts ...CaptureOption) (*Session, *recordingPort, *memSink) {
	t.Helper()

	port := newScriptedPort(t, transcript)
	sink := &memSink{}

	s, err := NewSession(port, sink, newTestConfig(t, opts...))
	require.NoError(t, err)

	return s, port, sink
}

// sampleRows returns n raw sample lines labelled label.
func sampleRows(label string, n int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf("%d;0.%02d;-0.%02d;9.81;%s", i, i, i, label)
	}

	return rows
}

// dataBlock renders one transmission of a repetition.
func dataBlock(rows []string, countLine string) string {
	var b strings.Builder
	b.WriteString(MarkerDataStart + "\n")
	for _, row := range rows {
		b.WriteString(row + "\n")
	}
	b.WriteString(MarkerDataEnd + "\n")
	b.WriteString(countLine + "\n")

	return b.String()
}

// configBlock renders a handshake with the given key:value lines.
func configBlock(pairs ...string) string {
	return MarkerConfigStart + "\n" + strings.Join(pairs, "\n") + "\n" + MarkerConfigEnd + "\n"
}

// sessionTranscript renders a complete error-free session.
func sessionTranscript(gestures []string, reps, samples int) string {
	var b strings.Builder
	b.WriteString("boot v1.2\n")
	b.WriteString(configBlock(
		"gestures:"+strings.Join(gestures, ","),
		fmt.Sprintf("repetitions:%d", reps),
		fmt.Sprintf("samples:%d", samples),
		"header:seq;X-acc;Y-acc;Z-acc;label",
	))

	for _, g := range gestures {
		b.WriteString(MarkerReady + "\n")
		for rep := 1; rep <= reps; rep++ {
			b.WriteString(RepMarker(rep) + "\n")
			b.WriteString(dataBlock(sampleRows(g, samples), CountMarker(samples)))
		}
		b.WriteString(MarkerGestureDone + "\n")
	}
	b.WriteString(MarkerSessionDone + "\n")

	return b.String()
}

// chunkReader yields the given chunks one per Read call and then reports no
// data, like a non-blocking port with nothing pending.
type chunkReader struct {
	chunks [][]byte
	reads  int
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	r.reads++
	if len(r.chunks) == 0 {
		return 0, r.err
	}

	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}

	return n, nil
}

// noiseReader emits an endless stream of complete non-marker lines.
type noiseReader struct{}

func (noiseReader) Read(p []byte) (int, error) {
	return copy(p, "0;0;0;0;noise\n"), nil
}
