package capture

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLines = []string{
	MarkerConfigStart,
	"gestures:wave,tap",
	"",
	"0;0.01;-0.02;9.81;wave",
	"1;0.03;-0.04;9.79;wave",
	MarkerDataEnd,
	CountMarker(2),
}

func joinLines(lines []string, eol string) []byte {
	var out []byte
	for _, l := range lines {
		out = append(out, l...)
		out = append(out, eol...)
	}

	return out
}

func readLines(t *testing.T, r *LineReader, n int) []string {
	t.Helper()

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, ok, err := r.ReadLine(context.Background(), time.Second)
		require.NoError(t, err)
		require.True(t, ok, "line %d did not arrive", len(lines))
		lines = append(lines, line)
	}

	return lines
}

func TestReadLine_ChunkingIndependent(t *testing.T) {
	stream := joinLines(testLines, "\r\n")

	byteAtATime := make([][]byte, len(stream))
	for i := range stream {
		byteAtATime[i] = stream[i : i+1]
	}

	rnd := rand.New(rand.NewSource(42))
	var randomSplits [][]byte
	for rest := stream; len(rest) > 0; {
		n := 1 + rnd.Intn(min(len(rest), 17))
		randomSplits = append(randomSplits, rest[:n])
		rest = rest[n:]
	}

	tests := []struct {
		name   string
		chunks [][]byte
	}{
		{"All at once", [][]byte{stream}},
		{"Byte at a time", byteAtATime},
		{"Random splits", randomSplits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewLineReader(&chunkReader{chunks: tt.chunks}, time.Millisecond)
			assert.Equal(t, testLines, readLines(t, r, len(testLines)))
			assert.Zero(t, r.Buffered())
		})
	}
}

func TestReadLine_DrainsBufferBeforeReading(t *testing.T) {
	src := &chunkReader{chunks: [][]byte{[]byte("a\nb\nc\n")}}
	r := NewLineReader(src, time.Millisecond)

	assert.Equal(t, []string{"a", "b", "c"}, readLines(t, r, 3))
	assert.Equal(t, 1, src.reads)
}

func TestReadLine_StripsOnlyTrailingCR(t *testing.T) {
	src := &chunkReader{chunks: [][]byte{[]byte("a\rb\r\n\r\n")}}
	r := NewLineReader(src, time.Millisecond)

	assert.Equal(t, []string{"a\rb", ""}, readLines(t, r, 2))
}

func TestReadLine_StripsRepeatedTrailingCR(t *testing.T) {
	src := &chunkReader{chunks: [][]byte{[]byte("x\r\r\na\rb\r\r\r\n" + MarkerDataEnd + "\r\r\n")}}
	r := NewLineReader(src, time.Millisecond)

	assert.Equal(t, []string{"x", "a\rb", MarkerDataEnd}, readLines(t, r, 3))
}

func TestReadLine_ReplacesInvalidUTF8(t *testing.T) {
	src := &chunkReader{chunks: [][]byte{{'o', 'k', 0xff, 0xfe, '\n'}}}
	r := NewLineReader(src, time.Millisecond)

	assert.Equal(t, []string{"ok\uFFFD"}, readLines(t, r, 1))
}

func TestReadLine_Timeout(t *testing.T) {
	src := &chunkReader{chunks: [][]byte{[]byte("partial")}}
	r := NewLineReader(src, time.Millisecond)

	start := time.Now()
	line, ok, err := r.ReadLine(context.Background(), 50*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, line)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)

	// The partial line stays buffered and completes on a later read.
	assert.Equal(t, len("partial"), r.Buffered())
	src.chunks = [][]byte{[]byte(" line\n")}
	assert.Equal(t, []string{"partial line"}, readLines(t, r, 1))
}

func TestReadLine_ContextCancelled(t *testing.T) {
	r := NewLineReader(&chunkReader{}, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok, err := r.ReadLine(ctx, 0)
	assert.False(t, ok)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReadLine_StreamError(t *testing.T) {
	streamErr := errors.New("device unplugged")
	r := NewLineReader(&chunkReader{err: streamErr}, time.Millisecond)

	_, ok, err := r.ReadLine(context.Background(), time.Second)
	assert.False(t, ok)
	require.ErrorIs(t, err, streamErr)
	assert.Contains(t, err.Error(), "capture: read stream")
}

func TestReadLine_CountsLines(t *testing.T) {
	s, _, _ := newTestSession(t, "a\nb\n")

	readLines(t, s.reader, 2)
	assert.Equal(t, uint64(2), s.Metrics().LineRecvCount.Load())
}
