package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-gesture/capture"
)

var testGesture = capture.GestureInfo{Name: "wave", Index: 1, Total: 3, Repetitions: 5, Samples: 100}

func TestEnterPrompter_NonInteractive(t *testing.T) {
	var out bytes.Buffer
	p := &enterPrompter{in: bufio.NewReader(strings.NewReader("")), out: &out}

	require.NoError(t, p.Prompt(context.Background(), testGesture))
	assert.Contains(t, out.String(), "Gesture 2/3: wave (5 repetitions)")
	assert.NotContains(t, out.String(), "Press ENTER")
}

func TestEnterPrompter_Interactive(t *testing.T) {
	var out bytes.Buffer
	p := &enterPrompter{in: bufio.NewReader(strings.NewReader("\n")), out: &out, interactive: true}

	require.NoError(t, p.Prompt(context.Background(), testGesture))
	assert.Contains(t, out.String(), "Press ENTER when ready...")

	// input exhausted
	require.ErrorIs(t, p.Prompt(context.Background(), testGesture), errStdinClosed)
}

func TestEnterPrompter_Cancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	p := &enterPrompter{in: bufio.NewReader(r), out: io.Discard, interactive: true}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, p.Prompt(ctx, testGesture), context.DeadlineExceeded)
}
