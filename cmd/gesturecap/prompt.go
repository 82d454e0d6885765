package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/arloliu/go-gesture/capture"
)

// errStdinClosed indicates that the operator input ended before a go-ahead.
var errStdinClosed = errors.New("stdin closed while waiting for go-ahead")

// enterPrompter waits for the operator to press ENTER before each gesture.
// When the input is not interactive it announces the gesture and continues.
type enterPrompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

var _ capture.Prompter = (*enterPrompter)(nil)

// newEnterPrompter creates a prompter reading from stdin. skip forces the
// non-interactive behavior.
func newEnterPrompter(out io.Writer, skip bool) *enterPrompter {
	return &enterPrompter{
		in:          bufio.NewReader(os.Stdin),
		out:         out,
		interactive: !skip && term.IsTerminal(int(os.Stdin.Fd())),
	}
}

func (p *enterPrompter) Prompt(ctx context.Context, g capture.GestureInfo) error {
	fmt.Fprintf(p.out, "\nGesture %d/%d: %s (%d repetitions)\n", g.Index+1, g.Total, g.Name, g.Repetitions)
	if !p.interactive {
		return nil
	}
	fmt.Fprint(p.out, "Press ENTER when ready...")

	done := make(chan error, 1)
	go func() {
		_, err := p.in.ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = errStdinClosed
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
