// Package main provides the gesturecap CLI.
//
// Usage:
//
//	gesturecap <command> [options]
//
// Exit codes:
//   - 0: success
//   - 1: timeout, interrupt, port failure or invalid usage
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		// exitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:           "gesturecap",
		Usage:          "Capture labeled accelerometer gestures from a serial device",
		Version:        version,
		Writer:         stdout,
		ErrWriter:      stderr,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			captureCommand(),
			portsCommand(),
			emulateCommand(),
		},
	}
}

// exitErrHandler prints the error and exits, preserving exit codes from cli.Exit().
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(c.App.ErrWriter, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(c.App.ErrWriter, "Error: %v\n", err)
	os.Exit(1)
}
