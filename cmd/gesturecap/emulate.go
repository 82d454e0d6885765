package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/arloliu/go-gesture/emulator"
	"github.com/arloliu/go-gesture/serialport"
)

func emulateCommand() *cli.Command {
	port := *PortFlag
	port.Required = true

	return &cli.Command{
		Name:   "emulate",
		Usage:  "Play the capture device on a serial port, e.g. one end of a virtual null-modem pair",
		Flags:  append([]cli.Flag{&port, BaudFlag, LogLevelFlag}, emulatorFlags()...),
		Action: emulateAction,
	}
}

func emulateAction(c *cli.Context) error {
	log, err := newLogger(c, c.String("log-level"), false)
	if err != nil {
		return err
	}

	cfg, err := emulatorConfig(c, log)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	port, err := serialport.Open(c.String("port"), serialport.WithBaudRate(c.Int("baud")))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer port.Close()

	device, err := emulator.NewDevice(port, cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(c.App.Writer, "Emulating device on %s\n", c.String("port"))
	if err := device.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return cli.Exit("emulation interrupted", 1)
		}
		return cli.Exit(err.Error(), 1)
	}

	st := device.Stats()
	fmt.Fprintf(c.App.Writer, "Sent %d repetitions, %d samples, %d resends\n", st.Repetitions, st.Samples, st.NACKs)

	return nil
}
