package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/arloliu/go-gesture/capture"
	"github.com/arloliu/go-gesture/emulator"
	"github.com/arloliu/go-gesture/logger"
	"github.com/arloliu/go-gesture/serialport"
)

// captureSettings are the capture flags merged over the config file.
type captureSettings struct {
	port    string
	auto    bool
	baud    int
	output  string
	debug   bool
	yes     bool
	emulate bool
	level   string
	file    *fileConfig
}

func captureCommand() *cli.Command {
	flags := []cli.Flag{
		PortFlag,
		&cli.BoolFlag{
			Name:    "auto",
			Aliases: []string{"a"},
			Usage:   "Auto-detect the device port",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output CSV file",
			Value:   defaultOutput,
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Trace every line received from the device",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file (default: ./" + defaultConfigFile + " if present)",
		},
		BaudFlag,
		LogLevelFlag,
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Start every gesture without waiting for ENTER",
		},
		&cli.BoolFlag{
			Name:  "emulate",
			Usage: "Capture from an in-process emulated device instead of a serial port",
		},
	}

	return &cli.Command{
		Name:   "capture",
		Usage:  "Run a capture session and save the samples as CSV",
		Flags:  append(flags, emulatorFlags()...),
		Action: captureAction,
	}
}

// resolveCaptureSettings merges flags over the config file; flags win when set.
func resolveCaptureSettings(c *cli.Context) (*captureSettings, error) {
	fc, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}

	s := &captureSettings{
		port:    fc.Port,
		auto:    fc.Auto,
		baud:    fc.Baud,
		output:  fc.Output,
		debug:   fc.Debug,
		level:   fc.LogLevel,
		yes:     c.Bool("yes"),
		emulate: c.Bool("emulate"),
		file:    fc,
	}
	if c.IsSet("port") || s.port == "" {
		s.port = c.String("port")
	}
	if c.IsSet("auto") {
		s.auto = c.Bool("auto")
		// --auto replaces a configured port unless --port is also given.
		if s.auto && !c.IsSet("port") {
			s.port = ""
		}
	}
	if c.IsSet("baud") || s.baud == 0 {
		s.baud = c.Int("baud")
	}
	if c.IsSet("output") || s.output == "" {
		s.output = c.String("output")
	}
	if c.IsSet("debug") {
		s.debug = c.Bool("debug")
	}
	if c.IsSet("log-level") || s.level == "" {
		s.level = c.String("log-level")
	}

	if !s.emulate && s.port == "" && !s.auto {
		return nil, cli.Exit("one of --port, --auto or --emulate is required", 1)
	}

	return s, nil
}

func captureAction(c *cli.Context) error {
	s, err := resolveCaptureSettings(c)
	if err != nil {
		return err
	}

	log, err := newLogger(c, s.level, s.debug)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := c.App.Writer
	reporter := newConsoleReporter(out)

	opts := []capture.CaptureOption{
		capture.WithLogger(log),
		capture.WithReporter(reporter),
		capture.WithPrompter(newEnterPrompter(out, s.yes || s.emulate)),
	}
	if s.debug {
		opts = append(opts, capture.WithLineTracer(reporter.traceLine))
	}
	cfg, err := capture.NewCaptureConfig(append(opts, s.file.captureOptions()...)...)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var (
		open      capture.Opener
		deviceErr <-chan error
	)
	if s.emulate {
		open, deviceErr, err = startEmulator(ctx, c, log)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	} else {
		open = serialOpener(out, s)
	}

	sink := capture.NewFileSink(s.output)
	fmt.Fprintf(out, "Saving samples to %s\n", sink.Path())
	_, err = capture.Capture(ctx, open, sink, cfg)

	if deviceErr != nil {
		if devErr := <-deviceErr; devErr != nil && err == nil {
			log.Warn("gesturecap: emulated device failed", "error", devErr)
		}
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return cli.Exit("capture interrupted", 1)
		}
		reporter.Failed(err)

		return cli.Exit("", 1)
	}

	return nil
}

// serialOpener opens the configured or auto-detected serial port.
func serialOpener(out io.Writer, s *captureSettings) capture.Opener {
	return func() (serialport.Port, error) {
		name := s.port
		if s.auto && name == "" {
			detected, err := serialport.Detect()
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(out, "Auto-detected port %s\n", detected)
			name = detected
		}

		return serialport.Open(name, serialport.WithBaudRate(s.baud))
	}
}

// startEmulator runs an emulated device on one end of a loopback pair and
// returns an opener for the other end.
func startEmulator(ctx context.Context, c *cli.Context, log logger.Logger) (capture.Opener, <-chan error, error) {
	devCfg, err := emulatorConfig(c, log.With("component", "emulator"))
	if err != nil {
		return nil, nil, err
	}

	host, dev := serialport.NewLoopback()
	device, err := emulator.NewDevice(dev, devCfg)
	if err != nil {
		return nil, nil, err
	}

	done := make(chan error, 1)
	go func() { done <- device.Run(ctx) }()

	return func() (serialport.Port, error) { return host, nil }, done, nil
}
