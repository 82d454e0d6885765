package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/arloliu/go-gesture/emulator"
	"github.com/arloliu/go-gesture/logger"
	"github.com/arloliu/go-gesture/serialport"
)

const defaultOutput = "data/TDATA_serial.csv"

var (
	// PortFlag names the serial device.
	PortFlag = &cli.StringFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "Serial port of the device (e.g. /dev/ttyACM0, COM3)",
	}

	// BaudFlag sets the serial baud rate.
	BaudFlag = &cli.IntFlag{
		Name:  "baud",
		Usage: "Serial baud rate",
		Value: serialport.DefaultBaudRate,
	}

	// LogLevelFlag sets the level of the structured log on stderr.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
		Value: "warn",
	}
)

// emulatorFlags configure an emulated device.
func emulatorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "gestures",
			Usage: "Gestures announced by the emulated device",
			Value: cli.NewStringSlice("wave", "tap"),
		},
		&cli.IntFlag{
			Name:  "repetitions",
			Usage: "Repetitions per gesture",
			Value: emulator.DefaultRepetitions,
		},
		&cli.IntFlag{
			Name:  "samples",
			Usage: "Samples per repetition",
			Value: emulator.DefaultSamples,
		},
		&cli.DurationFlag{
			Name:  "sample-interval",
			Usage: "Delay between emulated samples",
		},
		&cli.IntFlag{
			Name:  "drop-first",
			Usage: "Drop N samples from the first attempt of every repetition",
		},
		&cli.BoolFlag{
			Name:  "garble-first",
			Usage: "Garble the COUNT marker of the first attempt of every repetition",
		},
	}
}

// emulatorConfig builds the emulated device configuration from flags.
func emulatorConfig(c *cli.Context, log logger.Logger) (*emulator.Config, error) {
	opts := []emulator.Option{
		emulator.WithGestures(c.StringSlice("gestures")...),
		emulator.WithRepetitions(c.Int("repetitions")),
		emulator.WithSamples(c.Int("samples")),
		emulator.WithSampleInterval(c.Duration("sample-interval")),
		emulator.WithResponseTimeout(time.Hour),
		emulator.WithLogger(log),
	}
	if n := c.Int("drop-first"); n > 0 {
		opts = append(opts, emulator.WithFault(emulator.Fault{Kind: emulator.DropSamples, Attempts: 1, Drop: n}))
	}
	if c.Bool("garble-first") {
		opts = append(opts, emulator.WithFault(emulator.Fault{Kind: emulator.GarbleCount, Attempts: 1}))
	}

	return emulator.NewConfig(opts...)
}

// newLogger creates the stderr logger for a command.
func newLogger(c *cli.Context, name string, debug bool) (logger.Logger, error) {
	level, ok := logger.ParseLevel(name)
	if !ok {
		return nil, cli.Exit("invalid --log-level "+name, 1)
	}
	if debug {
		level = logger.DebugLevel
	}

	log := logger.NewSlogWithWriter(c.App.ErrWriter, level, false)
	logger.SetLogger(log)

	return log, nil
}
