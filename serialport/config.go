package serialport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Default line settings of the capture firmware.
const (
	DefaultBaudRate    = 115200
	DefaultDataBits    = 8
	DefaultReadTimeout = time.Duration(0) // non-blocking
)

// Parity mode.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits is the number of stop bits.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// Config holds the line settings used by Open.
type Config struct {
	baudRate    int
	dataBits    int
	parity      Parity
	stopBits    StopBits
	readTimeout time.Duration
}

// NewConfig creates a Config with 115200 8N1 non-blocking defaults.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		baudRate:    DefaultBaudRate,
		dataBits:    DefaultDataBits,
		parity:      NoParity,
		stopBits:    OneStopBit,
		readTimeout: DefaultReadTimeout,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// BaudRate returns the configured baud rate.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// DataBits returns the configured data bits.
func (cfg *Config) DataBits() int { return cfg.dataBits }

// Parity returns the configured parity mode.
func (cfg *Config) Parity() Parity { return cfg.parity }

// StopBits returns the configured stop bits.
func (cfg *Config) StopBits() StopBits { return cfg.stopBits }

// ReadTimeout returns the per-Read timeout applied to the device.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

func (cfg *Config) mode() *serial.Mode {
	m := &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: cfg.dataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	switch cfg.parity {
	case OddParity:
		m.Parity = serial.OddParity
	case EvenParity:
		m.Parity = serial.EvenParity
	}

	if cfg.stopBits == TwoStopBits {
		m.StopBits = serial.TwoStopBits
	}

	return m
}

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithBaudRate sets the baud rate.
func WithBaudRate(rate int) Option {
	return optFunc(func(cfg *Config) error {
		if rate <= 0 {
			return fmt.Errorf("serialport: baud rate %d must be positive", rate)
		}
		cfg.baudRate = rate

		return nil
	})
}

// WithDataBits sets the number of data bits, 5 to 8.
func WithDataBits(bits int) Option {
	return optFunc(func(cfg *Config) error {
		if bits < 5 || bits > 8 {
			return fmt.Errorf("serialport: data bits %d out of range [5, 8]", bits)
		}
		cfg.dataBits = bits

		return nil
	})
}

// WithParity sets the parity mode.
func WithParity(p Parity) Option {
	return optFunc(func(cfg *Config) error {
		if p < NoParity || p > EvenParity {
			return fmt.Errorf("serialport: unknown parity %d", p)
		}
		cfg.parity = p

		return nil
	})
}

// WithStopBits sets the number of stop bits.
func WithStopBits(s StopBits) Option {
	return optFunc(func(cfg *Config) error {
		if s != OneStopBit && s != TwoStopBits {
			return fmt.Errorf("serialport: unknown stop bits %d", s)
		}
		cfg.stopBits = s

		return nil
	})
}

// WithReadTimeout sets how long a single Read may wait for bytes.
// Zero keeps reads non-blocking.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 {
			return fmt.Errorf("serialport: read timeout %v must not be negative", d)
		}
		cfg.readTimeout = d

		return nil
	})
}
