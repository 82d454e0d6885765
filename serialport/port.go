package serialport

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

var (
	ErrPortClosed = errors.New("serialport: port closed")
	ErrNoPorts    = errors.New("serialport: no serial ports found")
)

// Port is a non-blocking duplex byte stream.
//
// Read must not block waiting for data: when no bytes are available it
// returns 0, nil.
type Port interface {
	io.ReadWriteCloser
	// Drain waits until all bytes written so far have been transmitted.
	Drain() error
}

// Open opens the serial device name with the given options.
//
// The read timeout is applied to the port so that Read only returns the bytes
// already received by the driver.
func Open(name string, opts ...Option) (Port, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	p, err := serial.Open(name, cfg.mode())
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", name, err)
	}

	if err := p.SetReadTimeout(cfg.readTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serialport: set read timeout on %s: %w", name, err)
	}

	return p, nil
}
