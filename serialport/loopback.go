package serialport

import (
	"sync"
)

// pipe is one direction of a loopback pair.
type pipe struct {
	mu     sync.Mutex
	buf    []byte
	closed bool
}

func (p *pipe) read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buf) == 0 {
		if p.closed {
			return 0, ErrPortClosed
		}
		return 0, nil
	}

	n := copy(b, p.buf)
	p.buf = p.buf[n:]

	return n, nil
}

func (p *pipe) write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	p.buf = append(p.buf, b...)

	return len(b), nil
}

func (p *pipe) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
}

// LoopbackPort is one end of an in-memory port pair created by NewLoopback.
//
// Reads are non-blocking like a serial device opened with a zero read timeout.
// It is safe for one goroutine per end.
type LoopbackPort struct {
	in    *pipe
	out   *pipe
	state *pairState
}

// pairState is shared by both ends of a loopback pair.
type pairState struct {
	once   sync.Once
	closed chan struct{}
}

var _ Port = (*LoopbackPort)(nil)

// NewLoopback creates a connected pair of ports: bytes written to one end
// become readable on the other.
//
// Closing either end closes the pair, after which reads and writes on both
// ends fail with ErrPortClosed.
func NewLoopback() (*LoopbackPort, *LoopbackPort) {
	ab, ba := &pipe{}, &pipe{}
	state := &pairState{closed: make(chan struct{})}

	return &LoopbackPort{in: ba, out: ab, state: state},
		&LoopbackPort{in: ab, out: ba, state: state}
}

// Read implements io.Reader without blocking.
func (p *LoopbackPort) Read(b []byte) (int, error) {
	if p.isClosed() {
		return 0, ErrPortClosed
	}

	return p.in.read(b)
}

// Write implements io.Writer.
func (p *LoopbackPort) Write(b []byte) (int, error) {
	return p.out.write(b)
}

// Drain is a no-op for in-memory ports beyond reporting a closed pair.
func (p *LoopbackPort) Drain() error {
	if p.isClosed() {
		return ErrPortClosed
	}

	return nil
}

// Close closes both ends of the pair. It is idempotent.
func (p *LoopbackPort) Close() error {
	p.state.once.Do(func() {
		p.in.close()
		p.out.close()
		close(p.state.closed)
	})

	return nil
}

// Closed returns a channel closed once either end of the pair is closed.
func (p *LoopbackPort) Closed() <-chan struct{} {
	return p.state.closed
}

func (p *LoopbackPort) isClosed() bool {
	select {
	case <-p.state.closed:
		return true
	default:
		return false
	}
}
