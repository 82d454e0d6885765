package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-gesture/logger"
	"github.com/arloliu/go-gesture/serialport"
)

// Sentinel errors for the capture protocol.
var (
	// ErrMarkerTimeout indicates that an awaited marker did not arrive within its budget.
	ErrMarkerTimeout = errors.New("capture: timeout waiting for marker")
	// ErrCountMismatch indicates that a repetition failed count verification.
	ErrCountMismatch = errors.New("capture: sample count mismatch")
	// ErrInvalidConfig indicates a handshake value that cannot be used.
	ErrInvalidConfig = errors.New("capture: invalid session config")
	// ErrPortOpen indicates that the transport could not be opened.
	ErrPortOpen = errors.New("capture: failed to open port")
	// ErrSessionNil indicates a session created without a port or sink.
	ErrSessionNil = errors.New("capture: session requires a port and a sink")
)

// GestureTotal is the number of rows persisted for one gesture of the session.
type GestureTotal struct {
	Name    string
	Samples int
}

// Summary describes a completed capture session.
type Summary struct {
	Config   *SessionConfig
	Gestures []GestureTotal
	// TotalSamples is the number of rows persisted, header excluded.
	TotalSamples int
	// Retries is the number of retransmission requests sent.
	Retries int
	// PartialAccepts is the number of repetitions accepted after exhausting all attempts.
	PartialAccepts int
	Duration       time.Duration
}

// Session runs one capture session over an open port.
//
// A Session is single-use and NOT goroutine-safe, except for Metrics which
// may be read concurrently.
type Session struct {
	cfg     *CaptureConfig
	port    serialport.Port
	reader  *LineReader
	sink    Sink
	logger  logger.Logger
	metrics *SessionMetrics

	config *SessionConfig
}

// NewSession creates a session reading from port and persisting rows to sink.
// A nil cfg uses the defaults of NewCaptureConfig.
func NewSession(port serialport.Port, sink Sink, cfg *CaptureConfig) (*Session, error) {
	if port == nil || sink == nil {
		return nil, ErrSessionNil
	}
	if cfg == nil {
		var err error
		if cfg, err = NewCaptureConfig(); err != nil {
			return nil, err
		}
	}

	s := &Session{
		cfg:     cfg,
		port:    port,
		reader:  NewLineReader(port, cfg.pollInterval),
		sink:    sink,
		logger:  cfg.logger,
		metrics: newSessionMetrics(),
	}

	s.reader.onLine = s.metrics.incLineRecvCount
	s.reader.SetTracer(s.traceLine)

	return s, nil
}

// Metrics returns the session metrics.
func (s *Session) Metrics() *SessionMetrics { return s.metrics }

// Config returns the device configuration, or nil before the handshake completed.
func (s *Session) Config() *SessionConfig { return s.config }

// Run performs the whole session: handshake, output header, every gesture in
// configured order, and the final <<<DONE>>> marker.
//
// Any marker timeout, stream or sink failure, prompt error or cancellation
// aborts the session. Rows of repetitions completed before the failure remain
// in the sink.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	s.logger.Info("capture: waiting for device")
	if err := s.reader.WaitForMarker(ctx, MarkerConfigStart, s.cfg.configTimeout); err != nil {
		return nil, err
	}

	config, err := ParseHandshake(ctx, s.reader, s.cfg.configLineTimeout)
	if err != nil {
		return nil, err
	}
	s.config = config

	gestures := config.Gestures()
	s.logger.Info("capture: device configured",
		"gestures", gestures,
		"repetitions", config.Repetitions(),
		"samples", config.Samples(),
		"totalSamples", config.TotalSamples(),
	)
	if len(gestures) == 0 {
		s.logger.Warn("capture: device announced no gestures")
	}
	s.cfg.reporter.SessionConfigured(config)

	if err := s.sink.WriteHeader(config.OutputHeader()); err != nil {
		return nil, err
	}

	sum := &Summary{
		Config:   config,
		Gestures: make([]GestureTotal, 0, len(gestures)),
	}

	for i, name := range gestures {
		g := GestureInfo{
			Name:        name,
			Index:       i,
			Total:       len(gestures),
			Repetitions: config.Repetitions(),
			Samples:     config.Samples(),
		}

		n, err := s.runGesture(ctx, g)
		sum.TotalSamples += n
		if err != nil {
			return nil, err
		}
		sum.Gestures = append(sum.Gestures, GestureTotal{Name: name, Samples: n})
	}

	if err := s.reader.WaitForMarker(ctx, MarkerSessionDone, s.cfg.markerTimeout); err != nil {
		return nil, err
	}

	sum.Retries = int(s.metrics.NACKCount.Load())
	sum.PartialAccepts = int(s.metrics.PartialAcceptCount.Load())
	sum.Duration = time.Since(start)

	s.logger.Info("capture: session complete",
		"samples", sum.TotalSamples,
		"retries", sum.Retries,
		"partialAccepts", sum.PartialAccepts,
		"duration", sum.Duration,
	)
	s.cfg.reporter.SessionCompleted(sum)

	return sum, nil
}

// send writes a control token and waits until it has been transmitted.
func (s *Session) send(token string) error {
	if _, err := s.port.Write([]byte(token)); err != nil {
		return fmt.Errorf("capture: send %q: %w", token, err)
	}
	if err := s.port.Drain(); err != nil {
		return fmt.Errorf("capture: flush %q: %w", token, err)
	}

	return nil
}

func (s *Session) traceLine(line string, matched bool) {
	if !matched {
		s.metrics.incLineDiscardCount()
	}
	s.logger.Debug("capture: received", "line", line, "matched", matched)

	if s.cfg.tracer != nil {
		s.cfg.tracer(line, matched)
	}
}

// Opener opens the transport for a session.
type Opener func() (serialport.Port, error)

// Capture opens the port, runs a session writing to sink, and closes both the
// sink and the port on every exit path, cancellation included.
func Capture(ctx context.Context, open Opener, sink Sink, cfg *CaptureConfig) (sum *Summary, err error) {
	port, err := open()
	if err != nil {
		if sink != nil {
			_ = sink.Close()
		}
		return nil, fmt.Errorf("%w: %w", ErrPortOpen, err)
	}

	defer func() {
		if closeErr := port.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("capture: close port: %w", closeErr)
		}
	}()
	defer func() {
		if sink == nil {
			return
		}
		if closeErr := sink.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	s, err := NewSession(port, sink, cfg)
	if err != nil {
		return nil, err
	}

	return s.Run(ctx)
}
