package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-gesture/logger"
)

// Default protocol timing.
const (
	DefaultConfigTimeout     = 60 * time.Second // device may still be booting
	DefaultMarkerTimeout     = 30 * time.Second
	DefaultConfigLineTimeout = 5 * time.Second
	DefaultDataLineTimeout   = 10 * time.Second
	DefaultCountTimeout      = 5 * time.Second
	DefaultPollInterval      = time.Millisecond

	DefaultMaxAttempts = 3
)

// Limits accepted by the With* options.
const (
	MinTimeout = 100 * time.Millisecond
	MaxTimeout = 10 * time.Minute

	MinPollInterval = 100 * time.Microsecond
	MaxPollInterval = 100 * time.Millisecond

	MaxAttemptsLimit = 16
)

// LineTracer observes lines consumed by marker waits. matched reports whether
// the line was the awaited marker. Tracers must not block.
type LineTracer func(line string, matched bool)

// CaptureConfig holds the host-side configuration of a capture session.
type CaptureConfig struct {
	configTimeout     time.Duration
	markerTimeout     time.Duration
	configLineTimeout time.Duration
	dataLineTimeout   time.Duration
	countTimeout      time.Duration
	pollInterval      time.Duration

	// maxAttempts is the total number of attempts per repetition, including the first.
	maxAttempts int

	prompter Prompter
	reporter Reporter
	tracer   LineTracer
	logger   logger.Logger
}

// NewCaptureConfig creates a capture configuration.
//
// opts are functional options applied in order; see With* functions.
func NewCaptureConfig(opts ...CaptureOption) (*CaptureConfig, error) {
	cfg := &CaptureConfig{
		configTimeout:     DefaultConfigTimeout,
		markerTimeout:     DefaultMarkerTimeout,
		configLineTimeout: DefaultConfigLineTimeout,
		dataLineTimeout:   DefaultDataLineTimeout,
		countTimeout:      DefaultCountTimeout,
		pollInterval:      DefaultPollInterval,
		maxAttempts:       DefaultMaxAttempts,
		prompter:          NopPrompter{},
		reporter:          NopReporter{},
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ConfigTimeout returns the budget for the initial <<<CONFIG>>> marker.
func (cfg *CaptureConfig) ConfigTimeout() time.Duration { return cfg.configTimeout }

// MarkerTimeout returns the budget for every other marker wait.
func (cfg *CaptureConfig) MarkerTimeout() time.Duration { return cfg.markerTimeout }

// ConfigLineTimeout returns the per-line timeout of the configuration handshake.
func (cfg *CaptureConfig) ConfigLineTimeout() time.Duration { return cfg.configLineTimeout }

// DataLineTimeout returns the per-line timeout inside a data block.
func (cfg *CaptureConfig) DataLineTimeout() time.Duration { return cfg.dataLineTimeout }

// CountTimeout returns the timeout for the COUNT line following a data block.
func (cfg *CaptureConfig) CountTimeout() time.Duration { return cfg.countTimeout }

// PollInterval returns the sleep between byte-availability checks.
func (cfg *CaptureConfig) PollInterval() time.Duration { return cfg.pollInterval }

// MaxAttempts returns the total number of attempts per repetition.
func (cfg *CaptureConfig) MaxAttempts() int { return cfg.maxAttempts }

// GetLogger returns the configured logger.
func (cfg *CaptureConfig) GetLogger() logger.Logger { return cfg.logger }

// --- CaptureOption ---

// CaptureOption is a functional option for configuring a CaptureConfig.
type CaptureOption interface {
	apply(*CaptureConfig) error
}

type captureOptFunc func(*CaptureConfig) error

func (f captureOptFunc) apply(cfg *CaptureConfig) error { return f(cfg) }

func checkTimeout(name string, d time.Duration) error {
	if d < MinTimeout || d > MaxTimeout {
		return fmt.Errorf("capture: %s %v out of range [%v, %v]", name, d, MinTimeout, MaxTimeout)
	}

	return nil
}

// WithConfigTimeout sets the budget for the initial <<<CONFIG>>> marker.
func WithConfigTimeout(d time.Duration) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if err := checkTimeout("config timeout", d); err != nil {
			return err
		}
		cfg.configTimeout = d

		return nil
	})
}

// WithMarkerTimeout sets the budget for READY, REP, DATA, GESTURE_DONE and DONE waits.
func WithMarkerTimeout(d time.Duration) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if err := checkTimeout("marker timeout", d); err != nil {
			return err
		}
		cfg.markerTimeout = d

		return nil
	})
}

// WithConfigLineTimeout sets the per-line timeout of the configuration handshake.
func WithConfigLineTimeout(d time.Duration) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if err := checkTimeout("config line timeout", d); err != nil {
			return err
		}
		cfg.configLineTimeout = d

		return nil
	})
}

// WithDataLineTimeout sets the per-line timeout inside a data block.
func WithDataLineTimeout(d time.Duration) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if err := checkTimeout("data line timeout", d); err != nil {
			return err
		}
		cfg.dataLineTimeout = d

		return nil
	})
}

// WithCountTimeout sets the timeout for the COUNT line.
func WithCountTimeout(d time.Duration) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if err := checkTimeout("count timeout", d); err != nil {
			return err
		}
		cfg.countTimeout = d

		return nil
	})
}

// WithPollInterval sets the sleep between byte-availability checks.
func WithPollInterval(d time.Duration) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if d < MinPollInterval || d > MaxPollInterval {
			return fmt.Errorf("capture: poll interval %v out of range [%v, %v]", d, MinPollInterval, MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithMaxAttempts sets the total number of attempts per repetition. Must be in [1, 16].
func WithMaxAttempts(n int) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if n < 1 || n > MaxAttemptsLimit {
			return fmt.Errorf("capture: max attempts %d out of range [1, %d]", n, MaxAttemptsLimit)
		}
		cfg.maxAttempts = n

		return nil
	})
}

// WithPrompter sets the go-ahead prompt shown before each gesture.
func WithPrompter(p Prompter) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if p == nil {
			return errors.New("capture: prompter must not be nil")
		}
		cfg.prompter = p

		return nil
	})
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if r == nil {
			return errors.New("capture: reporter must not be nil")
		}
		cfg.reporter = r

		return nil
	})
}

// WithLineTracer sets a tracer for lines consumed by marker waits. nil disables tracing.
func WithLineTracer(t LineTracer) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		cfg.tracer = t

		return nil
	})
}

// WithLogger sets the logger for the session.
func WithLogger(l logger.Logger) CaptureOption {
	return captureOptFunc(func(cfg *CaptureConfig) error {
		if l == nil {
			return errors.New("capture: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
