package emulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-gesture/capture"
	"github.com/arloliu/go-gesture/internal/util"
	"github.com/arloliu/go-gesture/logger"
)

// Defaults of the emulated firmware.
const (
	DefaultRepetitions     = 5
	DefaultSamples         = 100
	DefaultHeader          = "seq;X-acc;Y-acc;Z-acc;label"
	DefaultResponseTimeout = 30 * time.Second

	// MaxAttempts bounds retransmissions of one repetition.
	MaxAttempts = 16
)

// FaultKind selects how a transmission is corrupted.
type FaultKind int

const (
	// DropSamples omits the last Drop sample lines of the data block.
	DropSamples FaultKind = iota
	// GarbleCount sends a COUNT line that does not parse.
	GarbleCount
	// OmitCount sends no COUNT line at all.
	OmitCount
)

func (k FaultKind) String() string {
	switch k {
	case DropSamples:
		return "drop-samples"
	case GarbleCount:
		return "garble-count"
	case OmitCount:
		return "omit-count"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// Fault corrupts the first Attempts transmissions of matching repetitions.
type Fault struct {
	Kind FaultKind
	// Gesture restricts the fault to one gesture name; empty matches all.
	Gesture string
	// Rep restricts the fault to one repetition index; zero matches all.
	Rep int
	// Attempts is the number of leading attempts affected.
	Attempts int
	// Drop is the number of samples omitted by DropSamples.
	Drop int
}

func (f Fault) matches(gesture string, rep, attempt int) bool {
	return (f.Gesture == "" || f.Gesture == gesture) &&
		(f.Rep == 0 || f.Rep == rep) &&
		attempt <= f.Attempts
}

// Config holds the configuration of an emulated device.
type Config struct {
	gestures        []string
	repetitions     int
	samples         int
	header          string
	metadata        [][2]string
	responseTimeout time.Duration
	sampleInterval  time.Duration
	faults          []Fault
	logger          logger.Logger
}

// NewConfig creates an emulator configuration announcing a single "wave" gesture by default.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		gestures:        []string{"wave"},
		repetitions:     DefaultRepetitions,
		samples:         DefaultSamples,
		header:          DefaultHeader,
		responseTimeout: DefaultResponseTimeout,
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Gestures returns the announced gesture names.
func (cfg *Config) Gestures() []string { return util.CloneSlice(cfg.gestures, 0) }

// Repetitions returns the announced repetitions per gesture.
func (cfg *Config) Repetitions() int { return cfg.repetitions }

// Samples returns the announced samples per repetition.
func (cfg *Config) Samples() int { return cfg.samples }

// Option is a functional option for configuring an emulated device.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithGestures sets the announced gesture names. Duplicates are allowed.
func WithGestures(names ...string) Option {
	return optFunc(func(cfg *Config) error {
		cfg.gestures = util.CloneSlice(names, 0)
		return nil
	})
}

// WithRepetitions sets the repetitions per gesture.
func WithRepetitions(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 1 {
			return fmt.Errorf("emulator: repetitions %d must be positive", n)
		}
		cfg.repetitions = n

		return nil
	})
}

// WithSamples sets the samples per repetition.
func WithSamples(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 1 {
			return fmt.Errorf("emulator: samples %d must be positive", n)
		}
		cfg.samples = n

		return nil
	})
}

// WithHeader sets the announced header line.
func WithHeader(header string) Option {
	return optFunc(func(cfg *Config) error {
		cfg.header = header
		return nil
	})
}

// WithMetadata adds an extra key:value pair to the handshake.
func WithMetadata(key, value string) Option {
	return optFunc(func(cfg *Config) error {
		switch key {
		case "", capture.KeyGestures, capture.KeyRepetitions, capture.KeySamples, capture.KeyHeader:
			return fmt.Errorf("emulator: metadata key %q is reserved", key)
		}
		cfg.metadata = append(cfg.metadata, [2]string{key, value})

		return nil
	})
}

// WithResponseTimeout sets how long the device waits for the host's START, ACK or NACK.
func WithResponseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("emulator: response timeout must be positive")
		}
		cfg.responseTimeout = d

		return nil
	})
}

// WithSampleInterval sets the delay between sample lines, emulating the sensor rate.
func WithSampleInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 {
			return errors.New("emulator: sample interval must not be negative")
		}
		cfg.sampleInterval = d

		return nil
	})
}

// WithFault adds a transmission fault.
func WithFault(f Fault) Option {
	return optFunc(func(cfg *Config) error {
		if f.Attempts < 1 {
			return errors.New("emulator: fault must affect at least one attempt")
		}
		if f.Kind == DropSamples && f.Drop < 1 {
			return errors.New("emulator: drop-samples fault must drop at least one sample")
		}
		cfg.faults = append(cfg.faults, f)

		return nil
	})
}

// WithLogger sets the logger of the emulated device.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("emulator: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
