package capture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-gesture/internal/util"
)

// Handshake keys and their defaults.
const (
	KeyGestures    = "gestures"
	KeyRepetitions = "repetitions"
	KeySamples     = "samples"
	KeyHeader      = "header"

	DefaultRepetitions = 5
	DefaultSamples     = 100
	DefaultHeader      = "X-acc;Y-acc;Z-acc;label"
)

// SessionConfig is the device configuration announced in the handshake.
//
// It is immutable once created. Keys the host does not interpret are kept and
// available through Value.
type SessionConfig struct {
	gestures    []string
	repetitions int
	samples     int
	header      string
	raw         map[string]string
}

// NewSessionConfig builds a SessionConfig from raw handshake pairs, applying
// defaults for missing keys.
//
// gestures is split on ","; an absent or empty value yields no gestures.
// repetitions and samples must be positive integers, otherwise an error wrapping
// ErrInvalidConfig is returned.
func NewSessionConfig(raw map[string]string) (*SessionConfig, error) {
	cfg := &SessionConfig{
		repetitions: DefaultRepetitions,
		samples:     DefaultSamples,
		header:      DefaultHeader,
		raw:         make(map[string]string, len(raw)),
	}

	for k, v := range raw {
		cfg.raw[k] = v
	}

	if v := raw[KeyGestures]; v != "" {
		cfg.gestures = strings.Split(v, ",")
	}

	var err error
	if v, ok := raw[KeyRepetitions]; ok {
		if cfg.repetitions, err = parsePositive(KeyRepetitions, v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw[KeySamples]; ok {
		if cfg.samples, err = parsePositive(KeySamples, v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw[KeyHeader]; ok {
		cfg.header = v
	}

	return cfg, nil
}

func parsePositive(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, value)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s=%d must be positive", ErrInvalidConfig, key, n)
	}

	return n, nil
}

// Gestures returns the gesture names in capture order. Duplicates are kept.
func (c *SessionConfig) Gestures() []string { return util.CloneSlice(c.gestures, 0) }

// Repetitions returns the number of repetitions per gesture.
func (c *SessionConfig) Repetitions() int { return c.repetitions }

// Samples returns the number of samples per repetition.
func (c *SessionConfig) Samples() int { return c.samples }

// Header returns the header line as announced by the device.
func (c *SessionConfig) Header() string { return c.header }

// OutputHeader returns the header line written to the output, with the
// sequence column removed when present.
func (c *SessionConfig) OutputHeader() string { return StripSequenceField(c.header) }

// SamplesPerGesture returns the expected number of samples for one gesture.
func (c *SessionConfig) SamplesPerGesture() int { return c.repetitions * c.samples }

// TotalSamples returns the expected number of samples for the whole session.
func (c *SessionConfig) TotalSamples() int { return len(c.gestures) * c.SamplesPerGesture() }

// Value returns the raw handshake value for key.
func (c *SessionConfig) Value(key string) (string, bool) {
	v, ok := c.raw[key]
	return v, ok
}

// Keys returns the number of raw handshake pairs received.
func (c *SessionConfig) Keys() int { return len(c.raw) }
