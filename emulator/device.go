package emulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/arloliu/go-gesture/capture"
	"github.com/arloliu/go-gesture/internal/pool"
	"github.com/arloliu/go-gesture/logger"
	"github.com/arloliu/go-gesture/serialport"
)

const pollInterval = time.Millisecond

var (
	ackLine  = strings.TrimSuffix(capture.TokenACK, "\n")
	nackLine = strings.TrimSuffix(capture.TokenNACK, "\n")
)

var (
	// ErrNoResponse indicates that the host did not answer within the response timeout.
	ErrNoResponse = errors.New("emulator: no response from host")
	// ErrTooManyAttempts indicates that the host requested more retransmissions than MaxAttempts.
	ErrTooManyAttempts = errors.New("emulator: too many retransmission requests")
)

// Stats counts what an emulated device transmitted.
type Stats struct {
	Repetitions int
	Attempts    int
	NACKs       int
	Samples     int
}

// Device plays the device side of the capture protocol over a port.
//
// A Device is single-use and NOT goroutine-safe.
type Device struct {
	cfg    *Config
	port   serialport.Port
	reader *capture.LineReader
	logger logger.Logger
	stats  Stats
	seq    int
}

// NewDevice creates a device writing to port. A nil cfg uses the defaults of NewConfig.
func NewDevice(port serialport.Port, cfg *Config) (*Device, error) {
	if port == nil {
		return nil, errors.New("emulator: port must not be nil")
	}
	if cfg == nil {
		var err error
		if cfg, err = NewConfig(); err != nil {
			return nil, err
		}
	}

	return &Device{
		cfg:    cfg,
		port:   port,
		reader: capture.NewLineReader(port, pollInterval),
		logger: cfg.logger,
	}, nil
}

// Stats returns the transmission counters. Only valid after Run returned.
func (d *Device) Stats() Stats { return d.stats }

// Run announces the configuration, serves every gesture and finishes with <<<DONE>>>.
func (d *Device) Run(ctx context.Context) error {
	if err := d.sendHandshake(); err != nil {
		return err
	}

	for i, name := range d.cfg.gestures {
		if err := d.serveGesture(ctx, i, name); err != nil {
			return fmt.Errorf("emulator: gesture %q: %w", name, err)
		}
	}

	d.logger.Info("emulator: session done", "repetitions", d.stats.Repetitions, "nacks", d.stats.NACKs)

	return d.writeLines(capture.MarkerSessionDone)
}

func (d *Device) sendHandshake() error {
	lines := []string{
		capture.MarkerConfigStart,
		capture.KeyGestures + ":" + strings.Join(d.cfg.gestures, ","),
		capture.KeyRepetitions + ":" + fmt.Sprint(d.cfg.repetitions),
		capture.KeySamples + ":" + fmt.Sprint(d.cfg.samples),
		capture.KeyHeader + ":" + d.cfg.header,
	}
	for _, kv := range d.cfg.metadata {
		lines = append(lines, kv[0]+":"+kv[1])
	}
	lines = append(lines, capture.MarkerConfigEnd)

	return d.writeLines(lines...)
}

func (d *Device) serveGesture(ctx context.Context, index int, name string) error {
	if err := d.writeLines(capture.MarkerReady); err != nil {
		return err
	}
	if _, err := d.await(ctx, func(line string) bool { return line == "" }); err != nil {
		return fmt.Errorf("waiting for START: %w", err)
	}
	d.logger.Debug("emulator: host started gesture", "gesture", name, "index", index)

	for rep := 1; rep <= d.cfg.repetitions; rep++ {
		if err := d.serveRepetition(ctx, index, name, rep); err != nil {
			return fmt.Errorf("rep %d: %w", rep, err)
		}
	}

	return d.writeLines(capture.MarkerGestureDone)
}

func (d *Device) serveRepetition(ctx context.Context, index int, name string, rep int) error {
	if err := d.writeLines(capture.RepMarker(rep)); err != nil {
		return err
	}

	rows := d.recordRepetition(index, name)

	for attempt := 1; ; attempt++ {
		if attempt > MaxAttempts {
			return ErrTooManyAttempts
		}
		d.stats.Attempts++

		if err := d.transmit(ctx, name, rep, attempt, rows); err != nil {
			return err
		}

		resp, err := d.await(ctx, func(line string) bool {
			return line == ackLine || line == nackLine
		})
		if err != nil {
			return fmt.Errorf("waiting for ACK: %w", err)
		}

		if resp == ackLine {
			d.stats.Repetitions++
			return nil
		}

		d.stats.NACKs++
		d.logger.Debug("emulator: host requested resend", "gesture", name, "rep", rep, "attempt", attempt)
	}
}

// recordRepetition produces the samples of one repetition. Retransmissions
// resend the same rows.
func (d *Device) recordRepetition(index int, name string) []string {
	rows := make([]string, d.cfg.samples)
	for i := range rows {
		t := float64(i) / float64(d.cfg.samples)
		phase := 2 * math.Pi * (t + float64(index)/4)
		rows[i] = fmt.Sprintf("%d;%.3f;%.3f;%.3f;%s",
			d.seq, math.Sin(phase), math.Cos(phase), 9.81+0.1*math.Sin(2*phase), name)
		d.seq++
	}

	return rows
}

func (d *Device) transmit(ctx context.Context, name string, rep, attempt int, rows []string) error {
	count := len(rows)
	countLine := capture.CountMarker(count)

	for _, f := range d.cfg.faults {
		if !f.matches(name, rep, attempt) {
			continue
		}
		switch f.Kind {
		case DropSamples:
			rows = rows[:max(0, len(rows)-f.Drop)]
			countLine = capture.CountMarker(len(rows))
		case GarbleCount:
			countLine = "<<<COUNT:" + fmt.Sprint(count) + "x>>>"
		case OmitCount:
			countLine = ""
		}
		d.logger.Debug("emulator: injecting fault", "fault", f.Kind, "gesture", name, "rep", rep, "attempt", attempt)
	}

	if err := d.writeLines(capture.MarkerDataStart); err != nil {
		return err
	}
	for _, row := range rows {
		if err := d.writeLines(row); err != nil {
			return err
		}
		if d.cfg.sampleInterval > 0 {
			if err := pool.Sleep(ctx, d.cfg.sampleInterval); err != nil {
				return err
			}
		}
	}
	d.stats.Samples += len(rows)

	if countLine == "" {
		return d.writeLines(capture.MarkerDataEnd)
	}

	return d.writeLines(capture.MarkerDataEnd, countLine)
}

// await reads host lines until accept matches one, discarding the rest.
func (d *Device) await(ctx context.Context, accept func(string) bool) (string, error) {
	start := time.Now()
	for {
		remaining := d.cfg.responseTimeout - time.Since(start)
		if remaining <= 0 {
			return "", ErrNoResponse
		}

		line, ok, err := d.reader.ReadLine(ctx, remaining)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrNoResponse
		}
		if accept(line) {
			return line, nil
		}
		d.logger.Debug("emulator: ignored host line", "line", line)
	}
}

func (d *Device) writeLines(lines ...string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if _, err := d.port.Write([]byte(b.String())); err != nil {
		return fmt.Errorf("emulator: write: %w", err)
	}

	return d.port.Drain()
}
