package capture

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Device-to-host marker lines.
const (
	MarkerConfigStart = "<<<CONFIG>>>"
	MarkerConfigEnd   = "<<<CONFIG_END>>>"
	MarkerReady       = "<<<READY>>>"
	MarkerDataStart   = "<<<DATA>>>"
	MarkerDataEnd     = "<<<DATA_END>>>"
	MarkerGestureDone = "<<<GESTURE_DONE>>>"
	MarkerSessionDone = "<<<DONE>>>"

	repMarkerPrefix   = "<<<REP:"
	countMarkerPrefix = "<<<COUNT:"
	markerSuffix      = ">>>"
)

// Host-to-device control tokens, newline included.
const (
	TokenStart = "\n"
	TokenACK   = "ACK\n"
	TokenNACK  = "NACK\n"
)

// RepMarker returns the marker announcing repetition n.
func RepMarker(n int) string {
	return repMarkerPrefix + strconv.Itoa(n) + markerSuffix
}

// CountMarker returns the marker reporting n samples.
func CountMarker(n int) string {
	return countMarkerPrefix + strconv.Itoa(n) + markerSuffix
}

// ParseCountMarker extracts the sample count from a <<<COUNT:n>>> line.
//
// The line must carry the exact prefix and suffix with a non-empty run of
// ASCII digits in between; ok is false for anything else, including values
// that overflow int.
func ParseCountMarker(line string) (int, bool) {
	if !strings.HasPrefix(line, countMarkerPrefix) || !strings.HasSuffix(line, markerSuffix) {
		return 0, false
	}
	if len(line) < len(countMarkerPrefix)+len(markerSuffix) {
		return 0, false
	}

	digits := line[len(countMarkerPrefix) : len(line)-len(markerSuffix)]
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}

	return n, true
}

// WaitForMarker consumes lines until one equals marker exactly, discarding
// every other line.
//
// It returns an error wrapping ErrMarkerTimeout once timeout has elapsed since
// the call started. The remaining budget is recomputed before every read, so a
// stream of discarded lines cannot extend the deadline.
func (r *LineReader) WaitForMarker(ctx context.Context, marker string, timeout time.Duration) error {
	start := time.Now()

	for {
		remaining := timeout - time.Since(start)
		if remaining <= 0 {
			return fmt.Errorf("%w: %s after %v", ErrMarkerTimeout, marker, timeout)
		}

		line, ok, err := r.ReadLine(ctx, remaining)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		matched := line == marker
		if r.tracer != nil {
			r.tracer(line, matched)
		}
		if matched {
			return nil
		}
	}
}
