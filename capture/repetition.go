package capture

import (
	"context"
	"fmt"
)

// repState is a state of the repetition collector.
//
//	AWAIT_DATA -> COLLECTING -> AWAIT_COUNT -> VERIFY -> ACK_SUCCESS
//	                                                  -> NACK_RETRY -> AWAIT_DATA
//	                                                  -> ACK_PARTIAL
type repState int

const (
	repAwaitData repState = iota
	repCollecting
	repAwaitCount
	repVerify
	repAckSuccess
	repNackRetry
	repAckPartial
	repDone
)

func (s repState) String() string {
	switch s {
	case repAwaitData:
		return "AWAIT_DATA"
	case repCollecting:
		return "COLLECTING"
	case repAwaitCount:
		return "AWAIT_COUNT"
	case repVerify:
		return "VERIFY"
	case repAckSuccess:
		return "ACK_SUCCESS"
	case repNackRetry:
		return "NACK_RETRY"
	case repAckPartial:
		return "ACK_PARTIAL"
	case repDone:
		return "DONE"
	default:
		return fmt.Sprintf("repState(%d)", int(s))
	}
}

// NoCount is the reported count recorded when the COUNT line is missing or malformed.
const NoCount = -1

// RepetitionResult is the outcome of one repetition.
type RepetitionResult struct {
	// Rep is the one-based repetition index.
	Rep int
	// Attempts is the number of data blocks received for this repetition.
	Attempts int
	// Rows holds the rows of the final attempt with the sequence field removed.
	Rows []string
	// Expected is the configured number of samples per repetition.
	Expected int
	// Actual is the number of non-empty data lines received on the final attempt.
	Actual int
	// Reported is the count announced by the device, or NoCount.
	Reported int
	// Partial is true when the repetition was accepted after exhausting all
	// attempts without a valid count.
	Partial bool
}

// Valid reports whether the final attempt passed verification.
func (r *RepetitionResult) Valid() bool {
	return VerifyCount(r.Expected, r.Actual, r.Reported)
}

// Err returns nil for a valid repetition and an error wrapping ErrCountMismatch otherwise.
func (r *RepetitionResult) Err() error {
	if r.Valid() {
		return nil
	}

	return fmt.Errorf("%w: rep %d received %d, reported %d, expected %d",
		ErrCountMismatch, r.Rep, r.Actual, r.Reported, r.Expected)
}

// VerifyCount reports whether a data block is complete: the host must have
// received exactly the expected number of rows and the device must report the
// same number.
func VerifyCount(expected, actual, reported int) bool {
	return actual == expected && actual == reported
}

// repCollector runs the collect/verify/acknowledge cycle of one repetition.
type repCollector struct {
	s       *Session
	gesture GestureInfo
	rep     int

	attempt  int
	raw      []string
	reported int
	result   *RepetitionResult
}

// collectRepetition runs the repetition state machine until the repetition is
// acknowledged. Only marker timeouts, stream failures and cancellation are
// returned as errors; count mismatches are retried and finally accepted.
func (s *Session) collectRepetition(ctx context.Context, g GestureInfo, rep int) (*RepetitionResult, error) {
	c := &repCollector{s: s, gesture: g, rep: rep}

	state := repAwaitData
	for state != repDone {
		next, err := c.step(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("rep %d %s: %w", rep, state, err)
		}
		state = next
	}

	return c.result, nil
}

func (c *repCollector) step(ctx context.Context, state repState) (repState, error) {
	switch state {
	case repAwaitData:
		return c.awaitData(ctx)
	case repCollecting:
		return c.collecting(ctx)
	case repAwaitCount:
		return c.awaitCount(ctx)
	case repVerify:
		return c.verify(), nil
	case repAckSuccess:
		return c.ackSuccess()
	case repNackRetry:
		return c.nackRetry()
	case repAckPartial:
		return c.ackPartial()
	default:
		return repDone, fmt.Errorf("capture: unexpected repetition state %s", state)
	}
}

func (c *repCollector) awaitData(ctx context.Context) (repState, error) {
	if err := c.s.reader.WaitForMarker(ctx, MarkerDataStart, c.s.cfg.markerTimeout); err != nil {
		return repDone, err
	}

	c.attempt++
	c.raw = c.raw[:0]
	c.s.metrics.incAttemptCount()

	return repCollecting, nil
}

// collecting reads sample lines until <<<DATA_END>>>. A line timeout ends the
// block early; verification decides what to do with the rows gathered so far.
func (c *repCollector) collecting(ctx context.Context) (repState, error) {
	for {
		line, ok, err := c.s.reader.ReadLine(ctx, c.s.cfg.dataLineTimeout)
		if err != nil {
			return repDone, err
		}
		if !ok {
			c.s.logger.Debug("capture: data line timeout",
				"rep", c.rep,
				"attempt", c.attempt,
				"received", len(c.raw),
			)

			return repAwaitCount, nil
		}
		if line == MarkerDataEnd {
			return repAwaitCount, nil
		}
		if line != "" {
			c.raw = append(c.raw, line)
		}
	}
}

func (c *repCollector) awaitCount(ctx context.Context) (repState, error) {
	line, ok, err := c.s.reader.ReadLine(ctx, c.s.cfg.countTimeout)
	if err != nil {
		return repDone, err
	}

	c.reported = NoCount
	if ok {
		if n, valid := ParseCountMarker(line); valid {
			c.reported = n
		}
	}
	if c.reported == NoCount {
		c.s.logger.Debug("capture: missing or invalid count marker",
			"rep", c.rep,
			"attempt", c.attempt,
			"line", line,
		)
	}

	return repVerify, nil
}

func (c *repCollector) verify() repState {
	c.result = &RepetitionResult{
		Rep:      c.rep,
		Attempts: c.attempt,
		Expected: c.gesture.Samples,
		Actual:   len(c.raw),
		Reported: c.reported,
	}

	valid := c.result.Valid()
	c.s.logger.Debug("capture: repetition verified",
		"rep", c.rep,
		"attempt", c.attempt,
		"actual", c.result.Actual,
		"reported", c.result.Reported,
		"expected", c.result.Expected,
		"valid", valid,
	)
	if len(c.raw) > 0 {
		c.s.logger.Debug("capture: repetition bounds",
			"rep", c.rep,
			"first", c.raw[0],
			"last", c.raw[len(c.raw)-1],
		)
	}

	switch {
	case valid:
		return repAckSuccess
	case c.attempt < c.s.cfg.maxAttempts:
		return repNackRetry
	default:
		return repAckPartial
	}
}

func (c *repCollector) ackSuccess() (repState, error) {
	if err := c.s.send(TokenACK); err != nil {
		return repDone, err
	}
	c.result.Rows = StripSequenceFields(c.raw)

	return repDone, nil
}

// nackRetry requests a retransmission; the device resends the repetition
// starting with a new <<<DATA>>> block.
func (c *repCollector) nackRetry() (repState, error) {
	c.s.logger.Warn("capture: repetition count mismatch, requesting resend",
		"gesture", c.gesture.Name,
		"rep", c.rep,
		"attempt", c.attempt,
		"maxAttempts", c.s.cfg.maxAttempts,
		"actual", c.result.Actual,
		"reported", c.result.Reported,
		"expected", c.result.Expected,
	)
	c.s.cfg.reporter.RetryRequested(c.gesture, c.result)

	if err := c.s.send(TokenNACK); err != nil {
		return repDone, err
	}
	c.s.metrics.incNACKCount()

	return repAwaitData, nil
}

// ackPartial accepts the final attempt even though it failed verification,
// so the device moves on instead of waiting on a repetition it cannot improve.
func (c *repCollector) ackPartial() (repState, error) {
	c.s.logger.Warn("capture: attempts exhausted, accepting partial repetition",
		"gesture", c.gesture.Name,
		"rep", c.rep,
		"attempts", c.attempt,
		"actual", c.result.Actual,
		"reported", c.result.Reported,
		"expected", c.result.Expected,
	)

	if err := c.s.send(TokenACK); err != nil {
		return repDone, err
	}
	c.s.metrics.incPartialAcceptCount()
	c.result.Partial = true
	c.result.Rows = StripSequenceFields(c.raw)

	return repDone, nil
}
