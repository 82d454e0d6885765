package capture

import (
	"context"
	"fmt"
)

// gestureState is a state of the gesture sequencer.
type gestureState int

const (
	gestureAwaitReady gestureState = iota
	gesturePrompt
	gestureStart
	gestureAwaitRep
	gestureCollect
	gestureAwaitDone
	gestureDone
)

func (s gestureState) String() string {
	switch s {
	case gestureAwaitReady:
		return "AWAIT_READY"
	case gesturePrompt:
		return "PROMPT"
	case gestureStart:
		return "START"
	case gestureAwaitRep:
		return "AWAIT_REP"
	case gestureCollect:
		return "COLLECT"
	case gestureAwaitDone:
		return "AWAIT_GESTURE_DONE"
	case gestureDone:
		return "DONE"
	default:
		return fmt.Sprintf("gestureState(%d)", int(s))
	}
}

// gestureSequencer drives all repetitions of one gesture.
type gestureSequencer struct {
	s       *Session
	gesture GestureInfo

	rep     int
	samples int
}

// runGesture captures every repetition of gesture g and returns the number of
// rows persisted for it.
func (s *Session) runGesture(ctx context.Context, g GestureInfo) (int, error) {
	q := &gestureSequencer{s: s, gesture: g, rep: 1}

	state := gestureAwaitReady
	for state != gestureDone {
		next, err := q.step(ctx, state)
		if err != nil {
			return q.samples, fmt.Errorf("gesture %q %s: %w", g.Name, state, err)
		}
		state = next
	}

	return q.samples, nil
}

func (q *gestureSequencer) step(ctx context.Context, state gestureState) (gestureState, error) {
	switch state {
	case gestureAwaitReady:
		if err := q.s.reader.WaitForMarker(ctx, MarkerReady, q.s.cfg.markerTimeout); err != nil {
			return gestureDone, err
		}
		return gesturePrompt, nil

	case gesturePrompt:
		q.s.cfg.reporter.GestureStarted(q.gesture)
		if err := q.s.cfg.prompter.Prompt(ctx, q.gesture); err != nil {
			return gestureDone, err
		}
		return gestureStart, nil

	case gestureStart:
		if err := q.s.send(TokenStart); err != nil {
			return gestureDone, err
		}
		q.s.logger.Info("capture: gesture started",
			"gesture", q.gesture.Name,
			"index", q.gesture.Index+1,
			"total", q.gesture.Total,
		)
		return q.nextRep(), nil

	case gestureAwaitRep:
		if err := q.s.reader.WaitForMarker(ctx, RepMarker(q.rep), q.s.cfg.markerTimeout); err != nil {
			return gestureDone, err
		}
		return gestureCollect, nil

	case gestureCollect:
		return q.collect(ctx)

	case gestureAwaitDone:
		if err := q.s.reader.WaitForMarker(ctx, MarkerGestureDone, q.s.cfg.markerTimeout); err != nil {
			return gestureDone, err
		}
		q.s.logger.Info("capture: gesture completed", "gesture", q.gesture.Name, "samples", q.samples)
		q.s.cfg.reporter.GestureCompleted(q.gesture, q.samples)
		return gestureDone, nil

	default:
		return gestureDone, fmt.Errorf("capture: unexpected gesture state %s", state)
	}
}

// collect runs one repetition and persists its rows before moving on, so
// repetitions already captured survive a later failure.
func (q *gestureSequencer) collect(ctx context.Context) (gestureState, error) {
	res, err := q.s.collectRepetition(ctx, q.gesture, q.rep)
	if err != nil {
		return gestureDone, err
	}

	if err := q.s.sink.AppendRows(res.Rows); err != nil {
		return gestureDone, err
	}

	q.samples += len(res.Rows)
	q.s.metrics.addRepetition(q.gesture.Name, len(res.Rows))
	q.s.logger.Info("capture: repetition complete",
		"gesture", q.gesture.Name,
		"rep", q.rep,
		"repetitions", q.gesture.Repetitions,
		"samples", len(res.Rows),
		"attempts", res.Attempts,
		"partial", res.Partial,
	)
	q.s.cfg.reporter.RepetitionCompleted(q.gesture, res)

	q.rep++

	return q.nextRep(), nil
}

func (q *gestureSequencer) nextRep() gestureState {
	if q.rep > q.gesture.Repetitions {
		return gestureAwaitDone
	}

	return gestureAwaitRep
}
