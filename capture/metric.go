package capture

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// SessionMetrics contains atomic metrics for a capture session.
//
// Counters may be read from other goroutines while the session runs, e.g. by
// a progress display or an interrupt handler.
type SessionMetrics struct {
	// LineRecvCount indicates the number of complete lines received.
	LineRecvCount atomic.Uint64
	// LineDiscardCount indicates the number of lines skipped while waiting for a marker.
	LineDiscardCount atomic.Uint64
	// RepetitionCount indicates the number of repetitions completed (ACK sent).
	RepetitionCount atomic.Uint64
	// AttemptCount indicates the number of data blocks received, retransmissions included.
	AttemptCount atomic.Uint64
	// NACKCount indicates the number of retransmission requests sent.
	NACKCount atomic.Uint64
	// PartialAcceptCount indicates the number of repetitions accepted after exhausting all attempts.
	PartialAcceptCount atomic.Uint64
	// SampleCount indicates the number of sample rows persisted.
	SampleCount atomic.Uint64

	// gestureSamples holds persisted sample rows per gesture name.
	gestureSamples *xsync.MapOf[string, uint64]
}

func newSessionMetrics() *SessionMetrics {
	return &SessionMetrics{
		gestureSamples: xsync.NewMapOf[string, uint64](),
	}
}

// GestureSamples returns the number of rows persisted for gesture name.
// Gestures listed more than once in the session share one counter.
func (m *SessionMetrics) GestureSamples(name string) uint64 {
	v, _ := m.gestureSamples.Load(name)
	return v
}

// GestureSampleCounts returns a snapshot of persisted rows per gesture name.
func (m *SessionMetrics) GestureSampleCounts() map[string]uint64 {
	out := make(map[string]uint64, m.gestureSamples.Size())
	m.gestureSamples.Range(func(name string, n uint64) bool {
		out[name] = n
		return true
	})

	return out
}

func (m *SessionMetrics) incLineRecvCount() {
	m.LineRecvCount.Add(1)
}

func (m *SessionMetrics) incLineDiscardCount() {
	m.LineDiscardCount.Add(1)
}

func (m *SessionMetrics) incAttemptCount() {
	m.AttemptCount.Add(1)
}

func (m *SessionMetrics) incNACKCount() {
	m.NACKCount.Add(1)
}

func (m *SessionMetrics) incPartialAcceptCount() {
	m.PartialAcceptCount.Add(1)
}

func (m *SessionMetrics) addRepetition(gesture string, rows int) {
	m.RepetitionCount.Add(1)
	m.SampleCount.Add(uint64(rows))
	m.gestureSamples.Compute(gesture, func(old uint64, _ bool) (uint64, bool) {
		return old + uint64(rows), false
	})
}
