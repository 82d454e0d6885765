package capture

import (
	"context"
	"testing"

	"github.com/arloliu/go-gesture/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testGesture(samples int) GestureInfo {
	return GestureInfo{Name: "wave", Total: 1, Repetitions: 1, Samples: samples}
}

func TestVerifyCount(t *testing.T) {
	tests := []struct {
		name                       string
		expected, actual, reported int
		valid                      bool
	}{
		{"All agree", 100, 100, 100, true},
		{"Host short", 100, 98, 100, false},
		{"Host short, device agrees", 100, 98, 98, false},
		{"Missing count marker", 100, 100, NoCount, false},
		{"Device overcounts", 100, 100, 101, false},
		{"Host long", 100, 101, 101, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, VerifyCount(tt.expected, tt.actual, tt.reported))
		})
	}
}

func TestCollectRepetition_Success(t *testing.T) {
	rows := sampleRows("wave", 3)
	s, port, _ := newTestSession(t, "noise\n"+dataBlock(rows, CountMarker(3)))

	res, err := s.collectRepetition(context.Background(), testGesture(3), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{TokenACK}, port.Writes())
	assert.Equal(t, StripSequenceFields(rows), res.Rows)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 3, res.Actual)
	assert.Equal(t, 3, res.Reported)
	assert.False(t, res.Partial)
	assert.True(t, res.Valid())
	assert.NoError(t, res.Err())
	assert.Equal(t, uint64(1), s.Metrics().AttemptCount.Load())
	assert.Zero(t, s.Metrics().NACKCount.Load())
}

func TestCollectRepetition_SkipsEmptyLines(t *testing.T) {
	rows := sampleRows("wave", 2)
	transcript := MarkerDataStart + "\n" + rows[0] + "\n\n" + rows[1] + "\n" + MarkerDataEnd + "\n" + CountMarker(2) + "\n"
	s, _, _ := newTestSession(t, transcript)

	res, err := s.collectRepetition(context.Background(), testGesture(2), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Actual)
	assert.True(t, res.Valid())
}

func TestCollectRepetition_RetryThenSuccess(t *testing.T) {
	rows := sampleRows("wave", 3)
	transcript := dataBlock(rows[:2], CountMarker(3)) + // host missed a row
		dataBlock(rows, "<<<COUNT:3>>") + // garbled count
		dataBlock(rows, CountMarker(3))

	l := logger.NewMockLogger()
	l.On("Debug", mock.Anything, mock.Anything).Maybe()
	l.On("Warn", "capture: repetition count mismatch, requesting resend", mock.Anything).Twice()

	s, port, _ := newTestSession(t, transcript, WithLogger(l))

	res, err := s.collectRepetition(context.Background(), testGesture(3), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{TokenNACK, TokenNACK, TokenACK}, port.Writes())
	assert.Equal(t, 3, res.Attempts)
	assert.False(t, res.Partial)
	assert.Equal(t, StripSequenceFields(rows), res.Rows)
	assert.Equal(t, uint64(2), s.Metrics().NACKCount.Load())
	assert.Equal(t, uint64(3), s.Metrics().AttemptCount.Load())
	l.AssertExpectations(t)
}

func TestCollectRepetition_ExhaustedAcceptsPartial(t *testing.T) {
	rows := sampleRows("wave", 3)
	transcript := dataBlock(rows[:1], CountMarker(3)) +
		dataBlock(rows[:2], CountMarker(3)) +
		dataBlock(rows[:2], CountMarker(2))

	s, port, _ := newTestSession(t, transcript)

	res, err := s.collectRepetition(context.Background(), testGesture(3), 1)
	require.NoError(t, err)

	writes := port.Writes()
	assert.Equal(t, []string{TokenNACK, TokenNACK, TokenACK}, writes)
	assert.Equal(t, TokenACK, writes[len(writes)-1])

	assert.True(t, res.Partial)
	assert.False(t, res.Valid())
	require.ErrorIs(t, res.Err(), ErrCountMismatch)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, StripSequenceFields(rows[:2]), res.Rows)
	assert.NotEmpty(t, res.Rows)
	assert.Equal(t, uint64(1), s.Metrics().PartialAcceptCount.Load())
}

func TestCollectRepetition_MaxAttemptsOne(t *testing.T) {
	rows := sampleRows("wave", 3)
	s, port, _ := newTestSession(t, dataBlock(rows, CountMarker(4)), WithMaxAttempts(1))

	res, err := s.collectRepetition(context.Background(), testGesture(3), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{TokenACK}, port.Writes())
	assert.True(t, res.Partial)
	assert.Equal(t, 4, res.Reported)
}

func TestCollectRepetition_DataTimeoutEndsBlock(t *testing.T) {
	rows := sampleRows("wave", 3)
	// Neither DATA_END nor COUNT arrives: both line timeouts are absorbed.
	transcript := MarkerDataStart + "\n" + rows[0] + "\n" + rows[1] + "\n"
	s, port, _ := newTestSession(t, transcript, WithMaxAttempts(1))

	res, err := s.collectRepetition(context.Background(), testGesture(3), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{TokenACK}, port.Writes())
	assert.Equal(t, 2, res.Actual)
	assert.Equal(t, NoCount, res.Reported)
	assert.True(t, res.Partial)
}

func TestCollectRepetition_MalformedRowsPassThrough(t *testing.T) {
	rows := []string{"0;1;2;3;wave", "1;2;3;wave", "2;3;4;5;wave"}
	s, _, _ := newTestSession(t, dataBlock(rows, CountMarker(3)))

	res, err := s.collectRepetition(context.Background(), testGesture(3), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1;2;3;wave", "1;2;3;wave", "3;4;5;wave"}, res.Rows)
}

func TestCollectRepetition_DataMarkerTimeout(t *testing.T) {
	s, port, _ := newTestSession(t, "no data here\n")

	_, err := s.collectRepetition(context.Background(), testGesture(3), 2)
	require.ErrorIs(t, err, ErrMarkerTimeout)
	assert.Contains(t, err.Error(), "rep 2 AWAIT_DATA")
	assert.Empty(t, port.Writes())
}

func TestCollectRepetition_RetransmissionTimeout(t *testing.T) {
	rows := sampleRows("wave", 3)
	// Device never retransmits after the NACK.
	s, port, _ := newTestSession(t, dataBlock(rows[:1], CountMarker(1)))

	_, err := s.collectRepetition(context.Background(), testGesture(3), 1)
	require.ErrorIs(t, err, ErrMarkerTimeout)
	assert.Equal(t, []string{TokenNACK}, port.Writes())
}

func TestRepState_String(t *testing.T) {
	assert.Equal(t, "AWAIT_DATA", repAwaitData.String())
	assert.Equal(t, "COLLECTING", repCollecting.String())
	assert.Equal(t, "AWAIT_COUNT", repAwaitCount.String())
	assert.Equal(t, "VERIFY", repVerify.String())
	assert.Equal(t, "ACK_SUCCESS", repAckSuccess.String())
	assert.Equal(t, "NACK_RETRY", repNackRetry.String())
	assert.Equal(t, "ACK_PARTIAL", repAckPartial.String())
	assert.Equal(t, "repState(99)", repState(99).String())
}
