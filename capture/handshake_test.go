package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTestHandshake(t *testing.T, transcript string) (*SessionConfig, error) {
	t.Helper()

	s, _, _ := newTestSession(t, transcript)

	return ParseHandshake(context.Background(), s.reader, s.cfg.ConfigLineTimeout())
}

func TestParseHandshake_Full(t *testing.T) {
	cfg, err := parseTestHandshake(t, "gestures:wave,tap,wave\n"+
		"repetitions:2\n"+
		"samples:3\n"+
		"header:seq;X;Y;Z;label\n"+
		"firmware:1.4.2\n"+
		"rate:100Hz\n"+
		MarkerConfigEnd+"\n"+
		MarkerReady+"\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"wave", "tap", "wave"}, cfg.Gestures())
	assert.Equal(t, 2, cfg.Repetitions())
	assert.Equal(t, 3, cfg.Samples())
	assert.Equal(t, "seq;X;Y;Z;label", cfg.Header())
	assert.Equal(t, "X;Y;Z;label", cfg.OutputHeader())
	assert.Equal(t, 6, cfg.SamplesPerGesture())
	assert.Equal(t, 18, cfg.TotalSamples())
	assert.Equal(t, 6, cfg.Keys())

	v, ok := cfg.Value("firmware")
	require.True(t, ok)
	assert.Equal(t, "1.4.2", v)
}

func TestParseHandshake_StopsAtConfigEnd(t *testing.T) {
	s, _, _ := newTestSession(t, "samples:3\n"+MarkerConfigEnd+"\nrepetitions:9\n")

	cfg, err := ParseHandshake(context.Background(), s.reader, s.cfg.ConfigLineTimeout())
	require.NoError(t, err)
	assert.Equal(t, DefaultRepetitions, cfg.Repetitions())

	line, ok, err := s.reader.ReadLine(context.Background(), s.cfg.ConfigLineTimeout())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "repetitions:9", line)
}

func TestParseHandshake_SplitsOnFirstColon(t *testing.T) {
	cfg, err := parseTestHandshake(t, "header:time:x;y;z;label\nno colon here\n"+MarkerConfigEnd+"\n")
	require.NoError(t, err)

	assert.Equal(t, "time:x;y;z;label", cfg.Header())
	assert.Equal(t, 1, cfg.Keys())
}

func TestParseHandshake_TimeoutUsesDefaults(t *testing.T) {
	// No CONFIG_END: the line timeout ends the handshake.
	cfg, err := parseTestHandshake(t, "gestures:circle\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"circle"}, cfg.Gestures())
	assert.Equal(t, DefaultRepetitions, cfg.Repetitions())
	assert.Equal(t, DefaultSamples, cfg.Samples())
	assert.Equal(t, DefaultHeader, cfg.Header())
	assert.Equal(t, DefaultHeader, cfg.OutputHeader())
}

func TestParseHandshake_NoGestures(t *testing.T) {
	cfg, err := parseTestHandshake(t, "gestures:\n"+MarkerConfigEnd+"\n")
	require.NoError(t, err)

	assert.Empty(t, cfg.Gestures())
	assert.Zero(t, cfg.TotalSamples())
}

func TestParseHandshake_InvalidNumbers(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"Not a number", "repetitions:five"},
		{"Zero", "samples:0"},
		{"Negative", "repetitions:-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTestHandshake(t, tt.line+"\n"+MarkerConfigEnd+"\n")
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewSessionConfig_TrimsNumbers(t *testing.T) {
	cfg, err := NewSessionConfig(map[string]string{"repetitions": " 4 ", "samples": "50\t"})
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Repetitions())
	assert.Equal(t, 50, cfg.Samples())
}

func TestSessionConfig_Immutable(t *testing.T) {
	raw := map[string]string{"gestures": "wave,tap"}
	cfg, err := NewSessionConfig(raw)
	require.NoError(t, err)

	gestures := cfg.Gestures()
	gestures[0] = "circle"
	raw["gestures"] = "circle"

	assert.Equal(t, []string{"wave", "tap"}, cfg.Gestures())
	v, _ := cfg.Value("gestures")
	assert.Equal(t, "wave,tap", v)
}
