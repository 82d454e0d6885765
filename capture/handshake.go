package capture

import (
	"context"
	"strings"
	"time"
)

// ParseHandshake reads key:value lines following <<<CONFIG>>> until
// <<<CONFIG_END>>> and builds the SessionConfig.
//
// Each line is split on its first colon; lines without a colon are ignored.
// A line timeout ends the handshake early without error: the pairs received so
// far are used and missing keys take their defaults.
func ParseHandshake(ctx context.Context, r *LineReader, lineTimeout time.Duration) (*SessionConfig, error) {
	raw := make(map[string]string)

	for {
		line, ok, err := r.ReadLine(ctx, lineTimeout)
		if err != nil {
			return nil, err
		}
		if !ok || line == MarkerConfigEnd {
			break
		}

		if key, value, found := strings.Cut(line, ":"); found {
			raw[key] = value
		}
	}

	return NewSessionConfig(raw)
}
