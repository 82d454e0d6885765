package capture

import "context"

// GestureInfo identifies the gesture being captured.
type GestureInfo struct {
	Name string
	// Index is the zero-based position of the gesture in the session.
	Index int
	// Total is the number of gestures in the session.
	Total       int
	Repetitions int
	Samples     int
}

// Prompter asks the operator for the go-ahead before a gesture starts.
type Prompter interface {
	// Prompt blocks until the operator is ready to perform gesture g.
	// A non-nil error aborts the session.
	Prompt(ctx context.Context, g GestureInfo) error
}

// NopPrompter starts every gesture immediately.
type NopPrompter struct{}

// Prompt returns immediately.
func (NopPrompter) Prompt(context.Context, GestureInfo) error { return nil }

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, g GestureInfo) error

// Prompt calls f(ctx, g).
func (f PrompterFunc) Prompt(ctx context.Context, g GestureInfo) error { return f(ctx, g) }

// Reporter receives progress notifications. Calls are made synchronously on
// the session goroutine and must not block.
type Reporter interface {
	SessionConfigured(cfg *SessionConfig)
	GestureStarted(g GestureInfo)
	RetryRequested(g GestureInfo, res *RepetitionResult)
	RepetitionCompleted(g GestureInfo, res *RepetitionResult)
	GestureCompleted(g GestureInfo, samples int)
	SessionCompleted(sum *Summary)
}

// NopReporter discards all progress notifications.
type NopReporter struct{}

func (NopReporter) SessionConfigured(*SessionConfig)                   {}
func (NopReporter) GestureStarted(GestureInfo)                         {}
func (NopReporter) RetryRequested(GestureInfo, *RepetitionResult)      {}
func (NopReporter) RepetitionCompleted(GestureInfo, *RepetitionResult) {}
func (NopReporter) GestureCompleted(GestureInfo, int)                  {}
func (NopReporter) SessionCompleted(*Summary)                          {}
