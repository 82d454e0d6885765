package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/arloliu/go-gesture/capture"
)

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
)

// consoleReporter prints capture progress for the operator.
type consoleReporter struct {
	out io.Writer

	title   lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	box     lipgloss.Style
}

var _ capture.Reporter = (*consoleReporter)(nil)

func newConsoleReporter(out io.Writer) *consoleReporter {
	r := lipgloss.NewRenderer(out)

	return &consoleReporter{
		out:     out,
		title:   r.NewStyle().Bold(true).Foreground(primaryColor),
		label:   r.NewStyle().Foreground(mutedColor).Width(22),
		success: r.NewStyle().Foreground(successColor),
		warning: r.NewStyle().Foreground(warningColor),
		failure: r.NewStyle().Bold(true).Foreground(errorColor),
		muted:   r.NewStyle().Foreground(mutedColor),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1),
	}
}

func (r *consoleReporter) field(label string, value any) string {
	return r.label.Render(label) + fmt.Sprint(value)
}

// SessionConfigured prints the pre-capture summary.
func (r *consoleReporter) SessionConfigured(cfg *capture.SessionConfig) {
	gestures := cfg.Gestures()
	names := strings.Join(gestures, ", ")
	if names == "" {
		names = "(none)"
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		r.title.Render("Capture configuration"),
		r.field("Gestures:", names),
		r.field("Repetitions:", cfg.Repetitions()),
		r.field("Samples/repetition:", cfg.Samples()),
		r.field("Total samples:", cfg.TotalSamples()),
	)
	fmt.Fprintln(r.out, r.box.Render(body))
}

func (r *consoleReporter) GestureStarted(g capture.GestureInfo) {
	fmt.Fprintln(r.out, r.title.Render(fmt.Sprintf("Recording %s", g.Name)))
}

func (r *consoleReporter) RetryRequested(g capture.GestureInfo, res *capture.RepetitionResult) {
	fmt.Fprintln(r.out, r.warning.Render(fmt.Sprintf(
		"  rep %d/%d: count mismatch (expected %d, received %d, reported %s), requesting resend",
		res.Rep, g.Repetitions, res.Expected, res.Actual, reportedString(res.Reported))))
}

func (r *consoleReporter) RepetitionCompleted(g capture.GestureInfo, res *capture.RepetitionResult) {
	if res.Partial {
		fmt.Fprintln(r.out, r.warning.Render(fmt.Sprintf(
			"  rep %d/%d: accepted %d/%d samples after %d attempts",
			res.Rep, g.Repetitions, res.Actual, res.Expected, res.Attempts)))
		return
	}
	fmt.Fprintln(r.out, r.success.Render(fmt.Sprintf("  rep %d/%d: %d samples", res.Rep, g.Repetitions, res.Actual)))
}

func (r *consoleReporter) GestureCompleted(g capture.GestureInfo, samples int) {
	fmt.Fprintln(r.out, r.muted.Render(fmt.Sprintf("  %s done, %d samples saved", g.Name, samples)))
}

// SessionCompleted prints the final summary.
func (r *consoleReporter) SessionCompleted(sum *capture.Summary) {
	lines := []string{
		r.title.Render("Capture complete"),
		r.field("Samples saved:", sum.TotalSamples),
		r.field("Expected:", sum.Config.TotalSamples()),
		r.field("Retries:", sum.Retries),
		r.field("Partial accepts:", sum.PartialAccepts),
		r.field("Duration:", sum.Duration.Round(time.Millisecond)),
	}
	for _, g := range sum.Gestures {
		lines = append(lines, r.field("  "+g.Name+":",
			fmt.Sprintf("%d/%d", g.Samples, sum.Config.SamplesPerGesture())))
	}
	fmt.Fprintln(r.out, r.box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

// Failed prints a capture failure, with a reset hint for protocol timeouts.
func (r *consoleReporter) Failed(err error) {
	fmt.Fprintln(r.out, r.failure.Render("Capture failed: ")+err.Error())
	if errors.Is(err, capture.ErrMarkerTimeout) {
		fmt.Fprintln(r.out, r.muted.Render("Hint: reset the device and run gesturecap again."))
	}
}

// traceLine prints a raw line received from the device.
func (r *consoleReporter) traceLine(line string, matched bool) {
	mark := "."
	if matched {
		mark = "*"
	}
	fmt.Fprintln(r.out, r.muted.Render(fmt.Sprintf("  %s %q", mark, line)))
}

func reportedString(n int) string {
	if n == capture.NoCount {
		return "none"
	}

	return fmt.Sprint(n)
}
