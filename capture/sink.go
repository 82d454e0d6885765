package capture

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Sink persists verified sample rows.
//
// WriteHeader is called once, before any rows, and starts a fresh output.
// AppendRows is called once per accepted repetition and must make the rows
// durable before returning so that a later failure does not lose them.
type Sink interface {
	WriteHeader(header string) error
	AppendRows(rows []string) error
	Close() error
}

// FileSink writes the header and rows as newline-terminated lines to a file.
type FileSink struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

var _ Sink = (*FileSink)(nil)

// NewFileSink creates a sink writing to path. The file is not touched until
// WriteHeader is called.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the output file path.
func (s *FileSink) Path() string { return s.path }

// WriteHeader creates the parent directories, truncates the file and writes header.
func (s *FileSink) WriteHeader(header string) error {
	if s.f != nil {
		return errors.New("capture: output header already written")
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: create output directory: %w", err)
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("capture: create output: %w", err)
	}
	s.f = f
	s.w = bufio.NewWriter(f)

	return s.AppendRows([]string{header})
}

// AppendRows writes rows and syncs the file.
func (s *FileSink) AppendRows(rows []string) error {
	if s.f == nil {
		return errors.New("capture: output header not written")
	}

	for _, row := range rows {
		if _, err := s.w.WriteString(row); err != nil {
			return fmt.Errorf("capture: write output: %w", err)
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return fmt.Errorf("capture: write output: %w", err)
		}
	}

	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("capture: flush output: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("capture: sync output: %w", err)
	}

	return nil
}

// Close closes the output file. It is safe to call on a sink that never wrote.
func (s *FileSink) Close() error {
	if s.f == nil {
		return nil
	}

	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	s.f = nil

	return errors.Join(flushErr, closeErr)
}
