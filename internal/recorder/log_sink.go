package recorder

import (
	"fmt"
	"os"
	"sync"
)

// LogSink appends plain-text lines to a session-scoped file. The file is
// opened on first write and every write is flushed to the OS immediately
// (no internal buffering), matching spec §2's "flush-on-write".
type LogSink struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewLogSink returns a LogSink bound to path; the file is not created
// until the first WriteLine call.
func NewLogSink(path string) *LogSink {
	return &LogSink{path: path}
}

// WriteLine appends a single line (a trailing newline is added if absent).
func (s *LogSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}

	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}

	if _, err := s.file.WriteString(line); err != nil {
		return fmt.Errorf("writing log line to %s: %w", s.path, err)
	}
	return s.file.Sync()
}

func (s *LogSink) ensureOpen() error {
	if s.file != nil {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log sink %s: %w", s.path, err)
	}
	s.file = f
	return nil
}

// Close flushes and releases the underlying file handle, if open.
func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
