package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// CSVSink appends rows to a session-scoped CSV file, writing header on
// first write.
type CSVSink struct {
	path   string
	header []string

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	opened bool
}

// NewCSVSink returns a sink bound to path with the given header row.
func NewCSVSink(path string, header []string) *CSVSink {
	return &CSVSink{path: path, header: header}
}

// WriteRow appends a single row and flushes it to disk.
func (s *CSVSink) WriteRow(row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}

	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("writing CSV row to %s: %w", s.path, err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flushing CSV sink %s: %w", s.path, err)
	}
	return s.file.Sync()
}

func (s *CSVSink) ensureOpen() error {
	if s.opened {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening CSV sink %s: %w", s.path, err)
	}
	w := csv.NewWriter(f)
	if len(s.header) > 0 {
		if err := w.Write(s.header); err != nil {
			f.Close()
			return fmt.Errorf("writing CSV header for %s: %w", s.path, err)
		}
		w.Flush()
	}
	s.file = f
	s.writer = w
	s.opened = true
	return nil
}

// Close releases the underlying file handle.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}
	if s.writer != nil {
		s.writer.Flush()
	}
	err := s.file.Close()
	s.opened = false
	return err
}
