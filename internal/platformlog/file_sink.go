package platformlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileSink is an io.Writer that renders each incoming log line into the
// on-disk format from spec §6.6: "DD/MM/YYYYThh:mm:ss  [LEVEL]  message".
// The log package calls Write once per formatted line (it already
// prepends its own date/time via log.Ldate|log.Ltime, which FileSink
// strips and replaces with the spec's own timestamp format).
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (creating dir as needed) a log file named
// <module>_<DDMMYY_HHMM>.log directly inside dir.
func NewFileSink(dir, module string, now time.Time) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s.log", module, now.Format("020106_1504"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return &FileSink{file: f}, nil
}

// Write implements io.Writer. The stdlib log package passes a line that
// already begins with "YYYY/MM/DD HH:MM:SS " (log.Ldate|log.Ltime); this
// strips that and re-renders the spec's own format, preserving the level
// detection the ring buffer already performs via the bracketed prefix.
func (s *FileSink) Write(p []byte) (int, error) {
	line := string(p)
	message := stripStdlibTimestamp(line)

	level, message := detectLevel(message)

	rendered := fmt.Sprintf("%s  [%s]  %s\n", time.Now().Format("02/01/2006T15:04:05"), level, message)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.file.WriteString(rendered)
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}
	return len(p), s.file.Sync()
}

// Close releases the underlying file handle.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func stripStdlibTimestamp(line string) string {
	line = strings.TrimRight(line, "\n")
	// "2006/01/02 15:04:05 rest..." -> "rest..."
	if len(line) > 20 && line[4] == '/' && line[7] == '/' {
		if idx := strings.IndexByte(line[19:], ' '); idx >= 0 {
			return line[19+idx+1:]
		}
	}
	return line
}

func detectLevel(message string) (string, string) {
	level := "INFO"
	switch {
	case containsFold(message, "error"):
		level = "ERROR"
	case containsFold(message, "warn"):
		level = "WARN"
	case containsFold(message, "debug"):
		level = "DEBUG"
	}
	return level, message
}
