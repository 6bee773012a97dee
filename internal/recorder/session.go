// Package recorder implements the append-only, session-scoped sinks
// described in spec.md §2 and §6.6: a plain-text log sink, a JSON-array
// sink, a CSV sink, and a structured-event sink built on top of it. Every
// sink is opened lazily on first write and guarded by its own mutex,
// mirroring the single ring-buffer-plus-mutex shape of the teacher's
// internal/core/logger package, generalized here into independent
// file-backed sinks per spec's "one mutex per sink" resource rule.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionIDLayout is the "%Y%m%d_%H%M%S" part of a session ID; NewSession
// appends "_<microseconds>".
const SessionIDLayout = "20060102_150405"

// Session identifies one PLD Off-state-entry-to-next-Off-state-entry
// recorder session and owns the directory its sinks are written into.
type Session struct {
	ID  string
	Dir string
}

// NewSession creates a session directory under baseDir named with the
// boot-timestamp ID convention.
func NewSession(baseDir string, now time.Time) (*Session, error) {
	id := fmt.Sprintf("%s_%06d", now.Format(SessionIDLayout), now.Nanosecond()/1000)
	dir := filepath.Join(baseDir, id)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory %s: %w", dir, err)
	}

	return &Session{ID: id, Dir: dir}, nil
}

// Path joins the session directory with a sink-relative file name.
func (s *Session) Path(name string) string {
	return filepath.Join(s.Dir, name)
}
