package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewSessionCreatesDirectory(t *testing.T) {
	base := t.TempDir()

	sess, err := NewSession(base, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if _, err := os.Stat(sess.Dir); err != nil {
		t.Fatalf("session directory missing: %v", err)
	}
	if !strings.HasPrefix(sess.ID, "20240301_103000_") {
		t.Errorf("session ID = %q, want prefix 20240301_103000_", sess.ID)
	}
}

func TestLogSinkLazyOpenAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "module.log")
	sink := NewLogSink(path)

	if _, err := os.Stat(path); err == nil {
		t.Fatal("log file should not exist before first write")
	}

	if err := sink.WriteLine("first"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if err := sink.WriteLine("second"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	sink.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if got := string(data); got != "first\nsecond\n" {
		t.Errorf("log contents = %q, want \"first\\nsecond\\n\"", got)
	}
}

func TestJSONArraySinkFraming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	sink := NewJSONArraySink(path)

	if err := sink.Write(map[string]string{"a": "1"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Write(map[string]string{"a": "2"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading JSON sink file: %v", err)
	}
	got := string(data)
	if !strings.HasPrefix(got, "[\n") {
		t.Errorf("expected file to start with \"[\\n\", got %q", got)
	}
	if !strings.HasSuffix(got, "{}\n]\n") {
		t.Errorf("expected file to end with \"{}\\n]\\n\", got %q", got)
	}
}

func TestCSVSinkHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.csv")
	sink := NewCoverageSink(path)

	if err := WriteCoveragePoint(sink, 1.123456789, 2.987654321, -75.5); err != nil {
		t.Fatalf("WriteCoveragePoint: %v", err)
	}
	sink.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading CSV sink file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "lat,lon,coverage" {
		t.Errorf("header = %q, want lat,lon,coverage", lines[0])
	}
	if lines[1] != "1.123457,2.987654,-75.500000" {
		t.Errorf("row = %q, want 6-decimal formatted coordinates", lines[1])
	}
}

func TestRecorderCloseIsIdempotentAndSafeUnopened(t *testing.T) {
	sess, err := NewSession(t.TempDir(), time.Now())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	rec := New(sess, "drone-0")

	if err := rec.Close(); err != nil {
		t.Fatalf("Close on never-written recorder should not error: %v", err)
	}
}
