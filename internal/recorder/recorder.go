package recorder

import (
	"fmt"
	"time"
)

// Recorder aggregates the sinks one module instance writes into over the
// course of a session: an event log, a CSV telemetry trail (the
// PX4_Drone_Recorder supplement from original_source — see SPEC_FULL.md
// §3), and the plain-text module log. Each field is independently
// lockable; Recorder itself adds no locking of its own.
type Recorder struct {
	Session   *Session
	Log       *LogSink
	Events    *EventSink
	Telemetry *CSVSink
}

// New opens a Recorder rooted at session, with module used as the sink
// file-name prefix (e.g. "pld", "planner", "drone-0").
func New(session *Session, module string) *Recorder {
	return &Recorder{
		Session: session,
		Log:     NewLogSink(session.Path(module + ".log")),
		Events:  NewEventSink(session.Path(module+"_events.json"), nowMillis),
		Telemetry: NewCSVSink(
			session.Path(module+"_telemetry.csv"),
			[]string{"timestamp_ms", "lat", "lon", "relative_altitude_m", "battery_percent", "armed"},
		),
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// RecordTelemetry appends one telemetry row.
func (r *Recorder) RecordTelemetry(timestampMS int64, lat, lon, altM float64, batteryPercent int, armed bool) error {
	return r.Telemetry.WriteRow([]string{
		fmt.Sprintf("%d", timestampMS),
		fmt.Sprintf("%.6f", lat),
		fmt.Sprintf("%.6f", lon),
		fmt.Sprintf("%.2f", altM),
		fmt.Sprintf("%d", batteryPercent),
		fmt.Sprintf("%t", armed),
	})
}

// Close flushes and closes every sink. Errors are collected, not stopped
// on first failure, so partial sink failures don't leak the rest.
func (r *Recorder) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(r.Log.Close())
	record(r.Events.Close())
	record(r.Telemetry.Close())

	return firstErr
}
