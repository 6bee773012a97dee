package droneengine

import (
	"context"
	"testing"
	"time"

	"github.com/ivgtz/idrone-platform/internal/models"
	"github.com/ivgtz/idrone-platform/internal/recorder"
)

func newTestRecorder(t *testing.T) *recorder.Recorder {
	t.Helper()
	session, err := recorder.NewSession(t.TempDir(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return recorder.New(session, "drone-test")
}

func TestEngineHappyPathFliesAndCompletes(t *testing.T) {
	client := newFakeAutopilotClient()
	latch := NewReleaseLatch()
	rec := newTestRecorder(t)

	var completedID string
	var failErr error
	e := NewEngine(Config{
		VehicleID:         "vehicle-0",
		ConnectionURL:     "127.0.0.1:0",
		HealthGateTimeout: time.Second,
		TakeoffAltitudeM:  100,
	}, client, latch, rec,
		func(id string) { completedID = id },
		func(id string, err error) { failErr = err },
	)

	e.SubmitCommand(Command{Type: CommandStart, Item: MissionCommand{Position: models.Coordinate{Lat: 0, Lon: 0}, SpeedMS: 5, AltitudeM: 10}})
	e.SubmitCommand(Command{Type: CommandFinish, Item: MissionCommand{Position: models.Coordinate{Lat: 0, Lon: 1}, SpeedMS: 5, AltitudeM: 10}})

	client.setHealthy(true)

	done := make(chan error, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { done <- e.Run(ctx) }()

	// let the engine reach AwaitingRelease before releasing the latch
	time.Sleep(50 * time.Millisecond)
	latch.Release()

	// fire the final progress event once the engine is flying
	time.Sleep(50 * time.Millisecond)
	client.emit(ProgressEvent{CurrentWaypoint: 1, Finished: true})

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if failErr != nil {
		t.Fatalf("unexpected failure callback: %v", failErr)
	}
	if completedID != "vehicle-0" {
		t.Fatalf("expected completion callback for vehicle-0, got %q", completedID)
	}
	if e.State() != StateDisarmed {
		t.Fatalf("expected final state Disarmed, got %s", e.State())
	}
}

func TestEngineDegenerateMissionSkipsFlight(t *testing.T) {
	client := newFakeAutopilotClient()
	latch := NewReleaseLatch()
	rec := newTestRecorder(t)

	completed := false
	e := NewEngine(Config{VehicleID: "vehicle-1", HealthGateTimeout: time.Second}, client, latch, rec,
		func(id string) { completed = true },
		func(id string, err error) { t.Fatalf("unexpected error: %v", err) },
	)

	same := models.Coordinate{Lat: 1, Lon: 2}
	e.SubmitCommand(Command{Type: CommandStart, Item: MissionCommand{Position: same, SpeedMS: 5}})
	e.SubmitCommand(Command{Type: CommandFinish, Item: MissionCommand{Position: same, SpeedMS: 5}})

	client.setHealthy(true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !completed {
		t.Fatal("expected completion callback for a degenerate mission")
	}
	if client.missions != nil {
		t.Fatal("expected no mission upload for a degenerate mission")
	}
}

func TestEngineSingleCoordinateMissionIsTolerated(t *testing.T) {
	client := newFakeAutopilotClient()
	latch := NewReleaseLatch()
	rec := newTestRecorder(t)

	e := NewEngine(Config{VehicleID: "vehicle-2", HealthGateTimeout: time.Second, TakeoffAltitudeM: 10}, client, latch, rec,
		func(id string) {},
		func(id string, err error) { t.Fatalf("unexpected error: %v", err) },
	)

	e.SubmitCommand(Command{Type: CommandFinish, Item: MissionCommand{Position: models.Coordinate{Lat: 5, Lon: 5}, SpeedMS: 5}})
	client.setHealthy(true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// a single duplicated coordinate is the degenerate case too: no flight.
	if client.missions != nil {
		t.Fatal("expected no mission upload for a single-coordinate mission")
	}
}

func TestEngineHealthGateTimesOut(t *testing.T) {
	client := newFakeAutopilotClient()
	latch := NewReleaseLatch()
	rec := newTestRecorder(t)

	var failed bool
	e := NewEngine(Config{VehicleID: "vehicle-3", HealthGateTimeout: 50 * time.Millisecond}, client, latch, rec,
		func(id string) { t.Fatal("should not complete") },
		func(id string, err error) { failed = true },
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Run(ctx); err == nil {
		t.Fatal("expected health gate timeout error")
	}
	if !failed {
		t.Fatal("expected error callback to fire")
	}
	if e.State() != StateError {
		t.Fatalf("expected final state Error, got %s", e.State())
	}
}
