package droneengine

import (
	"context"
	"sync"
	"time"

	"github.com/ivgtz/idrone-platform/internal/models"
)

// fakeAutopilotClient is a scripted AutopilotClient for exercising the
// engine's state machine without a real MAVLink endpoint.
type fakeAutopilotClient struct {
	mu        sync.Mutex
	connected bool
	healthy   bool
	armed     bool
	telemetry models.TelemetrySnapshot
	progress  chan ProgressEvent
	missions  [][]models.MissionItem
	closed    bool
}

func newFakeAutopilotClient() *fakeAutopilotClient {
	return &fakeAutopilotClient{progress: make(chan ProgressEvent, 16)}
}

func (f *fakeAutopilotClient) Connect(ctx context.Context, connectionURL string) error {
	f.mu.Lock()
	f.connected = true
	f.telemetry.TimestampUnixMS = 1
	f.mu.Unlock()
	return nil
}

func (f *fakeAutopilotClient) HealthAllOK() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *fakeAutopilotClient) setHealthy(v bool) {
	f.mu.Lock()
	f.healthy = v
	f.mu.Unlock()
}

func (f *fakeAutopilotClient) Telemetry() models.TelemetrySnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.telemetry
}

func (f *fakeAutopilotClient) setAltitude(v float64) {
	f.mu.Lock()
	f.telemetry.RelativeAltitudeM = v
	f.mu.Unlock()
}

func (f *fakeAutopilotClient) UploadMission(items []models.MissionItem) error {
	f.mu.Lock()
	f.missions = append(f.missions, items)
	f.mu.Unlock()
	return nil
}

func (f *fakeAutopilotClient) Arm() error {
	f.mu.Lock()
	f.armed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeAutopilotClient) SetTakeoffAltitude(metres float64) error { return nil }

func (f *fakeAutopilotClient) Takeoff() error {
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.setAltitude(100)
	}()
	return nil
}

func (f *fakeAutopilotClient) StartMission() error { return nil }

func (f *fakeAutopilotClient) PauseMission() error { return nil }

func (f *fakeAutopilotClient) ReturnToLaunch() error {
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.mu.Lock()
		f.armed = false
		f.mu.Unlock()
	}()
	return nil
}

func (f *fakeAutopilotClient) Disarm() error {
	f.mu.Lock()
	f.armed = false
	f.mu.Unlock()
	return nil
}

func (f *fakeAutopilotClient) Armed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed
}

func (f *fakeAutopilotClient) SubscribeProgress() <-chan ProgressEvent { return f.progress }

func (f *fakeAutopilotClient) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeAutopilotClient) emit(evt ProgressEvent) { f.progress <- evt }
