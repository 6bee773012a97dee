package droneengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ivgtz/idrone-platform/internal/models"
	"github.com/ivgtz/idrone-platform/internal/procguard"
	"github.com/ivgtz/idrone-platform/internal/recorder"
)

// pollInterval is the cadence used by every "spin until condition" step
// in the execute-mission sequence (health gate, altitude gate, disarm
// gate).
const pollInterval = 1 * time.Second

// wantToPausePollCount is the legacy "pause once the 2nd waypoint is
// reached" trigger from an earlier single-drone revision (§9 open
// question); kept behind Config.AllowPause rather than removed.
const wantToPausePollCount = 2

// wantToPauseDuration is the fixed pause length from the same legacy path.
const wantToPauseDuration = 5 * time.Second

// Config is everything one Engine needs to run a single vehicle's
// mission, assembled by cmd/drone's buildFleet from the PLD's
// DroneSimConfig and config.DroneConfig.
type Config struct {
	VehicleID         string
	ConnectionURL     string
	Autostart         bool
	SpawnCommand      string
	SpawnEnv          []string
	PIDRegistryPath   string
	ConnectTimeout    time.Duration // spec §4.3: 220s wait for first autopilot
	HealthGateTimeout time.Duration // §9 redesign: bounded health gate; <=0 means unbounded
	TakeoffAltitudeM  float64
	AllowPause        bool // §9 open question: make want_to_pause configurable
}

// Engine drives one vehicle through the state machine in spec §4.3. It
// is owned by a MultiDroneSupervisor for the lifetime of one mission.
type Engine struct {
	cfg      Config
	client   AutopilotClient
	mailbox  *Mailbox
	latch    *ReleaseLatch
	rec      *recorder.Recorder
	registry *procguard.Registry

	onComplete func(vehicleID string)
	onError    func(vehicleID string, err error)

	mu    sync.Mutex
	state State
}

// NewEngine returns an Engine ready to run. onComplete/onError are the
// supervisor's aggregation hooks (§4.4).
func NewEngine(cfg Config, client AutopilotClient, latch *ReleaseLatch, rec *recorder.Recorder, onComplete func(string), onError func(string, error)) *Engine {
	return &Engine{
		cfg:        cfg,
		client:     client,
		mailbox:    NewMailbox(),
		latch:      latch,
		rec:        rec,
		registry:   procguard.NewRegistry(cfg.PIDRegistryPath),
		onComplete: onComplete,
		onError:    onError,
		state:      StateIdle,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	if e.rec != nil {
		_ = e.rec.Events.Record("state_transition", map[string]string{"vehicle_id": e.cfg.VehicleID, "state": string(s)})
	}
}

// SubmitCommand buffers one waypoint command arriving from the
// supervisor's dispatch_command (§4.4). Returns false if the mailbox was
// already sealed (engine ignoring late messages, §4.3 "Buffering").
func (e *Engine) SubmitCommand(cmd Command) bool {
	return e.mailbox.Push(cmd)
}

// PendingCommands returns a snapshot of commands buffered so far, mainly
// for supervisor-level dispatch tests.
func (e *Engine) PendingCommands() []Command {
	return e.mailbox.Items()
}

// MailboxSealed reports whether this engine's mailbox has been sealed
// (via a buffered FINISH or a MarkCommandsReady call).
func (e *Engine) MailboxSealed() bool {
	select {
	case <-e.mailbox.Ready():
		return true
	default:
		return false
	}
}

// MarkCommandsReady is the START_ALL-triggered entry point for sealing
// the mailbox without a trailing FINISH item (§9 open question: "Preserve
// both entry points; only one will fire first per run.").
func (e *Engine) MarkCommandsReady() {
	e.mailbox.MarkReady()
}

// Run executes the full per-vehicle lifecycle and blocks until the
// mission completes, fails, or ctx is cancelled. It is meant to be
// called on its own worker goroutine, one per vehicle (§5).
func (e *Engine) Run(ctx context.Context) error {
	if err := e.spawn(); err != nil {
		return e.fail(err)
	}
	if err := e.connect(ctx); err != nil {
		return e.fail(err)
	}
	if err := e.awaitHealthy(ctx); err != nil {
		return e.fail(err)
	}

	items, degenerate, err := e.bufferMission(ctx)
	if err != nil {
		return e.fail(err)
	}
	if degenerate {
		e.log("degenerate mission (single point): completing without flight")
		e.setState(StateDisarmed)
		e.complete()
		return nil
	}

	if err := e.executeMission(ctx, items); err != nil {
		return e.fail(err)
	}

	e.setState(StateDisarmed)
	e.complete()
	return nil
}

func (e *Engine) spawn() error {
	e.setState(StateSpawning)
	if !e.cfg.Autostart {
		return nil
	}

	pid, err := procguard.Spawn(e.cfg.VehicleID, e.cfg.SpawnCommand, e.cfg.SpawnEnv)
	if err != nil {
		return fmt.Errorf("spawning simulator for %s: %w", e.cfg.VehicleID, err)
	}
	if err := e.registry.Record(e.cfg.VehicleID, pid); err != nil {
		e.log(fmt.Sprintf("recording simulator pid: %v", err))
	}
	time.Sleep(2 * time.Second)
	return nil
}

func (e *Engine) connect(ctx context.Context) error {
	e.setState(StateConnecting)

	if err := e.client.Connect(ctx, e.cfg.ConnectionURL); err != nil {
		return fmt.Errorf("connecting to autopilot for %s: %w", e.cfg.VehicleID, err)
	}

	deadline := timeDeadline(e.cfg.ConnectTimeout, 220*time.Second)
	for {
		if e.client.Telemetry().TimestampUnixMS != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for first autopilot contact for %s", e.cfg.VehicleID)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (e *Engine) awaitHealthy(ctx context.Context) error {
	e.setState(StateAwaitingHealthy)
	return e.spinUntilHealthy(ctx)
}

// spinUntilHealthy spins on health_all_ok with a 1s sleep (§4.3). The
// original has no timeout here; this reimplementation bounds it per the
// §9 redesign flag, configurable via Config.HealthGateTimeout (<=0
// disables the bound entirely, restoring the original's infinite spin).
func (e *Engine) spinUntilHealthy(ctx context.Context) error {
	var deadline time.Time
	bounded := e.cfg.HealthGateTimeout > 0
	if bounded {
		deadline = time.Now().Add(e.cfg.HealthGateTimeout)
	}

	limiter := rate.NewLimiter(rate.Every(pollInterval), 1)
	for !e.client.HealthAllOK() {
		if bounded && time.Now().After(deadline) {
			return fmt.Errorf("health gate timed out for %s", e.cfg.VehicleID)
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// bufferMission waits for the mailbox to seal, then maps buffered
// commands into mission items and applies the degenerate-mission
// tolerances from §4.3 step 3 and §9 ("single-coordinate path... engine
// tolerates |path|==1").
func (e *Engine) bufferMission(ctx context.Context) (items []models.MissionItem, degenerate bool, err error) {
	e.setState(StateBufferingMission)

	select {
	case <-e.mailbox.Ready():
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}

	buffered := e.mailbox.Items()
	items = make([]models.MissionItem, 0, len(buffered))
	for _, c := range buffered {
		items = append(items, c.Item.MissionItem())
	}

	if len(items) == 1 {
		items = append(items, items[0])
	}
	if len(items) == 2 && models.SameLocation(items[0], items[1]) {
		return items, true, nil
	}

	e.setState(StateMissionReady)
	return items, false, nil
}

func (e *Engine) executeMission(ctx context.Context, items []models.MissionItem) error {
	if err := e.client.UploadMission(items); err != nil {
		return fmt.Errorf("uploading mission for %s: %w", e.cfg.VehicleID, err)
	}

	if err := e.spinUntilHealthy(ctx); err != nil {
		return err
	}

	e.setState(StateArming)
	if err := e.client.Arm(); err != nil {
		return fmt.Errorf("arming %s: %w", e.cfg.VehicleID, err)
	}
	if err := e.client.SetTakeoffAltitude(e.cfg.TakeoffAltitudeM); err != nil {
		return fmt.Errorf("setting takeoff altitude for %s: %w", e.cfg.VehicleID, err)
	}
	progress := e.client.SubscribeProgress()

	e.setState(StateAwaitingRelease)
	select {
	case <-e.latch.Wait():
	case <-ctx.Done():
		return ctx.Err()
	}

	e.setState(StateTakingOff)
	if err := e.client.Takeoff(); err != nil {
		return fmt.Errorf("taking off %s: %w", e.cfg.VehicleID, err)
	}
	if err := e.awaitTakeoffAltitude(ctx); err != nil {
		return err
	}

	e.setState(StateFlying)
	if err := e.client.StartMission(); err != nil {
		return fmt.Errorf("starting mission for %s: %w", e.cfg.VehicleID, err)
	}
	if err := e.runMissionLoop(ctx, progress, len(items)); err != nil {
		return err
	}

	e.setState(StateRTL)
	if err := e.client.ReturnToLaunch(); err != nil {
		return fmt.Errorf("returning to launch for %s: %w", e.cfg.VehicleID, err)
	}
	time.Sleep(2 * time.Second)
	return e.awaitDisarmed(ctx)
}

func (e *Engine) awaitTakeoffAltitude(ctx context.Context) error {
	target := e.cfg.TakeoffAltitudeM - 0.5
	deadline := time.Now().Add(60 * time.Second)
	for {
		if e.client.Telemetry().RelativeAltitudeM >= target {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for takeoff altitude for %s", e.cfg.VehicleID)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// runMissionLoop consumes progress events until every waypoint has been
// reached. When Config.AllowPause is set, it reproduces the legacy
// single-drone pause-at-2nd-waypoint behavior the multi-drone path
// otherwise removed (§9 open question).
func (e *Engine) runMissionLoop(ctx context.Context, progress <-chan ProgressEvent, waypointCount int) error {
	paused := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-progress:
			if e.rec != nil {
				_ = e.rec.Events.Record("waypoint_reached", map[string]int{"waypoint": evt.CurrentWaypoint})
			}

			if e.cfg.AllowPause && !paused && evt.CurrentWaypoint >= wantToPausePollCount {
				paused = true
				_ = e.client.PauseMission()
				time.Sleep(wantToPauseDuration)
				_ = e.client.StartMission()
			}

			if evt.Finished || evt.CurrentWaypoint >= waypointCount-1 {
				return nil
			}
		}
	}
}

func (e *Engine) awaitDisarmed(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(pollInterval), 1)
	for e.client.Armed() {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup tears down this vehicle's spawned process tree without
// touching other vehicles' entries in the shared registry (§4.3
// "Cleanup", §9 "kill by process group").
func (e *Engine) Cleanup() error {
	_ = e.client.Close()
	if !e.cfg.Autostart {
		return nil
	}
	return procguard.NewCleaner(e.registry).CleanupVehicle(e.cfg.VehicleID)
}

func (e *Engine) complete() {
	if e.onComplete != nil {
		e.onComplete(e.cfg.VehicleID)
	}
}

func (e *Engine) fail(err error) error {
	e.setState(StateError)
	e.log(err.Error())
	if e.onError != nil {
		e.onError(e.cfg.VehicleID, err)
	}
	return err
}

func (e *Engine) log(msg string) {
	if e.rec != nil {
		_ = e.rec.Log.WriteLine(fmt.Sprintf("[%s] %s", e.cfg.VehicleID, msg))
	}
}

func timeDeadline(d, fallback time.Duration) time.Time {
	if d <= 0 {
		d = fallback
	}
	return time.Now().Add(d)
}
