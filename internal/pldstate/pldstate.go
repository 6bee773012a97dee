// Package pldstate implements the PLD orchestrator state machine from
// spec §4.5: Off → Planner → DroneMission → Off. Each state owns an SSH
// session to a remote Docker host, a TCP server for its child module, a
// bounded retry budget, and a wait timer, grounded on the teacher's
// internal/core.Engine adapter/publisher lifecycle (Start/Stop, one
// goroutine per external link) generalized from a fan-in router into a
// sequential state machine.
package pldstate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ivgtz/idrone-platform/internal/models"
	"github.com/ivgtz/idrone-platform/internal/recorder"
	"github.com/ivgtz/idrone-platform/internal/sshexec"
	"github.com/ivgtz/idrone-platform/internal/transport"
	"github.com/ivgtz/idrone-platform/internal/wireproto"
)

// maxRetries bounds transient transport failures per state (§4.5
// "Retry policy").
const maxRetries = 3

// waitTimeout is the per-attempt wait for a child module to connect and
// respond (§4.5 "wait timer (10s)").
const waitTimeout = 10 * time.Second

// statusInterval is the 1Hz status heartbeat cadence (§4.6).
const statusInterval = 1 * time.Second

// Config wires a Machine to its concrete collaborators.
type Config struct {
	ClientEndpoint string
	RecorderDir    string
}

// Machine runs the Off → Planner → DroneMission → Off cycle until the
// client sends COMMAND "FINISH" or the context is cancelled.
type Machine struct {
	cfg Config

	shuttingDown atomic.Bool
	status       atomic.Value // models.PLDStatus

	clientLink            *linkSession
	clientHeartbeatCancel context.CancelFunc
	session               *recorder.Session
	rec                   *recorder.Recorder
}

// New returns a Machine ready to Run.
func New(cfg Config) *Machine {
	m := &Machine{cfg: cfg}
	m.status.Store(models.PLDUnknown)
	return m
}

// Status returns the currently published PLD status.
func (m *Machine) Status() models.PLDStatus {
	return m.status.Load().(models.PLDStatus)
}

func (m *Machine) setStatus(s models.PLDStatus) {
	m.status.Store(s)
}

// Shutdown trips the shutting_down_ flag every async handler must
// observe (§4.5 "Shutdown discipline").
func (m *Machine) Shutdown() {
	m.shuttingDown.Store(true)
	if m.clientHeartbeatCancel != nil {
		m.clientHeartbeatCancel()
	}
	if m.clientLink != nil {
		m.clientLink.server.Close()
	}
}

// Run drives the Off→Planner→DroneMission→Off cycle until shutdown. The
// client link and its 1Hz status heartbeat, once established in runOff,
// stay alive across Planner and DroneMission so missionctl can watch
// status transitions through to the terminal FINISH/ERROR (§4.6).
func (m *Machine) Run(ctx context.Context) error {
	defer func() {
		if m.clientHeartbeatCancel != nil {
			m.clientHeartbeatCancel()
		}
		if m.clientLink != nil {
			m.clientLink.server.Close()
		}
	}()

	for {
		if m.shuttingDown.Load() {
			return nil
		}

		missionCfg, stop, err := m.runOff(ctx)
		if err != nil {
			return fmt.Errorf("off state: %w", err)
		}
		if stop {
			return nil
		}

		paths, ok := m.runPlanner(ctx, missionCfg)
		if !ok {
			continue // back to Off: SSH failure, remote error, or retries exhausted
		}

		m.runDroneMission(ctx, missionCfg, paths)
		// Every DroneMission exit path (FINISH, ERROR, retries exhausted,
		// client FINISH) returns to Off per §4.5.
	}
}

// runOff publishes WAITING_INFO, opens a new recorder session, and waits
// for either a CONFIG_MISSION (returned for the Planner state) or a
// client COMMAND "FINISH" (stop == true).
func (m *Machine) runOff(ctx context.Context) (cfgMission *wireproto.ConfigMissionPayload, stop bool, err error) {
	m.setStatus(models.PLDWaitingInfo)

	session, err := recorder.NewSession(m.cfg.RecorderDir, timeNow())
	if err != nil {
		return nil, false, fmt.Errorf("starting recorder session: %w", err)
	}
	m.session = session
	m.rec = recorder.New(session, "pld")

	if m.clientHeartbeatCancel != nil {
		m.clientHeartbeatCancel()
	}
	if m.clientLink != nil {
		m.clientLink.server.Close()
	}

	link := newLinkSession()
	m.clientLink = link
	if err := link.server.Listen(m.cfg.ClientEndpoint); err != nil {
		return nil, false, fmt.Errorf("listening on client endpoint %s: %w", m.cfg.ClientEndpoint, err)
	}

	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	m.clientHeartbeatCancel = cancelHeartbeat
	go m.publishClientStatus(heartbeatCtx, link)

	for {
		select {
		case <-ctx.Done():
			return nil, true, nil
		case msg := <-link.msgCh:
			switch msg.Tag {
			case wireproto.TagConfigMission:
				return msg.ConfigMission, false, nil
			case wireproto.TagCommand:
				if msg.Command.Command == "FINISH" {
					return nil, true, nil
				}
				m.log("off: discarding unexpected command %q", msg.Command.Command)
			default:
				m.log("off: discarding unexpected message tag %q", msg.Tag)
			}
		case kind := <-link.errCh:
			m.log("off: client link error %s, re-accepting", kind)
			_ = link.server.AcceptNewConnection()
		}
	}
}

// runPlanner connects to the Planner host over SSH, starts its
// container, opens a TCP server, sends the compute request, and waits
// for either an ERROR/FINISH status (returning ok=false, back to Off) or
// a PLANNER_RESPONSE_LIST (returning the per-vehicle paths).
func (m *Machine) runPlanner(ctx context.Context, cfgMission *wireproto.ConfigMissionPayload) (paths []wireproto.PlannerResponsePath, ok bool) {
	m.setStatus(models.PLDPlanningMission)

	compose, sshClient, err := dialCompose(cfgMission.InfoPlanner)
	if err != nil {
		m.log("planner: ssh connectivity test failed: %v", err)
		return nil, false
	}
	defer sshClient.Run("true") // best-effort keepalive no-op; connection closed per-Run call

	if err := compose.StartContainer("planner"); err != nil {
		m.log("planner: starting container: %v", err)
		return nil, false
	}
	defer func() {
		if err := compose.StopContainer("planner"); err != nil {
			m.log("planner: stopping container: %v", err)
		}
	}()

	link, connected := m.connectWithRetry(cfgMission.InfoPlanner.ServerAddress)
	if !connected {
		m.log("planner: exhausted %d connection attempts", maxRetries)
		return nil, false
	}
	defer link.server.Close()

	req := &wireproto.Message{Tag: wireproto.TagPlannerMessage, PlannerMessage: &wireproto.PlannerMessagePayload{
		SignalServerConfig: cfgMission.PlannerConfig,
		DroneData:          cfgMission.DroneData,
	}}
	if err := link.server.Deliver(req); err != nil {
		m.log("planner: sending compute request: %v", err)
		return nil, false
	}

	deadline := time.Now().Add(time.Duration(maxRetries) * waitTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case msg := <-link.msgCh:
			switch msg.Tag {
			case wireproto.TagStatus:
				if msg.Status.TypeStatus == "ERROR" || msg.Status.TypeStatus == "FINISH" {
					m.log("planner: remote reported %s before a response", msg.Status.TypeStatus)
					return nil, false
				}
			case wireproto.TagPlannerResponseList:
				return msg.PlannerResponseList.Items, true
			}
		case kind := <-link.errCh:
			m.log("planner: link error %s", kind)
			return nil, false
		case <-time.After(time.Until(deadline)):
			m.log("planner: timed out waiting for a response")
			return nil, false
		}
	}
}

// runDroneMission connects to the Drone host over SSH, starts its
// container, streams each vehicle's path at 1Hz with START/FINISH
// markers followed by START_ALL, and waits for a terminal Drone status.
func (m *Machine) runDroneMission(ctx context.Context, cfgMission *wireproto.ConfigMissionPayload, paths []wireproto.PlannerResponsePath) {
	m.setStatus(models.PLDExecutingMission)

	compose, sshClient, err := dialCompose(cfgMission.InfoDrone)
	if err != nil {
		m.log("drone: ssh connectivity test failed: %v", err)
		return
	}
	defer sshClient.Run("true")

	if err := compose.StartContainer("drone"); err != nil {
		m.log("drone: starting container: %v", err)
		return
	}
	defer func() {
		if err := compose.StopContainer("drone"); err != nil {
			m.log("drone: stopping container: %v", err)
		}
	}()

	link, connected := m.connectWithRetry(cfgMission.InfoDrone.ServerAddress)
	if !connected {
		m.log("drone: exhausted %d connection attempts", maxRetries)
		return
	}
	defer link.server.Close()

	// The Drone module needs the same num_drones / simulator bootstrap
	// parameters the client handed to Off, so the full config_mission is
	// forwarded once before the waypoint stream starts.
	if err := link.server.Deliver(&wireproto.Message{Tag: wireproto.TagConfigMission, ConfigMission: cfgMission}); err != nil {
		m.log("drone: forwarding config_mission: %v", err)
		return
	}

	go m.streamPaths(link, paths)

	deadline := time.Now().Add(time.Duration(maxRetries) * waitTimeout)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-link.msgCh:
			if msg.Tag != wireproto.TagStatus {
				continue
			}
			switch msg.Status.TypeStatus {
			case "FINISH", "ERROR":
				if msg.Status.TypeStatus == "ERROR" {
					m.log("drone: remote reported ERROR")
					m.setStatus(models.PLDError)
				} else {
					m.setStatus(models.PLDFinish)
				}
				// Deliver the terminal status now: runOff overwrites it with
				// WAITING_INFO before the next 1Hz heartbeat would carry it.
				if m.clientLink != nil {
					_ = m.clientLink.server.Deliver(wireproto.NewStatus(string(m.Status())))
				}
				return
			}
		case kind := <-link.errCh:
			m.log("drone: link error %s", kind)
			return
		case <-time.After(time.Until(deadline)):
			m.log("drone: timed out waiting for completion")
			return
		}
	}
}

// streamPaths sends each vehicle's coordinate sequence at 1Hz with
// START/FINISH block markers, then a final START_ALL marker (§4.5).
// A single-coordinate path is left as-is: duplicating it is a
// drone-engine invariant now (§9), not a PLD-side responsibility.
func (m *Machine) streamPaths(link *linkSession, paths []wireproto.PlannerResponsePath) {
	limiter := rate.NewLimiter(rate.Every(statusInterval), 1)
	for _, p := range paths {
		n := len(p.Lat)
		for j := 0; j < n; j++ {
			typeCommand := ""
			if j == 0 {
				typeCommand = "START"
			}
			if j == n-1 {
				typeCommand = "FINISH"
			}
			msg := wireproto.NewDroneCommand(typeCommand, wireproto.DroneCommandMission{
				Position: models.Coordinate{Lat: p.Lat[j], Lon: p.Lon[j]},
			})
			if err := link.server.Deliver(msg); err != nil {
				m.log("drone: streaming coordinate: %v", err)
				return
			}
			_ = limiter.Wait(context.Background())
		}
	}
	_ = link.server.Deliver(wireproto.NewDroneCommand("START_ALL", wireproto.DroneCommandMission{}))
}

// publishClientStatus sends the 1Hz status heartbeat to the client link
// until heartbeatCtx is cancelled, the PLD-side half of the §4.6 contract
// cmd/drone and cmd/planner already implement for their own links.
func (m *Machine) publishClientStatus(heartbeatCtx context.Context, link *linkSession) {
	limiter := rate.NewLimiter(rate.Every(statusInterval), 1)
	for {
		if err := limiter.Wait(heartbeatCtx); err != nil {
			return
		}
		_ = link.server.Deliver(wireproto.NewStatus(string(m.Status())))
	}
}

// connectWithRetry opens a TCP server on endpoint, retrying up to
// maxRetries times with a fresh server each attempt (§4.5 "the server is
// torn down and re-created between attempts").
func (m *Machine) connectWithRetry(endpoint string) (*linkSession, bool) {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		link := newLinkSession()
		if err := link.server.Listen(endpoint); err != nil {
			m.log("attempt %d/%d: listening on %s: %v", attempt, maxRetries, endpoint, err)
			continue
		}

		select {
		case <-link.connectedCh:
			return link, true
		case <-time.After(waitTimeout):
			link.server.Close()
			m.log("attempt %d/%d: no connection within %s", attempt, maxRetries, waitTimeout)
		}
	}
	return nil, false
}

func (m *Machine) log(format string, args ...any) {
	if m.rec != nil {
		_ = m.rec.Log.WriteLine(fmt.Sprintf(format, args...))
	}
}

// dialCompose tests SSH connectivity to endpoint and returns a
// ComposeManager ready to drive containers there.
func dialCompose(endpoint wireproto.LinkEndpoint) (*sshexec.ComposeManager, *sshexec.Client, error) {
	client, err := sshexec.NewClient(endpoint.SSHUser, endpoint.SSHHost, 22, endpoint.SSHKeyPath, "")
	if err != nil {
		return nil, nil, fmt.Errorf("building ssh client: %w", err)
	}
	if !client.TestConnection() {
		return nil, nil, fmt.Errorf("ssh connectivity test to %s failed", endpoint.SSHHost)
	}
	compose := sshexec.NewComposeManager(client, endpoint.ComposeDir+"/docker-compose.yml")
	return compose, client, nil
}

// linkSession bridges a transport.Server's callback surface into
// channels a sequential state method can select on.
type linkSession struct {
	server       *transport.Server
	msgCh        chan *wireproto.Message
	errCh        chan transport.ErrorKind
	connectedCh  chan struct{}
}

func newLinkSession() *linkSession {
	l := &linkSession{
		msgCh:       make(chan *wireproto.Message, 16),
		errCh:       make(chan transport.ErrorKind, 1),
		connectedCh: make(chan struct{}, 1),
	}
	l.server = transport.New(transport.Handlers{
		OnConnect: func() {
			select {
			case l.connectedCh <- struct{}{}:
			default:
			}
		},
		OnMessage: func(msg *wireproto.Message) {
			select {
			case l.msgCh <- msg:
			default:
			}
		},
		OnError: func(kind transport.ErrorKind, err error) {
			select {
			case l.errCh <- kind:
			default:
			}
		},
	})
	return l
}

var timeNowFunc = time.Now

func timeNow() time.Time { return timeNowFunc() }
