package droneengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"

	"github.com/ivgtz/idrone-platform/internal/models"
)

// missionUploadTimeout bounds how long UploadMission waits for the
// autopilot to finish requesting every item and send MISSION_ACK.
const missionUploadTimeout = 30 * time.Second

// ProgressEvent reports mission progress, mirroring the autopilot
// library's "subscribe_progress" callback from spec §1.
type ProgressEvent struct {
	CurrentWaypoint int
	Finished        bool
}

// AutopilotClient is the capability bundle spec §1 calls out as an
// out-of-scope external collaborator: "upload_mission / arm /
// set_takeoff_altitude / takeoff / start_mission / pause_mission /
// return_to_launch / subscribe_progress / telemetry queries". The engine
// depends only on this interface so it can be driven by a fake in tests.
type AutopilotClient interface {
	Connect(ctx context.Context, connectionURL string) error
	HealthAllOK() bool
	Telemetry() models.TelemetrySnapshot
	UploadMission(items []models.MissionItem) error
	Arm() error
	SetTakeoffAltitude(metres float64) error
	Takeoff() error
	StartMission() error
	PauseMission() error
	ReturnToLaunch() error
	Disarm() error
	Armed() bool
	SubscribeProgress() <-chan ProgressEvent
	Close() error
}

// GomavlibClient is the AutopilotClient backed by a real gomavlib node
// talking to one autopilot instance, the same dependency the teacher's
// MAVLink adapter drives.
type GomavlibClient struct {
	vehicleID      string
	node           *gomavlib.Node
	progress       chan ProgressEvent
	telemetry      models.TelemetrySnapshot
	armed          bool
	remoteSystemID uint8

	missionMu   sync.Mutex
	uploading   bool
	waypoints   []models.MissionItem
	uploadError chan error
}

// NewGomavlibClient returns an unconnected client for vehicleID.
func NewGomavlibClient(vehicleID string) *GomavlibClient {
	return &GomavlibClient{
		vehicleID:      vehicleID,
		progress:       make(chan ProgressEvent, 16),
		telemetry:      *models.NewTelemetrySnapshot(vehicleID, time.Now().UnixMilli()),
		remoteSystemID: 1,
	}
}

// Connect dials the autopilot over TCP and starts the telemetry receive
// loop. connectionURL is a "host:port" pair, the same EndpointTCPServer
// shape the teacher's adapter uses for a simulated autopilot.
func (c *GomavlibClient) Connect(ctx context.Context, connectionURL string) error {
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints: []gomavlib.EndpointConf{
			gomavlib.EndpointTCPClient{Address: connectionURL},
		},
		Dialect:     ardupilotmega.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: 254,
	})
	if err != nil {
		return fmt.Errorf("connecting to autopilot %s: %w", connectionURL, err)
	}
	c.node = node

	go c.receiveLoop(ctx)
	return nil
}

func (c *GomavlibClient) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.node.Events():
			if !ok {
				return
			}
			frm, ok := evt.(*gomavlib.EventFrame)
			if !ok {
				continue
			}
			c.handleFrame(frm)
		}
	}
}

func (c *GomavlibClient) handleFrame(frm *gomavlib.EventFrame) {
	c.telemetry.TimestampUnixMS = time.Now().UnixMilli()

	switch msg := frm.Frame.GetMessage().(type) {
	case *ardupilotmega.MessageHeartbeat:
		c.remoteSystemID = frm.SystemID()
		c.armed = (msg.BaseMode & ardupilotmega.MAV_MODE_FLAG_SAFETY_ARMED) != 0
		c.telemetry.Armed = c.armed
	case *ardupilotmega.MessageGlobalPositionInt:
		c.telemetry.Position.Lat = float64(msg.Lat) / 1e7
		c.telemetry.Position.Lon = float64(msg.Lon) / 1e7
		c.telemetry.RelativeAltitudeM = float64(msg.RelativeAlt) / 1000.0
		c.telemetry.VelocityNorthMS = float64(msg.Vx) / 100.0
		c.telemetry.VelocityEastMS = float64(msg.Vy) / 100.0
		c.telemetry.VelocityDownMS = float64(msg.Vz) / 100.0
	case *ardupilotmega.MessageAttitude:
		c.telemetry.YawDeg = normalizeYaw(float64(msg.Yaw))
	case *ardupilotmega.MessageSysStatus:
		if msg.BatteryRemaining >= 0 && msg.BatteryRemaining <= 100 {
			c.telemetry.BatteryPercent = int(msg.BatteryRemaining)
		}
	case *ardupilotmega.MessageMissionCurrent:
		select {
		case c.progress <- ProgressEvent{CurrentWaypoint: int(msg.Seq)}:
		default:
		}
	case *ardupilotmega.MessageMissionItemReached:
		select {
		case c.progress <- ProgressEvent{CurrentWaypoint: int(msg.Seq)}:
		default:
		}
	case *ardupilotmega.MessageMissionRequestInt:
		c.sendMissionItem(int(msg.Seq))
	case *ardupilotmega.MessageMissionRequest:
		c.sendMissionItem(int(msg.Seq))
	case *ardupilotmega.MessageMissionAck:
		c.finishUpload(msg.Type)
	}
}

func normalizeYaw(radians float64) float64 {
	deg := radians * 180.0 / 3.14159265359
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// HealthAllOK reports whether a heartbeat has been received recently
// enough to consider the autopilot healthy.
func (c *GomavlibClient) HealthAllOK() bool {
	return c.node != nil && time.Since(time.UnixMilli(c.telemetry.TimestampUnixMS)) < 5*time.Second
}

// Telemetry returns the latest known telemetry snapshot.
func (c *GomavlibClient) Telemetry() models.TelemetrySnapshot { return c.telemetry }

// Armed reports the latest known arm state.
func (c *GomavlibClient) Armed() bool { return c.armed }

// SubscribeProgress returns the channel mission-progress events are
// pushed to.
func (c *GomavlibClient) SubscribeProgress() <-chan ProgressEvent { return c.progress }

// Arm, SetTakeoffAltitude, Takeoff, StartMission, PauseMission,
// ReturnToLaunch, and Disarm each send the corresponding MAVLink
// COMMAND_LONG and return as soon as it is written; they do not wait for
// a COMMAND_ACK.

// UploadMission runs the MISSION_COUNT / MISSION_REQUEST_INT /
// MISSION_ITEM_INT / MISSION_ACK handshake: it announces how many items
// the plan has, then answers the autopilot's per-item requests as they
// arrive, and blocks until a MISSION_ACK settles the upload or
// missionUploadTimeout elapses. A plan the autopilot rejects (bad frame,
// unsupported command, out-of-range item) surfaces as a returned error
// instead of being silently accepted.
func (c *GomavlibClient) UploadMission(items []models.MissionItem) error {
	if c.node == nil {
		return fmt.Errorf("autopilot client for %s is not connected", c.vehicleID)
	}
	if len(items) == 0 {
		return fmt.Errorf("uploading mission for %s: empty plan", c.vehicleID)
	}
	for i, item := range items {
		if !item.Valid() {
			return fmt.Errorf("uploading mission for %s: item %d fails validation (altitude/speed)", c.vehicleID, i)
		}
	}

	c.missionMu.Lock()
	if c.uploading {
		c.missionMu.Unlock()
		return fmt.Errorf("uploading mission for %s: upload already in progress", c.vehicleID)
	}
	c.uploading = true
	c.waypoints = items
	c.uploadError = make(chan error, 1)
	uploadError := c.uploadError
	c.missionMu.Unlock()

	err := c.node.WriteMessageAll(&ardupilotmega.MessageMissionCount{
		TargetSystem:    c.remoteSystemID,
		TargetComponent: 1,
		Count:           uint16(len(items)),
	})
	if err != nil {
		c.missionMu.Lock()
		c.uploading = false
		c.missionMu.Unlock()
		return fmt.Errorf("uploading mission for %s: sending MISSION_COUNT: %w", c.vehicleID, err)
	}

	select {
	case err := <-uploadError:
		return err
	case <-time.After(missionUploadTimeout):
		c.missionMu.Lock()
		c.uploading = false
		c.missionMu.Unlock()
		return fmt.Errorf("uploading mission for %s: timed out waiting for MISSION_ACK", c.vehicleID)
	}
}

// sendMissionItem answers one MISSION_REQUEST/MISSION_REQUEST_INT by
// writing the matching MISSION_ITEM_INT, or fails the pending upload if
// seq is out of range or the write itself fails.
func (c *GomavlibClient) sendMissionItem(seq int) {
	c.missionMu.Lock()
	if !c.uploading || seq < 0 || seq >= len(c.waypoints) {
		uploading := c.uploading
		uploadError := c.uploadError
		c.uploading = false
		c.missionMu.Unlock()
		if uploading {
			uploadError <- fmt.Errorf("uploading mission for %s: autopilot requested out-of-range waypoint %d", c.vehicleID, seq)
		}
		return
	}
	item := c.waypoints[seq]
	uploadError := c.uploadError
	c.missionMu.Unlock()

	err := c.node.WriteMessageAll(&ardupilotmega.MessageMissionItemInt{
		TargetSystem:    c.remoteSystemID,
		TargetComponent: 1,
		Seq:             uint16(seq),
		Frame:           ardupilotmega.MAV_FRAME_GLOBAL_RELATIVE_ALT,
		Command:         ardupilotmega.MAV_CMD_NAV_WAYPOINT,
		Current:         0,
		Autocontinue:    1,
		Param2:          flyThroughRadius(item.FlyThrough),
		X:               int32(item.Position.Lat * 1e7),
		Y:               int32(item.Position.Lon * 1e7),
		Z:               float32(item.RelativeAltitudeM),
	})
	if err != nil {
		c.missionMu.Lock()
		c.uploading = false
		c.missionMu.Unlock()
		uploadError <- fmt.Errorf("uploading mission for %s: sending waypoint %d: %w", c.vehicleID, seq, err)
	}
}

// finishUpload resolves a pending UploadMission call once MISSION_ACK
// arrives: accepted settles it successfully, anything else is a rejected
// plan and is reported as an error.
func (c *GomavlibClient) finishUpload(ackType ardupilotmega.MAV_MISSION_RESULT) {
	c.missionMu.Lock()
	if !c.uploading {
		c.missionMu.Unlock()
		return
	}
	c.uploading = false
	uploadError := c.uploadError
	c.missionMu.Unlock()

	if ackType == ardupilotmega.MAV_MISSION_ACCEPTED {
		uploadError <- nil
		return
	}
	uploadError <- fmt.Errorf("uploading mission for %s: autopilot rejected plan (%v)", c.vehicleID, ackType)
}

// flyThroughRadius maps the spec's fly_through flag onto MISSION_ITEM_INT's
// acceptance-radius parameter: a wide radius lets the autopilot round the
// corner without stopping, a tight one forces it to hit the point.
func flyThroughRadius(flyThrough bool) float32 {
	if flyThrough {
		return 10
	}
	return 1
}

func (c *GomavlibClient) Arm() error {
	return c.sendCommand(ardupilotmega.MAV_CMD_COMPONENT_ARM_DISARM, 1)
}

func (c *GomavlibClient) Disarm() error {
	return c.sendCommand(ardupilotmega.MAV_CMD_COMPONENT_ARM_DISARM, 0)
}

func (c *GomavlibClient) SetTakeoffAltitude(metres float64) error {
	return c.sendCommand(ardupilotmega.MAV_CMD_NAV_TAKEOFF, float32(metres))
}

func (c *GomavlibClient) Takeoff() error {
	return c.sendCommand(ardupilotmega.MAV_CMD_NAV_TAKEOFF, 0)
}

func (c *GomavlibClient) StartMission() error {
	return c.sendCommand(ardupilotmega.MAV_CMD_MISSION_START, 0)
}

func (c *GomavlibClient) PauseMission() error {
	return c.sendCommand(ardupilotmega.MAV_CMD_DO_PAUSE_CONTINUE, 0)
}

func (c *GomavlibClient) ReturnToLaunch() error {
	return c.sendCommand(ardupilotmega.MAV_CMD_NAV_RETURN_TO_LAUNCH, 0)
}

func (c *GomavlibClient) sendCommand(cmd ardupilotmega.MAV_CMD, param1 float32) error {
	if c.node == nil {
		return fmt.Errorf("autopilot client for %s is not connected", c.vehicleID)
	}
	return c.node.WriteMessageAll(&ardupilotmega.MessageCommandLong{
		Command: cmd,
		Param1:  param1,
	})
}

// Close releases the underlying MAVLink node.
func (c *GomavlibClient) Close() error {
	if c.node != nil {
		c.node.Close()
	}
	return nil
}
