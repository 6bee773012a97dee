package wireproto

import "github.com/ivgtz/idrone-platform/internal/models"

// Tag selects which field of Message is populated. Exactly one should be
// set for any message that round-trips through Encode/Decode.
type Tag string

const (
	TagUnknown             Tag = "UNKNOWN"
	TagStatus              Tag = "STATUS"
	TagConfigMission       Tag = "CONFIG_MISSION"
	TagCommand             Tag = "COMMAND"
	TagPlannerMessage      Tag = "PLANNER_MESSAGE"
	TagPlannerResponseList Tag = "PLANNER_RESPONSE_LIST"
	TagDroneCommand        Tag = "DRONE_COMMAND"
)

// Message is the tagged union carried by every frame (§6.2). json struct
// tags use omitempty so an encoded message contains only its active
// variant, matching the "exactly one present field" framing contract.
type Message struct {
	Tag Tag `json:"tag"`

	Status              *StatusPayload              `json:"status,omitempty"`
	ConfigMission       *ConfigMissionPayload       `json:"config_mission,omitempty"`
	Command             *CommandPayload             `json:"command,omitempty"`
	PlannerMessage      *PlannerMessagePayload      `json:"planner_message,omitempty"`
	PlannerResponseList *PlannerResponseListPayload `json:"planner_response_list,omitempty"`
	DroneCommand        *DroneCommandPayload        `json:"drone_command,omitempty"`
}

// StatusPayload is the 1 Hz heartbeat carried on every link (§6.2).
type StatusPayload struct {
	TypeStatus string `json:"type_status"`
}

// ConfigMissionPayload starts a mission (Client→PLD).
type ConfigMissionPayload struct {
	PlannerConfig models.SignalServerConfig `json:"planner_config"`
	InfoPlanner   LinkEndpoint              `json:"info_planner"`
	InfoDrone     LinkEndpoint              `json:"info_drone"`
	DroneSim      DroneSimConfig            `json:"drone_sim"`
	DroneData     models.DroneData          `json:"drone_data"`
}

// LinkEndpoint names a host the PLD must SSH into and a container endpoint
// it must expose a TCP server on for the corresponding child module.
type LinkEndpoint struct {
	SSHHost       string `json:"ssh_host"`
	SSHUser       string `json:"ssh_user"`
	SSHKeyPath    string `json:"ssh_key_path"`
	ComposeDir    string `json:"compose_dir"`
	ServerAddress string `json:"server_address"`
}

// DroneSimConfig carries the per-vehicle simulator parameters the Drone
// module needs to spawn autopilot instances (home position, model, ports).
type DroneSimConfig struct {
	SimulatorModel string  `json:"simulator_model"`
	BasePort       int     `json:"base_port"`
	Autostart      bool    `json:"autostart"`
	HomeAltitudeM  float64 `json:"home_altitude_m"`
	AllowPause     bool    `json:"allow_pause"` // see spec §9 open question on want_to_pause
}

// CommandPayload carries a lifecycle command (Client→PLD). The only value
// used today is "FINISH".
type CommandPayload struct {
	Command string `json:"command"`
}

// PlannerMessagePayload is the PLD→Planner compute request.
type PlannerMessagePayload struct {
	SignalServerConfig models.SignalServerConfig `json:"signal_server_config"`
	DroneData          models.DroneData          `json:"drone_data"`
}

// PlannerResponsePath is one vehicle's computed path, encoded as parallel
// lon/lat slices to mirror the original wire shape named in §6.2.
type PlannerResponsePath struct {
	Lon []float64 `json:"lon"`
	Lat []float64 `json:"lat"`
}

// PlannerResponseListPayload is the Planner→PLD compute response.
type PlannerResponseListPayload struct {
	Items []PlannerResponsePath `json:"items"`
}

// DroneCommandMission is the waypoint payload nested in a DroneCommandPayload.
type DroneCommandMission struct {
	Position     models.Coordinate    `json:"position"`
	AltitudeM    float64              `json:"altitude_m"`
	SpeedMS      float64              `json:"speed_ms"`
	FlyThrough   bool                 `json:"fly_through"`
	CameraAction models.CameraAction  `json:"camera_action"`
}

// DroneCommandPayload is the PLD→Drone waypoint + block-marker message
// (§4.4). TypeCommand is one of "", "START", "FINISH", "START_ALL".
type DroneCommandPayload struct {
	TypeCommand string              `json:"type_command"`
	Command     DroneCommandMission `json:"command"`
}

// NewStatus builds a Message carrying a status heartbeat.
func NewStatus(status string) *Message {
	return &Message{Tag: TagStatus, Status: &StatusPayload{TypeStatus: status}}
}

// NewCommand builds a Message carrying a lifecycle command.
func NewCommand(command string) *Message {
	return &Message{Tag: TagCommand, Command: &CommandPayload{Command: command}}
}

// NewDroneCommand builds a Message carrying a waypoint/block-marker for the
// drone link.
func NewDroneCommand(typeCommand string, mission DroneCommandMission) *Message {
	return &Message{Tag: TagDroneCommand, DroneCommand: &DroneCommandPayload{
		TypeCommand: typeCommand,
		Command:     mission,
	}}
}
