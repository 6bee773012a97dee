package models

// TelemetrySnapshot is a single per-second telemetry sample logged by a
// drone engine while a mission is in flight (PX4_Drone_Recorder in
// original_source logs these independently of mission events).
type TelemetrySnapshot struct {
	VehicleID         string  `json:"vehicle_id"`
	TimestampUnixMS   int64   `json:"timestamp_ms"`
	Position          Coordinate `json:"position"`
	RelativeAltitudeM float64 `json:"relative_altitude_m"`
	BatteryPercent    int     `json:"battery_percent"`
	Armed             bool    `json:"armed"`
	VelocityNorthMS   float64 `json:"velocity_north_ms"`
	VelocityEastMS    float64 `json:"velocity_east_ms"`
	VelocityDownMS    float64 `json:"velocity_down_ms"`
	YawDeg            float64 `json:"yaw_deg"`
	FlightMode        string  `json:"flight_mode"`
}

// NewTelemetrySnapshot builds a zero-valued snapshot for a given vehicle at
// a given timestamp; callers fill in the rest from autopilot subscriptions.
func NewTelemetrySnapshot(vehicleID string, timestampUnixMS int64) *TelemetrySnapshot {
	return &TelemetrySnapshot{
		VehicleID:       vehicleID,
		TimestampUnixMS: timestampUnixMS,
		FlightMode:      "UNKNOWN",
	}
}
