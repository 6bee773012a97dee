package models

// CameraAction is the set of camera commands a MissionItem may carry.
type CameraAction string

const (
	CameraActionNone                 CameraAction = "NONE"
	CameraActionTakePhoto            CameraAction = "TAKE_PHOTO"
	CameraActionStartPhotoInterval   CameraAction = "START_PHOTO_INTERVAL"
	CameraActionStopPhotoInterval    CameraAction = "STOP_PHOTO_INTERVAL"
	CameraActionStartVideo           CameraAction = "START_VIDEO"
	CameraActionStopVideo            CameraAction = "STOP_VIDEO"
	CameraActionStartPhotoDistance   CameraAction = "START_PHOTO_DISTANCE"
	CameraActionStopPhotoDistance    CameraAction = "STOP_PHOTO_DISTANCE"
)

// MissionItem is a single waypoint in a vehicle's mission plan.
//
// Invariants: RelativeAltitudeM >= 0, SpeedMS > 0.
type MissionItem struct {
	Position          Coordinate   `json:"position"`
	RelativeAltitudeM float64      `json:"relative_altitude_m"`
	SpeedMS           float64      `json:"speed_ms"`
	FlyThrough        bool         `json:"fly_through"`
	GimbalPitch       float64      `json:"gimbal_pitch"`
	GimbalYaw         float64      `json:"gimbal_yaw"`
	CameraAction      CameraAction `json:"camera_action"`
}

// Valid reports whether the item satisfies the altitude/speed invariants.
func (m MissionItem) Valid() bool {
	return m.RelativeAltitudeM >= 0 && m.SpeedMS > 0
}

// SameLocation reports whether two items are at effectively the same
// position, per the degenerate-mission tolerance used by the drone engine
// (§4.3 step 3): |Δlat| < 1e-4 && |Δlon| < 1e-4.
func SameLocation(a, b MissionItem) bool {
	dLat := a.Position.Lat - b.Position.Lat
	dLon := a.Position.Lon - b.Position.Lon
	if dLat < 0 {
		dLat = -dLat
	}
	if dLon < 0 {
		dLon = -dLon
	}
	return dLat < 1e-4 && dLon < 1e-4
}

// DroneData describes one mission's fleet: the number of vehicles and the
// ordered sequence of target coordinates, the first NumDrones of which are
// each vehicle's start position.
//
// Invariant: len(PosTargets) >= NumDrones.
type DroneData struct {
	NumDrones  int          `json:"num_drones"`
	PosTargets []Coordinate `json:"pos_targets"`
}

// Valid reports whether the data satisfies the |pos_targets| >= num_drones
// invariant required before planning can begin.
func (d DroneData) Valid() bool {
	return d.NumDrones > 0 && len(d.PosTargets) >= d.NumDrones
}

// RouteResult is one vehicle's ordered flight path, including the origin
// coordinate at both the start and end of the slice.
type RouteResult struct {
	VehicleIndex int          `json:"vehicle_index"`
	Path         []Coordinate `json:"path"`
}

// Empty reports whether the route carries no waypoints.
func (r RouteResult) Empty() bool {
	return len(r.Path) == 0
}
