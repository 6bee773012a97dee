package models

// PLDStatus is the orchestrator's published status (§3, §6.3).
type PLDStatus string

const (
	PLDUnknown           PLDStatus = "UNKNOWN"
	PLDError             PLDStatus = "ERROR"
	PLDWaitingInfo       PLDStatus = "WAITING_INFO"
	PLDPlanningMission   PLDStatus = "PLANNING_MISSION"
	PLDExecutingMission  PLDStatus = "EXECUTING_MISSION"
	PLDFinish            PLDStatus = "FINISH"
)

// Terminal reports whether the status is a terminal (non-resumable) one.
func (s PLDStatus) Terminal() bool {
	return s == PLDFinish || s == PLDError
}

// DroneStatus is a single vehicle engine's published status (§3, §6.3).
type DroneStatus string

const (
	DroneUnknown          DroneStatus = "UNKNOWN"
	DroneStartingSim      DroneStatus = "STARTING_SIM"
	DroneError            DroneStatus = "ERROR"
	DroneExecutingMission DroneStatus = "EXECUTING_MISSION"
	DroneFinish           DroneStatus = "FINISH"
)

func (s DroneStatus) Terminal() bool {
	return s == DroneFinish || s == DroneError
}

// PlannerStatus is the route-planner module's published status (§3, §6.3).
type PlannerStatus string

const (
	PlannerExpectingData PlannerStatus = "EXPECTING_DATA"
	PlannerCalculating   PlannerStatus = "CALCULATING"
	PlannerError         PlannerStatus = "ERROR"
	PlannerFinish        PlannerStatus = "FINISH"
)

func (s PlannerStatus) Terminal() bool {
	return s == PlannerFinish || s == PlannerError
}
