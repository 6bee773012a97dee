package models

import "testing"

func TestMissionItemValid(t *testing.T) {
	cases := []struct {
		name string
		item MissionItem
		want bool
	}{
		{"valid", MissionItem{RelativeAltitudeM: 10, SpeedMS: 5}, true},
		{"zero altitude ok", MissionItem{RelativeAltitudeM: 0, SpeedMS: 5}, true},
		{"negative altitude", MissionItem{RelativeAltitudeM: -1, SpeedMS: 5}, false},
		{"zero speed", MissionItem{RelativeAltitudeM: 10, SpeedMS: 0}, false},
	}
	for _, c := range cases {
		if got := c.item.Valid(); got != c.want {
			t.Errorf("%s: Valid() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSameLocation(t *testing.T) {
	a := MissionItem{Position: Coordinate{Lat: 10.00001, Lon: 20.00001}}
	b := MissionItem{Position: Coordinate{Lat: 10.00002, Lon: 20.00002}}
	if !SameLocation(a, b) {
		t.Errorf("expected near-identical coordinates to be SameLocation")
	}

	c := MissionItem{Position: Coordinate{Lat: 10.01, Lon: 20.00001}}
	if SameLocation(a, c) {
		t.Errorf("expected distinct coordinates to not be SameLocation")
	}
}

func TestDroneDataValid(t *testing.T) {
	d := DroneData{NumDrones: 2, PosTargets: []Coordinate{{}, {}, {}}}
	if !d.Valid() {
		t.Errorf("expected valid DroneData")
	}

	d2 := DroneData{NumDrones: 3, PosTargets: []Coordinate{{}, {}}}
	if d2.Valid() {
		t.Errorf("expected invalid DroneData when pos_targets < num_drones")
	}
}

func TestRouteResultEmpty(t *testing.T) {
	var r RouteResult
	if !r.Empty() {
		t.Errorf("expected zero-value RouteResult to be empty")
	}
	r.Path = []Coordinate{{Lat: 1, Lon: 1}}
	if r.Empty() {
		t.Errorf("expected non-empty RouteResult")
	}
}
