package models

import "testing"

func TestHaversineMetersZero(t *testing.T) {
	p := Coordinate{Lat: 10, Lon: 20}
	if d := HaversineMeters(p, p); d != 0 {
		t.Errorf("distance from a point to itself = %f, want 0", d)
	}
}

func TestHaversineMetersKnown(t *testing.T) {
	// Roughly 0.001 degrees of longitude at the equator is ~111 meters.
	a := Coordinate{Lat: 0, Lon: 0}
	b := Coordinate{Lat: 0, Lon: 0.001}
	d := HaversineMeters(a, b)
	if d < 100 || d > 120 {
		t.Errorf("distance = %f, want roughly 111m", d)
	}
}
